package platform

import "strings"

// notificationSounds maps a language code to its bundled alert sound.
var notificationSounds = map[string]string{
	"en": "reminder_en.wav",
	"es": "reminder_es.wav",
	"fr": "reminder_fr.wav",
	"pt": "reminder_pt.wav",
	"de": "reminder_de.wav",
}

// DefaultSound is used when no locale-specific sound is bundled.
const DefaultSound = "reminder_default.wav"

// SoundForLocale returns the bundled notification sound for a language
// code. Region subtags ("pt-BR") are reduced to the base language.
func SoundForLocale(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if sound, ok := notificationSounds[lang]; ok {
		return sound
	}
	return DefaultSound
}
