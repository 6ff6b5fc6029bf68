// Package models defines the core data structures for Caredose.
package models

import "time"

// VoiceMessage describes a caregiver-recorded audio message attached to a
// prescription, as reported by the remote care service.
type VoiceMessage struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Checksum string `json:"checksum"`
	Version  int    `json:"version"`
	Format   string `json:"format"`
}

// Reminder is one scheduled medication-intake event for a patient.
// Reminders are owned by the remote care service; the device only ever
// reflects them, it never originates or mutates them.
type Reminder struct {
	ID             string `json:"reminderId"`
	PrescriptionID string `json:"prescriptionId"`
	PatientID      string `json:"patientId"`

	Medication   string `json:"medicationName"`
	Dosage       string `json:"dosage"`
	Instructions string `json:"instructions,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`

	ScheduledAt time.Time `json:"scheduledAt"`

	Voice *VoiceMessage `json:"voiceMessage,omitempty"`
}

// HasVoice reports whether the reminder carries a caregiver voice message.
func (r *Reminder) HasVoice() bool {
	return r.Voice != nil && r.Voice.URL != ""
}

// VoiceEquals reports whether the reminder's voice fields exactly match a
// previously recorded voice state. Both sides nil counts as equal.
func (r *Reminder) VoiceEquals(prev *VoiceRecord) bool {
	if !r.HasVoice() {
		return prev == nil || prev.URL == ""
	}
	if prev == nil {
		return false
	}
	v := r.Voice
	return v.URL == prev.URL &&
		v.Filename == prev.Filename &&
		v.Checksum == prev.Checksum &&
		v.Version == prev.Version &&
		v.Format == prev.Format
}
