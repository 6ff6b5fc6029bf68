package config

import "time"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseDir: DefaultBaseDir(),

		Remote: RemoteConfig{
			BaseURL:   "https://api.caredose.app",
			RateLimit: 30,
			DaysAhead: 30,
		},

		Schedule: ScheduleConfig{
			NativeAlarms:    false,
			RepeatCount:     10,
			MaxPending:      64,
			RepeatInterval:  2 * time.Minute,
			MinSyncInterval: 15 * time.Second,
			SnoozeDelay:     5 * time.Minute,
		},

		Locale: "en",
	}
}
