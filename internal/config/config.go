// Package config handles application configuration management.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Base directory for all Caredose data (~/.local/share/caredose)
	BaseDir string

	// Remote care-service API settings
	Remote RemoteConfig

	// Local alert scheduling settings
	Schedule ScheduleConfig

	// Locale is the two-letter language code used to pick notification
	// sounds. Defaults to "en".
	Locale string
}

// RemoteConfig holds care-service API settings.
type RemoteConfig struct {
	BaseURL   string
	Token     string
	RateLimit int // requests per minute
	DaysAhead int // reminder fetch horizon
}

// ScheduleConfig holds on-device alert scheduling settings.
type ScheduleConfig struct {
	// NativeAlarms enables the full-screen alarm bridge where the host
	// platform provides one.
	NativeAlarms bool

	// RepeatCount is the desired number of repeated notifications per
	// reminder on the notification-batch platform.
	RepeatCount int

	// MaxPending is the hard OS ceiling on pending scheduled notifications.
	MaxPending int

	// RepeatInterval is the offset between repeated notifications.
	RepeatInterval time.Duration

	// MinSyncInterval rate-limits unforced reconciliations.
	MinSyncInterval time.Duration

	// SnoozeDelay is how far a locally snoozed reminder is pushed out.
	SnoozeDelay time.Duration
}

// Load reads configuration from the environment (and a .env file, if one
// exists) and ensures required directories exist.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if dir := os.Getenv("CAREDOSE_DIR"); dir != "" {
		cfg.BaseDir = dir
	}
	if url := os.Getenv("CAREDOSE_API_URL"); url != "" {
		cfg.Remote.BaseURL = url
	}
	if token := os.Getenv("CAREDOSE_TOKEN"); token != "" {
		cfg.Remote.Token = token
	}
	if lang := os.Getenv("CAREDOSE_LANG"); lang != "" {
		cfg.Locale = lang
	}
	if v := os.Getenv("CAREDOSE_NATIVE_ALARMS"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err == nil {
			cfg.Schedule.NativeAlarms = enabled
		}
	}
	if v := os.Getenv("CAREDOSE_DAYS_AHEAD"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.Remote.DaysAhead = days
		}
	}

	if err := ensureDirectories(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ensureDirectories creates required directories if they don't exist.
func ensureDirectories(cfg *Config) error {
	dirs := []string{
		cfg.BaseDir,
		GetPaths(cfg).VoiceCache,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
