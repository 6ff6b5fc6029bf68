package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Paths contains commonly used file paths.
type Paths struct {
	Database   string // Main SQLite database
	VoiceCache string // Cached caregiver voice messages
	Logs       string // Log directory
}

// GetPaths returns all commonly used paths based on config.
func GetPaths(cfg *Config) Paths {
	return Paths{
		Database:   filepath.Join(cfg.BaseDir, "caredose.db"),
		VoiceCache: filepath.Join(cfg.BaseDir, "voice"),
		Logs:       filepath.Join(cfg.BaseDir, "logs"),
	}
}

// DefaultBaseDir returns the default base directory, following the XDG
// data-home convention.
func DefaultBaseDir() string {
	return filepath.Join(xdg.DataHome, "caredose")
}
