package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "en", cfg.Locale)
	assert.Equal(t, 30, cfg.Remote.DaysAhead)
	assert.Equal(t, 64, cfg.Schedule.MaxPending)
	assert.Equal(t, 10, cfg.Schedule.RepeatCount)
	assert.Equal(t, 15*time.Second, cfg.Schedule.MinSyncInterval)
	assert.Equal(t, 5*time.Minute, cfg.Schedule.SnoozeDelay)
	assert.False(t, cfg.Schedule.NativeAlarms) // Opt-in capability
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CAREDOSE_DIR", dir)
	t.Setenv("CAREDOSE_API_URL", "https://staging.caredose.app")
	t.Setenv("CAREDOSE_TOKEN", "test-token-123")
	t.Setenv("CAREDOSE_LANG", "es")
	t.Setenv("CAREDOSE_NATIVE_ALARMS", "true")
	t.Setenv("CAREDOSE_DAYS_AHEAD", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.BaseDir)
	assert.Equal(t, "https://staging.caredose.app", cfg.Remote.BaseURL)
	assert.Equal(t, "test-token-123", cfg.Remote.Token)
	assert.Equal(t, "es", cfg.Locale)
	assert.True(t, cfg.Schedule.NativeAlarms)
	assert.Equal(t, 7, cfg.Remote.DaysAhead)
}

func TestLoadCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CAREDOSE_DIR", filepath.Join(dir, "nested", "caredose"))

	cfg, err := Load()
	require.NoError(t, err)

	paths := GetPaths(cfg)
	assert.DirExists(t, cfg.BaseDir)
	assert.DirExists(t, paths.VoiceCache)
}

func TestGetPaths(t *testing.T) {
	cfg := &Config{BaseDir: "/data/caredose"}
	paths := GetPaths(cfg)

	assert.Equal(t, filepath.Join("/data/caredose", "caredose.db"), paths.Database)
	assert.Equal(t, filepath.Join("/data/caredose", "voice"), paths.VoiceCache)
	assert.Equal(t, filepath.Join("/data/caredose", "logs"), paths.Logs)
}
