package voicecache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caredose/caredose/internal/models"
	"github.com/caredose/caredose/internal/store"
)

// fakeFetcher counts downloads and writes a marker file.
type fakeFetcher struct {
	calls int
	fail  bool
}

func (f *fakeFetcher) DownloadBinary(_ context.Context, url, dest string) error {
	f.calls++
	if f.fail {
		return errors.New("network unreachable")
	}
	return os.WriteFile(dest, []byte("audio:"+url), 0644)
}

func testCache(t *testing.T) (*Cache, *fakeFetcher) {
	t.Helper()

	st, err := store.New(store.DefaultConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	fetcher := &fakeFetcher{}
	return New(filepath.Join(t.TempDir(), "voice"), st, fetcher), fetcher
}

func voiceReminder() models.Reminder {
	return models.Reminder{
		ID:             "r1",
		PrescriptionID: "p1",
		Medication:     "Amoxicillin",
		ScheduledAt:    time.Now().Add(time.Hour),
		Voice: &models.VoiceMessage{
			URL:      "https://cdn.example.com/voice/p1.m4a",
			Filename: "p1.m4a",
			Checksum: "abc123",
			Version:  1,
			Format:   "m4a",
		},
	}
}

func recordFor(r models.Reminder, localPath string) *models.ScheduleRecord {
	return &models.ScheduleRecord{
		ReminderID:     r.ID,
		PrescriptionID: r.PrescriptionID,
		Voice: &models.VoiceRecord{
			URL:       r.Voice.URL,
			Filename:  r.Voice.Filename,
			Checksum:  r.Voice.Checksum,
			Version:   r.Voice.Version,
			Format:    r.Voice.Format,
			LocalPath: localPath,
		},
	}
}

func TestEnsure_DownloadsFreshVoice(t *testing.T) {
	cache, fetcher := testCache(t)

	path, downloaded, err := cache.Ensure(context.Background(), voiceReminder(), nil)
	require.NoError(t, err)
	assert.True(t, downloaded)
	assert.Equal(t, filepath.Join(cache.Dir(), "p1.m4a"), path)
	assert.FileExists(t, path)
	assert.Equal(t, 1, fetcher.calls)
}

func TestEnsure_ReusesUnchangedVoice(t *testing.T) {
	cache, fetcher := testCache(t)
	r := voiceReminder()

	path, _, err := cache.Ensure(context.Background(), r, nil)
	require.NoError(t, err)

	// Same voice fields again: the download counter must stay at 1.
	path2, downloaded, err := cache.Ensure(context.Background(), r, recordFor(r, path))
	require.NoError(t, err)
	assert.False(t, downloaded)
	assert.Equal(t, path, path2)
	assert.Equal(t, 1, fetcher.calls)
}

func TestEnsure_RedownloadsWhenFileMissing(t *testing.T) {
	cache, fetcher := testCache(t)
	r := voiceReminder()

	path, _, err := cache.Ensure(context.Background(), r, nil)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	// Fields unchanged but the file vanished (reinstall, manual cleanup):
	// fall through to a fresh download.
	_, downloaded, err := cache.Ensure(context.Background(), r, recordFor(r, path))
	require.NoError(t, err)
	assert.True(t, downloaded)
	assert.Equal(t, 2, fetcher.calls)
}

func TestEnsure_ChangedChecksumEvictsAndRedownloads(t *testing.T) {
	cache, fetcher := testCache(t)
	r := voiceReminder()

	path, _, err := cache.Ensure(context.Background(), r, nil)
	require.NoError(t, err)
	prev := recordFor(r, path)

	r.Voice.Checksum = "def456"
	r.Voice.Version = 2
	r.Voice.Filename = "p1-v2.mp3"

	path2, downloaded, err := cache.Ensure(context.Background(), r, prev)
	require.NoError(t, err)
	assert.True(t, downloaded)
	assert.Equal(t, 2, fetcher.calls)
	assert.Equal(t, filepath.Join(cache.Dir(), "p1.mp3"), path2)
	assert.NoFileExists(t, path, "stale file must be evicted")
}

func TestEnsure_NoVoiceDeletesPrevious(t *testing.T) {
	cache, _ := testCache(t)
	r := voiceReminder()

	path, _, err := cache.Ensure(context.Background(), r, nil)
	require.NoError(t, err)
	prev := recordFor(r, path)

	r.Voice = nil
	path2, downloaded, err := cache.Ensure(context.Background(), r, prev)
	require.NoError(t, err)
	assert.Empty(t, path2)
	assert.False(t, downloaded)
	assert.NoFileExists(t, path)
}

func TestEnsure_DownloadFailure(t *testing.T) {
	cache, fetcher := testCache(t)
	fetcher.fail = true

	path, downloaded, err := cache.Ensure(context.Background(), voiceReminder(), nil)
	assert.Error(t, err)
	assert.Empty(t, path)
	assert.False(t, downloaded)
}

func TestSweep(t *testing.T) {
	cache, _ := testCache(t)

	r1 := voiceReminder()
	r2 := voiceReminder()
	r2.ID = "r2"
	r2.PrescriptionID = "p2"
	r2.Voice.URL = "https://cdn.example.com/voice/p2.m4a"

	path1, _, err := cache.Ensure(context.Background(), r1, nil)
	require.NoError(t, err)
	path2, _, err := cache.Ensure(context.Background(), r2, nil)
	require.NoError(t, err)

	removed, err := cache.Sweep(map[string]bool{"p1": true})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.FileExists(t, path1)
	assert.NoFileExists(t, path2)
}

func TestClear(t *testing.T) {
	cache, _ := testCache(t)

	path, _, err := cache.Ensure(context.Background(), voiceReminder(), nil)
	require.NoError(t, err)

	require.NoError(t, cache.Clear())
	assert.NoFileExists(t, path)
	assert.NoDirExists(t, cache.Dir())
}

func TestResolveExtension(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		format   string
		want     string
	}{
		{"filename wins", "message.MP3", "m4a", "mp3"},
		{"format fallback", "message", "aac", "aac"},
		{"format mime prefix", "", "audio/mpeg", "mp3"},
		{"format mp4 alias", "", "mp4", "m4a"},
		{"generic default", "", "", DefaultExtension},
		{"blank format", "noext", "  ", DefaultExtension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveExtension(tt.filename, tt.format))
		})
	}
}
