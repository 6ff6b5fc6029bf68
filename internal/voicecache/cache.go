// Package voicecache maintains the content-addressed local file cache of
// caregiver-recorded voice messages, keyed by owning prescription.
package voicecache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caredose/caredose/internal/log"
	"github.com/caredose/caredose/internal/models"
	"github.com/caredose/caredose/internal/store"
)

// DefaultExtension is used when neither the remote filename nor the format
// field yields a usable audio extension.
const DefaultExtension = "m4a"

// BinaryFetcher fetches a binary resource to a local destination path.
// Implemented by the remote client; tests use fakes.
type BinaryFetcher interface {
	DownloadBinary(ctx context.Context, url, dest string) error
}

// Cache is the voice-message file cache plus its persisted path index.
type Cache struct {
	dir     string
	store   *store.Store
	fetcher BinaryFetcher
}

// New creates a cache rooted at dir, indexed through st.
func New(dir string, st *store.Store, fetcher BinaryFetcher) *Cache {
	return &Cache{dir: dir, store: st, fetcher: fetcher}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Ensure resolves the local audio file for a reminder's voice message.
//
// No voice reference: any previously cached file for this record is deleted
// and an empty path is returned. Unchanged voice fields: the existing file
// is reused if still present on disk, otherwise re-downloaded. Changed
// fields: the previous file is evicted and fresh content is downloaded to a
// deterministic path derived from the prescription id.
//
// The second return value reports whether a download actually happened.
func (c *Cache) Ensure(ctx context.Context, r models.Reminder, prev *models.ScheduleRecord) (string, bool, error) {
	var prevVoice *models.VoiceRecord
	if prev != nil {
		prevVoice = prev.Voice
	}

	if !r.HasVoice() {
		if prevVoice != nil && prevVoice.LocalPath != "" {
			c.removeFile(prevVoice.LocalPath)
			c.dropIndexEntry(r.PrescriptionID)
		}
		return "", false, nil
	}

	// Unchanged voice fields: keep the file if it is actually there.
	if r.VoiceEquals(prevVoice) && prevVoice.LocalPath != "" {
		if _, err := os.Stat(prevVoice.LocalPath); err == nil {
			return prevVoice.LocalPath, false, nil
		}
		// Missing on disk despite matching fields: fall through to
		// re-download.
	}

	ext := ResolveExtension(r.Voice.Filename, r.Voice.Format)
	dest := filepath.Join(c.dir, r.PrescriptionID+"."+ext)

	// Evict prior content first.
	if prevVoice != nil && prevVoice.LocalPath != "" && prevVoice.LocalPath != dest {
		c.removeFile(prevVoice.LocalPath)
	}
	c.removeFile(dest)

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", false, fmt.Errorf("create voice cache directory: %w", err)
	}

	if err := c.fetcher.DownloadBinary(ctx, r.Voice.URL, dest); err != nil {
		return "", false, fmt.Errorf("download voice message for prescription %s: %w", r.PrescriptionID, err)
	}

	if err := c.setIndexEntry(r.PrescriptionID, dest); err != nil {
		return "", false, err
	}

	return dest, true, nil
}

// Sweep deletes every cached file whose owning prescription id is no longer
// referenced, pruning the path index alongside. Returns the number of files
// removed.
func (c *Cache) Sweep(referenced map[string]bool) (int, error) {
	index, err := c.store.LoadVoiceIndex()
	if err != nil {
		return 0, err
	}

	removed := 0
	for prescriptionID, path := range index {
		if referenced[prescriptionID] {
			continue
		}
		c.removeFile(path)
		delete(index, prescriptionID)
		removed++
	}

	if removed > 0 {
		if err := c.store.SaveVoiceIndex(index); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// Clear removes the entire cache directory and its index.
func (c *Cache) Clear() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("remove voice cache: %w", err)
	}
	return c.store.MultiRemove([]string{store.KeyVoiceIndex})
}

// Size returns the total size in bytes of all cached files.
func (c *Cache) Size() int64 {
	var total int64
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0
	}
	for _, entry := range entries {
		if info, err := entry.Info(); err == nil && !entry.IsDir() {
			total += info.Size()
		}
	}
	return total
}

// removeFile deletes a cached file, logging (not failing) on error.
func (c *Cache) removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Errorf("voicecache: remove %s: %v", path, err)
	}
}

func (c *Cache) setIndexEntry(prescriptionID, path string) error {
	index, err := c.store.LoadVoiceIndex()
	if err != nil {
		return err
	}
	index[prescriptionID] = path
	return c.store.SaveVoiceIndex(index)
}

func (c *Cache) dropIndexEntry(prescriptionID string) {
	index, err := c.store.LoadVoiceIndex()
	if err != nil {
		return
	}
	if _, ok := index[prescriptionID]; !ok {
		return
	}
	delete(index, prescriptionID)
	if err := c.store.SaveVoiceIndex(index); err != nil {
		log.Errorf("voicecache: save index: %v", err)
	}
}

// ResolveExtension picks the cached file's extension: the extension
// embedded in the remote filename wins, then the normalized format field,
// then the generic audio default.
func ResolveExtension(filename, format string) string {
	if ext := strings.TrimPrefix(filepath.Ext(filename), "."); ext != "" {
		return strings.ToLower(ext)
	}
	if format != "" {
		f := strings.ToLower(strings.TrimSpace(format))
		f = strings.TrimPrefix(f, "audio/")
		switch f {
		case "mpeg":
			return "mp3"
		case "x-m4a", "mp4":
			return "m4a"
		}
		if f != "" {
			return f
		}
	}
	return DefaultExtension
}
