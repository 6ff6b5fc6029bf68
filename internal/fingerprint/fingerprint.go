// Package fingerprint computes short content hashes over a reminder's
// mutable fields, used to detect no-op vs. changed reminders cheaply.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/caredose/caredose/internal/models"
)

// Length is the number of hex characters in a fingerprint.
// 16 hex chars = 64 bits, plenty for a non-cryptographic change check.
const Length = 16

// Legacy is the sentinel fingerprint written by the v1 migration. It can
// never collide with a real fingerprint (wrong length), so migrated records
// always look changed on their first reconciliation.
const Legacy = "legacy"

// Compute returns the fingerprint of a reminder's mutable fields: scheduled
// time, medication name, dosage, instructions, image reference, and every
// voice field. Identical fields produce identical fingerprints; any single
// differing field produces, with overwhelming probability, a different one.
func Compute(r models.Reminder) string {
	parts := []string{
		strconv.FormatInt(r.ScheduledAt.UnixMilli(), 10),
		r.Medication,
		r.Dosage,
		r.Instructions,
		r.ImageURL,
	}
	if r.Voice != nil {
		parts = append(parts,
			r.Voice.URL,
			r.Voice.Filename,
			r.Voice.Checksum,
			strconv.Itoa(r.Voice.Version),
			r.Voice.Format,
		)
	}
	h := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(h[:])[:Length]
}
