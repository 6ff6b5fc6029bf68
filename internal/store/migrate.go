package store

import (
	"time"

	"github.com/caredose/caredose/internal/fingerprint"
	"github.com/caredose/caredose/internal/models"
)

// MigrateLegacy converts schema v1 records into v2 records. Pure function:
// each legacy record becomes a v2 record carrying the legacy fingerprint
// sentinel (so it looks changed on the first reconciliation) and a schedule
// variant matching the platform that was default at migration time.
func MigrateLegacy(legacy map[string]models.LegacyRecord, platform models.PlatformKind) map[string]models.ScheduleRecord {
	migrated := make(map[string]models.ScheduleRecord, len(legacy))
	for reminderID, rec := range legacy {
		schedule := models.ScheduleResult{Platform: platform}
		if platform == models.PlatformNativeAlarm {
			schedule.AlarmID = rec.NotificationID
		} else {
			schedule.NotificationIDs = []string{rec.NotificationID}
		}
		migrated[reminderID] = models.ScheduleRecord{
			ReminderID:   reminderID,
			Schedule:     schedule,
			Fingerprint:  fingerprint.Legacy,
			LastSyncedAt: time.Now(),
		}
	}
	return migrated
}

// EnsureMigrated runs the one-time v1 -> v2 migration. It is idempotent:
// a persisted done flag short-circuits every call after the first. Legacy
// records are kept under their own key so reconciliation can still cancel
// the stale OS alerts they reference.
func (s *Store) EnsureMigrated() error {
	done, err := s.Get(KeyMigrationDone)
	if err != nil {
		return err
	}
	if done == "true" {
		return nil
	}

	legacy, err := s.LoadLegacyRecords()
	if err != nil {
		return err
	}

	if len(legacy) > 0 {
		records := make(map[string]models.ScheduleRecord)
		if _, err := s.getJSON(KeyRecordsV2, &records); err != nil {
			return err
		}
		for id, rec := range MigrateLegacy(legacy, s.defaultPlatform) {
			// Never clobber a v2 record that already exists.
			if _, ok := records[id]; !ok {
				records[id] = rec
			}
		}
		if err := s.SaveRecords(records); err != nil {
			return err
		}
	}

	return s.Set(KeyMigrationDone, "true")
}
