package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/caredose/caredose/internal/log"
	"github.com/caredose/caredose/internal/models"
	"github.com/caredose/caredose/internal/platform"
)

// DownloadAndScheduleReminders is a convenience wrapper around a forced
// reconciliation that reports the remote count as "scheduled".
func (e *Engine) DownloadAndScheduleReminders(ctx context.Context, token string, daysAhead int) (Result, error) {
	result, err := e.Reconcile(ctx, token, daysAhead, Options{Force: true})
	if err != nil {
		return result, err
	}
	result.Scheduled = result.RemoteCount
	return result, nil
}

// ScheduleReminder realizes a single reminder on-device outside a full
// reconciliation, replacing any existing schedule for it.
func (e *Engine) ScheduleReminder(ctx context.Context, r models.Reminder) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.store.LoadRecords()
	if err != nil {
		return err
	}

	var prev *models.ScheduleRecord
	if rec, ok := records[r.ID]; ok {
		e.sched.CancelStored(ctx, rec)
		prev = &rec
	}

	if err := e.sched.BeginPass(ctx, 1); err != nil {
		return err
	}
	rec, _, err := e.scheduleOne(ctx, r, prev, "")
	if err != nil {
		return fmt.Errorf("schedule reminder %s: %w", r.ID, err)
	}

	records[r.ID] = rec
	return e.store.SaveRecords(records)
}

// SnoozeReminderLocally cancels the existing schedule for one reminder and
// re-schedules it for now plus the snooze delay, under a fresh alert id
// suffixed with a timestamp. The reminder's remote identity and fingerprint
// stay untouched, so future reconciliations still diff it normally.
func (e *Engine) SnoozeReminderLocally(ctx context.Context, reminderID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.store.LoadRecords()
	if err != nil {
		return err
	}
	rec, ok := records[reminderID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownReminder, reminderID)
	}

	e.sched.CancelStored(ctx, rec)

	now := e.now()
	synthetic := reminderFromRecord(rec)
	synthetic.ScheduledAt = now.Add(e.snoozeDelay)
	overrideID := fmt.Sprintf("%s-snooze-%d", reminderID, now.UnixMilli())

	if err := e.sched.BeginPass(ctx, 1); err != nil {
		return err
	}
	res, err := e.sched.Schedule(ctx, platform.Request{
		Reminder:   synthetic,
		VoicePath:  localVoicePath(rec),
		OverrideID: overrideID,
	})
	if err != nil {
		return fmt.Errorf("snooze reminder %s: %w", reminderID, err)
	}

	// Only the realization changes; fingerprint and identity stay as the
	// remote knows them.
	rec.Schedule = res
	rec.LastSyncedAt = now
	records[reminderID] = rec
	return e.store.SaveRecords(records)
}

// ConfirmReminderLocally cancels the schedule for a taken dose, drops its
// record, and stores a confirmation entry pending upload.
func (e *Engine) ConfirmReminderLocally(ctx context.Context, reminderID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.store.LoadRecords()
	if err != nil {
		return err
	}
	rec, ok := records[reminderID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownReminder, reminderID)
	}

	e.sched.CancelStored(ctx, rec)
	delete(records, reminderID)
	if err := e.store.SaveRecords(records); err != nil {
		return err
	}

	return e.store.SaveConfirmation(reminderID, e.now())
}

// CancelPendingNotifications cancels every live pending OS notification.
// Records are left in place; the next reconciliation's drift check
// reschedules whatever should still alert.
func (e *Engine) CancelPendingNotifications(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pending, err := e.listPending(ctx)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, p := range pending {
		if err := e.notif.CancelNotification(ctx, p.ID); err != nil {
			log.Errorf("reconciler: cancel notification %s: %v", p.ID, err)
			continue
		}
		cancelled++
	}
	return cancelled, nil
}

// ClearAllLocalReminders is the full teardown: every on-device alert is
// cancelled, every persisted key wiped, and the voice cache removed.
func (e *Engine) ClearAllLocalReminders(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.store.LoadRecords()
	if err != nil {
		return err
	}
	for _, rec := range records {
		e.sched.CancelStored(ctx, rec)
	}

	if pending, err := e.listPending(ctx); err == nil {
		for _, p := range pending {
			if err := e.notif.CancelNotification(ctx, p.ID); err != nil {
				log.Errorf("reconciler: cancel notification %s: %v", p.ID, err)
			}
		}
	}

	if err := e.cache.Clear(); err != nil {
		return err
	}
	return e.store.Clear()
}

// CheckForUpdates runs a rate-limited reconciliation: a cheap call suitable
// for app-foreground or periodic triggers.
func (e *Engine) CheckForUpdates(ctx context.Context, token string, daysAhead int) (Result, error) {
	return e.Reconcile(ctx, token, daysAhead, Options{})
}

// GetLastSyncTime returns the timestamp of the last successful sync, or
// nil if none has completed yet.
func (e *Engine) GetLastSyncTime() (*time.Time, error) {
	state, err := e.store.LoadSyncState()
	if err != nil {
		return nil, err
	}
	return state.LastSyncAt, nil
}

// reminderFromRecord re-derives a synthetic reminder from a persisted
// record, for operations that run without remote data (snooze).
func reminderFromRecord(rec models.ScheduleRecord) models.Reminder {
	r := models.Reminder{
		ID:             rec.ReminderID,
		PrescriptionID: rec.PrescriptionID,
		PatientID:      rec.PatientID,
		Medication:     rec.Medication,
		Dosage:         rec.Dosage,
	}
	if rec.Voice != nil {
		r.Voice = &models.VoiceMessage{
			URL:      rec.Voice.URL,
			Filename: rec.Voice.Filename,
			Checksum: rec.Voice.Checksum,
			Version:  rec.Voice.Version,
			Format:   rec.Voice.Format,
		}
	}
	return r
}

func localVoicePath(rec models.ScheduleRecord) string {
	if rec.Voice == nil {
		return ""
	}
	return rec.Voice.LocalPath
}
