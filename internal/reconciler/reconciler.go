// Package reconciler implements the top-level reconciliation algorithm:
// fetch the authoritative reminder set, diff it against local schedule
// records, drive the voice cache and the platform scheduling adapter, and
// commit the new state. At most one reconciliation runs at a time.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/caredose/caredose/internal/fingerprint"
	"github.com/caredose/caredose/internal/log"
	"github.com/caredose/caredose/internal/models"
	"github.com/caredose/caredose/internal/platform"
	"github.com/caredose/caredose/internal/store"
	"github.com/caredose/caredose/internal/voicecache"
)

// DefaultMinSyncInterval rate-limits unforced reconciliations.
const DefaultMinSyncInterval = 15 * time.Second

// DefaultSnoozeDelay is how far a locally snoozed reminder is pushed out.
const DefaultSnoozeDelay = 5 * time.Minute

// ErrUnknownReminder is returned when an operation names a reminder with no
// local schedule record.
var ErrUnknownReminder = errors.New("reconciler: no local record for reminder")

// Fetcher fetches the authoritative upcoming reminder set.
// Implemented by the remote client; tests use fakes.
type Fetcher interface {
	FetchUpcomingReminders(ctx context.Context, token string, daysAhead int) ([]models.Reminder, error)
}

// Options tunes a single reconciliation call.
type Options struct {
	// Force bypasses the rate limit.
	Force bool
	// MinInterval overrides the engine's rate-limit window for this call.
	MinInterval time.Duration
}

// Result reports what one reconciliation did.
type Result struct {
	Success bool
	// Skipped is set when the run was a vacuous success: another
	// reconciliation held the lock, or the rate limit suppressed this one.
	Skipped bool

	RemoteCount            int
	Scheduled              int
	Updated                int
	Removed                int
	AudioDownloaded        int
	CancelledNotifications int
}

// Config wires an Engine.
type Config struct {
	Store         *store.Store
	Cache         *voicecache.Cache
	Scheduler     platform.Scheduler
	Notifications platform.NotificationAPI
	Fetcher       Fetcher

	MinSyncInterval time.Duration
	SnoozeDelay     time.Duration

	// Now supplies the current time; defaults to time.Now.
	Now func() time.Time
}

// Engine owns the reconciliation lock and all public reminder operations.
// Snooze and confirm serialize behind the same lock as reconciliation, so
// no other mutation can race a running pass.
type Engine struct {
	store   *store.Store
	cache   *voicecache.Cache
	sched   platform.Scheduler
	notif   platform.NotificationAPI
	fetcher Fetcher

	minInterval time.Duration
	snoozeDelay time.Duration
	now         func() time.Time

	mu sync.Mutex
}

// New creates an Engine.
func New(cfg Config) *Engine {
	if cfg.MinSyncInterval <= 0 {
		cfg.MinSyncInterval = DefaultMinSyncInterval
	}
	if cfg.SnoozeDelay <= 0 {
		cfg.SnoozeDelay = DefaultSnoozeDelay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		store:       cfg.Store,
		cache:       cfg.Cache,
		sched:       cfg.Scheduler,
		notif:       cfg.Notifications,
		fetcher:     cfg.Fetcher,
		minInterval: cfg.MinSyncInterval,
		snoozeDelay: cfg.SnoozeDelay,
		now:         cfg.Now,
	}
}

// Reconcile synchronizes local on-device alerts with the remote reminder
// set. Concurrent callers receive an immediate vacuous success; unforced
// calls within the rate-limit window likewise. A remote fetch failure
// aborts cleanly with no local mutation.
func (e *Engine) Reconcile(ctx context.Context, token string, daysAhead int, opts Options) (Result, error) {
	if !e.mu.TryLock() {
		return Result{Success: true, Skipped: true}, nil
	}
	defer e.mu.Unlock()

	minInterval := e.minInterval
	if opts.MinInterval > 0 {
		minInterval = opts.MinInterval
	}

	state, err := e.store.LoadSyncState()
	if err != nil {
		return Result{}, err
	}
	if !opts.Force && state.LastReconcileAt != nil && e.now().Sub(*state.LastReconcileAt) < minInterval {
		return Result{Success: true, Skipped: true}, nil
	}

	// Best-effort crash marker, not a lock.
	state.InProgress = true
	if err := e.store.SaveSyncState(state); err != nil {
		log.Errorf("reconciler: save in-progress flag: %v", err)
	}

	result, err := e.reconcileLocked(ctx, token, daysAhead)

	state.InProgress = false
	if result.Success {
		now := e.now()
		state.LastSyncAt = &now
		state.LastReconcileAt = &now
		state.SchemaVersion = models.CurrentSchemaVersion
	}
	if saveErr := e.store.SaveSyncState(state); saveErr != nil && err == nil {
		err = saveErr
	}

	return result, err
}

// reconcileLocked runs the diff-and-apply pass. Caller holds the lock.
func (e *Engine) reconcileLocked(ctx context.Context, token string, daysAhead int) (Result, error) {
	var result Result

	// 1. Fetch the authoritative set. Failure here aborts atomically.
	remote, err := e.fetcher.FetchUpcomingReminders(ctx, token, daysAhead)
	if err != nil {
		return Result{}, fmt.Errorf("fetch remote reminders: %w", err)
	}
	sort.SliceStable(remote, func(i, j int) bool {
		return remote[i].ScheduledAt.Before(remote[j].ScheduledAt)
	})
	result.RemoteCount = len(remote)

	// 2. Load local state (runs the v1 migration on first touch).
	records, err := e.store.LoadRecords()
	if err != nil {
		return Result{}, err
	}

	remoteIDs := make(map[string]bool, len(remote))
	for _, r := range remote {
		remoteIDs[r.ID] = true
	}

	// 3. Cancel and drop records whose reminder vanished remotely
	// (taken, expired, or deleted server-side).
	for id, rec := range records {
		if remoteIDs[id] {
			continue
		}
		result.CancelledNotifications += e.sched.CancelStored(ctx, rec)
		delete(records, id)
		result.Removed++
	}

	// Snapshot the OS's live pending set once, before scheduling: it
	// drives both the drift check and the orphan cleanup.
	livePending, err := e.listPending(ctx)
	if err != nil {
		return Result{}, err
	}
	liveIDs := make(map[string]bool, len(livePending))
	for _, p := range livePending {
		liveIDs[p.ID] = true
	}

	// 4. Classify every remote reminder.
	type candidate struct {
		reminder models.Reminder
		prev     *models.ScheduleRecord
		isNew    bool
	}
	var candidates []candidate

	for _, r := range remote {
		fp := fingerprint.Compute(r)
		rec, ok := records[r.ID]
		switch {
		case !ok:
			candidates = append(candidates, candidate{reminder: r, isNew: true})
		case rec.Fingerprint != fp:
			prev := rec
			candidates = append(candidates, candidate{reminder: r, prev: &prev})
		case e.sched.Kind() == models.PlatformNotificationBatch && !anyLive(rec, liveIDs):
			// Unchanged on paper, but the OS shows no actual pending
			// alert: self-heal drift from eviction or reinstall.
			prev := rec
			candidates = append(candidates, candidate{reminder: r, prev: &prev})
		}
	}

	// 5. Schedule, budgeting notification slots across the whole pass.
	if err := e.sched.BeginPass(ctx, len(candidates)); err != nil {
		return Result{}, err
	}

	for _, c := range candidates {
		if c.prev != nil {
			result.CancelledNotifications += e.sched.CancelStored(ctx, *c.prev)
		}

		rec, downloaded, err := e.scheduleOne(ctx, c.reminder, c.prev, "")
		if err != nil {
			if errors.Is(err, platform.ErrSlotsExhausted) {
				// Budget gone: defer everything left to the next pass.
				log.Printf("reconciler: notification slots exhausted, deferring remaining reminders\n")
				break
			}
			// One bad reminder never aborts the batch.
			log.Errorf("reconciler: schedule reminder %s: %v", c.reminder.ID, err)
			continue
		}
		if downloaded {
			result.AudioDownloaded++
		}
		records[c.reminder.ID] = rec
		if c.isNew {
			result.Scheduled++
		} else {
			result.Updated++
		}
	}

	// 6. Cancel orphaned OS notifications: alerts for vanished reminders,
	// and stale duplicates a record no longer claims.
	for _, p := range livePending {
		orphaned := !remoteIDs[p.ReminderID]
		if !orphaned {
			if rec, ok := records[p.ReminderID]; ok {
				orphaned = !claimsNotification(rec, p.ID)
			}
		}
		if !orphaned {
			continue
		}
		if err := e.notif.CancelNotification(ctx, p.ID); err != nil {
			log.Errorf("reconciler: cancel orphaned notification %s: %v", p.ID, err)
			continue
		}
		result.CancelledNotifications++
	}

	// 7. Clean up leftover schema v1 records.
	if err := e.cleanupLegacy(ctx, remoteIDs, records, &result); err != nil {
		log.Errorf("reconciler: legacy cleanup: %v", err)
	}

	// 8. Sweep voice files no current record references.
	referenced := make(map[string]bool, len(records))
	for _, rec := range records {
		referenced[rec.PrescriptionID] = true
	}
	if _, err := e.cache.Sweep(referenced); err != nil {
		log.Errorf("reconciler: voice cache sweep: %v", err)
	}

	// 9. Commit.
	if err := e.store.SaveRecords(records); err != nil {
		return Result{}, err
	}

	result.Success = true
	return result, nil
}

// scheduleOne resolves the voice asset and realizes one reminder
// on-device, returning the fresh schedule record.
func (e *Engine) scheduleOne(ctx context.Context, r models.Reminder, prev *models.ScheduleRecord, overrideID string) (models.ScheduleRecord, bool, error) {
	voicePath, downloaded, err := e.cache.Ensure(ctx, r, prev)
	if err != nil {
		// Degrade to the default system sound rather than dropping the
		// alert.
		log.Errorf("reconciler: voice asset for reminder %s: %v", r.ID, err)
		voicePath = ""
	}

	res, err := e.sched.Schedule(ctx, platform.Request{
		Reminder:   r,
		VoicePath:  voicePath,
		OverrideID: overrideID,
	})
	if err != nil {
		return models.ScheduleRecord{}, downloaded, err
	}

	rec := models.ScheduleRecord{
		ReminderID:     r.ID,
		PrescriptionID: r.PrescriptionID,
		PatientID:      r.PatientID,
		Medication:     r.Medication,
		Dosage:         r.Dosage,
		Schedule:       res,
		Fingerprint:    fingerprint.Compute(r),
		LastSyncedAt:   e.now(),
	}
	if r.HasVoice() {
		rec.Voice = &models.VoiceRecord{
			URL:       r.Voice.URL,
			Filename:  r.Voice.Filename,
			Checksum:  r.Voice.Checksum,
			Version:   r.Voice.Version,
			Format:    r.Voice.Format,
			LocalPath: voicePath,
		}
	}
	return rec, downloaded, nil
}

// cleanupLegacy cancels and drops v1 records whose reminder vanished
// remotely or whose single alert id diverged from what the v2 record now
// owns (stale duplicates from earlier versions).
func (e *Engine) cleanupLegacy(ctx context.Context, remoteIDs map[string]bool, records map[string]models.ScheduleRecord, result *Result) error {
	legacy, err := e.store.LoadLegacyRecords()
	if err != nil {
		return err
	}
	if len(legacy) == 0 {
		return nil
	}

	for id, lrec := range legacy {
		stale := !remoteIDs[id]
		if !stale {
			if rec, ok := records[id]; ok {
				stale = !claimsNotification(rec, lrec.NotificationID) && rec.Schedule.AlarmID != lrec.NotificationID
			}
		}
		if !stale {
			continue
		}
		if err := e.notif.CancelNotification(ctx, lrec.NotificationID); err == nil {
			result.CancelledNotifications++
		}
		delete(legacy, id)
	}

	return e.store.SaveLegacyRecords(legacy)
}

// listPending returns the OS's live pending notifications.
func (e *Engine) listPending(ctx context.Context) ([]platform.PendingNotification, error) {
	return e.notif.ListPending(ctx)
}

// anyLive reports whether at least one alert the record claims is actually
// pending. Native alarms have no live list to check and count as present.
func anyLive(rec models.ScheduleRecord, liveIDs map[string]bool) bool {
	if rec.Schedule.Platform == models.PlatformNativeAlarm {
		return true
	}
	for _, id := range rec.Schedule.NotificationIDs {
		if liveIDs[id] {
			return true
		}
	}
	return false
}

// claimsNotification reports whether the record owns the notification id.
func claimsNotification(rec models.ScheduleRecord, id string) bool {
	for _, owned := range rec.Schedule.NotificationIDs {
		if owned == id {
			return true
		}
	}
	return false
}
