package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/caredose/caredose/internal/log"
	"github.com/caredose/caredose/internal/models"
)

const (
	// imminentThreshold: trigger times already passed or closer than this
	// get bumped forward so at least one alert still fires.
	imminentThreshold = 5 * time.Second
	// imminentBump is the forward bump applied to imminent trigger times.
	imminentBump = 10 * time.Second
)

// BatchScheduler realizes reminders as batches of local notifications,
// budgeting slots across all candidates of one reconciliation pass so the
// OS pending ceiling is never exceeded.
type BatchScheduler struct {
	api  NotificationAPI
	opts Options

	// Pass state, set by BeginPass.
	repeats        int
	remainingSlots int
}

// NewBatchScheduler creates the notification-batch strategy.
func NewBatchScheduler(api NotificationAPI, opts Options) *BatchScheduler {
	opts.normalize()
	return &BatchScheduler{
		api:            api,
		opts:           opts,
		repeats:        1,
		remainingSlots: opts.MaxPending,
	}
}

// Kind reports the notification-batch variant.
func (b *BatchScheduler) Kind() models.PlatformKind {
	return models.PlatformNotificationBatch
}

// BeginPass computes the per-reminder repeat count for this pass:
// min(RepeatCount, floor(freeSlots/candidates)), clamped up to 1 when slots
// are scarcer than candidates. With fewer slots than candidates some
// reminders will hit ErrSlotsExhausted and be retried next pass.
func (b *BatchScheduler) BeginPass(ctx context.Context, candidates int) error {
	pending, err := b.api.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("list pending notifications: %w", err)
	}

	slots := b.opts.MaxPending - len(pending)
	if slots < 0 {
		slots = 0
	}
	b.remainingSlots = slots

	if candidates <= 0 {
		b.repeats = b.opts.RepeatCount
		return nil
	}

	per := slots / candidates
	if per < 1 {
		per = 1
	}
	if per > b.opts.RepeatCount {
		per = b.opts.RepeatCount
	}
	b.repeats = per
	return nil
}

// Schedule materializes one reminder as b.repeats independently scheduled
// notifications offset by the repeat interval. Zero scheduled notifications
// is a hard failure for this reminder only.
func (b *BatchScheduler) Schedule(ctx context.Context, req Request) (models.ScheduleResult, error) {
	if b.remainingSlots <= 0 {
		return models.ScheduleResult{}, ErrSlotsExhausted
	}

	base := b.baseTime(req.Reminder.ScheduledAt)

	repeats := b.repeats
	if repeats < 1 {
		repeats = 1
	}
	if repeats > b.remainingSlots {
		repeats = b.remainingSlots
	}

	payload := payloadFor(req, SoundForLocale(b.opts.Locale))

	ids := make([]string, 0, repeats)
	for i := 0; i < repeats; i++ {
		at := base.Add(time.Duration(i) * b.opts.RepeatInterval)
		id, err := b.api.ScheduleNotification(ctx, payload, at)
		if err != nil {
			log.Errorf("platform: schedule notification %d/%d for reminder %s: %v",
				i+1, repeats, req.Reminder.ID, err)
			continue
		}
		ids = append(ids, id)
	}

	b.remainingSlots -= len(ids)

	if len(ids) == 0 {
		return models.ScheduleResult{}, fmt.Errorf("no notifications could be scheduled for reminder %s", req.Reminder.ID)
	}

	return models.ScheduleResult{
		Platform:        models.PlatformNotificationBatch,
		NotificationIDs: ids,
		ScheduledAtMs:   base.UnixMilli(),
	}, nil
}

// CancelStored cancels every alert the record claims to own.
func (b *BatchScheduler) CancelStored(ctx context.Context, rec models.ScheduleRecord) int {
	return cancelStored(ctx, nil, b.api, rec)
}

// baseTime bumps past or imminent trigger times forward so at least one
// alert still fires.
func (b *BatchScheduler) baseTime(scheduledAt time.Time) time.Time {
	now := b.opts.Now()
	if scheduledAt.Sub(now) <= imminentThreshold {
		return now.Add(imminentBump)
	}
	return scheduledAt
}

// cancelStored is the shared platform-polymorphic cancellation: cancel the
// native alarm if present and every notification id in the batch.
// Cancellation is best-effort cleanup; failures are logged and swallowed.
func cancelStored(ctx context.Context, alarm AlarmAPI, notif NotificationAPI, rec models.ScheduleRecord) int {
	cancelled := 0

	if rec.Schedule.AlarmID != "" && alarm != nil {
		if err := alarm.CancelAlarm(ctx, rec.Schedule.AlarmID); err != nil {
			log.Errorf("platform: cancel alarm %s: %v", rec.Schedule.AlarmID, err)
		} else {
			cancelled++
		}
	}

	if notif != nil {
		for _, id := range rec.Schedule.NotificationIDs {
			if err := notif.CancelNotification(ctx, id); err != nil {
				log.Errorf("platform: cancel notification %s: %v", id, err)
				continue
			}
			cancelled++
		}
	}

	return cancelled
}
