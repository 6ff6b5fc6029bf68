package platform

import (
	"context"

	"github.com/caredose/caredose/internal/log"
	"github.com/caredose/caredose/internal/models"
)

// AlarmScheduler realizes reminders as single full-screen native alarms
// keyed by reminder id. When an individual alarm request fails it degrades
// to the notification-batch strategy for that reminder only.
type AlarmScheduler struct {
	api      AlarmAPI
	fallback *BatchScheduler
}

// NewAlarmScheduler creates the native-alarm strategy with the batch
// strategy as its per-reminder fallback.
func NewAlarmScheduler(api AlarmAPI, fallback *BatchScheduler) *AlarmScheduler {
	return &AlarmScheduler{api: api, fallback: fallback}
}

// Kind reports the native-alarm variant.
func (a *AlarmScheduler) Kind() models.PlatformKind {
	return models.PlatformNativeAlarm
}

// BeginPass primes the fallback's slot budget so degraded reminders still
// respect the notification ceiling.
func (a *AlarmScheduler) BeginPass(ctx context.Context, candidates int) error {
	return a.fallback.BeginPass(ctx, candidates)
}

// Schedule requests a single alarm keyed by the reminder id (or the caller
// override, used for snooze).
func (a *AlarmScheduler) Schedule(ctx context.Context, req Request) (models.ScheduleResult, error) {
	id := req.OverrideID
	if id == "" {
		id = req.Reminder.ID
	}

	at := a.fallback.baseTime(req.Reminder.ScheduledAt)
	payload := payloadFor(req, SoundForLocale(a.fallback.opts.Locale))

	if err := a.api.ScheduleAlarm(ctx, id, at, payload); err != nil {
		log.Errorf("platform: alarm for reminder %s failed, degrading to notifications: %v", req.Reminder.ID, err)
		return a.fallback.Schedule(ctx, req)
	}

	return models.ScheduleResult{
		Platform:      models.PlatformNativeAlarm,
		AlarmID:       id,
		ScheduledAtMs: at.UnixMilli(),
	}, nil
}

// CancelStored cancels every alert the record claims to own.
func (a *AlarmScheduler) CancelStored(ctx context.Context, rec models.ScheduleRecord) int {
	return cancelStored(ctx, a.api, a.fallback.api, rec)
}
