// Package platform turns logical "alert at time T with payload P" requests
// into concrete on-device alerts. Two mutually exclusive strategies exist:
// a native full-screen alarm where the host provides that capability, and a
// batch of local notifications under a hard pending ceiling everywhere else.
package platform

import (
	"context"
	"errors"
	"time"

	"github.com/caredose/caredose/internal/models"
)

// ErrSlotsExhausted is returned by the notification-batch strategy when the
// pass budget has no free notification slots left. The orchestrator defers
// the remaining reminders to the next reconciliation.
var ErrSlotsExhausted = errors.New("platform: notification slots exhausted")

// AlertPayload carries the medication metadata delivered with an alert.
type AlertPayload struct {
	ReminderID   string `json:"reminderId"`
	Medication   string `json:"medicationName"`
	Dosage       string `json:"dosage"`
	Instructions string `json:"instructions,omitempty"`
	VoicePath    string `json:"voicePath,omitempty"`
	Sound        string `json:"sound,omitempty"`
}

// PendingNotification is one entry of the OS's live list of scheduled
// notifications.
type PendingNotification struct {
	ID         string    `json:"id"`
	ReminderID string    `json:"reminderId"`
	TriggerAt  time.Time `json:"triggerAt"`
}

// AlarmAPI is the host's full-screen alarm capability.
type AlarmAPI interface {
	ScheduleAlarm(ctx context.Context, id string, at time.Time, payload AlertPayload) error
	CancelAlarm(ctx context.Context, id string) error
}

// NotificationAPI is the host's local-notification capability.
type NotificationAPI interface {
	ScheduleNotification(ctx context.Context, payload AlertPayload, at time.Time) (string, error)
	CancelNotification(ctx context.Context, id string) error
	ListPending(ctx context.Context) ([]PendingNotification, error)
}

// Request asks for one reminder to be realized on-device.
type Request struct {
	Reminder  models.Reminder
	VoicePath string

	// OverrideID replaces the reminder id as the alert key. Used by snooze
	// so the synthetic alert never collides with the original.
	OverrideID string
}

// Scheduler is one alert strategy, selected once at startup by capability.
type Scheduler interface {
	// Kind reports which platform variant this scheduler writes.
	Kind() models.PlatformKind

	// BeginPass prepares the per-pass slot budget given the number of
	// reminders that will need (re)scheduling.
	BeginPass(ctx context.Context, candidates int) error

	// Schedule realizes one reminder on-device.
	Schedule(ctx context.Context, req Request) (models.ScheduleResult, error)

	// CancelStored cancels whatever alerts a persisted record claims to
	// own. Best-effort: individual failures are logged and swallowed.
	// Returns the number of alerts cancelled.
	CancelStored(ctx context.Context, rec models.ScheduleRecord) int
}

// Options configures the strategies.
type Options struct {
	// MaxPending is the OS ceiling on pending scheduled notifications.
	MaxPending int
	// RepeatCount is the desired repeats per reminder on the batch platform.
	RepeatCount int
	// RepeatInterval is the offset between repeated notifications.
	RepeatInterval time.Duration
	// Locale selects the notification sound.
	Locale string
	// Now supplies the current time; defaults to time.Now.
	Now func() time.Time
}

func (o *Options) normalize() {
	if o.MaxPending <= 0 {
		o.MaxPending = 64
	}
	if o.RepeatCount <= 0 {
		o.RepeatCount = 10
	}
	if o.RepeatInterval <= 0 {
		o.RepeatInterval = 2 * time.Minute
	}
	if o.Locale == "" {
		o.Locale = "en"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Detect selects the strategy for this device: native alarms when the host
// exposes an alarm capability, the notification batch otherwise. The alarm
// strategy keeps the batch strategy as its per-reminder fallback.
func Detect(alarm AlarmAPI, notif NotificationAPI, opts Options) Scheduler {
	batch := NewBatchScheduler(notif, opts)
	if alarm != nil {
		return NewAlarmScheduler(alarm, batch)
	}
	return batch
}

func payloadFor(req Request, sound string) AlertPayload {
	r := req.Reminder
	return AlertPayload{
		ReminderID:   r.ID,
		Medication:   r.Medication,
		Dosage:       r.Dosage,
		Instructions: r.Instructions,
		VoicePath:    req.VoicePath,
		Sound:        sound,
	}
}
