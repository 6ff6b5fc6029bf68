package platform

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caredose/caredose/internal/models"
)

// fakeNotificationAPI tracks scheduled and cancelled notifications.
type fakeNotificationAPI struct {
	pending   []PendingNotification
	scheduled int
	cancelled []string
	failAll   bool
}

func (f *fakeNotificationAPI) ScheduleNotification(_ context.Context, payload AlertPayload, at time.Time) (string, error) {
	if f.failAll {
		return "", errors.New("quota exceeded")
	}
	f.scheduled++
	id := fmt.Sprintf("n-%d", f.scheduled)
	f.pending = append(f.pending, PendingNotification{ID: id, ReminderID: payload.ReminderID, TriggerAt: at})
	return id, nil
}

func (f *fakeNotificationAPI) CancelNotification(_ context.Context, id string) error {
	f.cancelled = append(f.cancelled, id)
	for i, p := range f.pending {
		if p.ID == id {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeNotificationAPI) ListPending(_ context.Context) ([]PendingNotification, error) {
	return append([]PendingNotification(nil), f.pending...), nil
}

// fakeAlarmAPI optionally rejects alarms to exercise the fallback.
type fakeAlarmAPI struct {
	alarms    map[string]time.Time
	cancelled []string
	fail      bool
}

func newFakeAlarmAPI() *fakeAlarmAPI {
	return &fakeAlarmAPI{alarms: make(map[string]time.Time)}
}

func (f *fakeAlarmAPI) ScheduleAlarm(_ context.Context, id string, at time.Time, _ AlertPayload) error {
	if f.fail {
		return errors.New("alarm capability unavailable")
	}
	f.alarms[id] = at
	return nil
}

func (f *fakeAlarmAPI) CancelAlarm(_ context.Context, id string) error {
	f.cancelled = append(f.cancelled, id)
	delete(f.alarms, id)
	return nil
}

func testOptions() Options {
	return Options{
		MaxPending:     64,
		RepeatCount:    10,
		RepeatInterval: 2 * time.Minute,
		Locale:         "en",
	}
}

func reminderAt(id string, at time.Time) models.Reminder {
	return models.Reminder{
		ID:             id,
		PrescriptionID: "p-" + id,
		Medication:     "Amoxicillin",
		Dosage:         "500mg",
		ScheduledAt:    at,
	}
}

func TestBatchScheduler_FullBudget(t *testing.T) {
	api := &fakeNotificationAPI{}
	b := NewBatchScheduler(api, testOptions())
	ctx := context.Background()

	require.NoError(t, b.BeginPass(ctx, 2))

	// 64 free slots, 2 candidates: each gets the full desired 10 repeats.
	res, err := b.Schedule(ctx, Request{Reminder: reminderAt("r1", time.Now().Add(time.Hour))})
	require.NoError(t, err)
	assert.Equal(t, models.PlatformNotificationBatch, res.Platform)
	assert.Len(t, res.NotificationIDs, 10)
}

func TestBatchScheduler_SlotBudgetUnderCeiling(t *testing.T) {
	api := &fakeNotificationAPI{}
	// 60 prior pending notifications.
	for i := 0; i < 60; i++ {
		api.pending = append(api.pending, PendingNotification{
			ID:        fmt.Sprintf("old-%d", i),
			TriggerAt: time.Now().Add(time.Hour),
		})
	}

	b := NewBatchScheduler(api, testOptions())
	ctx := context.Background()

	// 4 free slots, 10 candidates wanting 10 repeats each:
	// min(10, floor(4/10)) = 0, clamped to 1 repeat per reminder.
	require.NoError(t, b.BeginPass(ctx, 10))

	scheduled := 0
	exhausted := 0
	for i := 0; i < 10; i++ {
		res, err := b.Schedule(ctx, Request{Reminder: reminderAt(fmt.Sprintf("r%d", i), time.Now().Add(time.Hour))})
		if errors.Is(err, ErrSlotsExhausted) {
			exhausted++
			continue
		}
		require.NoError(t, err)
		assert.Len(t, res.NotificationIDs, 1)
		scheduled++
	}

	assert.Equal(t, 4, scheduled)
	assert.Equal(t, 6, exhausted)
	// The ceiling is never exceeded.
	assert.LessOrEqual(t, len(api.pending), 64)
}

func TestBatchScheduler_RepeatOffsets(t *testing.T) {
	api := &fakeNotificationAPI{}
	opts := testOptions()
	b := NewBatchScheduler(api, opts)
	ctx := context.Background()

	require.NoError(t, b.BeginPass(ctx, 1))

	base := time.Now().Add(time.Hour).Truncate(time.Second)
	res, err := b.Schedule(ctx, Request{Reminder: reminderAt("r1", base)})
	require.NoError(t, err)

	require.Len(t, api.pending, len(res.NotificationIDs))
	for i, p := range api.pending {
		assert.Equal(t, base.Add(time.Duration(i)*opts.RepeatInterval), p.TriggerAt)
	}
	assert.Equal(t, base.UnixMilli(), res.ScheduledAtMs)
}

func TestBatchScheduler_PastTriggerBumped(t *testing.T) {
	api := &fakeNotificationAPI{}
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	opts := testOptions()
	opts.Now = func() time.Time { return now }
	b := NewBatchScheduler(api, opts)
	ctx := context.Background()

	require.NoError(t, b.BeginPass(ctx, 1))

	res, err := b.Schedule(ctx, Request{Reminder: reminderAt("r1", now.Add(-time.Minute))})
	require.NoError(t, err)
	assert.Equal(t, now.Add(imminentBump).UnixMilli(), res.ScheduledAtMs)
}

func TestBatchScheduler_AllSchedulesFailIsHardFailure(t *testing.T) {
	api := &fakeNotificationAPI{failAll: true}
	b := NewBatchScheduler(api, testOptions())
	ctx := context.Background()

	require.NoError(t, b.BeginPass(ctx, 1))

	_, err := b.Schedule(ctx, Request{Reminder: reminderAt("r1", time.Now().Add(time.Hour))})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSlotsExhausted)
}

func TestAlarmScheduler_SchedulesSingleAlarm(t *testing.T) {
	alarm := newFakeAlarmAPI()
	notif := &fakeNotificationAPI{}
	s := Detect(alarm, notif, testOptions())
	ctx := context.Background()

	assert.Equal(t, models.PlatformNativeAlarm, s.Kind())
	require.NoError(t, s.BeginPass(ctx, 1))

	res, err := s.Schedule(ctx, Request{Reminder: reminderAt("r1", time.Now().Add(time.Hour))})
	require.NoError(t, err)
	assert.Equal(t, models.PlatformNativeAlarm, res.Platform)
	assert.Equal(t, "r1", res.AlarmID)
	assert.Empty(t, res.NotificationIDs)
	assert.Zero(t, notif.scheduled)
}

func TestAlarmScheduler_OverrideID(t *testing.T) {
	alarm := newFakeAlarmAPI()
	s := Detect(alarm, &fakeNotificationAPI{}, testOptions())
	ctx := context.Background()
	require.NoError(t, s.BeginPass(ctx, 1))

	res, err := s.Schedule(ctx, Request{
		Reminder:   reminderAt("r1", time.Now().Add(time.Hour)),
		OverrideID: "r1-snooze-1700000000",
	})
	require.NoError(t, err)
	assert.Equal(t, "r1-snooze-1700000000", res.AlarmID)
}

func TestAlarmScheduler_FallsBackToNotifications(t *testing.T) {
	alarm := newFakeAlarmAPI()
	alarm.fail = true
	notif := &fakeNotificationAPI{}
	s := Detect(alarm, notif, testOptions())
	ctx := context.Background()
	require.NoError(t, s.BeginPass(ctx, 1))

	res, err := s.Schedule(ctx, Request{Reminder: reminderAt("r1", time.Now().Add(time.Hour))})
	require.NoError(t, err)
	assert.Equal(t, models.PlatformNotificationBatch, res.Platform)
	assert.NotEmpty(t, res.NotificationIDs)
}

func TestCancelStored_Polymorphic(t *testing.T) {
	alarm := newFakeAlarmAPI()
	alarm.alarms["a1"] = time.Now()
	notif := &fakeNotificationAPI{pending: []PendingNotification{
		{ID: "n1"}, {ID: "n2"},
	}}
	s := Detect(alarm, notif, testOptions())

	rec := models.ScheduleRecord{
		ReminderID: "r1",
		Schedule: models.ScheduleResult{
			Platform:        models.PlatformNativeAlarm,
			AlarmID:         "a1",
			NotificationIDs: []string{"n1", "n2"},
		},
	}

	cancelled := s.CancelStored(context.Background(), rec)
	assert.Equal(t, 3, cancelled)
	assert.Empty(t, alarm.alarms)
	assert.Empty(t, notif.pending)
}

func TestDetect_NoAlarmCapability(t *testing.T) {
	s := Detect(nil, &fakeNotificationAPI{}, testOptions())
	assert.Equal(t, models.PlatformNotificationBatch, s.Kind())
}

func TestSoundForLocale(t *testing.T) {
	tests := []struct {
		lang string
		want string
	}{
		{"en", "reminder_en.wav"},
		{"es", "reminder_es.wav"},
		{"pt-BR", "reminder_pt.wav"},
		{"fr_CA", "reminder_fr.wav"},
		{"zh", DefaultSound},
		{"", DefaultSound},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			assert.Equal(t, tt.want, SoundForLocale(tt.lang))
		})
	}
}
