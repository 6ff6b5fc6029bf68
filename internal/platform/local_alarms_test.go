package platform

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAlarms_ScheduleCancel(t *testing.T) {
	n := testNotifier(t) // reuse the store setup
	a := NewStoreAlarms(n.store)
	ctx := context.Background()

	at := time.Now().Add(time.Hour)
	require.NoError(t, a.ScheduleAlarm(ctx, "r1", at, AlertPayload{ReminderID: "r1", Medication: "Metformin"}))

	// Same id replaces, never duplicates.
	require.NoError(t, a.ScheduleAlarm(ctx, "r1", at.Add(time.Minute), AlertPayload{ReminderID: "r1"}))

	alarms, err := a.load()
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	assert.Equal(t, at.Add(time.Minute).Unix(), alarms["r1"].TriggerAt.Unix())

	require.NoError(t, a.CancelAlarm(ctx, "r1"))
	assert.Error(t, a.CancelAlarm(ctx, "r1"))
}
