package platform

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caredose/caredose/internal/models"
	"github.com/caredose/caredose/internal/store"
)

func testNotifier(t *testing.T) *StoreNotifier {
	t.Helper()
	st, err := store.New(store.Config{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		DefaultPlatform: models.PlatformNotificationBatch,
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewStoreNotifier(st)
}

func TestStoreNotifier_ScheduleAndList(t *testing.T) {
	n := testNotifier(t)
	ctx := context.Background()
	at := time.Now().Add(time.Hour)

	id1, err := n.ScheduleNotification(ctx, AlertPayload{ReminderID: "r1", Medication: "Metformin"}, at)
	require.NoError(t, err)
	id2, err := n.ScheduleNotification(ctx, AlertPayload{ReminderID: "r2"}, at.Add(time.Minute))
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	pending, err := n.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "r1", pending[0].ReminderID)
	assert.Equal(t, id1, pending[0].ID)
}

func TestStoreNotifier_Cancel(t *testing.T) {
	n := testNotifier(t)
	ctx := context.Background()

	id, err := n.ScheduleNotification(ctx, AlertPayload{ReminderID: "r1"}, time.Now().Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, n.CancelNotification(ctx, id))
	pending, err := n.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	err = n.CancelNotification(ctx, id)
	assert.Error(t, err)
}

func TestStoreNotifier_PrunesFiredEntries(t *testing.T) {
	n := testNotifier(t)
	ctx := context.Background()
	now := time.Now()

	_, err := n.ScheduleNotification(ctx, AlertPayload{ReminderID: "fired"}, now.Add(time.Hour))
	require.NoError(t, err)
	keep, err := n.ScheduleNotification(ctx, AlertPayload{ReminderID: "future"}, now.Add(2*time.Hour))
	require.NoError(t, err)

	// Move the clock past the first trigger.
	n.now = func() time.Time { return now.Add(90 * time.Minute) }

	pending, err := n.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, keep, pending[0].ID)

	// The prune is persisted, not just filtered.
	n.now = time.Now
	pending, err = n.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestStoreNotifier_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	ctx := context.Background()

	st, err := store.New(store.Config{Path: path, DefaultPlatform: models.PlatformNotificationBatch})
	require.NoError(t, err)
	n := NewStoreNotifier(st)
	id, err := n.ScheduleNotification(ctx, AlertPayload{ReminderID: "r1"}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st2, err := store.New(store.Config{Path: path, DefaultPlatform: models.PlatformNotificationBatch})
	require.NoError(t, err)
	t.Cleanup(func() { st2.Close() })

	pending, err := NewStoreNotifier(st2).ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)
}
