package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caredose/caredose/internal/log"
	"github.com/caredose/caredose/internal/store"
)

// StoreNotifier is a NotificationAPI backed by the local store, so the
// pending set survives process restarts. It stands in for the mobile OS
// notification bridge when the engine runs as a standalone agent; delivery
// itself is the host's concern.
type StoreNotifier struct {
	store *store.Store
	now   func() time.Time
	mu    sync.Mutex
}

// NewStoreNotifier creates a store-backed notifier.
func NewStoreNotifier(st *store.Store) *StoreNotifier {
	return &StoreNotifier{store: st, now: time.Now}
}

// ScheduleNotification records a pending notification and returns its
// freshly generated id.
func (n *StoreNotifier) ScheduleNotification(_ context.Context, payload AlertPayload, at time.Time) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	pending, err := n.load()
	if err != nil {
		return "", err
	}

	entry := PendingNotification{
		ID:         "n-" + uuid.NewString(),
		ReminderID: payload.ReminderID,
		TriggerAt:  at,
	}
	pending = append(pending, entry)

	if err := n.save(pending); err != nil {
		return "", err
	}

	log.Printf("notify: scheduled %s for %s at %s (%s %s)\n",
		entry.ID, payload.ReminderID, at.Format(time.RFC3339), payload.Medication, payload.Dosage)
	return entry.ID, nil
}

// CancelNotification removes a pending notification by id.
func (n *StoreNotifier) CancelNotification(_ context.Context, id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	pending, err := n.load()
	if err != nil {
		return err
	}

	kept := pending[:0]
	found := false
	for _, p := range pending {
		if p.ID == id {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return fmt.Errorf("notification %s not pending", id)
	}
	return n.save(kept)
}

// ListPending returns the live pending set, pruning entries whose trigger
// time has already passed (they are considered fired).
func (n *StoreNotifier) ListPending(_ context.Context) ([]PendingNotification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	pending, err := n.load()
	if err != nil {
		return nil, err
	}

	now := n.now()
	live := pending[:0]
	for _, p := range pending {
		if p.TriggerAt.After(now) {
			live = append(live, p)
		}
	}
	if len(live) != len(pending) {
		if err := n.save(live); err != nil {
			return nil, err
		}
	}

	out := make([]PendingNotification, len(live))
	copy(out, live)
	return out, nil
}

func (n *StoreNotifier) load() ([]PendingNotification, error) {
	raw, err := n.store.Get(store.KeyPendingAlerts)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var pending []PendingNotification
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		// Unparseable pending set: reset, the next reconcile rebuilds it.
		return nil, nil
	}
	return pending, nil
}

func (n *StoreNotifier) save(pending []PendingNotification) error {
	raw, err := json.Marshal(pending)
	if err != nil {
		return err
	}
	return n.store.Set(store.KeyPendingAlerts, string(raw))
}
