package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/caredose/caredose/internal/log"
	"github.com/caredose/caredose/internal/store"
)

// pendingAlarm is one persisted native alarm.
type pendingAlarm struct {
	ID        string       `json:"id"`
	TriggerAt time.Time    `json:"triggerAt"`
	Payload   AlertPayload `json:"payload"`
}

// StoreAlarms is an AlarmAPI backed by the local store, the alarm
// counterpart of StoreNotifier. It stands in for the host's full-screen
// alarm bridge when the engine runs standalone.
type StoreAlarms struct {
	store *store.Store
	mu    sync.Mutex
}

// NewStoreAlarms creates a store-backed alarm bridge.
func NewStoreAlarms(st *store.Store) *StoreAlarms {
	return &StoreAlarms{store: st}
}

// ScheduleAlarm records an alarm under the caller-chosen id, replacing any
// existing alarm with the same id.
func (a *StoreAlarms) ScheduleAlarm(_ context.Context, id string, at time.Time, payload AlertPayload) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	alarms, err := a.load()
	if err != nil {
		return err
	}

	alarms[id] = pendingAlarm{ID: id, TriggerAt: at, Payload: payload}
	if err := a.save(alarms); err != nil {
		return err
	}

	log.Printf("alarm: scheduled %s at %s (%s %s)\n",
		id, at.Format(time.RFC3339), payload.Medication, payload.Dosage)
	return nil
}

// CancelAlarm removes a pending alarm by id.
func (a *StoreAlarms) CancelAlarm(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	alarms, err := a.load()
	if err != nil {
		return err
	}
	if _, ok := alarms[id]; !ok {
		return fmt.Errorf("alarm %s not pending", id)
	}
	delete(alarms, id)
	return a.save(alarms)
}

func (a *StoreAlarms) load() (map[string]pendingAlarm, error) {
	raw, err := a.store.Get(store.KeyPendingAlarms)
	if err != nil {
		return nil, err
	}
	alarms := make(map[string]pendingAlarm)
	if raw == "" {
		return alarms, nil
	}
	if err := json.Unmarshal([]byte(raw), &alarms); err != nil {
		// Unparseable alarm set: reset, the next reconcile rebuilds it.
		return make(map[string]pendingAlarm), nil
	}
	return alarms, nil
}

func (a *StoreAlarms) save(alarms map[string]pendingAlarm) error {
	raw, err := json.Marshal(alarms)
	if err != nil {
		return err
	}
	return a.store.Set(store.KeyPendingAlarms, string(raw))
}
