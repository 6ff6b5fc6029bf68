package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/caredose/caredose/internal/models"
)

// getJSON unmarshals the document stored under key into out. A missing key
// or unparseable document leaves out untouched and returns false: stored
// state is rebuilt from the remote source of truth, never treated as fatal.
func (s *Store) getJSON(key string, out interface{}) (bool, error) {
	raw, err := s.Get(key)
	if err != nil {
		return false, err
	}
	if raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, nil
	}
	return true, nil
}

// setJSON marshals v and stores it under key.
func (s *Store) setJSON(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Set(key, string(raw))
}

// LoadRecords returns the persisted reminder-id -> schedule-record map,
// running the one-time v1 migration first if it has not happened yet.
func (s *Store) LoadRecords() (map[string]models.ScheduleRecord, error) {
	if err := s.EnsureMigrated(); err != nil {
		return nil, err
	}
	records := make(map[string]models.ScheduleRecord)
	if _, err := s.getJSON(KeyRecordsV2, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// SaveRecords persists the full schedule-record map.
func (s *Store) SaveRecords(records map[string]models.ScheduleRecord) error {
	return s.setJSON(KeyRecordsV2, records)
}

// LoadLegacyRecords returns any remaining schema v1 records. These survive
// migration so reconciliation can cancel the stale OS alerts they point at.
func (s *Store) LoadLegacyRecords() (map[string]models.LegacyRecord, error) {
	legacy := make(map[string]models.LegacyRecord)
	if _, err := s.getJSON(KeyRecordsV1, &legacy); err != nil {
		return nil, err
	}
	return legacy, nil
}

// SaveLegacyRecords persists the remaining v1 records, removing the key
// entirely once the map is empty.
func (s *Store) SaveLegacyRecords(legacy map[string]models.LegacyRecord) error {
	if len(legacy) == 0 {
		return s.MultiRemove([]string{KeyRecordsV1})
	}
	return s.setJSON(KeyRecordsV1, legacy)
}

// LoadSyncState returns the persisted sync state, or a fresh one if none
// (or an unparseable one) is stored.
func (s *Store) LoadSyncState() (models.SyncState, error) {
	state := models.NewSyncState()
	if _, err := s.getJSON(KeySyncState, &state); err != nil {
		return state, err
	}
	if state.SchemaVersion == 0 {
		state.SchemaVersion = models.CurrentSchemaVersion
	}
	return state, nil
}

// SaveSyncState persists the sync state.
func (s *Store) SaveSyncState(state models.SyncState) error {
	return s.setJSON(KeySyncState, state)
}

// LoadVoiceIndex returns the prescription-id -> local-file-path index for
// the voice cache.
func (s *Store) LoadVoiceIndex() (map[string]string, error) {
	index := make(map[string]string)
	if _, err := s.getJSON(KeyVoiceIndex, &index); err != nil {
		return nil, err
	}
	return index, nil
}

// SaveVoiceIndex persists the voice-cache path index.
func (s *Store) SaveVoiceIndex(index map[string]string) error {
	return s.setJSON(KeyVoiceIndex, index)
}

// SaveConfirmation records a locally confirmed dose, pending upload.
func (s *Store) SaveConfirmation(reminderID string, confirmedAt time.Time) error {
	c := models.Confirmation{ReminderID: reminderID, ConfirmedAt: confirmedAt}
	return s.setJSON(ConfirmationPrefix+reminderID, c)
}

// LoadConfirmations returns all locally recorded confirmations.
func (s *Store) LoadConfirmations() ([]models.Confirmation, error) {
	keys, err := s.Keys(ConfirmationPrefix)
	if err != nil {
		return nil, err
	}
	confirmations := make([]models.Confirmation, 0, len(keys))
	for _, key := range keys {
		var c models.Confirmation
		ok, err := s.getJSON(key, &c)
		if err != nil {
			return nil, err
		}
		if ok {
			confirmations = append(confirmations, c)
		}
	}
	return confirmations, nil
}
