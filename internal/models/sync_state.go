package models

import "time"

// CurrentSchemaVersion is the schedule-record schema written by this build.
const CurrentSchemaVersion = 2

// SyncState tracks reconciliation bookkeeping. It is persisted best-effort:
// the InProgress flag is advisory, not transactional, so a process restart
// mid-reconciliation simply leaves it to be overwritten by the next run.
type SyncState struct {
	SchemaVersion   int        `json:"schemaVersion"`
	LastSyncAt      *time.Time `json:"lastSyncAt,omitempty"`
	LastReconcileAt *time.Time `json:"lastReconcileAt,omitempty"`
	InProgress      bool       `json:"inProgress"`
}

// NewSyncState returns a zero sync state at the current schema version.
func NewSyncState() SyncState {
	return SyncState{SchemaVersion: CurrentSchemaVersion}
}
