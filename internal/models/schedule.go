package models

import "time"

// PlatformKind identifies which on-device alert mechanism realized a
// reminder. It is the discriminant of the ScheduleResult variant.
type PlatformKind string

const (
	// PlatformNativeAlarm is the full-screen, high-priority alarm mechanism.
	PlatformNativeAlarm PlatformKind = "native-alarm"
	// PlatformNotificationBatch approximates alarm-like persistence with a
	// batch of standard local notifications under a hard pending ceiling.
	PlatformNotificationBatch PlatformKind = "notification-batch"
)

// ScheduleResult describes how a reminder was realized on-device.
// Exactly one of AlarmID or NotificationIDs is populated, depending on
// Platform.
type ScheduleResult struct {
	Platform        PlatformKind `json:"platform"`
	AlarmID         string       `json:"alarmId,omitempty"`
	NotificationIDs []string     `json:"notificationIds,omitempty"`
	ScheduledAtMs   int64        `json:"scheduledAtMs"`
}

// VoiceRecord mirrors the remote voice fields plus the resolved local path
// of the cached audio file.
type VoiceRecord struct {
	URL       string `json:"url"`
	Filename  string `json:"filename"`
	Checksum  string `json:"checksum"`
	Version   int    `json:"version"`
	Format    string `json:"format"`
	LocalPath string `json:"localPath,omitempty"`
}

// ScheduleRecord is the persisted bookkeeping record (schema v2) for one
// reminder. A record exists iff a corresponding on-device alert is (or was)
// scheduled; deleting one without the other is a bug.
type ScheduleRecord struct {
	ReminderID     string `json:"reminderId"`
	PrescriptionID string `json:"prescriptionId"`
	PatientID      string `json:"patientId"`

	Medication string `json:"medicationName"`
	Dosage     string `json:"dosage"`

	Voice *VoiceRecord `json:"voice,omitempty"`

	Schedule ScheduleResult `json:"schedule"`

	Fingerprint  string    `json:"fingerprint"`
	LastSyncedAt time.Time `json:"lastSyncedAt"`
}

// LegacyRecord is the degenerate schema v1 record: a single notification or
// alarm identifier with no fingerprint. Retained only to support the
// one-time migration and cleanup of pre-existing installs.
type LegacyRecord struct {
	NotificationID string `json:"notificationId"`
}

// Confirmation records that the patient confirmed taking a dose locally,
// pending upload to the care service.
type Confirmation struct {
	ReminderID  string    `json:"reminderId"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}
