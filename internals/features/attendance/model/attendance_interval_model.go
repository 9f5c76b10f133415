package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/*
=========================================================

	Enums
	Source hanya untuk audit — logika bisnis ledger SAMA
	untuk semua sumber sinyal.
	=========================================================
*/
type SignalSource string

const (
	SourceClient       SignalSource = "client"
	SourceWebhook      SignalSource = "webhook"
	SourceTimeoutClose SignalSource = "timeout_close"
)

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceLate    AttendanceStatus = "late"
	AttendancePartial AttendanceStatus = "partial"
	AttendanceAbsent  AttendanceStatus = "absent"
)

/*
=========================================================

	Model: satu rentang join→leave per peserta.
	Append-only; interval yang sudah tertutup tidak pernah
	diubah/dihapus (riwayat kehadiran immutable).
	Invariant: maksimal SATU interval terbuka per
	(session, participant).
	=========================================================
*/
type AttendanceIntervalModel struct {
	// PK
	AttendanceIntervalsID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey;column:attendance_intervals_id" json:"attendance_intervals_id"`

	AttendanceIntervalsSessionID     uuid.UUID `gorm:"type:uuid;not null;index;column:attendance_intervals_session_id" json:"attendance_intervals_session_id"`
	AttendanceIntervalsParticipantID uuid.UUID `gorm:"type:uuid;not null;index;column:attendance_intervals_participant_id" json:"attendance_intervals_participant_id"`

	AttendanceIntervalsJoinedAt time.Time  `gorm:"type:timestamptz;not null;column:attendance_intervals_joined_at" json:"attendance_intervals_joined_at"`
	AttendanceIntervalsLeftAt   *time.Time `gorm:"type:timestamptz;column:attendance_intervals_left_at" json:"attendance_intervals_left_at,omitempty"` // null = masih terbuka

	AttendanceIntervalsJoinSource  SignalSource  `gorm:"type:text;not null;column:attendance_intervals_join_source" json:"attendance_intervals_join_source"`
	AttendanceIntervalsLeaveSource *SignalSource `gorm:"type:text;column:attendance_intervals_leave_source" json:"attendance_intervals_leave_source,omitempty"`

	// Heartbeat terakhir dari klien (deteksi koneksi zombie)
	AttendanceIntervalsLastHeartbeatAt *time.Time `gorm:"type:timestamptz;column:attendance_intervals_last_heartbeat_at" json:"attendance_intervals_last_heartbeat_at,omitempty"`

	// Audit
	AttendanceIntervalsCreatedAt time.Time      `gorm:"type:timestamptz;not null;default:now();autoCreateTime;column:attendance_intervals_created_at" json:"attendance_intervals_created_at"`
	AttendanceIntervalsUpdatedAt time.Time      `gorm:"type:timestamptz;not null;default:now();autoUpdateTime;column:attendance_intervals_updated_at" json:"attendance_intervals_updated_at"`
	AttendanceIntervalsDeletedAt gorm.DeletedAt `gorm:"column:attendance_intervals_deleted_at;index" json:"attendance_intervals_deleted_at,omitempty"`
}

func (AttendanceIntervalModel) TableName() string { return "session_attendance_intervals" }

func (m *AttendanceIntervalModel) IsOpen() bool { return m.AttendanceIntervalsLeftAt == nil }
