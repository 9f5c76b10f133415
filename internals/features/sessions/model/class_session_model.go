package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/*
=========================================================

	Enums (mirror dari session_status_enum di DB)
	Status HANYA berubah lewat aksi eksplisit (guru/coordinator),
	tidak pernah disimpulkan dari jam saja.
	=========================================================
*/
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionReady     SessionStatus = "ready"
	SessionOngoing   SessionStatus = "ongoing"
	SessionCompleted SessionStatus = "completed"
	SessionCanceled  SessionStatus = "canceled"
	SessionAbsent    SessionStatus = "absent"
)

// Terminal = tidak boleh ada mutasi lagi, baik dari aksi maupun tick.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionCanceled
}

// Absent masih boleh dimasuki siswa selama jendela fase belum tutup.
func (s SessionStatus) IsJoinableStatus() bool {
	return !s.IsTerminal()
}

type SessionKind string

const (
	SessionKindIndividual SessionKind = "individual"
	SessionKindGroup      SessionKind = "group"
)

/*
=========================================================

	Model
	=========================================================
*/
type ClassSessionModel struct {
	// PK
	ClassSessionsID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey;column:class_sessions_id" json:"class_sessions_id"`

	// Tenant guard
	ClassSessionsAcademyID uuid.UUID `gorm:"type:uuid;not null;column:class_sessions_academy_id" json:"class_sessions_academy_id"`

	// Relasi utama
	ClassSessionsCircleID  *uuid.UUID `gorm:"type:uuid;column:class_sessions_circle_id" json:"class_sessions_circle_id,omitempty"`
	ClassSessionsTeacherID uuid.UUID  `gorm:"type:uuid;not null;column:class_sessions_teacher_id" json:"class_sessions_teacher_id"`
	ClassSessionsStudentID *uuid.UUID `gorm:"type:uuid;column:class_sessions_student_id" json:"class_sessions_student_id,omitempty"` // sesi individual

	ClassSessionsKind  SessionKind `gorm:"type:text;not null;default:'group';column:class_sessions_kind" json:"class_sessions_kind"`
	ClassSessionsTitle *string     `gorm:"type:text;column:class_sessions_title" json:"class_sessions_title,omitempty"`

	// Jadwal (sumber kebenaran phase clock; immutable selama sesi hidup)
	ClassSessionsScheduledAt     time.Time `gorm:"type:timestamptz;not null;column:class_sessions_scheduled_at" json:"class_sessions_scheduled_at"`
	ClassSessionsDurationMinutes int       `gorm:"not null;column:class_sessions_duration_minutes" json:"class_sessions_duration_minutes"`

	// Lifecycle
	ClassSessionsStatus    SessionStatus `gorm:"type:session_status_enum;not null;default:'scheduled';column:class_sessions_status" json:"class_sessions_status"`
	ClassSessionsStartedAt *time.Time    `gorm:"type:timestamptz;column:class_sessions_started_at" json:"class_sessions_started_at,omitempty"`
	ClassSessionsEndedAt   *time.Time    `gorm:"type:timestamptz;column:class_sessions_ended_at" json:"class_sessions_ended_at,omitempty"`

	ClassSessionsActualDurationMinutes *int `gorm:"column:class_sessions_actual_duration_minutes" json:"class_sessions_actual_duration_minutes,omitempty"`

	// Room provider (nullable sampai room dibuat)
	ClassSessionsRoomToken *string `gorm:"type:text;column:class_sessions_room_token" json:"class_sessions_room_token,omitempty"`

	// Pembatalan
	ClassSessionsCanceledAt   *time.Time `gorm:"type:timestamptz;column:class_sessions_canceled_at" json:"class_sessions_canceled_at,omitempty"`
	ClassSessionsCanceledBy   *uuid.UUID `gorm:"type:uuid;column:class_sessions_canceled_by" json:"class_sessions_canceled_by,omitempty"`
	ClassSessionsCancelReason *string    `gorm:"type:text;column:class_sessions_cancel_reason" json:"class_sessions_cancel_reason,omitempty"`

	// Audit & soft delete
	ClassSessionsCreatedAt time.Time      `gorm:"type:timestamptz;not null;default:now();autoCreateTime;column:class_sessions_created_at" json:"class_sessions_created_at"`
	ClassSessionsUpdatedAt time.Time      `gorm:"type:timestamptz;not null;default:now();autoUpdateTime;column:class_sessions_updated_at" json:"class_sessions_updated_at"`
	ClassSessionsDeletedAt gorm.DeletedAt `gorm:"column:class_sessions_deleted_at;index" json:"class_sessions_deleted_at,omitempty"`
}

func (ClassSessionModel) TableName() string { return "class_sessions" }

func (m *ClassSessionModel) HasRoom() bool {
	return m.ClassSessionsRoomToken != nil && *m.ClassSessionsRoomToken != ""
}

// Akhir jam efektif (tanpa buffer) — batas akunting kehadiran.
func (m *ClassSessionModel) ScheduledEnd() time.Time {
	return m.ClassSessionsScheduledAt.Add(time.Duration(m.ClassSessionsDurationMinutes) * time.Minute)
}
