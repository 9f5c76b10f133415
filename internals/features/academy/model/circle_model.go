package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/*
=========================================================

	Model: halaqah/kelompok belajar (circle)
	=========================================================
*/
type CircleModel struct {
	// PK
	CircleID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey;column:circle_id" json:"circle_id"`

	// Tenant guard
	CircleAcademyID uuid.UUID `gorm:"type:uuid;not null;column:circle_academy_id" json:"circle_academy_id"`

	// Pengampu
	CircleTeacherID *uuid.UUID `gorm:"type:uuid;column:circle_teacher_id" json:"circle_teacher_id,omitempty"`

	CircleName string  `gorm:"type:varchar(160);not null;column:circle_name" json:"circle_name"`
	CircleKind string  `gorm:"type:text;not null;default:'group';column:circle_kind" json:"circle_kind"` // individual | group
	CircleNote *string `gorm:"type:text;column:circle_note" json:"circle_note,omitempty"`

	// Jadwal mingguan (mis. {"monday","wednesday"})
	CircleWeekdays pq.StringArray `gorm:"type:text[];column:circle_weekdays" json:"circle_weekdays"`

	// Override pengaturan meeting per circle (partial JSON, nullable)
	CircleMeetingSettings datatypes.JSON `gorm:"column:circle_meeting_settings" json:"circle_meeting_settings,omitempty"`

	// Audit & soft delete
	CircleCreatedAt time.Time      `gorm:"type:timestamptz;not null;default:now();autoCreateTime;column:circle_created_at" json:"circle_created_at"`
	CircleUpdatedAt time.Time      `gorm:"type:timestamptz;not null;default:now();autoUpdateTime;column:circle_updated_at" json:"circle_updated_at"`
	CircleDeletedAt gorm.DeletedAt `gorm:"column:circle_deleted_at;index" json:"circle_deleted_at,omitempty"`
}

func (CircleModel) TableName() string { return "circles" }

// Bentuk isi circle_meeting_settings (semua field opsional)
type CircleMeetingSettings struct {
	PreparationMinutes      *int `json:"preparation_minutes,omitempty"`
	EndingBufferMinutes     *int `json:"ending_buffer_minutes,omitempty"`
	LateJoinGraceMinutes    *int `json:"late_join_grace_minutes,omitempty"`
	PresentThresholdPercent *int `json:"present_threshold_percent,omitempty"`
}
