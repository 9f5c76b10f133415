package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/*
=========================================================

	Model: pengaturan meeting per academy
	=========================================================
*/
type AcademySettingsModel struct {
	// PK
	AcademySettingsID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey;column:academy_settings_id" json:"academy_settings_id"`

	// Tenant guard
	AcademySettingsAcademyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex;column:academy_settings_academy_id" json:"academy_settings_academy_id"`

	// Timing meeting (nullable → fallback ke default sistem)
	AcademySettingsPreparationMinutes      *int `gorm:"column:academy_settings_preparation_minutes" json:"academy_settings_preparation_minutes,omitempty"`
	AcademySettingsEndingBufferMinutes     *int `gorm:"column:academy_settings_ending_buffer_minutes" json:"academy_settings_ending_buffer_minutes,omitempty"`
	AcademySettingsLateJoinGraceMinutes    *int `gorm:"column:academy_settings_late_join_grace_minutes" json:"academy_settings_late_join_grace_minutes,omitempty"`
	AcademySettingsPresentThresholdPercent *int `gorm:"column:academy_settings_present_threshold_percent" json:"academy_settings_present_threshold_percent,omitempty"`

	// Audit
	AcademySettingsCreatedAt time.Time      `gorm:"type:timestamptz;not null;default:now();autoCreateTime;column:academy_settings_created_at" json:"academy_settings_created_at"`
	AcademySettingsUpdatedAt time.Time      `gorm:"type:timestamptz;not null;default:now();autoUpdateTime;column:academy_settings_updated_at" json:"academy_settings_updated_at"`
	AcademySettingsDeletedAt gorm.DeletedAt `gorm:"column:academy_settings_deleted_at;index" json:"academy_settings_deleted_at,omitempty"`
}

func (AcademySettingsModel) TableName() string { return "academy_settings" }
