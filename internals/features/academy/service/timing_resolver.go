package service

import (
	"encoding/json"
	"errors"
	"log"

	academyModel "bimbelku_backend/internals/features/academy/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Default sistem (hard-coded, lapis terakhir fallback)
const (
	DefaultPreparationMinutes      = 15
	DefaultEndingBufferMinutes     = 5
	DefaultLateJoinGraceMinutes    = 15
	DefaultPresentThresholdPercent = 75
)

// TimingPolicy = hasil resolve untuk satu sesi.
// Dipakai oleh phase clock, ledger, dan coordinator.
type TimingPolicy struct {
	PreparationMinutes      int `json:"preparation_minutes"`
	EndingBufferMinutes     int `json:"ending_buffer_minutes"`
	LateJoinGraceMinutes    int `json:"late_join_grace_minutes"`
	PresentThresholdPercent int `json:"present_threshold_percent"`
}

func DefaultTimingPolicy() TimingPolicy {
	return TimingPolicy{
		PreparationMinutes:      DefaultPreparationMinutes,
		EndingBufferMinutes:     DefaultEndingBufferMinutes,
		LateJoinGraceMinutes:    DefaultLateJoinGraceMinutes,
		PresentThresholdPercent: DefaultPresentThresholdPercent,
	}
}

// SettingsSource abstraksi sumber pengaturan (GORM di produksi, fake di test).
type SettingsSource interface {
	CircleMeetingSettings(circleID uuid.UUID) (*academyModel.CircleMeetingSettings, error)
	AcademySettings(academyID uuid.UUID) (*academyModel.AcademySettingsModel, error)
}

/*
=========================================================

	Timing Policy Resolver
	Rantai fallback: override circle → academy_settings → default sistem.
	Konfigurasi yang hilang TIDAK pernah fatal.
	=========================================================
*/
type TimingResolver struct {
	Source SettingsSource
}

func NewTimingResolver(src SettingsSource) *TimingResolver {
	return &TimingResolver{Source: src}
}

func (r *TimingResolver) Resolve(academyID uuid.UUID, circleID *uuid.UUID) TimingPolicy {
	policy := DefaultTimingPolicy()
	if r == nil || r.Source == nil {
		return policy
	}

	// 1) Lapis academy
	if academyID != uuid.Nil {
		if s, err := r.Source.AcademySettings(academyID); err == nil && s != nil {
			applyInt(&policy.PreparationMinutes, s.AcademySettingsPreparationMinutes)
			applyInt(&policy.EndingBufferMinutes, s.AcademySettingsEndingBufferMinutes)
			applyInt(&policy.LateJoinGraceMinutes, s.AcademySettingsLateJoinGraceMinutes)
			applyInt(&policy.PresentThresholdPercent, s.AcademySettingsPresentThresholdPercent)
		}
	}

	// 2) Lapis circle (menimpa academy)
	if circleID != nil && *circleID != uuid.Nil {
		if o, err := r.Source.CircleMeetingSettings(*circleID); err == nil && o != nil {
			applyInt(&policy.PreparationMinutes, o.PreparationMinutes)
			applyInt(&policy.EndingBufferMinutes, o.EndingBufferMinutes)
			applyInt(&policy.LateJoinGraceMinutes, o.LateJoinGraceMinutes)
			applyInt(&policy.PresentThresholdPercent, o.PresentThresholdPercent)
		}
	}

	return policy
}

// nilai negatif dianggap tidak valid, diabaikan
func applyInt(dst *int, v *int) {
	if v != nil && *v >= 0 {
		*dst = *v
	}
}

/*
=========================================================

	Implementasi GORM
	=========================================================
*/
type GormSettingsSource struct {
	DB *gorm.DB
}

func NewGormSettingsSource(db *gorm.DB) *GormSettingsSource {
	return &GormSettingsSource{DB: db}
}

func (s *GormSettingsSource) CircleMeetingSettings(circleID uuid.UUID) (*academyModel.CircleMeetingSettings, error) {
	var circle academyModel.CircleModel
	if err := s.DB.
		Select("circle_id, circle_meeting_settings").
		First(&circle, "circle_id = ? AND circle_deleted_at IS NULL", circleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(circle.CircleMeetingSettings) == 0 {
		return nil, nil
	}

	var out academyModel.CircleMeetingSettings
	if err := json.Unmarshal(circle.CircleMeetingSettings, &out); err != nil {
		// JSON rusak bukan alasan gagal resolve; pakai lapis berikutnya
		log.Printf("[WARN] circle_meeting_settings tidak valid (circle_id=%s): %v", circleID, err)
		return nil, nil
	}
	return &out, nil
}

func (s *GormSettingsSource) AcademySettings(academyID uuid.UUID) (*academyModel.AcademySettingsModel, error) {
	var row academyModel.AcademySettingsModel
	if err := s.DB.
		First(&row, "academy_settings_academy_id = ? AND academy_settings_deleted_at IS NULL", academyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
