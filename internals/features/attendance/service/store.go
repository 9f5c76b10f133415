package service

import (
	"context"
	"errors"
	"time"

	attendanceModel "bimbelku_backend/internals/features/attendance/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/*
=========================================================

	Interval Store
	Close hanya mengenai baris yang masih terbuka
	(WHERE left_at IS NULL) — interval yang sudah tertutup
	immutable, double-close otomatis jadi no-op.
	=========================================================
*/
type IntervalStore interface {
	Open(ctx context.Context, iv *attendanceModel.AttendanceIntervalModel) error
	Close(ctx context.Context, id uuid.UUID, at time.Time, source attendanceModel.SignalSource) error
	FindOpen(ctx context.Context, sessionID, participantID uuid.UUID) (*attendanceModel.AttendanceIntervalModel, error)
	ListForParticipant(ctx context.Context, sessionID, participantID uuid.UUID) ([]attendanceModel.AttendanceIntervalModel, error)
	ListOpenBySession(ctx context.Context, sessionID uuid.UUID) ([]attendanceModel.AttendanceIntervalModel, error)
	AnyForSession(ctx context.Context, sessionID uuid.UUID) (bool, error)
	Heartbeat(ctx context.Context, sessionID, participantID uuid.UUID, at time.Time) error
}

type GormIntervalStore struct {
	DB *gorm.DB
}

func NewGormIntervalStore(db *gorm.DB) *GormIntervalStore {
	return &GormIntervalStore{DB: db}
}

func (s *GormIntervalStore) Open(ctx context.Context, iv *attendanceModel.AttendanceIntervalModel) error {
	return s.DB.WithContext(ctx).Create(iv).Error
}

func (s *GormIntervalStore) Close(ctx context.Context, id uuid.UUID, at time.Time, source attendanceModel.SignalSource) error {
	return s.DB.WithContext(ctx).
		Model(&attendanceModel.AttendanceIntervalModel{}).
		Where("attendance_intervals_id = ? AND attendance_intervals_left_at IS NULL", id).
		Updates(map[string]interface{}{
			"attendance_intervals_left_at":      at,
			"attendance_intervals_leave_source": source,
		}).Error
}

func (s *GormIntervalStore) FindOpen(ctx context.Context, sessionID, participantID uuid.UUID) (*attendanceModel.AttendanceIntervalModel, error) {
	var iv attendanceModel.AttendanceIntervalModel
	err := s.DB.WithContext(ctx).
		Where("attendance_intervals_session_id = ?", sessionID).
		Where("attendance_intervals_participant_id = ?", participantID).
		Where("attendance_intervals_left_at IS NULL").
		Order("attendance_intervals_joined_at DESC").
		First(&iv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &iv, nil
}

func (s *GormIntervalStore) ListForParticipant(ctx context.Context, sessionID, participantID uuid.UUID) ([]attendanceModel.AttendanceIntervalModel, error) {
	var rows []attendanceModel.AttendanceIntervalModel
	err := s.DB.WithContext(ctx).
		Where("attendance_intervals_session_id = ?", sessionID).
		Where("attendance_intervals_participant_id = ?", participantID).
		Order("attendance_intervals_joined_at ASC").
		Find(&rows).Error
	return rows, err
}

func (s *GormIntervalStore) ListOpenBySession(ctx context.Context, sessionID uuid.UUID) ([]attendanceModel.AttendanceIntervalModel, error) {
	var rows []attendanceModel.AttendanceIntervalModel
	err := s.DB.WithContext(ctx).
		Where("attendance_intervals_session_id = ?", sessionID).
		Where("attendance_intervals_left_at IS NULL").
		Find(&rows).Error
	return rows, err
}

func (s *GormIntervalStore) AnyForSession(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).
		Model(&attendanceModel.AttendanceIntervalModel{}).
		Where("attendance_intervals_session_id = ?", sessionID).
		Count(&n).Error
	return n > 0, err
}

func (s *GormIntervalStore) Heartbeat(ctx context.Context, sessionID, participantID uuid.UUID, at time.Time) error {
	return s.DB.WithContext(ctx).
		Model(&attendanceModel.AttendanceIntervalModel{}).
		Where("attendance_intervals_session_id = ?", sessionID).
		Where("attendance_intervals_participant_id = ?", participantID).
		Where("attendance_intervals_left_at IS NULL").
		Update("attendance_intervals_last_heartbeat_at", at).Error
}
