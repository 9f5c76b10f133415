package service

import (
	"context"
	"errors"
	"time"

	sessionModel "bimbelku_backend/internals/features/sessions/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/*
=========================================================

	Session Store
	UpdateStatusIf = compare-and-swap: precondition status
	dicek di WHERE, siapa cepat dia menang; yang kalah
	dapat false (no-op), bukan error.
	=========================================================
*/
type SessionStore interface {
	GetSession(ctx context.Context, id uuid.UUID) (*sessionModel.ClassSessionModel, error)
	ListNonTerminal(ctx context.Context) ([]sessionModel.ClassSessionModel, error)
	UpdateStatusIf(ctx context.Context, id uuid.UUID, expected []sessionModel.SessionStatus, next sessionModel.SessionStatus, patch map[string]interface{}) (bool, error)
	SetRoomToken(ctx context.Context, id uuid.UUID, roomToken string) error
}

var ErrSessionNotFound = errors.New("session tidak ditemukan")

type GormSessionStore struct {
	DB *gorm.DB
}

func NewGormSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{DB: db}
}

func (s *GormSessionStore) GetSession(ctx context.Context, id uuid.UUID) (*sessionModel.ClassSessionModel, error) {
	var sess sessionModel.ClassSessionModel
	if err := s.DB.WithContext(ctx).
		First(&sess, "class_sessions_id = ? AND class_sessions_deleted_at IS NULL", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &sess, nil
}

// Feed untuk tick scheduler. Sesi yang jauh di masa depan atau sudah
// lama lewat tidak diproses (guard yang sama dengan batas 24 jam di produk).
func (s *GormSessionStore) ListNonTerminal(ctx context.Context) ([]sessionModel.ClassSessionModel, error) {
	var rows []sessionModel.ClassSessionModel
	now := time.Now()
	err := s.DB.WithContext(ctx).
		Where("class_sessions_status IN ?", []sessionModel.SessionStatus{
			sessionModel.SessionScheduled,
			sessionModel.SessionReady,
			sessionModel.SessionOngoing,
			sessionModel.SessionAbsent,
		}).
		Where("class_sessions_deleted_at IS NULL").
		Where("class_sessions_scheduled_at BETWEEN ? AND ?", now.Add(-24*time.Hour), now.Add(24*time.Hour)).
		Order("class_sessions_scheduled_at ASC").
		Find(&rows).Error
	return rows, err
}

func (s *GormSessionStore) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected []sessionModel.SessionStatus, next sessionModel.SessionStatus, patch map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"class_sessions_status": next}
	for k, v := range patch {
		updates[k] = v
	}

	res := s.DB.WithContext(ctx).
		Model(&sessionModel.ClassSessionModel{}).
		Where("class_sessions_id = ? AND class_sessions_deleted_at IS NULL", id).
		Where("class_sessions_status IN ?", expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormSessionStore) SetRoomToken(ctx context.Context, id uuid.UUID, roomToken string) error {
	return s.DB.WithContext(ctx).
		Model(&sessionModel.ClassSessionModel{}).
		Where("class_sessions_id = ? AND class_sessions_room_token IS NULL", id).
		Update("class_sessions_room_token", roomToken).Error
}
