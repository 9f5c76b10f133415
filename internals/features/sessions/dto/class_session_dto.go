package dto

import (
	"time"

	sessionService "bimbelku_backend/internals/features/sessions/service"
	sessionModel "bimbelku_backend/internals/features/sessions/model"

	"github.com/google/uuid"
)

/*
=========================================================

	Request
	=========================================================
*/
type CancelSessionRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type SignalRequest struct {
	// Waktu jam klien (opsional, RFC3339). Dipakai untuk telemetri;
	// ledger selalu mencatat dengan jam server.
	ClientTime string `json:"client_time,omitempty"`
}

/*
=========================================================

	Response
	=========================================================
*/

// Proyeksi status untuk UI polling — status, fase, dan keputusan join
// dihitung dalam SATU evaluasi supaya tidak pernah saling bertentangan.
type SessionStatusResponse struct {
	SessionID   uuid.UUID                   `json:"session_id"`
	Status      sessionModel.SessionStatus  `json:"status"`
	Phase       sessionService.Phase        `json:"phase"`
	ServerTime  time.Time                   `json:"server_time"`
	ScheduledAt time.Time                   `json:"scheduled_at"`
	Window      PhaseWindowResponse         `json:"window"`
	CanJoin     sessionService.JoinDecision `json:"can_join"`
	ButtonLabel string                      `json:"button_label"`
}

type PhaseWindowResponse struct {
	PrepStart   time.Time `json:"prep_start"`
	ActiveStart time.Time `json:"active_start"`
	ActiveEnd   time.Time `json:"active_end"`
	OvertimeEnd time.Time `json:"overtime_end"`
}

func NewPhaseWindowResponse(w sessionService.PhaseWindow) PhaseWindowResponse {
	return PhaseWindowResponse{
		PrepStart:   w.PrepStart,
		ActiveStart: w.ActiveStart,
		ActiveEnd:   w.ActiveEnd,
		OvertimeEnd: w.OvertimeEnd,
	}
}

type JoinSessionResponse struct {
	SessionID   uuid.UUID                  `json:"session_id"`
	RoomName    string                     `json:"room_name"`
	AccessToken string                     `json:"access_token"`
	Status      sessionModel.SessionStatus `json:"status"`
	Phase       sessionService.Phase       `json:"phase"`
}
