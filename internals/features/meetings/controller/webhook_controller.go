package controller

import (
	"log"
	"strings"
	"time"

	"bimbelku_backend/internals/configs"
	attendanceModel "bimbelku_backend/internals/features/attendance/model"
	attendanceService "bimbelku_backend/internals/features/attendance/service"
	sessionModel "bimbelku_backend/internals/features/sessions/model"
	sessionService "bimbelku_backend/internals/features/sessions/service"
	helper "bimbelku_backend/internals/helpers"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

/*
=========================================================

	Webhook media server (LiveKit-compatible)
	Sinyal webhook masuk ke ledger yang SAMA dengan sinyal
	klien — hanya source-nya yang beda. Event yang tidak
	dikenal di-ack 200 supaya provider tidak retry terus.
	=========================================================
*/
type WebhookController struct {
	Store  sessionService.SessionStore
	Ledger *attendanceService.Ledger
	Now    func() time.Time
}

func NewWebhookController(store sessionService.SessionStore, ledger *attendanceService.Ledger) *WebhookController {
	return &WebhookController{Store: store, Ledger: ledger, Now: time.Now}
}

type webhookEvent struct {
	Event string `json:"event"`
	Room  struct {
		Name string `json:"name"`
	} `json:"room"`
	Participant struct {
		Identity string `json:"identity"`
	} `json:"participant"`
}

// POST /api/public/meetings/webhook
func (ctl *WebhookController) Handle(c *fiber.Ctx) error {
	if err := verifySignature(c); err != nil {
		return helper.Error(c, fiber.StatusUnauthorized, "Signature webhook tidak valid")
	}

	var ev webhookEvent
	if err := c.BodyParser(&ev); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Payload webhook tidak valid")
	}

	sessionID, ok := sessionIDFromRoom(ev.Room.Name)
	if !ok {
		// Room bukan milik kita (mis. dibuat manual di provider) — ack saja.
		return helper.Success(c, "Diabaikan", nil)
	}

	switch ev.Event {
	case "participant_joined":
		return ctl.onJoined(c, sessionID, ev.Participant.Identity)
	case "participant_left":
		return ctl.onLeft(c, sessionID, ev.Participant.Identity)
	default:
		return helper.Success(c, "Diabaikan", nil)
	}
}

func (ctl *WebhookController) onJoined(c *fiber.Ctx, sessionID uuid.UUID, identity string) error {
	sess, participantID, err := ctl.resolve(c, sessionID, identity)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	now := ctl.Now()
	if err := ctl.Ledger.RecordJoin(c.Context(), sess, participantID, attendanceModel.SourceWebhook, now); err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal mencatat join webhook")
	}

	// Peserta pertama yang terdeteksi provider juga menggerakkan sesi.
	if _, err := ctl.Store.UpdateStatusIf(c.Context(), sessionID,
		[]sessionModel.SessionStatus{sessionModel.SessionReady, sessionModel.SessionAbsent},
		sessionModel.SessionOngoing,
		map[string]interface{}{"class_sessions_started_at": now}); err != nil {
		log.Printf("[WARN] webhook join: update status sesi %s: %v", sessionID, err)
	}
	return helper.Success(c, "Join dicatat", nil)
}

func (ctl *WebhookController) onLeft(c *fiber.Ctx, sessionID uuid.UUID, identity string) error {
	sess, participantID, err := ctl.resolve(c, sessionID, identity)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	if err := ctl.Ledger.RecordLeave(c.Context(), sess, participantID, attendanceModel.SourceWebhook, ctl.Now()); err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal mencatat leave webhook")
	}
	return helper.Success(c, "Leave dicatat", nil)
}

func (ctl *WebhookController) resolve(c *fiber.Ctx, sessionID uuid.UUID, identity string) (*sessionModel.ClassSessionModel, uuid.UUID, error) {
	participantID, err := uuid.Parse(identity)
	if err != nil {
		return nil, uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Identity peserta tidak valid")
	}
	sess, err := ctl.Store.GetSession(c.Context(), sessionID)
	if err != nil {
		return nil, uuid.Nil, fiber.NewError(fiber.StatusNotFound, "Sesi tidak ditemukan")
	}
	return sess, participantID, nil
}

// Room dinamai deterministik saat provisioning; webhook dipetakan balik
// ke sesi lewat nama yang sama.
func sessionIDFromRoom(room string) (uuid.UUID, bool) {
	const prefix = "bimbelku-session-"
	if !strings.HasPrefix(room, prefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(room, prefix))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Provider menandatangani webhook dengan JWT HS256 (API secret yang sama
// dengan token akses). Tanpa secret terkonfigurasi → tolak semua.
func verifySignature(c *fiber.Ctx) error {
	secret := configs.MeetingAPISecret
	if secret == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "webhook belum dikonfigurasi")
	}

	raw := strings.TrimSpace(strings.TrimPrefix(c.Get("Authorization"), "Bearer "))
	if raw == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "authorization kosong")
	}

	_, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "metode signing tidak didukung")
		}
		return []byte(secret), nil
	})
	return err
}
