package controller

import (
	"errors"
	"time"

	"bimbelku_backend/internals/constants"
	academyService "bimbelku_backend/internals/features/academy/service"
	attendanceModel "bimbelku_backend/internals/features/attendance/model"
	attendanceService "bimbelku_backend/internals/features/attendance/service"
	meetingService "bimbelku_backend/internals/features/meetings/service"
	sessionDTO "bimbelku_backend/internals/features/sessions/dto"
	sessionModel "bimbelku_backend/internals/features/sessions/model"
	sessionService "bimbelku_backend/internals/features/sessions/service"
	helper "bimbelku_backend/internals/helpers"
	helperAuth "bimbelku_backend/internals/helpers/auth"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ClassSessionController struct {
	Store    sessionService.SessionStore
	Ledger   *attendanceService.Ledger
	Rooms    meetingService.RoomProvider
	Timing   *academyService.TimingResolver
	Validate *validator.Validate
	Now      func() time.Time
}

func NewClassSessionController(
	store sessionService.SessionStore,
	ledger *attendanceService.Ledger,
	rooms meetingService.RoomProvider,
	timing *academyService.TimingResolver,
) *ClassSessionController {
	return &ClassSessionController{
		Store:    store,
		Ledger:   ledger,
		Rooms:    rooms,
		Timing:   timing,
		Validate: validator.New(),
		Now:      time.Now,
	}
}

func (ctl *ClassSessionController) loadSession(c *fiber.Ctx) (*sessionModel.ClassSessionModel, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "ID sesi tidak valid")
	}
	sess, err := ctl.Store.GetSession(c.Context(), id)
	if err != nil {
		if errors.Is(err, sessionService.ErrSessionNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Sesi tidak ditemukan")
		}
		return nil, err
	}
	return sess, nil
}

// =========================================================
// 🕑 GET /api/u/class-sessions/:id/status
// Proyeksi read-only untuk polling UI. Tanpa side effect.
// =========================================================
func (ctl *ClassSessionController) GetStatus(c *fiber.Ctx) error {
	sess, err := ctl.loadSession(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	now := ctl.Now()
	role := helperAuth.GetRoleFromToken(c)
	policy := ctl.Timing.Resolve(sess.ClassSessionsAcademyID, sess.ClassSessionsCircleID)
	window := sessionService.WindowOf(sess.ClassSessionsScheduledAt, sess.ClassSessionsDurationMinutes, policy)
	ph := sessionService.PhaseAt(now, sess.ClassSessionsScheduledAt, sess.ClassSessionsDurationMinutes, policy)
	dec := sessionService.CanJoin(role, sess.ClassSessionsStatus, ph, sess.HasRoom())

	return helper.Success(c, "Status sesi", sessionDTO.SessionStatusResponse{
		SessionID:   sess.ClassSessionsID,
		Status:      sess.ClassSessionsStatus,
		Phase:       ph,
		ServerTime:  now,
		ScheduledAt: sess.ClassSessionsScheduledAt,
		Window:      sessionDTO.NewPhaseWindowResponse(window),
		CanJoin:     dec,
		ButtonLabel: buttonLabel(dec, ph, sess.ClassSessionsStatus),
	})
}

func buttonLabel(dec sessionService.JoinDecision, ph sessionService.Phase, status sessionModel.SessionStatus) string {
	if dec.Allowed {
		if ph == sessionService.PhaseOvertime {
			return "Masuk Kelas (waktu hampir habis)"
		}
		return "Masuk Kelas"
	}
	switch dec.Code {
	case sessionService.DenyNotYetOpen:
		return "Belum Dibuka"
	case sessionService.DenyRoomNotReady:
		return "Menunggu Pengajar"
	case sessionService.DenyCanceled:
		return "Dibatalkan"
	case sessionService.DenyCompleted, sessionService.DenyEnded:
		return "Sesi Selesai"
	}
	return "Belum Dibuka"
}

// =========================================================
// 🚪 POST /api/u/class-sessions/:id/join
// Satu transisi: cek eligibility → (host) siapkan room →
// terbitkan token → catat interval → ready/absent → ongoing.
// =========================================================
func (ctl *ClassSessionController) Join(c *fiber.Ctx) error {
	sess, err := ctl.loadSession(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	userID, err := helperAuth.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	role := helperAuth.GetRoleFromToken(c)

	now := ctl.Now()
	policy := ctl.Timing.Resolve(sess.ClassSessionsAcademyID, sess.ClassSessionsCircleID)
	ph := sessionService.PhaseOf(now, sess, policy)

	dec := sessionService.CanJoin(role, sess.ClassSessionsStatus, ph, sess.HasRoom())
	if !dec.Allowed {
		return helper.ErrorWithDetails(c, fiber.StatusForbidden, dec.Reason, fiber.Map{"code": dec.Code})
	}

	// Host masuk duluan → room dibuat saat itu juga.
	roomName := ""
	if sess.HasRoom() {
		roomName = *sess.ClassSessionsRoomToken
	} else {
		roomName, err = ctl.Rooms.ProvisionRoom(c.Context(), sess.ClassSessionsID)
		if err != nil {
			return helper.Error(c, fiber.StatusBadGateway, "Gagal menyiapkan ruang meeting")
		}
		if err := ctl.Store.SetRoomToken(c.Context(), sess.ClassSessionsID, roomName); err != nil {
			return helper.Error(c, fiber.StatusInternalServerError, "Gagal menyimpan ruang meeting")
		}
		sess.ClassSessionsRoomToken = &roomName
	}

	token, err := ctl.Rooms.IssueParticipantToken(roomName, userID, role, true)
	if err != nil {
		return helper.Error(c, fiber.StatusBadGateway, "Gagal menerbitkan token meeting")
	}

	if err := ctl.Ledger.RecordJoin(c.Context(), sess, userID, attendanceModel.SourceClient, now); err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal mencatat kehadiran")
	}

	// Join pertama menggerakkan ready/absent → ongoing; yang kalah race
	// tidak apa-apa, sesi sudah ongoing.
	changed, err := ctl.Store.UpdateStatusIf(c.Context(), sess.ClassSessionsID,
		[]sessionModel.SessionStatus{sessionModel.SessionReady, sessionModel.SessionAbsent},
		sessionModel.SessionOngoing,
		map[string]interface{}{"class_sessions_started_at": now})
	if err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal memperbarui status sesi")
	}
	status := sess.ClassSessionsStatus
	if changed || status == sessionModel.SessionReady || status == sessionModel.SessionAbsent {
		status = sessionModel.SessionOngoing
	}

	return helper.Success(c, "Berhasil masuk sesi", sessionDTO.JoinSessionResponse{
		SessionID:   sess.ClassSessionsID,
		RoomName:    roomName,
		AccessToken: token,
		Status:      status,
		Phase:       ph,
	})
}

// =========================================================
// 👋 POST /api/u/class-sessions/:id/leave
// No-op kalau tidak ada interval terbuka (sinyal duplikat).
// =========================================================
func (ctl *ClassSessionController) Leave(c *fiber.Ctx) error {
	sess, err := ctl.loadSession(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	userID, err := helperAuth.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	if err := ctl.Ledger.RecordLeave(c.Context(), sess, userID, attendanceModel.SourceClient, ctl.Now()); err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal mencatat keluar sesi")
	}
	return helper.Success(c, "Keluar sesi dicatat", nil)
}

// =========================================================
// 💓 POST /api/u/class-sessions/:id/heartbeat
// =========================================================
func (ctl *ClassSessionController) Heartbeat(c *fiber.Ctx) error {
	sess, err := ctl.loadSession(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	userID, err := helperAuth.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	if err := ctl.Ledger.Heartbeat(c.Context(), sess.ClassSessionsID, userID, ctl.Now()); err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal mencatat heartbeat")
	}
	return helper.Success(c, "OK", nil)
}

// =========================================================
// 🛑 POST /api/u/class-sessions/:id/cancel (host)
// CAS: hanya dari status non-terminal; kalah race → 409.
// =========================================================
func (ctl *ClassSessionController) Cancel(c *fiber.Ctx) error {
	if err := helperAuth.RequireHostRole(c, "membatalkan sesi"); err != nil {
		return helper.FromFiberError(c, err)
	}
	sess, err := ctl.loadSession(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	userID, err := helperAuth.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	var req sessionDTO.CancelSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "Body tidak valid")
	}
	if err := ctl.Validate.Struct(&req); err != nil {
		return helper.ValidationError(c, err)
	}

	now := ctl.Now()
	changed, err := ctl.Store.UpdateStatusIf(c.Context(), sess.ClassSessionsID,
		[]sessionModel.SessionStatus{
			sessionModel.SessionScheduled,
			sessionModel.SessionReady,
			sessionModel.SessionOngoing,
			sessionModel.SessionAbsent,
		},
		sessionModel.SessionCanceled,
		map[string]interface{}{
			"class_sessions_canceled_at":   now,
			"class_sessions_canceled_by":   userID,
			"class_sessions_cancel_reason": req.Reason,
		})
	if err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal membatalkan sesi")
	}
	if !changed {
		return helper.Error(c, fiber.StatusConflict, "Sesi sudah berstatus final, tidak bisa dibatalkan")
	}

	ctl.teardown(c, sess, now)
	return helper.Success(c, "Sesi dibatalkan", nil)
}

// =========================================================
// ✅ POST /api/u/class-sessions/:id/complete (host)
// Guru mengakhiri lebih awal tanpa menunggu jam habis.
// =========================================================
func (ctl *ClassSessionController) Complete(c *fiber.Ctx) error {
	if err := helperAuth.RequireHostRole(c, "menyelesaikan sesi"); err != nil {
		return helper.FromFiberError(c, err)
	}
	sess, err := ctl.loadSession(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	now := ctl.Now()
	patch := map[string]interface{}{"class_sessions_ended_at": now}
	if sess.ClassSessionsStartedAt != nil {
		actual := int(now.Sub(*sess.ClassSessionsStartedAt).Minutes())
		if actual < 0 {
			actual = 0
		}
		patch["class_sessions_actual_duration_minutes"] = actual
	}

	changed, err := ctl.Store.UpdateStatusIf(c.Context(), sess.ClassSessionsID,
		[]sessionModel.SessionStatus{
			sessionModel.SessionScheduled,
			sessionModel.SessionReady,
			sessionModel.SessionOngoing,
		},
		sessionModel.SessionCompleted, patch)
	if err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal menyelesaikan sesi")
	}
	if !changed {
		return helper.Error(c, fiber.StatusConflict, "Sesi sudah berstatus final")
	}

	ctl.teardown(c, sess, now)
	return helper.Success(c, "Sesi diselesaikan", nil)
}

// =========================================================
// 🙅 POST /api/u/class-sessions/:id/absent (host)
// Guru menandai siswa tidak hadir. Absent BUKAN terminal.
// =========================================================
func (ctl *ClassSessionController) MarkAbsent(c *fiber.Ctx) error {
	if err := helperAuth.RequireHostRole(c, "menandai absen"); err != nil {
		return helper.FromFiberError(c, err)
	}
	sess, err := ctl.loadSession(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	changed, err := ctl.Store.UpdateStatusIf(c.Context(), sess.ClassSessionsID,
		[]sessionModel.SessionStatus{sessionModel.SessionScheduled, sessionModel.SessionReady},
		sessionModel.SessionAbsent, nil)
	if err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal menandai absen")
	}
	if !changed {
		return helper.Error(c, fiber.StatusConflict, "Status sesi sudah berubah, absen tidak diterapkan")
	}
	return helper.Success(c, "Sesi ditandai absen", nil)
}

// teardown membereskan room dan interval setelah transisi terminal.
// Best-effort: kegagalan di sini tidak membatalkan transisi.
func (ctl *ClassSessionController) teardown(c *fiber.Ctx, sess *sessionModel.ClassSessionModel, at time.Time) {
	if sess.HasRoom() {
		_ = ctl.Rooms.DisconnectRoom(c.Context(), *sess.ClassSessionsRoomToken)
	}
	_ = ctl.Ledger.CloseAllOpen(c.Context(), sess.ClassSessionsID, at, attendanceModel.SourceTimeoutClose)
}

// =========================================================
// 📊 GET /api/u/class-sessions/:id/attendance
// Siswa melihat miliknya sendiri; host boleh ?participant_id=.
// =========================================================
func (ctl *ClassSessionController) GetAttendance(c *fiber.Ctx) error {
	sess, err := ctl.loadSession(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	userID, err := helperAuth.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	participantID := userID
	if q := c.Query("participant_id"); q != "" {
		if !constants.IsHostRole(helperAuth.GetRoleFromToken(c)) {
			return helper.Error(c, fiber.StatusForbidden, "Hanya pengajar yang boleh melihat kehadiran peserta lain")
		}
		pid, err := uuid.Parse(q)
		if err != nil {
			return helper.Error(c, fiber.StatusBadRequest, "participant_id tidak valid")
		}
		participantID = pid
	}

	policy := ctl.Timing.Resolve(sess.ClassSessionsAcademyID, sess.ClassSessionsCircleID)
	summary, err := ctl.Ledger.Summarize(c.Context(), sess, participantID, ctl.Now(), policy)
	if err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal menghitung kehadiran")
	}
	return helper.Success(c, "Rekap kehadiran", summary)
}
