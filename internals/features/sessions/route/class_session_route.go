package route

import (
	sessionController "bimbelku_backend/internals/features/sessions/controller"
	"bimbelku_backend/internals/middlewares"

	"github.com/gofiber/fiber/v2"
)

// ClassSessionRoutes memasang endpoint lifecycle sesi di group /api/u
// (sudah di belakang AuthJWT).
func ClassSessionRoutes(api fiber.Router, ctl *sessionController.ClassSessionController) {
	sessions := api.Group("/class-sessions")

	// Read-only (di-poll klien)
	sessions.Get("/:id/status", ctl.GetStatus)
	sessions.Get("/:id/attendance", ctl.GetAttendance)

	// Sinyal kehadiran — rate limit lebih longgar, klien jaringan jelek
	// retry agresif.
	sessions.Post("/:id/join", middlewares.SignalRateLimiter(), ctl.Join)
	sessions.Post("/:id/leave", middlewares.SignalRateLimiter(), ctl.Leave)
	sessions.Post("/:id/heartbeat", middlewares.SignalRateLimiter(), ctl.Heartbeat)

	// Aksi host
	sessions.Post("/:id/cancel", ctl.Cancel)
	sessions.Post("/:id/complete", ctl.Complete)
	sessions.Post("/:id/absent", ctl.MarkAbsent)
}
