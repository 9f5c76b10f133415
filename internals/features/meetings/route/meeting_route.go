package route

import (
	meetingController "bimbelku_backend/internals/features/meetings/controller"

	"github.com/gofiber/fiber/v2"
)

// MeetingWebhookRoutes memasang endpoint publik yang dipanggil media
// server (autentikasi via signature JWT, bukan sesi user).
func MeetingWebhookRoutes(public fiber.Router, ctl *meetingController.WebhookController) {
	public.Post("/meetings/webhook", ctl.Handle)
}
