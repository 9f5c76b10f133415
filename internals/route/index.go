package route

import (
	"bimbelku_backend/internals/configs"
	academyService "bimbelku_backend/internals/features/academy/service"
	attendanceService "bimbelku_backend/internals/features/attendance/service"
	meetingController "bimbelku_backend/internals/features/meetings/controller"
	meetingRoute "bimbelku_backend/internals/features/meetings/route"
	meetingService "bimbelku_backend/internals/features/meetings/service"
	sessionController "bimbelku_backend/internals/features/sessions/controller"
	sessionRoute "bimbelku_backend/internals/features/sessions/route"
	sessionService "bimbelku_backend/internals/features/sessions/service"
	authMiddleware "bimbelku_backend/internals/middlewares/auth"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AppServices = dependency graph yang dirakit sekali di bootstrap;
// main.go juga memakainya untuk menjalankan coordinator.
type AppServices struct {
	Sessions    sessionService.SessionStore
	Ledger      *attendanceService.Ledger
	Rooms       meetingService.RoomProvider
	Timing      *academyService.TimingResolver
	Coordinator *sessionService.Coordinator
}

func BuildServices(db *gorm.DB) *AppServices {
	sessions := sessionService.NewGormSessionStore(db)
	ledger := attendanceService.NewLedger(attendanceService.NewGormIntervalStore(db))
	rooms := meetingService.NewRoomProviderFromEnv()
	timing := academyService.NewTimingResolver(academyService.NewGormSettingsSource(db))

	return &AppServices{
		Sessions:    sessions,
		Ledger:      ledger,
		Rooms:       rooms,
		Timing:      timing,
		Coordinator: sessionService.NewCoordinator(sessions, ledger, rooms, timing),
	}
}

// SetupRoutes mendaftarkan semua route aplikasi.
func SetupRoutes(app *fiber.App, svc *AppServices) {
	// =========================
	// 🌍 Public (tanpa login)
	// =========================
	public := app.Group("/api/public")
	meetingRoute.MeetingWebhookRoutes(public,
		meetingController.NewWebhookController(svc.Sessions, svc.Ledger))

	// =========================
	// 🔒 User (wajib JWT)
	// =========================
	api := app.Group("/api/u", authMiddleware.AuthJWT(authMiddleware.AuthJWTOpts{
		Secret:              configs.JWTSecret,
		AllowCookieFallback: true,
	}))
	sessionRoute.ClassSessionRoutes(api,
		sessionController.NewClassSessionController(svc.Sessions, svc.Ledger, svc.Rooms, svc.Timing))

	// Healthcheck
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
