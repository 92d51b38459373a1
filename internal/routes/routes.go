package routes

import (
	"database/sql"
	"time"

	"go-crewkit/internal/config"
	"go-crewkit/internal/handlers"
	"go-crewkit/internal/logging"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SetupRoutes configures the application routes.
func SetupRoutes(
	app *fiber.App,
	cfg *config.Config,
	logger *zap.Logger,
	crewHandler *handlers.CrewHandler,
	chatHandler *handlers.ChatHandler,
	logHandler *handlers.LogHandler,
	sqliteDB *sql.DB, // Passed for the health check
) {
	logger.Info("Setting up application routes...")

	// --- Public Routes ---

	// Health Check
	app.Get("/health", func(c *fiber.Ctx) error {
		lg := logging.GetRunLogger()
		healthStatus := fiber.Map{"status": "healthy", "timestamp": time.Now().UTC()}
		dbStatus := fiber.Map{}

		if sqliteDB != nil {
			if err := sqliteDB.PingContext(c.Context()); err == nil {
				dbStatus["sqlite"] = "connected"
			} else {
				dbStatus["sqlite"] = "disconnected"
				lg.Warn("Health check: SQLite ping failed", zap.Error(err))
			}
		} else {
			dbStatus["sqlite"] = "uninitialized"
		}
		healthStatus["dependencies"] = dbStatus
		return c.Status(fiber.StatusOK).JSON(healthStatus)
	})

	// --- API v1 Routes ---
	api := app.Group("/api/v1")

	crewHandler.SetupCrewRoutes(api) // POST /api/v1/crew/kickoff
	chatHandler.SetupChatRoutes(api) // POST /api/v1/chat, GET /api/v1/models
	logHandler.SetupLogRoutes(api)   // GET /api/v1/logs, GET /api/v1/runs
}
