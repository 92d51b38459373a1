package handlers

import (
	"errors"
	"strconv"

	"go-crewkit/internal/middleware"
	"go-crewkit/internal/repositories"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// LogHandler exposes read access to the structured log store and crew run
// history.
type LogHandler struct {
	logRepo repositories.LogRepository
	runRepo repositories.RunRepository
	logger  *zap.Logger
}

// NewLogHandler creates a new LogHandler.
func NewLogHandler(logRepo repositories.LogRepository, runRepo repositories.RunRepository, logger *zap.Logger) *LogHandler {
	return &LogHandler{
		logRepo: logRepo,
		runRepo: runRepo,
		logger:  logger,
	}
}

// GetLogs handles GET /api/v1/logs requests, newest first.
func (h *LogHandler) GetLogs(c *fiber.Ctx) error {
	reqLogger := middleware.GetRequestRunLogger(c)
	limit := parseLimit(c.Query("limit"))

	logs, err := h.logRepo.GetRecentLogs(c.Context(), limit)
	if err != nil {
		if errors.Is(err, repositories.ErrLogStoreUnavailable) {
			reqLogger.Warn("Log store is not available", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Log store unavailable"})
		}
		reqLogger.Error("Failed to fetch logs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve logs"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"count": len(logs), "logs": logs})
}

// GetRuns handles GET /api/v1/runs requests, newest first.
func (h *LogHandler) GetRuns(c *fiber.Ctx) error {
	reqLogger := middleware.GetRequestRunLogger(c)
	limit := parseLimit(c.Query("limit"))

	runs, err := h.runRepo.ListRuns(c.Context(), limit)
	if err != nil {
		if errors.Is(err, repositories.ErrLogStoreUnavailable) {
			reqLogger.Warn("Run store is not available", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Run store unavailable"})
		}
		reqLogger.Error("Failed to fetch crew runs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve runs"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"count": len(runs), "runs": runs})
}

// SetupLogRoutes registers log and run routes with the Fiber router.
func (h *LogHandler) SetupLogRoutes(router fiber.Router) {
	router.Get("/logs", h.GetLogs)
	router.Get("/runs", h.GetRuns)
}

func parseLimit(raw string) int {
	if raw == "" {
		return defaultListLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
