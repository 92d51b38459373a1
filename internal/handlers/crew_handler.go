package handlers

import (
	"context"
	"errors"

	"go-crewkit/internal/middleware"
	"go-crewkit/internal/pkg/validation"
	"go-crewkit/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// KickoffRequest is the payload for POST /api/v1/crew/kickoff.
type KickoffRequest struct {
	Topic  string                 `json:"topic" validate:"required,min=1,max=200"`
	Inputs map[string]interface{} `json:"inputs"`
}

// CrewHandler handles crew kickoff HTTP requests.
type CrewHandler struct {
	crewService services.CrewService
	logger      *zap.Logger
}

// NewCrewHandler creates a new CrewHandler.
func NewCrewHandler(crewService services.CrewService, logger *zap.Logger) *CrewHandler {
	return &CrewHandler{
		crewService: crewService,
		logger:      logger,
	}
}

// Kickoff handles POST /api/v1/crew/kickoff requests.
func (h *CrewHandler) Kickoff(c *fiber.Ctx) error {
	reqLogger := middleware.GetRequestRunLogger(c)

	var req KickoffRequest
	if !validation.ParseAndValidate(c, &req) {
		return nil // Response already sent by ParseAndValidate
	}

	reqLogger.Info("Handling crew kickoff request", zap.String("topic", req.Topic))

	run, err := h.crewService.RunTopic(c.Context(), req.Topic, req.Inputs)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			reqLogger.Warn("Crew kickoff cancelled by client", zap.Error(err))
			return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{"error": "Request cancelled"})
		}
		reqLogger.Error("Crew kickoff failed", zap.String("topic", req.Topic), zap.Error(err))
		// The failed run record, when persisted, still comes back to the caller.
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Crew kickoff failed",
			"run":   run,
		})
	}

	return c.Status(fiber.StatusOK).JSON(run)
}

// SetupCrewRoutes registers crew routes with the Fiber router.
func (h *CrewHandler) SetupCrewRoutes(router fiber.Router) {
	router.Post("/crew/kickoff", h.Kickoff)
}
