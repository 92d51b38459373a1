package handlers

import (
	"go-crewkit/internal/llm"
	"go-crewkit/internal/middleware"
	"go-crewkit/internal/pkg/validation"
	"go-crewkit/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ChatRequest is the payload for POST /api/v1/chat.
type ChatRequest struct {
	Messages []llm.Message `json:"messages" validate:"required,min=1,dive"`
}

// ChatHandler handles direct model chat requests.
type ChatHandler struct {
	chatService services.ChatService
	logger      *zap.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService services.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// Chat handles POST /api/v1/chat requests.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	reqLogger := middleware.GetRequestRunLogger(c)

	var req ChatRequest
	if !validation.ParseAndValidate(c, &req) {
		return nil // Response already sent by ParseAndValidate
	}

	reqLogger.Info("Handling chat request", zap.Int("messages", len(req.Messages)))

	response, err := h.chatService.Chat(c.Context(), req.Messages)
	if err != nil {
		reqLogger.Error("Chat request failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Chat request failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"response": response})
}

// ListModels handles GET /api/v1/models requests.
func (h *ChatHandler) ListModels(c *fiber.Ctx) error {
	reqLogger := middleware.GetRequestRunLogger(c)

	models, err := h.chatService.ListModels(c.Context())
	if err != nil {
		reqLogger.Error("Model listing failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Could not list models"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"models": models})
}

// SetupChatRoutes registers chat routes with the Fiber router.
func (h *ChatHandler) SetupChatRoutes(router fiber.Router) {
	router.Post("/chat", h.Chat)
	router.Get("/models", h.ListModels)
}
