package services

import (
	"context"
	"fmt"

	"go-crewkit/internal/llm"

	"go.uber.org/zap"
)

// ChatService defines the interface for direct model interaction, bypassing
// the crew machinery.
type ChatService interface {
	Chat(ctx context.Context, messages []llm.Message) (string, error)
	ListModels(ctx context.Context) ([]string, error)
}

// ModelClient is the slice of the LLM client the chat service needs.
type ModelClient interface {
	Call(ctx context.Context, messages []llm.Message, tools []llm.Tool, availableFunctions map[string]llm.ToolFunc) (string, error)
	ListModels(ctx context.Context) ([]string, error)
}

type chatServiceImpl struct {
	client ModelClient
	logger *zap.Logger
}

// NewChatService creates a new ChatService.
func NewChatService(client ModelClient, logger *zap.Logger) ChatService {
	return &chatServiceImpl{client: client, logger: logger}
}

// Chat sends the messages to the model as-is and returns the text response.
func (s *chatServiceImpl) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	s.logger.Debug("Handling direct chat request", zap.Int("messages", len(messages)))
	response, err := s.client.Call(ctx, messages, nil, nil)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	return response, nil
}

// ListModels returns the model identifiers offered by the provider.
func (s *chatServiceImpl) ListModels(ctx context.Context) ([]string, error) {
	s.logger.Debug("Fetching available models from provider")
	models, err := s.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list models: %w", err)
	}
	return models, nil
}
