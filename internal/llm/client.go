package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go-crewkit/internal/logging"
	"go-crewkit/internal/pkg/validation"
	"go-crewkit/internal/utils"

	"github.com/google/uuid"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"
)

// Message is a single chat message sent to the model.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant tool"`
	Content string `json:"content" validate:"required"`
}

// Tool describes a function the model may call.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// ToolFunc is a callable the model can invoke through a tool call.
type ToolFunc func(args map[string]interface{}) (interface{}, error)

// Usage carries token accounting returned by the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Config holds the client parameters for an OpenAI-compatible endpoint.
type Config struct {
	Model            string `validate:"required"`
	BaseURL          string `validate:"omitempty,url"`
	APIKey           string
	Timeout          time.Duration
	Temperature      *float64 `validate:"omitempty"`
	TopP             *float64
	MaxTokens        int
	Stop             []string
	Seed             *int
	PresencePenalty  *float64
	FrequencyPenalty *float64
}

// Client calls an OpenAI-compatible chat completions endpoint over HTTP and
// logs every request/response pair with previews and timing.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
	preview    int

	contextWindowSize int
}

// NewClient validates the configuration and creates a client. Construction
// is logged, with the API key masked.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.GetRunLogger()
	}
	if verrs := validation.ValidateStruct(cfg); verrs != nil {
		msgs := make([]string, len(verrs))
		for i, ve := range verrs {
			msgs[i] = ve.Message
		}
		return nil, fmt.Errorf("invalid LLM configuration: %s", strings.Join(msgs, "; "))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}

	logger.Info(fmt.Sprintf("Initializing LLM with model: %s", cfg.Model))
	configInfo := map[string]interface{}{
		"model":       cfg.Model,
		"base_url":    cfg.BaseURL,
		"api_key":     utils.MaskAPIKey(cfg.APIKey),
		"timeout":     cfg.Timeout.String(),
		"max_tokens":  cfg.MaxTokens,
		"temperature": cfg.Temperature,
	}
	logger.Info(fmt.Sprintf("LLM Configuration: %s", logging.JSONPayload(configInfo)))

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		preview:    logging.DefaultPreviewLength,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// Call sends messages to the model and returns the generated text. When the
// model answers with a tool call whose function is present in
// availableFunctions, the function is dispatched and its result returned
// instead. Provider failures are logged once with elapsed time and returned
// unchanged to the caller.
func (c *Client) Call(ctx context.Context, messages []Message, tools []Tool, availableFunctions map[string]ToolFunc) (string, error) {
	if err := validateMessages(messages); err != nil {
		return "", err
	}

	requestID := "req_" + uuid.NewString()[:8]
	c.logger.Info(fmt.Sprintf("LLM Call [%s] - Model: %s", requestID, c.cfg.Model))
	c.logger.Info(fmt.Sprintf("LLM Call [%s] - Messages (%d):", requestID, len(messages)))
	for idx, message := range messages {
		preview := logging.Preview(message.Content, c.preview)
		c.logger.Info(fmt.Sprintf("  Message %d (%s):\n%s", idx+1, message.Role, preview))
	}
	if len(tools) > 0 {
		c.logger.Info(fmt.Sprintf("LLM Call [%s] - Tools (%d):", requestID, len(tools)))
		for idx, tool := range tools {
			c.logger.Info(fmt.Sprintf("  Tool %d: %s", idx+1, tool.Name))
		}
	}

	startTime := time.Now()
	body, err := c.doCompletion(ctx, messages, tools)
	elapsed := time.Since(startTime).Seconds()
	if err != nil {
		c.logger.Error(fmt.Sprintf("LLM Call [%s] failed after %.2fs: %v", requestID, elapsed, err))
		return "", err
	}
	c.logger.Info(fmt.Sprintf("LLM Call [%s] completed in %.2fs", requestID, elapsed))

	return c.parseResponse(requestID, body, availableFunctions)
}

// doCompletion performs the HTTP round trip and returns the raw body.
func (c *Client) doCompletion(ctx context.Context, messages []Message, tools []Tool) ([]byte, error) {
	payload := map[string]interface{}{
		"model":    c.cfg.Model,
		"messages": messages,
		"stream":   false,
	}
	if c.cfg.Temperature != nil {
		payload["temperature"] = *c.cfg.Temperature
	}
	if c.cfg.TopP != nil {
		payload["top_p"] = *c.cfg.TopP
	}
	if c.cfg.MaxTokens > 0 {
		payload["max_tokens"] = c.cfg.MaxTokens
	}
	if len(c.cfg.Stop) > 0 {
		payload["stop"] = c.cfg.Stop
	}
	if c.cfg.Seed != nil {
		payload["seed"] = *c.cfg.Seed
	}
	if c.cfg.PresencePenalty != nil {
		payload["presence_penalty"] = *c.cfg.PresencePenalty
	}
	if c.cfg.FrequencyPenalty != nil {
		payload["frequency_penalty"] = *c.cfg.FrequencyPenalty
	}
	if len(tools) > 0 {
		wrapped := make([]map[string]interface{}, len(tools))
		for i, tool := range tools {
			wrapped[i] = map[string]interface{}{
				"type": "function",
				"function": map[string]interface{}{
					"name":        tool.Name,
					"description": tool.Description,
					"parameters":  tool.Parameters,
				},
			}
		}
		payload["tools"] = wrapped
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read completion response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("completion request returned status %d: %s", resp.StatusCode, logging.Preview(string(body), 200))
	}
	return body, nil
}

// parseResponse extracts text, usage and tool calls from the provider body.
func (c *Client) parseResponse(requestID string, body []byte, availableFunctions map[string]ToolFunc) (string, error) {
	v, err := fastjson.ParseBytes(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse completion response: %w", err)
	}

	choices := v.GetArray("choices")
	if len(choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}
	message := choices[0].Get("message")
	textResponse := string(message.GetStringBytes("content"))

	if usage := v.Get("usage"); usage != nil {
		usageInfo := Usage{
			PromptTokens:     usage.GetInt("prompt_tokens"),
			CompletionTokens: usage.GetInt("completion_tokens"),
			TotalTokens:      usage.GetInt("total_tokens"),
		}
		c.logger.Info(fmt.Sprintf("LLM Call [%s] - Usage: %s", requestID, logging.JSONPayload(usageInfo)))
	}
	if textResponse != "" {
		c.logger.Info(fmt.Sprintf("LLM Call [%s] - Response preview:\n%s", requestID, logging.Preview(textResponse, c.preview)))
	}

	toolCalls := message.GetArray("tool_calls")
	if len(toolCalls) == 0 || availableFunctions == nil {
		return textResponse, nil
	}

	// Only the first tool call is dispatched; anything unresolvable falls
	// back to the text response rather than failing the call.
	toolCall := toolCalls[0]
	functionName := string(toolCall.GetStringBytes("function", "name"))
	fn, ok := availableFunctions[functionName]
	if !ok {
		c.logger.Warn(fmt.Sprintf("Tool call requested unknown function '%s'", functionName))
		return textResponse, nil
	}

	var functionArgs map[string]interface{}
	rawArgs := toolCall.GetStringBytes("function", "arguments")
	if err := json.Unmarshal(rawArgs, &functionArgs); err != nil {
		c.logger.Warn(fmt.Sprintf("Failed to parse function arguments: %v", err))
		return textResponse, nil
	}

	c.logger.Info(fmt.Sprintf("LLM Call [%s] - Dispatching tool call: %s", requestID, functionName))
	result, err := fn(functionArgs)
	if err != nil {
		c.logger.Error(fmt.Sprintf("Error executing function '%s': %v", functionName, err))
		return textResponse, nil
	}
	if s, ok := result.(string); ok {
		return s, nil
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn(fmt.Sprintf("Could not serialize result of function '%s': %v", functionName, err))
		return textResponse, nil
	}
	return string(resultJSON), nil
}

// ListModels fetches the model list from the provider (GET /models).
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build models request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("models request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read models response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("models request returned status %d: %s", resp.StatusCode, logging.Preview(string(body), 200))
	}
	v, err := fastjson.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse models response: %w", err)
	}
	var models []string
	for _, item := range v.GetArray("data") {
		if id := string(item.GetStringBytes("id")); id != "" {
			models = append(models, id)
		}
	}
	return models, nil
}

// validateMessages checks the message list shape before any request is sent.
func validateMessages(messages []Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("messages cannot be empty")
	}
	for i, message := range messages {
		if verrs := validation.ValidateStruct(message); verrs != nil {
			return fmt.Errorf("invalid message at index %d: each message needs a role and content", i)
		}
	}
	return nil
}
