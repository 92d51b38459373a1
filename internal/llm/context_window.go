package llm

import "strings"

// Context window sizes by model prefix. Unlisted models use the default.
var contextWindowSizes = map[string]int{
	// openai
	"gpt-4":       8192,
	"gpt-4o":      128000,
	"gpt-4o-mini": 128000,
	"gpt-4-turbo": 128000,
	"o1-preview":  128000,
	"o1-mini":     128000,
	// anthropic
	"claude-3":   200000,
	"claude-3-5": 200000,
	// gemini
	"gemini-2.0-flash": 1048576,
	"gemini-1.5-pro":   2097152,
	"gemini-1.5-flash": 1048576,
	// deepseek
	"deepseek-chat": 128000,
	// llama
	"llama3":                  8192,
	"llama3.1":                131072,
	"llama-3.1-70b-versatile": 131072,
	"llama-3.1-8b-instant":    131072,
	"llama-3.3-70b-versatile": 128000,
	"mixtral-8x7b-32768":      32768,
}

const (
	defaultContextWindowSize = 8192
	// Only 75% of the window is reported so prompts are not cut off
	// mid-thread when the response still needs room.
	contextWindowUsageRatio = 0.75
)

// functionCallingPrefixes lists model families known to support tool calls.
var functionCallingPrefixes = []string{
	"gpt-4", "gpt-3.5-turbo", "o1", "claude-3", "gemini-1.5", "gemini-2.0",
	"llama3.1", "llama-3.1", "llama-3.3", "mixtral", "deepseek",
}

// ContextWindowSize returns the usable context window for the configured
// model (75% of the advertised maximum). The value is memoized per client.
func (c *Client) ContextWindowSize() int {
	if c.contextWindowSize != 0 {
		return c.contextWindowSize
	}
	// Longest matching prefix wins ("gpt-4o-mini" over "gpt-4").
	model := baseModelName(c.cfg.Model)
	size := defaultContextWindowSize
	matched := 0
	for key, value := range contextWindowSizes {
		if strings.HasPrefix(model, key) && len(key) > matched {
			size = value
			matched = len(key)
		}
	}
	c.contextWindowSize = int(float64(size) * contextWindowUsageRatio)
	return c.contextWindowSize
}

// SupportsFunctionCalling reports whether the configured model family is
// known to handle tool schemas.
func (c *Client) SupportsFunctionCalling() bool {
	model := baseModelName(c.cfg.Model)
	for _, prefix := range functionCallingPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// baseModelName strips a provider prefix like "openrouter/" or "ollama/".
func baseModelName(model string) string {
	if idx := strings.LastIndex(model, "/"); idx >= 0 {
		return model[idx+1:]
	}
	return model
}

// Provider derives the provider name from the model string, e.g.
// "openrouter/deepseek/deepseek-chat" yields "openrouter". Models without a
// slash default to "openai".
func Provider(model string) string {
	if idx := strings.Index(model, "/"); idx >= 0 {
		return model[:idx]
	}
	return "openai"
}
