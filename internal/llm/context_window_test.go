package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func clientForModel(t *testing.T, model string) *Client {
	t.Helper()
	c, err := NewClient(Config{Model: model}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestContextWindowSize(t *testing.T) {
	// 75% of the advertised window
	assert.Equal(t, int(128000*0.75), clientForModel(t, "gpt-4o-mini").ContextWindowSize())
	assert.Equal(t, int(8192*0.75), clientForModel(t, "llama3").ContextWindowSize())

	// Unknown models fall back to the default window
	assert.Equal(t, int(8192*0.75), clientForModel(t, "totally-unknown").ContextWindowSize())

	// Provider prefixes are stripped before lookup
	assert.Equal(t, int(128000*0.75), clientForModel(t, "openrouter/deepseek/deepseek-chat").ContextWindowSize())
}

func TestContextWindowSizeMemoized(t *testing.T) {
	c := clientForModel(t, "gpt-4o-mini")
	first := c.ContextWindowSize()
	assert.Equal(t, first, c.ContextWindowSize())
}

func TestSupportsFunctionCalling(t *testing.T) {
	assert.True(t, clientForModel(t, "gpt-4o-mini").SupportsFunctionCalling())
	assert.True(t, clientForModel(t, "ollama/llama3.1").SupportsFunctionCalling())
	assert.False(t, clientForModel(t, "llama2-uncensored").SupportsFunctionCalling())
}

func TestProvider(t *testing.T) {
	assert.Equal(t, "openai", Provider("gpt-4o-mini"))
	assert.Equal(t, "openrouter", Provider("openrouter/deepseek/deepseek-chat"))
	assert.Equal(t, "ollama", Provider("ollama/llama3"))
}
