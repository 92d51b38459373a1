package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSanitizeTopic(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "crew", "crew"},
		{"spaces to underscores", "AI Ethics", "AI_Ethics"},
		{"special chars stripped", "What's next? (2025)", "Whats_next_2025"},
		{"collapses whitespace", "  a   b  ", "a_b"},
		{"only specials", "?!*", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeTopic(tt.in))
		})
	}
}

func TestSanitizeTopicTruncates(t *testing.T) {
	long := strings.Repeat("a", MaxTopicLength+20)
	got := SanitizeTopic(long)
	assert.Len(t, got, MaxTopicLength)
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "local")
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))

	cfg, err := LoadConfig(zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "crew", cfg.Topic)
	assert.True(t, cfg.EnhancedLogging)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.SQLiteLogEnabled)
	assert.Equal(t, 60*time.Second, cfg.LogBatchInterval)
	assert.Equal(t, 500, cfg.PreviewLength)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLMBaseURL)
	assert.Equal(t, "*", cfg.CORSAllowOrigins)
}

func TestLoadConfigOverridesAndSanitizesTopic(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "local")
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("CREW_TOPIC", "AI Ethics: 2025?")
	t.Setenv("CREW_ENHANCED_LOGGING", "false")
	t.Setenv("LOG_LEVEL", "bogus")
	t.Setenv("LOG_BATCH_INTERVAL_SECONDS", "5")

	cfg, err := LoadConfig(zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "AI_Ethics_2025", cfg.Topic)
	assert.False(t, cfg.EnhancedLogging)
	assert.Equal(t, "info", cfg.LogLevel, "invalid level falls back to info")
	assert.Equal(t, 5*time.Second, cfg.LogBatchInterval)
}

func TestLoadConfigRejectsOpenCORSInProduction(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("CORS_ALLOW_ORIGINS", "*")

	_, err := LoadConfig(zap.NewNop())
	require.Error(t, err)
}
