package logging

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func encodeLine(t *testing.T, enc zapcore.Encoder, ent zapcore.Entry, fields []zapcore.Field) string {
	t.Helper()
	buf, err := enc.EncodeEntry(ent, fields)
	require.NoError(t, err)
	defer buf.Free()
	return buf.String()
}

func TestLineEncoderFormat(t *testing.T) {
	enc := NewLineEncoder()
	ts := time.Date(2025, 4, 1, 10, 32, 5, 123_000_000, time.UTC)
	ent := zapcore.Entry{
		Time:       ts,
		Level:      zapcore.InfoLevel,
		Message:    "Starting crew kickoff",
		LoggerName: "CrewAI",
	}

	line := encodeLine(t, enc, ent, nil)
	assert.Equal(t, "2025-04-01 10:32:05,123 - CrewAI - INFO - Starting crew kickoff\n", line)
}

func TestLineEncoderDefaultsLoggerName(t *testing.T) {
	enc := NewLineEncoder()
	ent := zapcore.Entry{Time: time.Now(), Level: zapcore.WarnLevel, Message: "hello"}

	line := encodeLine(t, enc, ent, nil)
	parts := strings.SplitN(strings.TrimSuffix(line, "\n"), " - ", 4)
	require.Len(t, parts, 4)
	assert.Equal(t, DefaultLoggerName, parts[1])
	assert.Equal(t, "WARN", parts[2])
	assert.Equal(t, "hello", parts[3])
}

func TestLineEncoderAppendsFieldsAsJSON(t *testing.T) {
	enc := NewLineEncoder()
	ent := zapcore.Entry{Time: time.Now(), Level: zapcore.ErrorLevel, Message: "Task failed"}

	line := encodeLine(t, enc, ent, []zapcore.Field{zap.String("topic", "AI_Ethics")})
	assert.Contains(t, line, `Task failed {"topic":"AI_Ethics"}`)
}

func TestLineEncoderCloneCarriesWithFields(t *testing.T) {
	enc := NewLineEncoder()
	enc.AddString("request_id", "req_123")

	clone := enc.Clone()
	ent := zapcore.Entry{Time: time.Now(), Level: zapcore.InfoLevel, Message: "msg"}
	line := encodeLine(t, clone, ent, nil)
	assert.Contains(t, line, `"request_id":"req_123"`)
}

func TestRunLogFilename(t *testing.T) {
	ts := time.Date(2025, 4, 1, 9, 5, 0, 0, time.UTC)
	got := RunLogFilename("./logs", "AI_Ethics", ts)
	assert.Equal(t, "logs/AI_Ethics_20250401_090500.log", got)
}
