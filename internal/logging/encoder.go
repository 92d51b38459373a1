package logging

import (
	"encoding/json"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// DefaultLoggerName is used when an entry carries no logger name.
const DefaultLoggerName = "CrewAI"

// runFileTimeLayout matches the classic "asctime" style with millisecond
// precision, e.g. "2025-04-01 10:32:05,123".
const runFileTimeLayout = "2006-01-02 15:04:05,000"

var bufferPool = buffer.NewPool()

// lineEncoder renders entries as plain text lines of the form
//
//	<timestamp> - <category> - <LEVEL> - <message> [fields JSON]
//
// for the per-run log file. Structured fields attached to an entry are
// appended as a compact JSON object so nothing is silently dropped.
type lineEncoder struct {
	*zapcore.MapObjectEncoder // accumulates fields added via With()
}

// NewLineEncoder creates the plain-text encoder used by the run file core.
func NewLineEncoder() zapcore.Encoder {
	return &lineEncoder{zapcore.NewMapObjectEncoder()}
}

func (e *lineEncoder) Clone() zapcore.Encoder {
	clone := zapcore.NewMapObjectEncoder()
	for k, v := range e.Fields {
		clone.Fields[k] = v
	}
	return &lineEncoder{clone}
}

func (e *lineEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	line := bufferPool.Get()

	line.AppendString(ent.Time.Format(runFileTimeLayout))
	line.AppendString(" - ")
	name := ent.LoggerName
	if name == "" {
		name = DefaultLoggerName
	}
	line.AppendString(name)
	line.AppendString(" - ")
	line.AppendString(ent.Level.CapitalString())
	line.AppendString(" - ")
	line.AppendString(ent.Message)

	if len(fields) > 0 || len(e.Fields) > 0 {
		merged := zapcore.NewMapObjectEncoder()
		for k, v := range e.Fields {
			merged.Fields[k] = v
		}
		for _, f := range fields {
			f.AddTo(merged)
		}
		// A field that cannot be marshalled must never abort the write;
		// the bare line is still emitted.
		if b, err := json.Marshal(merged.Fields); err == nil {
			line.AppendString(" ")
			_, _ = line.Write(b)
		}
	}

	line.AppendString(zapcore.DefaultLineEnding)
	return line, nil
}
