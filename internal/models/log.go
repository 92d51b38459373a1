package models

import "time"

// LogEntry represents a structured log record stored in SQLite tbl_log
// and later drained into gzipped JSONL archives by the log processor.
// Records are immutable once written.
type LogEntry struct {
	ID        int64     `json:"-"` // SQLite Row ID
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Fields    string    `json:"fields,omitempty"` // JSON representation of extra fields
}
