package models

import "time"

// CrewRun represents one crew kickoff persisted in tbl_crew_run.
type CrewRun struct {
	ID            int64     `json:"id"`
	Topic         string    `json:"topic"`
	Inputs        string    `json:"inputs"`         // JSON mapping given to Kickoff
	ResultPreview string    `json:"result_preview"` // Truncated final output
	DurationSecs  float64   `json:"duration_seconds"`
	Status        string    `json:"status"` // "completed" or "failed"
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Run statuses.
const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)
