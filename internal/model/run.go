package model

import "time"

// RunStatus represents the current state of a pivot run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusAborted  RunStatus = "aborted"
	RunStatusFailed   RunStatus = "failed"
)

// Run is a single pivot of one quote source.
type Run struct {
	ID        string      `json:"id"`
	Source    string      `json:"source"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunSummary holds the diagnostics and grid shape of a finished run.
type RunSummary struct {
	Records    int      `json:"records"`
	Validated  int      `json:"validated"`
	ReadErrors []string `json:"read_errors,omitempty"`
	Errors     []string `json:"errors,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	Collisions []string `json:"collisions,omitempty"`
	Columns    int      `json:"columns"`
	Rows       int      `json:"rows"`
	Output     string   `json:"output,omitempty"`
}
