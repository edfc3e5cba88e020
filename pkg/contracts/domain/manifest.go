package domain

import "time"

// StageStatus is the terminal state of one pipeline stage run.
type StageStatus string

const (
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
)

// StageRecord is one line of the pipeline manifest (data/manifest.jsonl).
// Every stage binary appends exactly one record per invocation so a run
// of the full pipeline can be reconstructed from the manifest alone.
type StageRecord struct {
	RunID      string      `json:"run_id" validate:"required,uuid"`
	Stage      string      `json:"stage" validate:"required"`
	StartedAt  time.Time   `json:"started_at" validate:"required"`
	DurationMS int64       `json:"duration_ms" validate:"min=0"`
	Inputs     []string    `json:"inputs,omitempty"`
	Outputs    []string    `json:"outputs,omitempty"`
	Rows       int         `json:"rows,omitempty"`
	Status     StageStatus `json:"status" validate:"required,oneof=completed failed"`
	Error      string      `json:"error,omitempty"`
}
