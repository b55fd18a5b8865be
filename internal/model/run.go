package model

import "time"

// RunStatus tracks a pipeline run through its stages.
type RunStatus string

const (
	RunStatusQueued        RunStatus = "queued"
	RunStatusFetching      RunStatus = "fetching"
	RunStatusNormalizing   RunStatus = "normalizing"
	RunStatusDeduplicating RunStatus = "deduplicating"
	RunStatusScoring       RunStatus = "scoring"
	RunStatusPersisting    RunStatus = "persisting"
	RunStatusComplete      RunStatus = "complete"
	RunStatusFailed        RunStatus = "failed"
)

// PipelineRunResult is the aggregate outcome of a single pipeline run.
// Created fresh per run and immutable once the run completes; this is the
// sole structured output of the pipeline besides the persisted items.
type PipelineRunResult struct {
	Fetched    int      `json:"fetched"`
	Normalized int      `json:"normalized"`
	Unique     int      `json:"unique"`
	Qualified  int      `json:"qualified"`
	Inserted   int      `json:"inserted"`
	Errors     []string `json:"errors,omitempty"`

	Partial    bool      `json:"partial,omitempty"` // run deadline expired before all stages finished
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}

// Run is the persisted record of a pipeline run.
type Run struct {
	ID        string             `json:"id"`
	Status    RunStatus          `json:"status"`
	Result    *PipelineRunResult `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
