package model

import "time"

// RunStatus represents the current state of a processing run.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusResolving  RunStatus = "resolving"
	RunStatusDelivering RunStatus = "delivering"
	RunStatusComplete   RunStatus = "complete"
	RunStatusFailed     RunStatus = "failed"
	RunStatusCanceled   RunStatus = "canceled"
)

// Run represents a single processing run for a filing.
type Run struct {
	ID        string     `json:"id"`
	Filing    Filing     `json:"filing"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Outcome      OutcomeKind   `json:"outcome"`
	Method       MatchMethod   `json:"method,omitempty"`
	ParcelNumber string        `json:"parcel_number,omitempty"`
	Eligible     bool          `json:"eligible"`
	Reason       string        `json:"reason,omitempty"`
	Delivered    []string      `json:"delivered,omitempty"` // sinks that accepted the lead
	Stages       []StageResult `json:"stages,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// StageStatus represents the state of one pipeline stage.
type StageStatus string

const (
	StageStatusRunning  StageStatus = "running"
	StageStatusComplete StageStatus = "complete"
	StageStatusFailed   StageStatus = "failed"
	StageStatusSkipped  StageStatus = "skipped"
)

// RunStage is a persisted pipeline stage within a run.
type RunStage struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    StageStatus  `json:"status"`
	Result    *StageResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// StageResult holds the outcome of a pipeline stage.
type StageResult struct {
	Name     string         `json:"name"`
	Status   StageStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
