// Package store persists the filing queue, resolution runs, and the dead
// letter queue. Two implementations exist: SQLite for single-operator
// installs and PostgreSQL for the shared deployment that also hosts the
// parcel mirror.
package store

import (
	"context"
	"time"

	"github.com/sells-group/lispendens-cli/internal/model"
	"github.com/sells-group/lispendens-cli/internal/resilience"
)

// FilingFilter specifies criteria for listing queued filings.
type FilingFilter struct {
	Status model.FilingStatus `json:"status,omitempty"`
	County string             `json:"county,omitempty"`
	Limit  int                `json:"limit,omitempty"`
	Offset int                `json:"offset,omitempty"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status         model.RunStatus `json:"status,omitempty"`
	County         string          `json:"county,omitempty"`
	DocumentNumber string          `json:"document_number,omitempty"`
	Limit          int             `json:"limit,omitempty"`
	Offset         int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the resolution pipeline.
type Store interface {
	// Filing queue
	UpsertFiling(ctx context.Context, filing model.Filing) (bool, error)
	GetFiling(ctx context.Context, county, documentNumber string) (*model.QueuedFiling, error)
	ListFilings(ctx context.Context, filter FilingFilter) ([]model.QueuedFiling, error)
	UpdateFilingStatus(ctx context.Context, county, documentNumber string, status model.FilingStatus, runID string) error

	// Runs
	CreateRun(ctx context.Context, filing model.Filing) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Stages
	CreateStage(ctx context.Context, runID string, name string) (*model.RunStage, error)
	CompleteStage(ctx context.Context, stageID string, result *model.StageResult) error

	// Skip trace cache
	GetCachedSkipTrace(ctx context.Context, parcelNumber string) ([]byte, error)
	SetCachedSkipTrace(ctx context.Context, parcelNumber string, data []byte, ttl time.Duration) error
	DeleteExpiredSkipTraces(ctx context.Context) (int, error)

	// Dead letter queue
	EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error
	DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error)
	IncrementDLQRetry(ctx context.Context, id string, nextRetryAt time.Time, lastErr string) error
	RemoveDLQ(ctx context.Context, id string) error
	CountDLQ(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
