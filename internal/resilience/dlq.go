package resilience

import (
	"time"

	"github.com/sells-group/lispendens-cli/internal/model"
)

// DLQEntry parks a filing that could not be processed, with enough metadata
// to drain it later. Transient failures (registry outages) are the usual
// tenants; permanent ones are kept for the record and never retried
// automatically.
type DLQEntry struct {
	ID           string       `json:"id"`
	Filing       model.Filing `json:"filing"`
	Error        string       `json:"error"`
	ErrorType    string       `json:"error_type"` // ErrorTypeTransient or ErrorTypePermanent
	FailedStage  string       `json:"failed_stage,omitempty"`
	RetryCount   int          `json:"retry_count"`
	MaxRetries   int          `json:"max_retries"`
	NextRetryAt  time.Time    `json:"next_retry_at"`
	CreatedAt    time.Time    `json:"created_at"`
	LastFailedAt time.Time    `json:"last_failed_at"`
}

// EntryID returns the queue ID for a filing. The queue holds at most one
// entry per filing; parking the same filing again folds into that entry.
func EntryID(f model.Filing) string {
	return f.County + ":" + f.DocumentNumber
}

// DLQFilter selects entries to dequeue.
type DLQFilter struct {
	ErrorType string `json:"error_type,omitempty"` // "" selects all
	Limit     int    `json:"limit,omitempty"`
}

// CanRetry reports whether the entry has retry budget left.
func (e *DLQEntry) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}
