package model

import "time"

// FilingStatus represents where a filing sits in the processing queue.
type FilingStatus string

const (
	FilingStatusPending   FilingStatus = "pending"
	FilingStatusProcessed FilingStatus = "processed"
	FilingStatusFailed    FilingStatus = "failed"
	FilingStatusParked    FilingStatus = "parked" // in the DLQ awaiting retry
)

// Filing is one Lis Pendens row as delivered by the upstream collectors.
// GranteeBlock is the raw defendant block: newline-separated names, possibly
// with stray blank lines, exactly as scraped from the Official Records index.
type Filing struct {
	DocumentNumber   string    `json:"document_number"`
	County           string    `json:"county"` // lowercased county key, e.g. "flagler"
	GranteeBlock     string    `json:"grantee_block"`
	LegalDescription string    `json:"legal_description"`
	Plaintiff        string    `json:"plaintiff,omitempty"`
	CaseNumber       string    `json:"case_number,omitempty"`
	RecordedDate     time.Time `json:"recorded_date,omitempty"`
}

// QueuedFiling is a filing plus its queue bookkeeping.
type QueuedFiling struct {
	Filing    Filing       `json:"filing"`
	Status    FilingStatus `json:"status"`
	RunID     string       `json:"run_id,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
