package model

// OutcomeKind tags the result of a resolution attempt.
type OutcomeKind string

const (
	OutcomeMatched      OutcomeKind = "matched"
	OutcomeNotFound     OutcomeKind = "not_found"
	OutcomeNoLegalMatch OutcomeKind = "no_legal_match"
)

// MatchMethod records how a match was established.
type MatchMethod string

const (
	// MethodExactName: single candidate from the exact owner-name query.
	MethodExactName MatchMethod = "exact_name"
	// MethodLegalDescription: keyword-scored winner from the exact query.
	MethodLegalDescription MatchMethod = "legal_description"
	// MethodLikeSingle: single candidate from the fuzzy surname query.
	MethodLikeSingle MatchMethod = "like_single"
	// MethodLikeLegalDescription: keyword-scored winner from the fuzzy query.
	MethodLikeLegalDescription MatchMethod = "like_legal_description"
)

// MatchOutcome is the tagged result of scoring a candidate set.
//
// Invariants: Score is non-nil iff Method is one of the legal-description
// variants; CandidateCount is set only for OutcomeNoLegalMatch and is always
// >= 2 there (the single-candidate path short-circuits to Matched).
type MatchOutcome struct {
	Kind OutcomeKind `json:"kind"`

	// Matched fields.
	ParcelNumber string      `json:"parcel_number,omitempty"`
	AddressLine  string      `json:"address_line,omitempty"`
	City         string      `json:"city,omitempty"`
	Zip          string      `json:"zip,omitempty"`
	LegalText    string      `json:"legal_text,omitempty"`
	Method       MatchMethod `json:"method,omitempty"`
	Score        *int        `json:"score,omitempty"`

	// NoLegalMatch fields.
	CandidateCount int `json:"candidate_count,omitempty"`
}

// Matched reports whether the outcome carries a usable parcel.
func (o MatchOutcome) Matched() bool { return o.Kind == OutcomeMatched }

// NewMatched builds a Matched outcome from a winning candidate.
func NewMatched(c CandidateParcel, method MatchMethod, score *int) MatchOutcome {
	return MatchOutcome{
		Kind:         OutcomeMatched,
		ParcelNumber: c.ParcelNumber,
		AddressLine:  c.AddressLine,
		City:         c.City,
		Zip:          c.Zip,
		LegalText:    c.LegalText,
		Method:       method,
		Score:        score,
	}
}

// NewNotFound builds the empty-result outcome.
func NewNotFound() MatchOutcome { return MatchOutcome{Kind: OutcomeNotFound} }

// NewNoLegalMatch builds the below-threshold outcome for a multi-candidate set.
func NewNoLegalMatch(candidateCount int) MatchOutcome {
	return MatchOutcome{Kind: OutcomeNoLegalMatch, CandidateCount: candidateCount}
}

// TierStats captures per-tier candidate counts for diagnostics.
type TierStats struct {
	Queried    bool `json:"queried"`
	Candidates int  `json:"candidates"`
	// Prefilter is the candidate count before the owner filter dropped
	// everything. Zero unless the filter emptied the set.
	Prefilter int `json:"prefilter,omitempty"`
}

// Diagnostics accumulates observability data across the resolution tiers.
type Diagnostics struct {
	Exact    TierStats `json:"exact"`
	Fuzzy    TierStats `json:"fuzzy"`
	Keywords []string  `json:"keywords,omitempty"` // subdivision keywords used for scoring
	Canceled bool      `json:"canceled,omitempty"`
}

// EligibilityDecision is the entity/eligibility filter verdict.
type EligibilityDecision struct {
	Eligible bool     `json:"eligible"`
	Reason   string   `json:"reason,omitempty"` // set when not eligible
	Detail   string   `json:"detail,omitempty"` // e.g. the corporate keyword that hit
	Warnings []string `json:"warnings,omitempty"`
}

// Ineligibility reasons.
const (
	ReasonNoMatch     = "no_match"
	ReasonTimeshare   = "timeshare"
	ReasonEntity      = "entity"
	ReasonSingleToken = "single_token"
)

// WarningAddressUnverified flags an exact_name match whose legal description
// shares no keyword with the matched parcel's legal text.
const WarningAddressUnverified = "address unverified"

// ResolutionResult is the full output for one filing.
type ResolutionResult struct {
	Outcome     MatchOutcome        `json:"outcome"`
	Eligibility EligibilityDecision `json:"eligibility"`
	Diagnostics Diagnostics         `json:"diagnostics"`
}
