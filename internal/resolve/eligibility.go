package resolve

import (
	"strings"

	"github.com/sells-group/lispendens-cli/internal/model"
)

// CheckEligibility decides whether a resolved filing is a contactable lead.
// corporate is the uppercased keyword list; key is the filing's subdivision
// fingerprint, reused for the unverified-address warning.
//
// The timeshare screen reads the raw legal description, not the cleaned one:
// the extractor strips the TS: marker for keyword purposes but the filter
// must still see it.
func CheckEligibility(primaryName, legalDescription string, outcome model.MatchOutcome, key SubdivisionKey, corporate []string) model.EligibilityDecision {
	var d model.EligibilityDecision

	// An exact_name match rests on a single uncorroborated candidate. Flag
	// it for review when no filing keyword shows up in the parcel's legal
	// text; the warning never changes the verdict.
	if outcome.Method == model.MethodExactName && !legalCorroborates(key, outcome.LegalText) {
		d.Warnings = append(d.Warnings, model.WarningAddressUnverified)
	}

	if !outcome.Matched() {
		d.Reason = model.ReasonNoMatch
		return d
	}
	if hasTimeshareMarker(legalDescription) {
		d.Reason = model.ReasonTimeshare
		return d
	}
	upper := strings.ToUpper(primaryName)
	for _, kw := range corporate {
		if strings.Contains(upper, kw) {
			d.Reason = model.ReasonEntity
			d.Detail = kw
			return d
		}
	}
	if len(strings.Fields(primaryName)) == 1 {
		d.Reason = model.ReasonSingleToken
		return d
	}

	d.Eligible = true
	return d
}

func hasTimeshareMarker(legalDescription string) bool {
	s := strings.TrimSpace(legalDescription)
	return len(s) >= 3 && strings.EqualFold(s[:3], "TS:")
}

// legalCorroborates reports whether any filing keyword appears as a
// substring of the matched parcel's legal text. Zero keywords means nothing
// corroborates.
func legalCorroborates(key SubdivisionKey, candidateLegal string) bool {
	upper := strings.ToUpper(candidateLegal)
	for _, kw := range key.All() {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}
