package resolve

import (
	"math"
	"strings"

	"github.com/sells-group/lispendens-cli/internal/model"
)

// tier identifies which query produced a candidate set. The same scoring
// rules run for both tiers; only the owner filter and the match-method labels
// differ.
type tier int

const (
	tierExact tier = iota + 1
	tierFuzzy
)

func (t tier) singleMethod() model.MatchMethod {
	if t == tierFuzzy {
		return model.MethodLikeSingle
	}
	return model.MethodExactName
}

func (t tier) scoredMethod() model.MatchMethod {
	if t == tierFuzzy {
		return model.MethodLikeLegalDescription
	}
	return model.MethodLegalDescription
}

// scoreCandidates reduces one tier's candidate set to a MatchOutcome.
// ownerTokens enables the owner-name prefilter (fuzzy tier); nil skips it.
// The returned TierStats carries the candidate counts for diagnostics,
// including the pre-filter count when the owner filter empties the set.
func scoreCandidates(candidates []model.CandidateParcel, key SubdivisionKey, t tier, ownerTokens map[string]bool) (model.MatchOutcome, model.TierStats) {
	stats := model.TierStats{Queried: true, Candidates: len(candidates)}

	if len(candidates) == 0 {
		return model.NewNotFound(), stats
	}

	if ownerTokens != nil {
		kept := make([]model.CandidateParcel, 0, len(candidates))
		for _, c := range candidates {
			if ownerOverlaps(c.OwnerName, ownerTokens) {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			stats.Prefilter = len(candidates)
			stats.Candidates = 0
			return model.NewNotFound(), stats
		}
		candidates = kept
		stats.Candidates = len(kept)
	}

	// A lone candidate is taken on name evidence alone; the eligibility
	// filter flags the exact-tier flavor when keywords never corroborate it.
	if len(candidates) == 1 {
		return model.NewMatched(candidates[0], t.singleMethod(), nil), stats
	}

	best, bestTotal, bestUnique := 0, -1, -1
	for i, c := range candidates {
		tokens := legalTokenSet(c.LegalText)
		unique := countHits(key.Unique, tokens)
		total := unique + countHits(key.Common, tokens)
		// Ties keep the earlier candidate: registry order is stable and the
		// first hit is the one a clerk would have picked.
		if total > bestTotal || (total == bestTotal && unique > bestUnique) {
			best, bestTotal, bestUnique = i, total, unique
		}
	}

	minRequired := int(math.Ceil(float64(key.Total()) * 0.4))
	if minRequired < 2 {
		minRequired = 2
	}
	// The bar never rises past two hits, however keyword-rich the plat name.
	required := minRequired
	if required > 2 {
		required = 2
	}

	if bestUnique >= 1 && bestTotal >= required {
		score := bestTotal
		return model.NewMatched(candidates[best], t.scoredMethod(), &score), stats
	}
	return model.NewNoLegalMatch(len(candidates)), stats
}

// legalTokenSet tokenizes a parcel's legal text on the plat punctuation set
// and keeps the same token classes the extractor keeps.
func legalTokenSet(legalText string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range splitLegalText(legalText) {
		if len(tok) < 4 || isNumeric(tok) {
			continue
		}
		set[strings.ToUpper(tok)] = true
	}
	return set
}

func splitLegalText(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '\r', '-', '/', ',', '.', '(', ')', '+':
			return true
		}
		return false
	})
}

func countHits(keywords []string, tokens map[string]bool) int {
	hits := 0
	for _, kw := range keywords {
		if tokens[kw] {
			hits++
		}
	}
	return hits
}

// ownerTokenSet builds the uppercased comparison set from the filing's
// primary name plus its surname.
func ownerTokenSet(primaryName, surname string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(primaryName) {
		set[strings.ToUpper(tok)] = true
	}
	if surname != "" {
		set[strings.ToUpper(surname)] = true
	}
	return set
}

// ownerOverlaps reports whether a candidate's owner shares at least one
// token with the filing name.
func ownerOverlaps(ownerName string, filing map[string]bool) bool {
	for _, tok := range strings.Fields(ownerName) {
		if filing[strings.ToUpper(tok)] {
			return true
		}
	}
	return false
}
