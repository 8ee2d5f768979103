package resolve

import (
	"regexp"
	"strings"
)

// leadingMarkers are stripped before keyword extraction. Each fires at most
// once, anchored at the start of what remains, in this order.
var leadingMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^lot:\s*\S+\s*`),   // marker plus its value token
	regexp.MustCompile(`(?i)^block:\s*\S+\s*`), // marker plus its value token
	regexp.MustCompile(`(?i)^ts:\s*`),          // timeshare marker only
	regexp.MustCompile(`(?i)^replat\s+of\s+`),
}

// SubdivisionKey is the keyword fingerprint of a filing's legal description.
type SubdivisionKey struct {
	Cleaned string   `json:"cleaned"`
	Unique  []string `json:"unique,omitempty"` // words that can identify the subdivision
	Common  []string `json:"common,omitempty"` // generic plat vocabulary
}

// Total returns the keyword count across both classes.
func (k SubdivisionKey) Total() int { return len(k.Unique) + len(k.Common) }

// All returns unique then common keywords in extraction order.
func (k SubdivisionKey) All() []string {
	out := make([]string, 0, k.Total())
	out = append(out, k.Unique...)
	return append(out, k.Common...)
}

// ExtractSubdivision strips the leading lot/block/timeshare/replat markers
// from a legal description and partitions the remaining words into unique and
// common keywords. stop is the uppercased stop-word set. Tokens shorter than
// four characters or purely numeric never become keywords; duplicates keep
// their first position only. An empty result is normal for metes-and-bounds
// descriptions, not an error.
func ExtractSubdivision(legalDescription string, stop map[string]bool) SubdivisionKey {
	cleaned := strings.TrimSpace(legalDescription)
	for _, re := range leadingMarkers {
		cleaned = strings.TrimSpace(re.ReplaceAllString(cleaned, ""))
	}

	key := SubdivisionKey{Cleaned: cleaned}
	seen := make(map[string]bool)
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) < 4 || isNumeric(tok) {
			continue
		}
		word := strings.ToUpper(tok)
		if seen[word] {
			continue
		}
		seen[word] = true
		if stop[word] {
			key.Common = append(key.Common, word)
		} else {
			key.Unique = append(key.Unique, word)
		}
	}
	return key
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
