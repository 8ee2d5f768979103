package resolve

import "strings"

// prefixParticles precede the family name in LAST-FIRST grantee blocks:
// "DE OLIVEIRA ANDREA C" files under OLIVEIRA, not DE.
var prefixParticles = map[string]bool{
	"DE": true, "DEL": true, "DELA": true, "DI": true,
	"VAN": true, "VON": true, "LA": true, "LE": true,
	"MC": true, "ST": true,
}

// NormalizedParty is the cleaned defendant block of a filing.
type NormalizedParty struct {
	AllNames    []string `json:"all_names"`    // non-empty trimmed lines, original order
	PrimaryName string   `json:"primary_name"` // first line, "" when the block is empty
}

// NormalizeGrantees splits a raw grantee block into individual names. Lines
// are trimmed and blanks dropped; order is preserved. The clerk indexes the
// lead defendant first, so the first surviving line is the name the registry
// gets queried with.
func NormalizeGrantees(granteeBlock string) NormalizedParty {
	var names []string
	for _, line := range strings.Split(granteeBlock, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	party := NormalizedParty{AllNames: names}
	if len(names) > 0 {
		party.PrimaryName = names[0]
	}
	return party
}

// Surname picks the surname token from a LAST-FIRST name: the first token,
// or the second when the first is a prefix particle. Two-word particles
// ("DE LA CRUZ") and FIRST-LAST blocks are known misses; Official Records
// index names LAST-FIRST, so the heuristic holds where it matters.
func Surname(primaryName string) string {
	tokens := strings.Fields(primaryName)
	switch {
	case len(tokens) == 0:
		return ""
	case len(tokens) >= 2 && prefixParticles[strings.ToUpper(tokens[0])]:
		return tokens[1]
	default:
		return tokens[0]
	}
}

// QueryTokens returns the name tokens worth widening a fuzzy query with:
// everything except the surname's first occurrence, initials and other
// sub-3-character tokens, and prefix particles.
func QueryTokens(primaryName, surname string) []string {
	var out []string
	surnameSkipped := false
	for _, tok := range strings.Fields(primaryName) {
		if !surnameSkipped && strings.EqualFold(tok, surname) {
			surnameSkipped = true
			continue
		}
		if len(tok) < 3 || prefixParticles[strings.ToUpper(tok)] {
			continue
		}
		out = append(out, tok)
	}
	return out
}
