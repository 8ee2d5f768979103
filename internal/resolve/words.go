package resolve

import "strings"

// DefaultStopWords is the generic plat vocabulary. A legal-description token
// that hits this list still counts toward a match score, just with no claim
// to identify the subdivision on its own. Overridable via matching.stop_words.
var DefaultStopWords = []string{
	"PHASE", "UNIT", "UNITS", "SECTION", "ESTATES", "VILLAGE", "VILLAS",
	"TERRACE", "HEIGHTS", "GARDENS", "ACRES", "PARK", "PLAT", "REPLAT",
	"TRACT", "ADDITION", "SUBDIVISION", "CONDOMINIUM", "CONDO",
	"NORTH", "SOUTH", "EAST", "WEST",
	"FIRST", "SECOND", "THIRD", "FOURTH", "FIFTH",
	"ONE", "TWO", "THREE", "FOUR", "FIVE",
	"LOTS", "BLOCK", "BLOCKS", "PARCEL", "BOOK", "PAGE",
	"AMENDED", "REVISED", "RECORDED",
}

// DefaultCorporateKeywords screen out entity and institutional defendants.
// Matched as substrings of the uppercased name; short tokens like INC are
// known to over-match and that is accepted. Overridable via
// matching.corporate_keywords.
var DefaultCorporateKeywords = []string{
	"LLC", "L.L.C", "INC", "CORP", "COMPANY", "HOLDING",
	"PROPERTIES", "INVESTMENT", "ENTERPRISES", "PARTNERS", "VENTURES",
	"TRUST", "TRUSTEE", "BANK", "MORTGAGE", "LENDING", "FINANCIAL",
	"ASSOCIATION", "ASSN", "HOA", "CONDOMINIUM",
	"CHURCH", "MINISTRIES", "FOUNDATION",
	"CITY OF", "STATE OF", "COUNTY", "DEPARTMENT OF", "UNITED STATES",
	"CREDIT UNION", "ESTATE OF",
}

// wordSet uppercases a list into a membership set.
func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToUpper(strings.TrimSpace(w))] = true
	}
	return set
}

// upperAll uppercases a keyword list, dropping empties.
func upperAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToUpper(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
