package registry

// Op is a predicate operator.
type Op string

const (
	OpEquals   Op = "equals"
	OpContains Op = "contains"
)

// FieldOwner is the one queryable name field registries expose.
const FieldOwner = "owner"

// Predicate is a single field test.
type Predicate struct {
	Field string `json:"field"`
	Op    Op     `json:"op"`
	Value string `json:"value"`
}

// Query is a provider-neutral registry search: the owner predicate AND the
// county code, with OwnerOr widening the owner match as an OR-group conjoined
// with the primary predicate. Limit zero means the registry default.
type Query struct {
	CountyCode string      `json:"county_code"`
	Owner      Predicate   `json:"owner"`
	OwnerOr    []Predicate `json:"owner_or,omitempty"`
	Limit      int         `json:"limit,omitempty"`
}

// DefaultFuzzyLimit caps fuzzy result sets. Surname substring queries over a
// whole county can run away; exact queries keep the registry default.
const DefaultFuzzyLimit = 500

// Builder turns filing names into registry queries. It owns the county-name
// to registry-code map from config; every build validates the county first so
// an unknown jurisdiction fails before any registry traffic.
type Builder struct {
	counties   map[string]string
	fuzzyLimit int
}

// NewBuilder creates a query builder. fuzzyLimit <= 0 uses DefaultFuzzyLimit.
func NewBuilder(counties map[string]string, fuzzyLimit int) *Builder {
	if fuzzyLimit <= 0 {
		fuzzyLimit = DefaultFuzzyLimit
	}
	return &Builder{counties: counties, fuzzyLimit: fuzzyLimit}
}

// Code resolves a county name to its registry code.
func (b *Builder) Code(county string) (string, error) {
	code, ok := b.counties[county]
	if !ok || code == "" {
		return "", &UnknownJurisdictionError{County: county}
	}
	return code, nil
}

// Exact builds the tier-1 query: owner-name equality on the verbatim primary
// name. No case normalization; registries index owner names as filed.
func (b *Builder) Exact(primaryName, county string) (Query, error) {
	code, err := b.Code(county)
	if err != nil {
		return Query{}, err
	}
	return Query{
		CountyCode: code,
		Owner:      Predicate{Field: FieldOwner, Op: OpEquals, Value: primaryName},
	}, nil
}

// Fuzzy builds the tier-2 "tight" query: surname substring plus an OR-group
// of the remaining meaningful name tokens.
func (b *Builder) Fuzzy(surname string, extraTokens []string, county string) (Query, error) {
	q, err := b.Broad(surname, county)
	if err != nil {
		return Query{}, err
	}
	for _, tok := range extraTokens {
		q.OwnerOr = append(q.OwnerOr, Predicate{Field: FieldOwner, Op: OpContains, Value: tok})
	}
	return q, nil
}

// Broad builds the surname-only fallback shape. The resolver never escalates
// to it on its own; it exists for operator-driven re-queries.
func (b *Builder) Broad(surname, county string) (Query, error) {
	code, err := b.Code(county)
	if err != nil {
		return Query{}, err
	}
	return Query{
		CountyCode: code,
		Owner:      Predicate{Field: FieldOwner, Op: OpContains, Value: surname},
		Limit:      b.fuzzyLimit,
	}, nil
}
