// Package resolve turns a Lis Pendens filing into a property address and an
// eligibility verdict. Resolution cascades through two registry tiers: an
// exact owner-name query, then a fuzzy surname query taken only when the
// exact tier comes back empty. Multi-candidate sets are reduced by
// legal-description keyword scoring.
package resolve

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lispendens-cli/internal/model"
	"github.com/sells-group/lispendens-cli/internal/registry"
)

// Resolver runs the two-tier resolution cascade. Safe for concurrent use;
// the word lists are immutable after construction.
type Resolver struct {
	searcher  registry.Searcher
	queries   *registry.Builder
	stop      map[string]bool
	corporate []string
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithStopWords replaces the default stop-word list.
func WithStopWords(words []string) Option {
	return func(r *Resolver) {
		if len(words) > 0 {
			r.stop = wordSet(words)
		}
	}
}

// WithCorporateKeywords replaces the default corporate keyword list.
func WithCorporateKeywords(words []string) Option {
	return func(r *Resolver) {
		if len(words) > 0 {
			r.corporate = upperAll(words)
		}
	}
}

// New creates a Resolver over the given registry searcher and query builder.
func New(searcher registry.Searcher, queries *registry.Builder, opts ...Option) *Resolver {
	r := &Resolver{
		searcher:  searcher,
		queries:   queries,
		stop:      wordSet(DefaultStopWords),
		corporate: upperAll(DefaultCorporateKeywords),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs the cascade for one filing.
//
// Registry failures propagate as errors carrying registry.UnavailableError in
// the chain; they are never folded into a NotFound outcome and the resolver
// performs no retries of its own. An unknown county fails the same way before
// any registry call. Context cancellation between steps stops further calls
// and returns the result so far with Diagnostics.Canceled set.
func (r *Resolver) Resolve(ctx context.Context, filing model.Filing) (model.ResolutionResult, error) {
	log := zap.L().With(
		zap.String("document", filing.DocumentNumber),
		zap.String("county", filing.County),
	)

	party := NormalizeGrantees(filing.GranteeBlock)
	key := ExtractSubdivision(filing.LegalDescription, r.stop)

	res := model.ResolutionResult{
		Outcome:     model.NewNotFound(),
		Diagnostics: model.Diagnostics{Keywords: key.All()},
	}
	finish := func(canceled bool) (model.ResolutionResult, error) {
		res.Diagnostics.Canceled = canceled
		res.Eligibility = CheckEligibility(party.PrimaryName, filing.LegalDescription, res.Outcome, key, r.corporate)
		return res, nil
	}

	if party.PrimaryName == "" {
		log.Debug("empty grantee block, nothing to query")
		return finish(false)
	}

	// Tier 1: exact owner-name equality on the verbatim primary name.
	exactQ, err := r.queries.Exact(party.PrimaryName, filing.County)
	if err != nil {
		return res, err
	}
	if ctx.Err() != nil {
		return finish(true)
	}
	candidates, err := r.searcher.Search(ctx, exactQ)
	if err != nil {
		if ctx.Err() != nil {
			return finish(true)
		}
		return res, eris.Wrap(err, "resolve: exact query")
	}
	outcome, stats := scoreCandidates(candidates, key, tierExact, nil)
	res.Diagnostics.Exact = stats
	log.Debug("exact tier scored",
		zap.Int("candidates", stats.Candidates),
		zap.String("outcome", string(outcome.Kind)))

	// Only an empty exact result escalates. A crowded set that failed the
	// keyword threshold terminates here: widening the name match after the
	// exact name was already ambiguous only adds noise.
	if outcome.Kind != model.OutcomeNotFound {
		res.Outcome = outcome
		return finish(false)
	}

	// Tier 2: fuzzy surname query with the remaining name tokens OR'd in.
	surname := Surname(party.PrimaryName)
	fuzzyQ, err := r.queries.Fuzzy(surname, QueryTokens(party.PrimaryName, surname), filing.County)
	if err != nil {
		return res, err
	}
	if ctx.Err() != nil {
		return finish(true)
	}
	candidates, err = r.searcher.Search(ctx, fuzzyQ)
	if err != nil {
		if ctx.Err() != nil {
			return finish(true)
		}
		return res, eris.Wrap(err, "resolve: fuzzy query")
	}
	outcome, stats = scoreCandidates(candidates, key, tierFuzzy, ownerTokenSet(party.PrimaryName, surname))
	res.Diagnostics.Fuzzy = stats
	log.Debug("fuzzy tier scored",
		zap.String("surname", surname),
		zap.Int("candidates", stats.Candidates),
		zap.String("outcome", string(outcome.Kind)))

	res.Outcome = outcome
	return finish(false)
}
