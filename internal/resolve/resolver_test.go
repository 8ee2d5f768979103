package resolve

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lispendens-cli/internal/model"
	"github.com/sells-group/lispendens-cli/internal/registry"
)

func testFiling() model.Filing {
	return model.Filing{
		DocumentNumber:   "2026012345",
		County:           "flagler",
		GranteeBlock:     "GARCIA MARIA L\nGARCIA JOSE",
		LegalDescription: "Lot: 9 Block: D PRIMROSE TERRACE",
	}
}

func TestResolver_ExactMatchResolvesWithoutEscalation(t *testing.T) {
	searcher := &mockSearcher{
		results: [][]model.CandidateParcel{{
			{ParcelNumber: "P1", OwnerName: "GARCIA MARIA L", AddressLine: "12 PRIMROSE LN", LegalText: "PRIMROSE TERRACE BLK D LOT 9"},
		}},
	}
	r := New(searcher, testBuilder())

	res, err := r.Resolve(context.Background(), testFiling())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeMatched, res.Outcome.Kind)
	assert.Equal(t, model.MethodExactName, res.Outcome.Method)
	assert.True(t, res.Eligibility.Eligible)

	require.Len(t, searcher.calls, 1, "fuzzy tier must not run after an exact-tier result")
	q := searcher.calls[0]
	assert.Equal(t, "28", q.CountyCode)
	assert.Equal(t, registry.OpEquals, q.Owner.Op)
	assert.Equal(t, "GARCIA MARIA L", q.Owner.Value, "primary name goes out verbatim")
	assert.Empty(t, q.OwnerOr)
	assert.Zero(t, q.Limit)
}

func TestResolver_EmptyExactEscalatesToFuzzy(t *testing.T) {
	searcher := &mockSearcher{
		results: [][]model.CandidateParcel{
			nil, // exact tier: no candidates
			{{ParcelNumber: "P2", OwnerName: "GARCIA MARIA", AddressLine: "14 PRIMROSE LN", LegalText: "PRIMROSE TERRACE BLK D LOT 10"}},
		},
	}
	r := New(searcher, testBuilder())

	res, err := r.Resolve(context.Background(), testFiling())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeMatched, res.Outcome.Kind)
	assert.Equal(t, model.MethodLikeSingle, res.Outcome.Method)
	assert.Nil(t, res.Outcome.Score)

	require.Len(t, searcher.calls, 2)
	fq := searcher.calls[1]
	assert.Equal(t, registry.OpContains, fq.Owner.Op)
	assert.Equal(t, "GARCIA", fq.Owner.Value)
	require.Len(t, fq.OwnerOr, 1)
	assert.Equal(t, "MARIA", fq.OwnerOr[0].Value)
	assert.Equal(t, registry.DefaultFuzzyLimit, fq.Limit)

	assert.True(t, res.Diagnostics.Exact.Queried)
	assert.Zero(t, res.Diagnostics.Exact.Candidates)
	assert.Equal(t, 1, res.Diagnostics.Fuzzy.Candidates)
}

func TestResolver_CrowdedExactTierIsTerminal(t *testing.T) {
	// Two exact candidates that fail the keyword threshold must end the
	// cascade: the fuzzy tier is reserved for the zero-candidate case.
	searcher := &mockSearcher{
		results: [][]model.CandidateParcel{{
			{ParcelNumber: "A", OwnerName: "GARCIA MARIA L", LegalText: "GRAND RESERVE LOT 4"},
			{ParcelNumber: "B", OwnerName: "GARCIA MARIA L", LegalText: "QUAIL HOLLOW LOT 9"},
		}},
	}
	r := New(searcher, testBuilder())

	res, err := r.Resolve(context.Background(), testFiling())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeNoLegalMatch, res.Outcome.Kind)
	assert.Equal(t, 2, res.Outcome.CandidateCount)
	assert.Len(t, searcher.calls, 1)
	assert.False(t, res.Eligibility.Eligible)
	assert.Equal(t, model.ReasonNoMatch, res.Eligibility.Reason)
}

func TestResolver_FuzzyScoredMatch(t *testing.T) {
	searcher := &mockSearcher{
		results: [][]model.CandidateParcel{
			nil,
			{
				{ParcelNumber: "A", OwnerName: "GARCIA M", LegalText: "PRIMROSE TERRACE BLK D LOT 9"},
				{ParcelNumber: "B", OwnerName: "GARCIA ROBERT", LegalText: "BEACH HAVEN UNIT 2 LOT 1"},
			},
		},
	}
	r := New(searcher, testBuilder())

	res, err := r.Resolve(context.Background(), testFiling())
	require.NoError(t, err)
	require.Equal(t, model.OutcomeMatched, res.Outcome.Kind)
	assert.Equal(t, model.MethodLikeLegalDescription, res.Outcome.Method)
	assert.Equal(t, "A", res.Outcome.ParcelNumber)
	require.NotNil(t, res.Outcome.Score)
	assert.Equal(t, 2, *res.Outcome.Score)
}

func TestResolver_UnknownCountyFailsBeforeQuerying(t *testing.T) {
	searcher := &mockSearcher{}
	r := New(searcher, testBuilder())

	filing := testFiling()
	filing.County = "dade"
	_, err := r.Resolve(context.Background(), filing)
	require.Error(t, err)
	assert.True(t, registry.IsUnknownJurisdiction(err))
	assert.Empty(t, searcher.calls)
}

func TestResolver_RegistryFailurePropagates(t *testing.T) {
	searcher := &mockSearcher{
		errs: []error{registry.Unavailable(registry.ProviderPortal, eris.New("status 503"))},
	}
	r := New(searcher, testBuilder())

	_, err := r.Resolve(context.Background(), testFiling())
	require.Error(t, err)
	assert.True(t, registry.IsUnavailable(err), "unavailable must survive wrapping")
	assert.Len(t, searcher.calls, 1)
}

func TestResolver_CancellationStopsFurtherCalls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	searcher := &mockSearcher{
		onSearch: func(int) { cancel() }, // cancel while the exact tier runs
	}
	r := New(searcher, testBuilder())

	res, err := r.Resolve(ctx, testFiling())
	require.NoError(t, err)
	assert.True(t, res.Diagnostics.Canceled)
	assert.Equal(t, model.OutcomeNotFound, res.Outcome.Kind)
	assert.Len(t, searcher.calls, 1, "no fuzzy call after cancellation")
}

func TestResolver_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	searcher := &mockSearcher{}
	r := New(searcher, testBuilder())

	res, err := r.Resolve(ctx, testFiling())
	require.NoError(t, err)
	assert.True(t, res.Diagnostics.Canceled)
	assert.Empty(t, searcher.calls)
}

func TestResolver_EmptyGranteeBlockSkipsRegistry(t *testing.T) {
	searcher := &mockSearcher{}
	r := New(searcher, testBuilder())

	filing := testFiling()
	filing.GranteeBlock = "  \n\n "
	res, err := r.Resolve(context.Background(), filing)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeNotFound, res.Outcome.Kind)
	assert.False(t, res.Eligibility.Eligible)
	assert.Empty(t, searcher.calls)
}

func TestResolver_KeywordsRecordedInDiagnostics(t *testing.T) {
	searcher := &mockSearcher{
		results: [][]model.CandidateParcel{{
			{ParcelNumber: "P1", OwnerName: "GARCIA MARIA L", LegalText: "PRIMROSE TERRACE BLK D LOT 9"},
		}},
	}
	r := New(searcher, testBuilder())

	res, err := r.Resolve(context.Background(), testFiling())
	require.NoError(t, err)
	assert.Equal(t, []string{"PRIMROSE", "TERRACE"}, res.Diagnostics.Keywords)
}

func TestResolver_CustomWordLists(t *testing.T) {
	searcher := &mockSearcher{
		results: [][]model.CandidateParcel{{
			{ParcelNumber: "P1", OwnerName: "ACME WIDGETS", AddressLine: "1 PLANT RD", LegalText: "INDUSTRIAL PARK LOT 1"},
		}},
	}
	r := New(searcher, testBuilder(),
		WithStopWords([]string{"PRIMROSE"}),
		WithCorporateKeywords([]string{"WIDGETS"}))

	filing := testFiling()
	filing.GranteeBlock = "ACME WIDGETS"
	res, err := r.Resolve(context.Background(), filing)
	require.NoError(t, err)

	// PRIMROSE is a stop word under the custom list, so it lands in the
	// common class; the custom corporate list rejects the defendant.
	assert.Equal(t, []string{"TERRACE", "PRIMROSE"}, res.Diagnostics.Keywords)
	assert.False(t, res.Eligibility.Eligible)
	assert.Equal(t, model.ReasonEntity, res.Eligibility.Reason)
	assert.Equal(t, "WIDGETS", res.Eligibility.Detail)
}
