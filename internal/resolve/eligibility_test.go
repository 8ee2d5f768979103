package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/lispendens-cli/internal/model"
)

func matchedOutcome(method model.MatchMethod, legal string) model.MatchOutcome {
	out := model.NewMatched(model.CandidateParcel{
		ParcelNumber: "07-11-31-5325-000D0-0090",
		AddressLine:  "12 PRIMROSE LN",
		LegalText:    legal,
	}, method, nil)
	return out
}

func TestCheckEligibility_Reasons(t *testing.T) {
	corporate := upperAll(DefaultCorporateKeywords)

	tests := []struct {
		name     string
		primary  string
		legal    string
		outcome  model.MatchOutcome
		eligible bool
		reason   string
	}{
		{
			name:     "matched individual is eligible",
			primary:  "GARCIA MARIA L",
			legal:    "Lot: 9 Block: D PRIMROSE TERRACE",
			outcome:  matchedOutcome(model.MethodLegalDescription, "PRIMROSE TERRACE BLK D LOT 9"),
			eligible: true,
		},
		{
			name:    "unresolved filing is not a lead",
			primary: "GARCIA MARIA L",
			legal:   "Lot: 9 Block: D PRIMROSE TERRACE",
			outcome: model.NewNotFound(),
			reason:  model.ReasonNoMatch,
		},
		{
			name:    "no legal match is not a lead",
			primary: "GARCIA MARIA L",
			legal:   "Lot: 9 Block: D PRIMROSE TERRACE",
			outcome: model.NewNoLegalMatch(7),
			reason:  model.ReasonNoMatch,
		},
		{
			name:    "timeshare screened even when matched",
			primary: "GARCIA MARIA L",
			legal:   "TS: 12345 OCEAN PALMS",
			outcome: matchedOutcome(model.MethodLegalDescription, "OCEAN PALMS TS 12345"),
			reason:  model.ReasonTimeshare,
		},
		{
			name:    "lowercase timeshare marker",
			primary: "GARCIA MARIA L",
			legal:   "  ts: 99 HARBOR CLUB",
			outcome: matchedOutcome(model.MethodLegalDescription, "HARBOR CLUB"),
			reason:  model.ReasonTimeshare,
		},
		{
			name:    "corporate defendant screened",
			primary: "D J GLOBAL HOLDING LLC",
			legal:   "Lot: 4 GRAND RESERVE",
			outcome: matchedOutcome(model.MethodLegalDescription, "GRAND RESERVE LOT 4"),
			reason:  model.ReasonEntity,
		},
		{
			name:    "institutional defendant screened",
			primary: "FLAGLER COUNTY TAX COLLECTOR",
			legal:   "Lot: 4 GRAND RESERVE",
			outcome: matchedOutcome(model.MethodLegalDescription, "GRAND RESERVE LOT 4"),
			reason:  model.ReasonEntity,
		},
		{
			name:    "single token name screened",
			primary: "MADONNA",
			legal:   "Lot: 4 GRAND RESERVE",
			outcome: matchedOutcome(model.MethodLegalDescription, "GRAND RESERVE LOT 4"),
			reason:  model.ReasonSingleToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := ExtractSubdivision(tt.legal, defaultStops())
			d := CheckEligibility(tt.primary, tt.legal, tt.outcome, key, corporate)
			assert.Equal(t, tt.eligible, d.Eligible)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestCheckEligibility_EntityDetailNamesKeyword(t *testing.T) {
	d := CheckEligibility(
		"D J GLOBAL HOLDING LLC",
		"Lot: 4 GRAND RESERVE",
		matchedOutcome(model.MethodLegalDescription, "GRAND RESERVE LOT 4"),
		SubdivisionKey{},
		upperAll(DefaultCorporateKeywords),
	)
	assert.False(t, d.Eligible)
	assert.Equal(t, model.ReasonEntity, d.Reason)
	assert.NotEmpty(t, d.Detail)
}

func TestCheckEligibility_UnverifiedAddressWarning(t *testing.T) {
	corporate := upperAll(DefaultCorporateKeywords)
	legal := "Lot: 9 Block: D PRIMROSE TERRACE"
	key := ExtractSubdivision(legal, defaultStops())

	t.Run("exact_name with no keyword in parcel legal warns", func(t *testing.T) {
		out := matchedOutcome(model.MethodExactName, "GRAND RESERVE LOT 4 PB 31 PG 11")
		d := CheckEligibility("GARCIA MARIA L", legal, out, key, corporate)
		assert.True(t, d.Eligible)
		assert.Contains(t, d.Warnings, model.WarningAddressUnverified)
	})

	t.Run("exact_name with corroborating keyword does not warn", func(t *testing.T) {
		out := matchedOutcome(model.MethodExactName, "PRIMROSE TERRACE BLK D LOT 9")
		d := CheckEligibility("GARCIA MARIA L", legal, out, key, corporate)
		assert.True(t, d.Eligible)
		assert.Empty(t, d.Warnings)
	})

	t.Run("substring corroboration is enough", func(t *testing.T) {
		// PRIMROSE appears inside PRIMROSEWOOD; substring semantics accept it.
		out := matchedOutcome(model.MethodExactName, "PRIMROSEWOOD ESTATES LOT 2")
		d := CheckEligibility("GARCIA MARIA L", legal, out, key, corporate)
		assert.Empty(t, d.Warnings)
	})

	t.Run("keywordless filing always warns on exact_name", func(t *testing.T) {
		bareLegal := "SEC 8 TWP 11"
		bareKey := ExtractSubdivision(bareLegal, defaultStops())
		out := matchedOutcome(model.MethodExactName, "ANY PARCEL TEXT")
		d := CheckEligibility("GARCIA MARIA L", bareLegal, out, bareKey, corporate)
		assert.Contains(t, d.Warnings, model.WarningAddressUnverified)
	})

	t.Run("scored methods never warn", func(t *testing.T) {
		out := matchedOutcome(model.MethodLegalDescription, "GRAND RESERVE LOT 4")
		d := CheckEligibility("GARCIA MARIA L", legal, out, key, corporate)
		assert.Empty(t, d.Warnings)

		out = matchedOutcome(model.MethodLikeSingle, "GRAND RESERVE LOT 4")
		d = CheckEligibility("GARCIA MARIA L", legal, out, key, corporate)
		assert.Empty(t, d.Warnings)
	})

	t.Run("warning survives an ineligible verdict", func(t *testing.T) {
		out := matchedOutcome(model.MethodExactName, "GRAND RESERVE LOT 4")
		d := CheckEligibility("HOLDINGS OF PALM COAST LLC", legal, out, key, corporate)
		assert.False(t, d.Eligible)
		assert.Contains(t, d.Warnings, model.WarningAddressUnverified)
	})
}
