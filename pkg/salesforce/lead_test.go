package salesforce

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeSoql(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no quotes", "2026-CP-001234", "2026-CP-001234"},
		{"single quote", "O'Brien", `O\'Brien`},
		{"multiple quotes", "O'Brien's", `O\'Brien\'s`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeSoql(tt.input))
		})
	}
}

func TestFindLeadByDocumentNumber(t *testing.T) {
	var gotSoql string
	mock := &mockClient{
		queryFn: func(_ context.Context, soql string, out any) error {
			gotSoql = soql
			leads := out.(*[]Lead)
			*leads = []Lead{{
				Id:             "00Q5e000001abcd",
				LastName:       "Garcia",
				Company:        "Garcia Household",
				DocumentNumber: "2026-CP-001234",
			}}
			return nil
		},
	}

	lead, err := FindLeadByDocumentNumber(context.Background(), mock, "2026-CP-001234")
	require.NoError(t, err)
	require.NotNil(t, lead)
	assert.Equal(t, "00Q5e000001abcd", lead.Id)
	assert.Equal(t, "Garcia", lead.LastName)

	assert.Contains(t, gotSoql, "FROM Lead")
	assert.Contains(t, gotSoql, "Document_Number__c = '2026-CP-001234'")
	assert.Contains(t, gotSoql, "LIMIT 1")
	assert.Contains(t, gotSoql, "Parcel_Number__c")
}

func TestFindLeadByDocumentNumber_NotFound(t *testing.T) {
	mock := &mockClient{
		queryFn: func(_ context.Context, _ string, _ any) error {
			return nil
		},
	}

	lead, err := FindLeadByDocumentNumber(context.Background(), mock, "2026-CP-999999")
	require.NoError(t, err)
	assert.Nil(t, lead)
}

func TestFindLeadByDocumentNumber_QueryError(t *testing.T) {
	mock := &mockClient{
		queryFn: func(_ context.Context, _ string, _ any) error {
			return eris.New("INVALID_SESSION_ID")
		},
	}

	lead, err := FindLeadByDocumentNumber(context.Background(), mock, "2026-CP-001234")
	require.Error(t, err)
	assert.Nil(t, lead)
	assert.Contains(t, err.Error(), "find lead by document number")
}

func TestFindLeadByDocumentNumber_EscapesQuotes(t *testing.T) {
	var gotSoql string
	mock := &mockClient{
		queryFn: func(_ context.Context, soql string, _ any) error {
			gotSoql = soql
			return nil
		},
	}

	_, err := FindLeadByDocumentNumber(context.Background(), mock, "2026'--")
	require.NoError(t, err)
	assert.Contains(t, gotSoql, `= '2026\'--'`)
}

func TestCreateLead(t *testing.T) {
	var gotObject string
	var gotRecord map[string]any
	mock := &mockClient{
		insertOneFn: func(_ context.Context, sObjectName string, record map[string]any) (string, error) {
			gotObject = sObjectName
			gotRecord = record
			return "00Q5e000001efgh", nil
		},
	}

	id, err := CreateLead(context.Background(), mock, map[string]any{
		"LastName": "Garcia",
		"Company":  "Garcia Household",
		"City":     "Palm Coast",
	})
	require.NoError(t, err)
	assert.Equal(t, "00Q5e000001efgh", id)
	assert.Equal(t, "Lead", gotObject)
	assert.Equal(t, "Palm Coast", gotRecord["City"])
}

func TestCreateLead_MissingRequiredFields(t *testing.T) {
	mock := &mockClient{}

	t.Run("missing LastName", func(t *testing.T) {
		_, err := CreateLead(context.Background(), mock, map[string]any{
			"Company": "Garcia Household",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "LastName is required")
	})

	t.Run("empty Company", func(t *testing.T) {
		_, err := CreateLead(context.Background(), mock, map[string]any{
			"LastName": "Garcia",
			"Company":  "",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Company is required")
	})
}

func TestUpdateLead(t *testing.T) {
	var gotID string
	var gotFields map[string]any
	mock := &mockClient{
		updateOneFn: func(_ context.Context, sObjectName string, id string, fields map[string]any) error {
			assert.Equal(t, "Lead", sObjectName)
			gotID = id
			gotFields = fields
			return nil
		},
	}

	err := UpdateLead(context.Background(), mock, "00Q5e000001abcd", map[string]any{"Phone": "386-555-0123"})
	require.NoError(t, err)
	assert.Equal(t, "00Q5e000001abcd", gotID)
	assert.Equal(t, "386-555-0123", gotFields["Phone"])
}

func TestUpsertByDocumentNumber_Creates(t *testing.T) {
	mock := &mockClient{
		queryFn: func(_ context.Context, _ string, _ any) error {
			return nil // no existing lead
		},
		insertOneFn: func(_ context.Context, _ string, _ map[string]any) (string, error) {
			return "00Q5e000001new0", nil
		},
	}

	id, created, err := UpsertByDocumentNumber(context.Background(), mock, "2026-CP-001234", map[string]any{
		"LastName": "Garcia",
		"Company":  "Garcia Household",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "00Q5e000001new0", id)
}

func TestUpsertByDocumentNumber_Updates(t *testing.T) {
	var updatedID string
	mock := &mockClient{
		queryFn: func(_ context.Context, _ string, out any) error {
			leads := out.(*[]Lead)
			*leads = []Lead{{Id: "00Q5e000001old0", DocumentNumber: "2026-CP-001234"}}
			return nil
		},
		insertOneFn: func(_ context.Context, _ string, _ map[string]any) (string, error) {
			t.Fatal("insert should not be called when a lead exists")
			return "", nil
		},
		updateOneFn: func(_ context.Context, _ string, id string, _ map[string]any) error {
			updatedID = id
			return nil
		},
	}

	id, created, err := UpsertByDocumentNumber(context.Background(), mock, "2026-CP-001234", map[string]any{
		"LastName": "Garcia",
		"Company":  "Garcia Household",
		"Phone":    "386-555-0123",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "00Q5e000001old0", id)
	assert.Equal(t, "00Q5e000001old0", updatedID)
}

func TestUpsertByDocumentNumber_FindError(t *testing.T) {
	mock := &mockClient{
		queryFn: func(_ context.Context, _ string, _ any) error {
			return eris.New("REQUEST_LIMIT_EXCEEDED")
		},
	}

	_, _, err := UpsertByDocumentNumber(context.Background(), mock, "2026-CP-001234", map[string]any{
		"LastName": "Garcia",
		"Company":  "Garcia Household",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_LIMIT_EXCEEDED")
}
