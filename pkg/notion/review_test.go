package notion

import (
	"context"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleReviewItem() ReviewItem {
	return ReviewItem{
		DocumentNumber: "2026-CP-001234",
		County:         "flagler",
		PrimaryName:    "GARCIA MARIA ELENA",
		Grantees:       []string{"GARCIA MARIA ELENA", "GARCIA JOSE"},
		Outcome:        "NoLegalMatch",
		Reasons:        []string{"legal similarity 0.42 below threshold", "2 surname candidates"},
		ParcelNumber:   "07-11-31-0550-00040-0010",
		Score:          0.42,
		RecordedDate:   time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC),
	}
}

func TestReviewProperties(t *testing.T) {
	props := reviewProperties(sampleReviewItem())

	title, ok := props["Name"].(notionapi.TitleProperty)
	require.True(t, ok)
	assert.Equal(t, "GARCIA MARIA ELENA", title.Title[0].Text.Content)

	doc, ok := props["Document Number"].(notionapi.RichTextProperty)
	require.True(t, ok)
	assert.Equal(t, "2026-CP-001234", doc.RichText[0].Text.Content)

	outcome, ok := props["Outcome"].(notionapi.SelectProperty)
	require.True(t, ok)
	assert.Equal(t, "NoLegalMatch", outcome.Select.Name)

	county, ok := props["County"].(notionapi.SelectProperty)
	require.True(t, ok)
	assert.Equal(t, "flagler", county.Select.Name)

	grantees, ok := props["Grantees"].(notionapi.RichTextProperty)
	require.True(t, ok)
	assert.Equal(t, "GARCIA MARIA ELENA\nGARCIA JOSE", grantees.RichText[0].Text.Content)

	reasons, ok := props["Reasons"].(notionapi.RichTextProperty)
	require.True(t, ok)
	assert.Contains(t, reasons.RichText[0].Text.Content, "legal similarity 0.42")
	assert.Contains(t, reasons.RichText[0].Text.Content, "; ")

	parcel, ok := props["Parcel"].(notionapi.RichTextProperty)
	require.True(t, ok)
	assert.Equal(t, "07-11-31-0550-00040-0010", parcel.RichText[0].Text.Content)

	score, ok := props["Score"].(notionapi.NumberProperty)
	require.True(t, ok)
	assert.InDelta(t, 0.42, score.Number, 0.0001)

	recorded, ok := props["Recorded"].(notionapi.DateProperty)
	require.True(t, ok)
	require.NotNil(t, recorded.Date.Start)
	assert.True(t, time.Time(*recorded.Date.Start).Equal(time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC)))
}

func TestReviewProperties_TitleFallsBackToDocumentNumber(t *testing.T) {
	props := reviewProperties(ReviewItem{
		DocumentNumber: "2026-CP-005678",
		Outcome:        "NotFound",
	})

	title, ok := props["Name"].(notionapi.TitleProperty)
	require.True(t, ok)
	assert.Equal(t, "2026-CP-005678", title.Title[0].Text.Content)
}

func TestReviewProperties_OmitsEmptyOptionalFields(t *testing.T) {
	props := reviewProperties(ReviewItem{
		DocumentNumber: "2026-CP-005678",
		PrimaryName:    "SMITH JOHN",
		Outcome:        "NotFound",
	})

	assert.Contains(t, props, "Name")
	assert.Contains(t, props, "Document Number")
	assert.Contains(t, props, "Outcome")
	assert.NotContains(t, props, "County")
	assert.NotContains(t, props, "Grantees")
	assert.NotContains(t, props, "Reasons")
	assert.NotContains(t, props, "Parcel")
	assert.NotContains(t, props, "Score")
	assert.NotContains(t, props, "Recorded")
	// Status is owned by the upsert, not the property builder.
	assert.NotContains(t, props, "Status")
}

func docNumberFilter(docNumber string) func(req *notionapi.DatabaseQueryRequest) bool {
	return func(req *notionapi.DatabaseQueryRequest) bool {
		pf, ok := req.Filter.(notionapi.PropertyFilter)
		if !ok {
			return false
		}
		return pf.Property == "Document Number" &&
			pf.RichText != nil &&
			pf.RichText.Equals == docNumber &&
			req.PageSize == 1
	}
}

func TestFindReviewPage(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-review", mock.MatchedBy(docNumberFilter("2026-CP-001234"))).
		Return(&notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{{ID: "page-existing"}},
		}, nil).Once()

	page, err := FindReviewPage(ctx, mc, "db-review", "2026-CP-001234")
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, notionapi.ObjectID("page-existing"), page.ID)
	mc.AssertExpectations(t)
}

func TestFindReviewPage_NotFound(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-review", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{Results: []notionapi.Page{}}, nil).Once()

	page, err := FindReviewPage(ctx, mc, "db-review", "2026-CP-999999")
	require.NoError(t, err)
	assert.Nil(t, page)
	mc.AssertExpectations(t)
}

func TestFindReviewPage_Error(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-review", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(nil, assert.AnError).Once()

	page, err := FindReviewPage(ctx, mc, "db-review", "2026-CP-001234")
	assert.Error(t, err)
	assert.Nil(t, page)
	assert.Contains(t, err.Error(), "find review page")
	mc.AssertExpectations(t)
}

func TestUpsertReviewPage_Creates(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-review", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{Results: []notionapi.Page{}}, nil).Once()

	mc.On("CreatePage", ctx, mock.MatchedBy(func(req *notionapi.PageCreateRequest) bool {
		if req.Parent.DatabaseID != notionapi.DatabaseID("db-review") {
			return false
		}
		status, ok := req.Properties["Status"].(notionapi.StatusProperty)
		return ok && status.Status.Name == "Needs Review"
	})).Return(&notionapi.Page{ID: "page-new"}, nil).Once()

	pageID, created, err := UpsertReviewPage(ctx, mc, "db-review", sampleReviewItem())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "page-new", pageID)
	mc.AssertExpectations(t)
}

func TestUpsertReviewPage_UpdatesExisting(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-review", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{{ID: "page-existing"}},
		}, nil).Once()

	mc.On("UpdatePage", ctx, "page-existing", mock.MatchedBy(func(req *notionapi.PageUpdateRequest) bool {
		// A refresh must not clobber the reviewer's triage status.
		_, hasStatus := req.Properties["Status"]
		return !hasStatus
	})).Return(&notionapi.Page{ID: "page-existing"}, nil).Once()

	pageID, created, err := UpsertReviewPage(ctx, mc, "db-review", sampleReviewItem())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "page-existing", pageID)
	mc.AssertNotCalled(t, "CreatePage", mock.Anything, mock.Anything)
	mc.AssertExpectations(t)
}

func TestUpsertReviewPage_CreateError(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-review", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{Results: []notionapi.Page{}}, nil).Once()
	mc.On("CreatePage", ctx, mock.AnythingOfType("*notionapi.PageCreateRequest")).
		Return(nil, assert.AnError).Once()

	pageID, created, err := UpsertReviewPage(ctx, mc, "db-review", sampleReviewItem())
	assert.Error(t, err)
	assert.False(t, created)
	assert.Empty(t, pageID)
	assert.Contains(t, err.Error(), "create review page")
	mc.AssertExpectations(t)
}
