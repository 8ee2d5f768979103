package pipeline

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/lispendens-cli/internal/model"
	"github.com/sells-group/lispendens-cli/internal/registry"
	"github.com/sells-group/lispendens-cli/internal/resilience"
	"github.com/sells-group/lispendens-cli/internal/store"
	"github.com/sells-group/lispendens-cli/pkg/notion"
	"github.com/sells-group/lispendens-cli/pkg/salesforce"
	"github.com/sells-group/lispendens-cli/pkg/skiptrace"
)

// --- Registry Mock ---

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, q registry.Query) ([]model.CandidateParcel, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CandidateParcel), args.Error(1)
}

// --- Salesforce Mock ---

type mockSalesforceClient struct {
	mock.Mock
}

func (m *mockSalesforceClient) Query(ctx context.Context, soql string, out any) error {
	args := m.Called(ctx, soql, out)
	return args.Error(0)
}

func (m *mockSalesforceClient) InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error) {
	args := m.Called(ctx, sObjectName, record)
	return args.String(0), args.Error(1)
}

func (m *mockSalesforceClient) UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error {
	args := m.Called(ctx, sObjectName, id, fields)
	return args.Error(0)
}

// --- Notion Mock ---

type mockNotionClient struct {
	mock.Mock
}

func (m *mockNotionClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func (m *mockNotionClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func (m *mockNotionClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, pageID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

// --- Skiptrace Mock ---

type mockSkiptraceClient struct {
	mock.Mock
}

func (m *mockSkiptraceClient) Lookup(ctx context.Context, req skiptrace.LookupRequest) (*skiptrace.LookupResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*skiptrace.LookupResult), args.Error(1)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) UpsertFiling(ctx context.Context, filing model.Filing) (bool, error) {
	args := m.Called(ctx, filing)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) GetFiling(ctx context.Context, county, documentNumber string) (*model.QueuedFiling, error) {
	args := m.Called(ctx, county, documentNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QueuedFiling), args.Error(1)
}

func (m *mockStore) ListFilings(ctx context.Context, filter store.FilingFilter) ([]model.QueuedFiling, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.QueuedFiling), args.Error(1)
}

func (m *mockStore) UpdateFilingStatus(ctx context.Context, county, documentNumber string, status model.FilingStatus, runID string) error {
	args := m.Called(ctx, county, documentNumber, status, runID)
	return args.Error(0)
}

func (m *mockStore) CreateRun(ctx context.Context, filing model.Filing) (*model.Run, error) {
	args := m.Called(ctx, filing)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	args := m.Called(ctx, runID, status)
	return args.Error(0)
}

func (m *mockStore) UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error {
	args := m.Called(ctx, runID, result)
	return args.Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) CreateStage(ctx context.Context, runID string, name string) (*model.RunStage, error) {
	args := m.Called(ctx, runID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RunStage), args.Error(1)
}

func (m *mockStore) CompleteStage(ctx context.Context, stageID string, result *model.StageResult) error {
	args := m.Called(ctx, stageID, result)
	return args.Error(0)
}

func (m *mockStore) GetCachedSkipTrace(ctx context.Context, parcelNumber string) ([]byte, error) {
	args := m.Called(ctx, parcelNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockStore) SetCachedSkipTrace(ctx context.Context, parcelNumber string, data []byte, ttl time.Duration) error {
	args := m.Called(ctx, parcelNumber, data, ttl)
	return args.Error(0)
}

func (m *mockStore) DeleteExpiredSkipTraces(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockStore) DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]resilience.DLQEntry), args.Error(1)
}

func (m *mockStore) IncrementDLQRetry(ctx context.Context, id string, nextRetryAt time.Time, lastErr string) error {
	args := m.Called(ctx, id, nextRetryAt, lastErr)
	return args.Error(0)
}

func (m *mockStore) RemoveDLQ(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockStore) CountDLQ(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Ensure interface compliance ---
var (
	_ registry.Searcher = (*mockSearcher)(nil)
	_ salesforce.Client = (*mockSalesforceClient)(nil)
	_ notion.Client     = (*mockNotionClient)(nil)
	_ skiptrace.Client  = (*mockSkiptraceClient)(nil)
	_ store.Store       = (*mockStore)(nil)
)
