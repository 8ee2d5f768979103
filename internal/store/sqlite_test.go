package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lispendens-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// --- Lifecycle ---

func TestNewSQLite_InvalidPath(t *testing.T) {
	// Parent directory does not exist, so the open pragmas fail.
	_, err := NewSQLite(filepath.Join(t.TempDir(), "no", "such", "dir", "test.db"))
	assert.Error(t, err)
}

func TestSQLite_CloseAndReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))

	inserted, err := st.UpsertFiling(ctx, model.Filing{
		DocumentNumber:   "2026005001",
		County:           "volusia",
		GranteeBlock:     "NGUYEN THUY",
		LegalDescription: "Lot: 3 DELTONA LAKES UNIT 30",
	})
	require.NoError(t, err)
	assert.True(t, inserted)
	require.NoError(t, st.Close())

	// Reopen the same file; data must survive.
	st2, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st2.Close() }) //nolint:errcheck

	got, err := st2.GetFiling(ctx, "volusia", "2026005001")
	require.NoError(t, err)
	assert.Equal(t, "NGUYEN THUY", got.Filing.GranteeBlock)
}

func TestSQLite_OperationsAfterClose(t *testing.T) {
	st, err := NewSQLite(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.Close())

	_, err = st.GetRun(context.Background(), "any-id")
	assert.Error(t, err)
}

// --- Filings ---

func TestSQLite_FilingRoundtrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	filing := model.Filing{
		DocumentNumber:   "2026007777",
		County:           "flagler",
		GranteeBlock:     "DE LA CRUZ MIGUEL A\nDE LA CRUZ ROSA\n\nOCCUPANT UNKNOWN",
		LegalDescription: "Lot: 4 Block: 12 PALM COAST SECTION 28",
		Plaintiff:        "DEUTSCHE BANK NATIONAL TRUST CO",
		CaseNumber:       "2026-CA-000456",
		RecordedDate:     time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}

	inserted, err := st.UpsertFiling(ctx, filing)
	require.NoError(t, err)
	assert.True(t, inserted)

	got, err := st.GetFiling(ctx, "flagler", "2026007777")
	require.NoError(t, err)
	assert.Equal(t, filing, got.Filing)
	assert.Equal(t, model.FilingStatusPending, got.Status)
	assert.Empty(t, got.RunID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLite_GetFiling_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetFiling(context.Background(), "flagler", "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filing not found")
}

func TestSQLite_FilingStatusTransitions(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	filing := model.Filing{
		DocumentNumber:   "2026008888",
		County:           "flagler",
		GranteeBlock:     "OSORIO CARLOS",
		LegalDescription: "Lot: 1 SEMINOLE WOODS",
	}
	_, err := st.UpsertFiling(ctx, filing)
	require.NoError(t, err)

	// pending → processed, attaching the run that handled it.
	require.NoError(t, st.UpdateFilingStatus(ctx, "flagler", "2026008888", model.FilingStatusProcessed, "run-123"))
	got, err := st.GetFiling(ctx, "flagler", "2026008888")
	require.NoError(t, err)
	assert.Equal(t, model.FilingStatusProcessed, got.Status)
	assert.Equal(t, "run-123", got.RunID)

	// processed → parked; empty runID clears the column.
	require.NoError(t, st.UpdateFilingStatus(ctx, "flagler", "2026008888", model.FilingStatusParked, ""))
	got, err = st.GetFiling(ctx, "flagler", "2026008888")
	require.NoError(t, err)
	assert.Equal(t, model.FilingStatusParked, got.Status)
	assert.Empty(t, got.RunID)
}

func TestSQLite_ListFilings_CombinedFilters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, f := range []model.Filing{
		{DocumentNumber: "2026001001", County: "flagler", GranteeBlock: "A", LegalDescription: "L"},
		{DocumentNumber: "2026001002", County: "flagler", GranteeBlock: "B", LegalDescription: "L"},
		{DocumentNumber: "2026001003", County: "volusia", GranteeBlock: "C", LegalDescription: "L"},
	} {
		_, err := st.UpsertFiling(ctx, f)
		require.NoError(t, err)
	}
	require.NoError(t, st.UpdateFilingStatus(ctx, "flagler", "2026001001", model.FilingStatusProcessed, "run-1"))

	// County and status together.
	got, err := st.ListFilings(ctx, FilingFilter{County: "flagler", Status: model.FilingStatusPending})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2026001002", got[0].Filing.DocumentNumber)
}

func TestSQLite_GetFiling_CorruptJSON(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.db.ExecContext(ctx,
		`INSERT INTO filings (county, document_number, filing) VALUES (?, ?, ?)`,
		"flagler", "corrupt", "{not valid json",
	)
	require.NoError(t, err)

	_, err = st.GetFiling(ctx, "flagler", "corrupt")
	assert.Error(t, err)
}

// --- Runs ---

func TestSQLite_GetRun_CorruptJSON(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.db.ExecContext(ctx,
		`INSERT INTO runs (id, filing, status) VALUES (?, ?, ?)`,
		"corrupt-run", "{not valid json", "queued",
	)
	require.NoError(t, err)

	_, err = st.GetRun(ctx, "corrupt-run")
	assert.Error(t, err)
}

func TestSQLite_RunResultRoundtrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.Filing{
		DocumentNumber:   "2026009001",
		County:           "flagler",
		GranteeBlock:     "PEREZ JUAN\nPEREZ LUCIA",
		LegalDescription: "Lot: 7 MATANZAS WOODS",
	})
	require.NoError(t, err)

	result := &model.RunResult{
		Outcome:      model.OutcomeMatched,
		Method:       model.MethodLikeSingle,
		ParcelNumber: "07-11-31-7035-00070-0220",
		Eligible:     true,
		Delivered:    []string{"salesforce"},
	}
	require.NoError(t, st.UpdateRunResult(ctx, run.ID, result))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Result)
	assert.Equal(t, model.OutcomeMatched, got.Result.Outcome)
	assert.Equal(t, model.MethodLikeSingle, got.Result.Method)
	assert.Equal(t, "07-11-31-7035-00070-0220", got.Result.ParcelNumber)
	assert.Equal(t, []string{"salesforce"}, got.Result.Delivered)
}

// --- Skip trace cache ---

func TestSQLite_SkipTraceCache_Expired(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// Already-expired TTL is never served.
	err := st.SetCachedSkipTrace(ctx, "07-11-31-0550-00040-0010", []byte(`{"phones":[]}`), -1*time.Hour)
	require.NoError(t, err)

	data, err := st.GetCachedSkipTrace(ctx, "07-11-31-0550-00040-0010")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSQLite_SkipTraceCache_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	data, err := st.GetCachedSkipTrace(context.Background(), "00-00-00-0000-00000-0000")
	require.NoError(t, err)
	assert.Nil(t, data)
}

// --- Migrate ---

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)

	// Migrate already ran in newTestSQLiteStore; a second call is a no-op.
	err := st.Migrate(context.Background())
	require.NoError(t, err)
}

// --- Helpers ---

type fakeResult struct {
	rows int64
	err  error
}

func (f fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (f fakeResult) RowsAffected() (int64, error) { return f.rows, f.err }

func TestCheckRowsAffected(t *testing.T) {
	tests := []struct {
		name    string
		result  fakeResult
		wantErr string
	}{
		{name: "rows affected", result: fakeResult{rows: 1}},
		{name: "zero rows", result: fakeResult{rows: 0}, wantErr: "run not found: r-1"},
		{name: "driver error", result: fakeResult{err: eris.New("boom")}, wantErr: "rows affected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkRowsAffected(tt.result, "run", "r-1")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNullString(t *testing.T) {
	assert.Nil(t, nullString(""))
	assert.Equal(t, "run-1", nullString("run-1"))
}
