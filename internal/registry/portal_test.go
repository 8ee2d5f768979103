package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lispendens-cli/internal/resilience"
)

// fastRetry keeps test retries out of real time.
func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestPortal_Search_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req portalRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "28", req.County)
		require.Len(t, req.Filter, 1)
		assert.Equal(t, portalFilter{Field: "owner", Op: "eq", Value: "SMITH ROBERT JAMES"}, req.Filter[0])
		assert.Empty(t, req.AnyOf)
		assert.Zero(t, req.Limit)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(portalResponse{Results: []portalParcel{
			{
				ParcelID:     "07-11-31-0550-00040-0010",
				OwnerName:    "SMITH ROBERT JAMES",
				SitusAddress: "12 BEECHWOOD LN",
				SitusCity:    "PALM COAST",
				SitusZip:     "32137",
				LegalDesc:    "PALM COAST SEC 28 BL 40 LT 1",
			},
		}})
	}))
	defer srv.Close()

	p := NewPortal(PortalConfig{BaseURL: srv.URL, APIKey: "test-key"})
	got, err := p.Search(context.Background(), Query{
		CountyCode: "28",
		Owner:      Predicate{Field: FieldOwner, Op: OpEquals, Value: "SMITH ROBERT JAMES"},
	})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "07-11-31-0550-00040-0010", got[0].ParcelNumber)
	assert.Equal(t, "SMITH ROBERT JAMES", got[0].OwnerName)
	assert.Equal(t, "12 BEECHWOOD LN", got[0].AddressLine)
	assert.Equal(t, "PALM COAST", got[0].City)
	assert.Equal(t, "32137", got[0].Zip)
	assert.Equal(t, "PALM COAST SEC 28 BL 40 LT 1", got[0].LegalText)
}

func TestPortal_Search_FuzzyRequestShape(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req portalRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Filter, 1)
		assert.Equal(t, portalFilter{Field: "owner", Op: "contains", Value: "SMITH"}, req.Filter[0])
		assert.Equal(t, []portalFilter{
			{Field: "owner", Op: "contains", Value: "ROBERT"},
			{Field: "owner", Op: "contains", Value: "JAMES"},
		}, req.AnyOf)
		assert.Equal(t, 500, req.Limit)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	p := NewPortal(PortalConfig{BaseURL: srv.URL})
	got, err := p.Search(context.Background(), Query{
		CountyCode: "28",
		Owner:      Predicate{Field: FieldOwner, Op: OpContains, Value: "SMITH"},
		OwnerOr: []Predicate{
			{Field: FieldOwner, Op: OpContains, Value: "ROBERT"},
			{Field: FieldOwner, Op: OpContains, Value: "JAMES"},
		},
		Limit: 500,
	})

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPortal_Search_RetriesTransient(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	p := NewPortal(PortalConfig{BaseURL: srv.URL}, WithRetryConfig(fastRetry()))
	got, err := p.Search(context.Background(), Query{
		CountyCode: "28",
		Owner:      Predicate{Field: FieldOwner, Op: OpEquals, Value: "SMITH ROBERT"},
	})

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPortal_Search_PermanentRejectionNoRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad county code"))
	}))
	defer srv.Close()

	p := NewPortal(PortalConfig{BaseURL: srv.URL}, WithRetryConfig(fastRetry()))
	_, err := p.Search(context.Background(), Query{
		CountyCode: "99",
		Owner:      Predicate{Field: FieldOwner, Op: OpEquals, Value: "SMITH ROBERT"},
	})

	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.False(t, resilience.IsTransient(err))
	assert.Contains(t, err.Error(), "portal rejected query")
	assert.Equal(t, int32(1), calls.Load(), "4xx rejections must not be retried")
}

func TestPortal_Search_UnavailableAfterExhaustion(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewPortal(PortalConfig{BaseURL: srv.URL}, WithRetryConfig(fastRetry()))
	_, err := p.Search(context.Background(), Query{
		CountyCode: "28",
		Owner:      Predicate{Field: FieldOwner, Op: OpEquals, Value: "SMITH ROBERT"},
	})

	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.True(t, resilience.IsTransient(err), "throttling stays classified transient through the wrap")
}

func TestPortal_Search_ConfigTunesRetryAndBreaker(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewPortal(PortalConfig{
		BaseURL:          srv.URL,
		RetryAttempts:    1,
		RetryBackoffMs:   1,
		BreakerThreshold: 1,
	})
	q := Query{
		CountyCode: "28",
		Owner:      Predicate{Field: FieldOwner, Op: OpEquals, Value: "SMITH ROBERT"},
	}

	_, err := p.Search(context.Background(), q)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "retry_attempts 1 means one request")
	assert.Equal(t, resilience.CircuitOpen, p.BreakerStates()["28"], "breaker_threshold 1 opens on the first failure")
}

func TestPortal_Search_CircuitOpensPerCounty(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewPortal(PortalConfig{BaseURL: srv.URL}, WithRetryConfig(fastRetry()))
	q := Query{
		CountyCode: "28",
		Owner:      Predicate{Field: FieldOwner, Op: OpEquals, Value: "SMITH ROBERT"},
	}
	ctx := context.Background()

	// Default threshold is 5 consecutive failures. The first search burns
	// 3 attempts; the second opens the breaker on its second attempt, and
	// its final attempt is rejected without a request.
	_, err := p.Search(ctx, q)
	require.Error(t, err)

	_, err = p.Search(ctx, q)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Equal(t, resilience.CircuitOpen, p.BreakerStates()["28"])
	assert.Equal(t, int32(5), calls.Load())

	// The open breaker must reject without touching the portal again.
	_, err = p.Search(ctx, q)
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, int32(5), calls.Load(), "open circuit short-circuits the request")
}
