package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lispendens-cli/internal/model"
	"github.com/sells-group/lispendens-cli/internal/resilience"
)

// maxResponseBytes caps the portal response read. A fuzzy query can return
// 500 candidates but never megabytes of them.
const maxResponseBytes = 4 * 1024 * 1024

// PortalConfig configures the county appraiser portal client. The retry and
// breaker fields are optional tuning; zero values keep the package defaults.
type PortalConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	RateRPS float64       `mapstructure:"rate_rps"`
	Timeout time.Duration `mapstructure:"timeout"`

	RetryAttempts    int `mapstructure:"retry_attempts"`
	RetryBackoffMs   int `mapstructure:"retry_backoff_ms"`
	BreakerThreshold int `mapstructure:"breaker_threshold"`
	BreakerResetSecs int `mapstructure:"breaker_reset_secs"`
}

// Portal queries the county appraiser search API. Calls are rate-limited,
// retried on transient failures, and guarded by a per-county circuit breaker.
// Every terminal failure surfaces as an UnavailableError; an empty result set
// is a successful answer, never an error.
type Portal struct {
	cfg      PortalConfig
	http     *http.Client
	limiter  *rate.Limiter
	retry    resilience.RetryConfig
	breakers *resilience.Breakers
}

var _ Searcher = (*Portal)(nil)

// PortalOption configures the portal client.
type PortalOption func(*Portal)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) PortalOption {
	return func(p *Portal) { p.http = hc }
}

// WithRetryConfig overrides the default retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) PortalOption {
	return func(p *Portal) { p.retry = cfg }
}

// NewPortal creates a portal client.
func NewPortal(cfg PortalConfig, opts ...PortalOption) *Portal {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	retry := resilience.FromRetryConfig(cfg.RetryAttempts, cfg.RetryBackoffMs, 0, 0, -1)
	retry.OnRetry = resilience.RetryLogger("portal", "search")

	breaker := resilience.FromCircuitConfig(cfg.BreakerThreshold, cfg.BreakerResetSecs)
	// Only transient failures trip: a rejected query is our bug, not a
	// portal outage.
	breaker.ShouldTrip = resilience.IsTransient
	breaker.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("portal circuit state change",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	p := &Portal{
		cfg: cfg,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry:    retry,
		breakers: resilience.NewBreakers(breaker),
	}
	if cfg.RateRPS > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateRPS), max(int(cfg.RateRPS), 1))
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (p *Portal) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// Search runs q against the portal. The breaker is keyed by county code so
// one county's outage does not block the others.
func (p *Portal) Search(ctx context.Context, q Query) ([]model.CandidateParcel, error) {
	breaker := p.breakers.Get(q.CountyCode)

	candidates, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) ([]model.CandidateParcel, error) {
		if err := p.wait(ctx); err != nil {
			return nil, eris.Wrap(err, "portal: rate limit")
		}
		return resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) ([]model.CandidateParcel, error) {
			return p.search(ctx, q)
		})
	})
	if err != nil {
		return nil, Unavailable(ProviderPortal, err)
	}
	return candidates, nil
}

// BreakerStates reports the per-county circuit states for diagnostics.
func (p *Portal) BreakerStates() map[string]resilience.CircuitState {
	return p.breakers.States()
}

// portalRequest is the portal's search form. Filter entries are conjoined;
// any_of is an OR-group conjoined with them.
type portalRequest struct {
	County string         `json:"county"`
	Filter []portalFilter `json:"filter"`
	AnyOf  []portalFilter `json:"any_of,omitempty"`
	Limit  int            `json:"limit,omitempty"`
}

type portalFilter struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value string `json:"value"`
}

var portalOps = map[Op]string{
	OpEquals:   "eq",
	OpContains: "contains",
}

func buildPortalRequest(q Query) portalRequest {
	r := portalRequest{
		County: q.CountyCode,
		Filter: []portalFilter{toPortalFilter(q.Owner)},
		Limit:  q.Limit,
	}
	for _, pred := range q.OwnerOr {
		r.AnyOf = append(r.AnyOf, toPortalFilter(pred))
	}
	return r
}

func toPortalFilter(p Predicate) portalFilter {
	return portalFilter{Field: p.Field, Op: portalOps[p.Op], Value: p.Value}
}

// portalParcel carries the portal's own field names; they are mapped to the
// normalized CandidateParcel shape at this edge.
type portalParcel struct {
	ParcelID     string `json:"parcel_id"`
	OwnerName    string `json:"owner_name"`
	SitusAddress string `json:"situs_address"`
	SitusCity    string `json:"situs_city"`
	SitusZip     string `json:"situs_zip"`
	LegalDesc    string `json:"legal_desc"`
}

type portalResponse struct {
	Results []portalParcel `json:"results"`
}

func (p *Portal) search(ctx context.Context, q Query) ([]model.CandidateParcel, error) {
	body, err := json.Marshal(buildPortalRequest(q))
	if err != nil {
		return nil, eris.Wrap(err, "portal: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "portal: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "portal: search")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, eris.Wrap(err, "portal: read response")
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(respBody))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(
				eris.Errorf("portal: status %d: %s", resp.StatusCode, msg), resp.StatusCode)
		}
		return nil, eris.Errorf("portal rejected query: %s", msg)
	}

	var out portalResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, eris.Wrap(err, "portal: unmarshal response")
	}

	candidates := make([]model.CandidateParcel, 0, len(out.Results))
	for _, r := range out.Results {
		candidates = append(candidates, model.CandidateParcel{
			ParcelNumber: r.ParcelID,
			OwnerName:    r.OwnerName,
			AddressLine:  r.SitusAddress,
			City:         r.SitusCity,
			Zip:          r.SitusZip,
			LegalText:    r.LegalDesc,
		})
	}
	return candidates, nil
}
