// Package skiptrace provides a client for a skip-trace contact lookup API.
package skiptrace

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the skip-trace lookup operation.
type Client interface {
	// Lookup returns contact data for a property owner at a situs address.
	Lookup(ctx context.Context, req LookupRequest) (*LookupResult, error)
}

// LookupRequest identifies the person to trace. Name is required; the situs
// address narrows the match.
type LookupRequest struct {
	Name   string `json:"name"`
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
}

// LookupResult holds the contact data returned for a matched owner.
type LookupResult struct {
	Phones []Phone  `json:"phones"`
	Emails []string `json:"emails"`
}

// Phone is a single contact number with its line type when known.
type Phone struct {
	Number string `json:"number"`
	Type   string `json:"type,omitempty"` // mobile, landline, voip
}

// BestPhone returns the preferred contact number: the first mobile line when
// one exists, otherwise the first number of any type.
func (r *LookupResult) BestPhone() string {
	if r == nil || len(r.Phones) == 0 {
		return ""
	}
	for _, p := range r.Phones {
		if strings.EqualFold(p.Type, "mobile") {
			return p.Number
		}
	}
	return r.Phones[0].Number
}

// BestEmail returns the first email address, or "" when none came back.
func (r *LookupResult) BestEmail() string {
	if r == nil || len(r.Emails) == 0 {
		return ""
	}
	return r.Emails[0]
}

// Option configures the skip-trace client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second rate limit for lookup calls.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new skip-trace client for the vendor endpoint at
// baseURL.
func NewClient(baseURL, apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// postJSON executes a POST with exponential backoff retries on transient
// failures (429, 500, 502, 503). The request is rebuilt each attempt so the
// body can be re-read. Returns the response body and status code on success,
// or the last error after exhausting retries.
func (c *httpClient) postJSON(ctx context.Context, url string, payload []byte) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, 0, eris.Wrap(err, "skiptrace: create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "skiptrace: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("skiptrace: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func (c *httpClient) Lookup(ctx context.Context, lookup LookupRequest) (*LookupResult, error) {
	if strings.TrimSpace(lookup.Name) == "" {
		return nil, eris.New("skiptrace: name is required")
	}

	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "skiptrace: rate limit")
	}

	payload, err := json.Marshal(lookup)
	if err != nil {
		return nil, eris.Wrap(err, "skiptrace: marshal request")
	}

	body, statusCode, err := c.postJSON(ctx, c.baseURL+"/v1/lookup", payload)
	if err != nil {
		return nil, eris.Wrap(err, "skiptrace: request failed")
	}

	// The API returns 404 when no person matches the inputs. Treat that as
	// an empty result rather than an error.
	if statusCode == http.StatusNotFound {
		return &LookupResult{}, nil
	}

	if statusCode != http.StatusOK {
		return nil, eris.Errorf("skiptrace: unexpected status %d: %s", statusCode, string(body))
	}

	var result LookupResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "skiptrace: unmarshal response")
	}

	return &result, nil
}
