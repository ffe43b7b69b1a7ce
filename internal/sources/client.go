// Package sources adapts the external research registries (ClinicalTrials.gov,
// PubMed, ORCID) into the normalized records served by the API. Adapters never
// return errors: an upstream failure degrades to an empty result.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBurst     = 3
	maxResponseBytes = 8 << 20
	acceptJSON       = "application/json"
	acceptORCIDJSON  = "application/vnd.orcid+json"
	acceptXML        = "application/xml"
)

// HTTPClient issues rate-limited GET requests shared by every adapter, so the
// process as a whole stays under the registries' request quotas.
type HTTPClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPClient allows rps requests per second across all adapters. A
// non-positive rps disables limiting.
func NewHTTPClient(rps float64) *HTTPClient {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &HTTPClient{
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(limit, defaultBurst),
	}
}

// Get fetches url within timeout and returns the body of a 200 response.
func (c *HTTPClient) Get(ctx context.Context, url, accept string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", "curalink-backend")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}

// GetJSON fetches url and decodes the JSON body into out.
func (c *HTTPClient) GetJSON(ctx context.Context, url, accept string, timeout time.Duration, out any) error {
	body, err := c.Get(ctx, url, accept, timeout)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
