// Package plausible provides a Plausible Stats API client for site
// analytics aggregates.
package plausible

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://plausible.io/api/v1"

// Client performs Plausible Stats API operations.
type Client interface {
	Aggregate(ctx context.Context, siteID string) (*AggregateResponse, error)
}

// AggregateResponse is the response from /stats/aggregate.
type AggregateResponse struct {
	Results AggregateResults `json:"results"`
}

// AggregateResults holds the requested aggregate metrics.
type AggregateResults struct {
	Visitors MetricValue `json:"visitors"`
	Visits   MetricValue `json:"visits"`
}

// MetricValue wraps a single aggregate value.
type MetricValue struct {
	Value float64 `json:"value"`
}

// StatusError is returned for non-200 provider responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("plausible: unexpected status %d: %s", e.Code, e.Body)
}

// HTTPStatus returns the provider's HTTP status code.
func (e *StatusError) HTTPStatus() int { return e.Code }

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Plausible Stats client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Aggregate(ctx context.Context, siteID string) (*AggregateResponse, error) {
	q := url.Values{}
	q.Set("site_id", siteID)
	q.Set("period", "30d")
	q.Set("metrics", "visitors,visits")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats/aggregate?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "plausible: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "plausible: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "plausible: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	var result AggregateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "plausible: unmarshal response")
	}

	return &result, nil
}
