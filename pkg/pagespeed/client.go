// Package pagespeed provides a PageSpeed Insights v5 client for Lighthouse
// performance audits.
package pagespeed

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

const defaultBaseURL = "https://www.googleapis.com/pagespeedonline/v5"

// Client performs PageSpeed Insights API operations.
type Client interface {
	RunPagespeed(ctx context.Context, targetURL string) (*AuditResponse, error)
}

// AuditResponse is the subset of the runPagespeed response the engine reads.
type AuditResponse struct {
	LighthouseResult LighthouseResult `json:"lighthouseResult"`
}

// LighthouseResult holds the audit categories.
type LighthouseResult struct {
	Categories Categories `json:"categories"`
}

// Categories holds the performance category.
type Categories struct {
	Performance CategoryResult `json:"performance"`
}

// CategoryResult holds a single category score.
type CategoryResult struct {
	// Score is the provider's own 0-1 audit score. Pointer because the
	// field is absent when the audit could not complete.
	Score *float64 `json:"score"`
}

// StatusError is returned for non-200 provider responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pagespeed: unexpected status %d: %s", e.Code, e.Body)
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

// NewClient creates a PageSpeed Insights client. Audits are slow; the
// default client timeout is generous.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) RunPagespeed(ctx context.Context, targetURL string) (*AuditResponse, error) {
	q := url.Values{}
	q.Set("url", targetURL)
	q.Set("category", "performance")
	q.Set("strategy", "mobile")
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/runPagespeed?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "pagespeed: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "pagespeed: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "pagespeed: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	var result AuditResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "pagespeed: unmarshal response")
	}

	return &result, nil
}
