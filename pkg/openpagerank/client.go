// Package openpagerank provides an Open PageRank client for link-authority
// figures.
package openpagerank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://openpagerank.com/api/v1.0"

// Client performs Open PageRank API operations.
type Client interface {
	GetPageRank(ctx context.Context, domains []string) (*PageRankResponse, error)
}

// PageRankResponse is the response from getPageRank.
type PageRankResponse struct {
	Response []DomainRank `json:"response"`
}

// DomainRank holds one domain's link-authority figures.
type DomainRank struct {
	Domain string `json:"domain"`
	// StatusCode is the provider's per-domain status; 200 means found.
	StatusCode int `json:"status_code"`
	// PageRankDecimal is the 0-10 link-authority figure. Pointer because
	// unknown domains report null rather than zero: zero is a meaningful
	// low-authority result, absence is not.
	PageRankDecimal *float64 `json:"page_rank_decimal"`
}

// StatusError is returned for non-200 provider responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openpagerank: unexpected status %d: %s", e.Code, e.Body)
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

// NewClient creates an Open PageRank client.
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

func (c *httpClient) GetPageRank(ctx context.Context, domains []string) (*PageRankResponse, error) {
	q := url.Values{}
	for _, d := range domains {
		q.Add("domains[]", strings.TrimSpace(d))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/getPageRank?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "openpagerank: create request")
	}
	req.Header.Set("API-OPR", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "openpagerank: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "openpagerank: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	var result PageRankResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "openpagerank: unmarshal response")
	}

	return &result, nil
}
