package model

import "time"

// Category identifies one search-visibility signal dimension.
type Category string

const (
	CategoryPerformance Category = "performance"
	CategoryLocalSEO    Category = "local_seo"
	CategoryAuthority   Category = "authority"
	CategoryTraffic     Category = "traffic"
)

// Categories lists every category in scoring order.
var Categories = []Category{
	CategoryPerformance,
	CategoryLocalSEO,
	CategoryAuthority,
	CategoryTraffic,
}

// SourceStatus classifies the outcome of a single provider call.
type SourceStatus string

const (
	// StatusOK means the provider returned a usable payload.
	StatusOK SourceStatus = "ok"
	// StatusRateLimited means the provider rejected the call with a quota
	// or 429 response. Retryable later; adapters never retry themselves.
	StatusRateLimited SourceStatus = "rate_limited"
	// StatusUnavailable means the call was never made: missing credential
	// or missing target identifier. Not retryable until config changes.
	StatusUnavailable SourceStatus = "unavailable"
	// StatusError means a transient provider or network fault, including
	// malformed payloads and timeouts.
	StatusError SourceStatus = "error"
)

// MetricRecord is the normalized result of exactly one adapter call.
// Immutable once created; folded into a composite score and discarded.
type MetricRecord struct {
	Category        Category     `json:"category"`
	RawValue        *float64     `json:"raw_value,omitempty"`
	NormalizedScore *float64     `json:"normalized_score,omitempty"`
	SourceStatus    SourceStatus `json:"source_status"`
	FetchedAt       time.Time    `json:"fetched_at"`

	// Local-SEO raw signals, populated only on the local_seo record.
	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"review_count,omitempty"`
	HasListing  bool    `json:"has_listing,omitempty"`
}

// OK reports whether the record carries usable provider data.
func (m MetricRecord) OK() bool {
	return m.SourceStatus == StatusOK
}
