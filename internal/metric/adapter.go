// Package metric fetches one normalized metric record per provider call.
// Adapters issue exactly one outbound request, never retry, and never
// return errors: every failure class resolves to a typed MetricRecord.
package metric

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/imbue-digital/visibility-cli/internal/model"
)

// Adapter fetches one metric category for one target identifier.
type Adapter interface {
	Category() model.Category

	// Fetch issues at most one outbound call. An empty target or missing
	// credential yields an unavailable record with no network activity.
	// Retries, if any, are the caller's responsibility; retrying inside
	// the adapter would amplify rate-limit pressure.
	Fetch(ctx context.Context, target string) model.MetricRecord
}

// statusCoder is implemented by the provider clients' StatusError types.
type statusCoder interface {
	HTTPStatus() int
}

// classify maps a provider client error to a source status. HTTP 429 and
// provider-reported quota messages are rate limiting; everything else,
// including timeouts and malformed payloads, is a transient error.
func classify(err error) model.SourceStatus {
	var sc statusCoder
	if errors.As(err, &sc) && sc.HTTPStatus() == 429 {
		return model.StatusRateLimited
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") {
		return model.StatusRateLimited
	}

	return model.StatusError
}

// unavailableRecord marks a call that was never made.
func unavailableRecord(cat model.Category) model.MetricRecord {
	return model.MetricRecord{
		Category:     cat,
		SourceStatus: model.StatusUnavailable,
		FetchedAt:    time.Now().UTC(),
	}
}

// failedRecord carries a classified failure with no scores.
func failedRecord(cat model.Category, status model.SourceStatus) model.MetricRecord {
	return model.MetricRecord{
		Category:     cat,
		SourceStatus: status,
		FetchedAt:    time.Now().UTC(),
	}
}
