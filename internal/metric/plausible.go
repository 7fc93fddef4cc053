package metric

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/imbue-digital/visibility-cli/internal/model"
	"github.com/imbue-digital/visibility-cli/internal/scorer"
	"github.com/imbue-digital/visibility-cli/pkg/plausible"
)

// TrafficAdapter fetches 30-day visitor aggregates. The target is a
// Plausible site ID; analytics only exist for the subject's own site, so
// competitor entities pass an empty target and get an unavailable record.
type TrafficAdapter struct {
	client        plausible.Client
	hasCredential bool
	limiter       *rate.Limiter
	timeout       time.Duration
}

// NewTrafficAdapter creates the analytics adapter.
func NewTrafficAdapter(client plausible.Client, hasCredential bool, timeout time.Duration) *TrafficAdapter {
	return &TrafficAdapter{
		client:        client,
		hasCredential: hasCredential,
		limiter:       rate.NewLimiter(2, 4),
		timeout:       timeout,
	}
}

// Category implements Adapter.
func (a *TrafficAdapter) Category() model.Category { return model.CategoryTraffic }

// Fetch implements Adapter.
func (a *TrafficAdapter) Fetch(ctx context.Context, target string) model.MetricRecord {
	if target == "" || !a.hasCredential {
		return unavailableRecord(a.Category())
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return failedRecord(a.Category(), model.StatusError)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.Aggregate(ctx, target)
	if err != nil {
		status := classify(err)
		zap.L().Warn("metric: traffic fetch failed",
			zap.String("site_id", target),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return failedRecord(a.Category(), status)
	}

	visitors := resp.Results.Visitors.Value
	return model.MetricRecord{
		Category:        a.Category(),
		RawValue:        &visitors,
		NormalizedScore: scorer.TrafficScore(&visitors),
		SourceStatus:    model.StatusOK,
		FetchedAt:       time.Now().UTC(),
	}
}
