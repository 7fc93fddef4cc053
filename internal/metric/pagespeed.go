package metric

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/imbue-digital/visibility-cli/internal/model"
	"github.com/imbue-digital/visibility-cli/internal/scorer"
	"github.com/imbue-digital/visibility-cli/pkg/pagespeed"
)

// PageSpeedAdapter fetches the Lighthouse performance audit. The target is
// a canonical domain.
type PageSpeedAdapter struct {
	client        pagespeed.Client
	hasCredential bool
	limiter       *rate.Limiter
	timeout       time.Duration
}

// NewPageSpeedAdapter creates the performance adapter. Audits are the most
// expensive fetch in the pass, so the limiter is the tightest.
func NewPageSpeedAdapter(client pagespeed.Client, hasCredential bool, timeout time.Duration) *PageSpeedAdapter {
	return &PageSpeedAdapter{
		client:        client,
		hasCredential: hasCredential,
		limiter:       rate.NewLimiter(1, 2),
		timeout:       timeout,
	}
}

// Category implements Adapter.
func (a *PageSpeedAdapter) Category() model.Category { return model.CategoryPerformance }

// Fetch implements Adapter.
func (a *PageSpeedAdapter) Fetch(ctx context.Context, target string) model.MetricRecord {
	// PageSpeed runs without a key at a reduced quota, so only the target
	// gates the call.
	if target == "" {
		return unavailableRecord(a.Category())
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return failedRecord(a.Category(), model.StatusError)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.RunPagespeed(ctx, "https://"+target)
	if err != nil {
		status := classify(err)
		zap.L().Warn("metric: pagespeed fetch failed",
			zap.String("target", target),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return failedRecord(a.Category(), status)
	}

	rec := model.MetricRecord{
		Category:     a.Category(),
		SourceStatus: model.StatusOK,
		FetchedAt:    time.Now().UTC(),
	}

	score := resp.LighthouseResult.Categories.Performance.Score
	if score == nil {
		zap.L().Debug("metric: audit completed without a performance score",
			zap.String("target", target),
		)
		return rec
	}

	rec.RawValue = score
	rec.NormalizedScore = scorer.PerformanceScore(score)
	return rec
}
