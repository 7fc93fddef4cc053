package metric

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/imbue-digital/visibility-cli/internal/model"
	"github.com/imbue-digital/visibility-cli/internal/scorer"
	"github.com/imbue-digital/visibility-cli/pkg/openpagerank"
)

// AuthorityAdapter fetches link-authority figures. The target is a
// canonical domain.
type AuthorityAdapter struct {
	client        openpagerank.Client
	hasCredential bool
	limiter       *rate.Limiter
	timeout       time.Duration
}

// NewAuthorityAdapter creates the authority adapter.
func NewAuthorityAdapter(client openpagerank.Client, hasCredential bool, timeout time.Duration) *AuthorityAdapter {
	return &AuthorityAdapter{
		client:        client,
		hasCredential: hasCredential,
		limiter:       rate.NewLimiter(2, 4),
		timeout:       timeout,
	}
}

// Category implements Adapter.
func (a *AuthorityAdapter) Category() model.Category { return model.CategoryAuthority }

// Fetch implements Adapter.
func (a *AuthorityAdapter) Fetch(ctx context.Context, target string) model.MetricRecord {
	if target == "" || !a.hasCredential {
		return unavailableRecord(a.Category())
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return failedRecord(a.Category(), model.StatusError)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.GetPageRank(ctx, []string{target})
	if err != nil {
		status := classify(err)
		zap.L().Warn("metric: authority fetch failed",
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

	if len(resp.Response) == 0 {
		return rec
	}

	d := resp.Response[0]
	if d.StatusCode != 200 || d.PageRankDecimal == nil {
		// Domain unknown to the provider: absence, not a zero-authority result.
		zap.L().Debug("metric: domain not ranked", zap.String("target", target))
		return rec
	}

	rec.RawValue = d.PageRankDecimal
	rec.NormalizedScore = scorer.AuthorityScore(d.PageRankDecimal)
	return rec
}
