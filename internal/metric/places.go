package metric

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/imbue-digital/visibility-cli/internal/model"
	"github.com/imbue-digital/visibility-cli/internal/scorer"
	"github.com/imbue-digital/visibility-cli/pkg/places"
)

// PlacesAdapter fetches local review signals. The target is a free-text
// place query (display name plus locality).
type PlacesAdapter struct {
	client        places.Client
	hasCredential bool
	limiter       *rate.Limiter
	timeout       time.Duration
}

// NewPlacesAdapter creates the local-SEO adapter.
func NewPlacesAdapter(client places.Client, hasCredential bool, timeout time.Duration) *PlacesAdapter {
	return &PlacesAdapter{
		client:        client,
		hasCredential: hasCredential,
		limiter:       rate.NewLimiter(5, 5),
		timeout:       timeout,
	}
}

// Category implements Adapter.
func (a *PlacesAdapter) Category() model.Category { return model.CategoryLocalSEO }

// Fetch implements Adapter.
func (a *PlacesAdapter) Fetch(ctx context.Context, target string) model.MetricRecord {
	if target == "" || !a.hasCredential {
		return unavailableRecord(a.Category())
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return failedRecord(a.Category(), model.StatusError)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.TextSearch(ctx, target)
	if err != nil {
		status := classify(err)
		zap.L().Warn("metric: places fetch failed",
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

	// A successful search with no match degrades to an ok record with no
	// scores; absence is not a provider fault.
	if len(resp.Places) == 0 {
		zap.L().Debug("metric: no place match", zap.String("target", target))
		return rec
	}

	p := resp.Places[0]
	raw := p.Rating
	normalized := scorer.LocalScore(p.Rating, p.UserRatingCount, p.Verified())

	rec.RawValue = &raw
	rec.NormalizedScore = &normalized
	rec.Rating = p.Rating
	rec.ReviewCount = p.UserRatingCount
	rec.HasListing = p.Verified()
	return rec
}
