// Package scorer converts normalized metric categories into 0-100
// sub-scores and combines them into one composite score per entity.
package scorer

import (
	"math"

	"go.uber.org/zap"

	"github.com/imbue-digital/visibility-cli/internal/config"
	"github.com/imbue-digital/visibility-cli/internal/model"
)

// Calculator applies the category normalization formulas and the weighted
// composite. Weights and fallback constants come from configuration.
type Calculator struct {
	cfg config.ScoringConfig
}

// NewCalculator creates a Calculator.
func NewCalculator(cfg config.ScoringConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// LocalScore computes the local-signal sub-score from rating, review count
// and listing presence. log10 deliberately compresses review-count
// advantages: 10x the reviews is far from 10x the score.
func LocalScore(rating float64, reviewCount int, hasListing bool) float64 {
	ratingPart := math.Min(rating*10, 50)
	reviews := float64(reviewCount)
	if reviews < 1 {
		reviews = 1
	}
	reviewPart := math.Min(math.Log10(reviews)*15, 40)
	listingPart := 0.0
	if hasListing {
		listingPart = 10
	}
	return clamp(ratingPart+reviewPart+listingPart, 0, 100)
}

// AuthorityScore converts a provider-reported 0-10 link-authority figure
// to 0-100. Absent data yields nil, not zero: zero is a meaningful
// low-authority result while absence is not.
func AuthorityScore(pageRankDecimal *float64) *float64 {
	if pageRankDecimal == nil {
		return nil
	}
	s := clamp(math.Round(*pageRankDecimal*10), 0, 100)
	return &s
}

// PerformanceScore converts the provider's 0-1 audit score to 0-100.
// Absent data yields nil; substitution of the conservative estimate happens
// at composite time so the record still reflects what the provider said.
func PerformanceScore(auditScore *float64) *float64 {
	if auditScore == nil {
		return nil
	}
	s := clamp(math.Round(*auditScore*100), 0, 100)
	return &s
}

// TrafficScore log-scales a 30-day visitor count to 0-100.
func TrafficScore(visitors *float64) *float64 {
	if visitors == nil {
		return nil
	}
	v := *visitors
	if v < 1 {
		v = 1
	}
	s := clamp(math.Log10(v)*20, 0, 100)
	return &s
}

// Score computes the entity's composite score in place from its metric
// records. A category that failed to resolve contributes no weight; its
// weight is redistributed proportionally across the available categories so
// a missing metric never silently penalizes an entity. When every category
// is missing the composite is nil and the entity is flagged as having
// insufficient data.
func (c *Calculator) Score(entity *model.CompetitorEntity) {
	type weighted struct {
		score  float64
		weight float64
	}
	var parts []weighted

	if rec, ok := entity.Metrics[model.CategoryLocalSEO]; ok && rec.OK() && rec.NormalizedScore != nil {
		parts = append(parts, weighted{*rec.NormalizedScore, c.cfg.Weights.Local})
	}
	if rec, ok := entity.Metrics[model.CategoryAuthority]; ok && rec.OK() && rec.NormalizedScore != nil {
		parts = append(parts, weighted{*rec.NormalizedScore, c.cfg.Weights.Authority})
	}

	// Performance degrades to the configured estimate instead of going
	// missing: the audit is the most expensive fetch per entity and a full
	// outage must not block the ranking. The estimate only applies when at
	// least one real category resolved; an entity with no data at all
	// stays unscored.
	perfScore := c.cfg.AssumedPerformance
	perfReal := false
	if rec, ok := entity.Metrics[model.CategoryPerformance]; ok && rec.OK() && rec.NormalizedScore != nil {
		perfScore = *rec.NormalizedScore
		perfReal = true
	}

	if rec, ok := entity.Metrics[model.CategoryTraffic]; ok && rec.OK() && rec.NormalizedScore != nil {
		parts = append(parts, weighted{*rec.NormalizedScore, c.cfg.Weights.Traffic})
	}

	if len(parts) == 0 && !perfReal {
		entity.CompositeScore = nil
		entity.InsufficientData = true
		zap.L().Debug("scorer: entity has no usable categories",
			zap.String("display_name", entity.DisplayName),
		)
		return
	}
	parts = append(parts, weighted{perfScore, c.cfg.Weights.Performance})

	var weightSum float64
	for _, p := range parts {
		weightSum += p.weight
	}
	if weightSum <= 0 {
		entity.CompositeScore = nil
		entity.InsufficientData = true
		return
	}

	var sum float64
	for _, p := range parts {
		sum += p.score * (p.weight / weightSum)
	}

	composite := int(clamp(math.Round(sum), 0, 100))
	entity.CompositeScore = &composite
	entity.InsufficientData = false
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
