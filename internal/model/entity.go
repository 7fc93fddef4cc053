package model

import "time"

// CompetitorEntity is one ranked business: the subject or a competitor.
type CompetitorEntity struct {
	DisplayName     string                    `json:"display_name"`
	CanonicalDomain *string                   `json:"canonical_domain,omitempty"`
	IsSubject       bool                      `json:"is_subject"`
	Metrics         map[Category]MetricRecord `json:"metrics,omitempty"`

	// CompositeScore is nil when every category failed to resolve;
	// otherwise an integer in [0,100].
	CompositeScore *int `json:"composite_score,omitempty"`
	Rank           *int `json:"rank,omitempty"`

	// ResolutionConfidence records how the canonical domain was obtained:
	// 1.0 for a curated alias hit, lower for heuristic matches, 0 for none.
	ResolutionConfidence float64 `json:"resolution_confidence"`

	// InsufficientData marks entities excluded from the sortable ranking.
	InsufficientData bool `json:"insufficient_data,omitempty"`

	// Denormalized local signals used for tie-breaking and the dashboard table.
	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"review_count,omitempty"`
}

// RankingSnapshot is the output of one aggregation pass. Snapshots are
// superseded wholesale by the next successful pass, never mutated.
type RankingSnapshot struct {
	ID              string             `json:"id"`
	GeneratedAt     time.Time          `json:"generated_at"`
	Entities        []CompetitorEntity `json:"entities"`
	SubjectRank     *int               `json:"subject_rank,omitempty"`
	DataSourcesUsed map[Category]bool  `json:"data_sources_used"`

	// IsFallback marks the hard-coded baseline served when live aggregation
	// fails and no cache has ever been populated.
	IsFallback bool `json:"is_fallback"`
	// Stale marks a cached snapshot served past its TTL because the
	// refresh attempt failed.
	Stale bool `json:"stale"`
}

// Subject returns the entity flagged as the subject business, or nil.
func (s *RankingSnapshot) Subject() *CompetitorEntity {
	for i := range s.Entities {
		if s.Entities[i].IsSubject {
			return &s.Entities[i]
		}
	}
	return nil
}

// CacheEntry wraps a snapshot with its expiry. Replaced wholesale on
// refresh; never partially updated.
type CacheEntry struct {
	Snapshot  RankingSnapshot `json:"snapshot"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Expired reports whether the entry's TTL has passed at the given instant.
func (e CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
