// Package ranking sorts scored entities into a deterministic snapshot.
package ranking

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/imbue-digital/visibility-cli/internal/model"
)

// Assemble sorts entities by composite score descending and assigns
// 1-based ranks. Entities without a composite score sort last in their
// original input order; they are kept in the output flagged as
// insufficient-data but receive no rank. Ties break on higher review
// count, then display name ascending, so repeated runs against unchanged
// inputs produce an identical ordering.
func Assemble(entities []model.CompetitorEntity) model.RankingSnapshot {
	sorted := make([]model.CompetitorEntity, len(entities))
	copy(sorted, entities)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		switch {
		case a.CompositeScore == nil && b.CompositeScore == nil:
			return false // preserve input order among unscored entities
		case a.CompositeScore == nil:
			return false
		case b.CompositeScore == nil:
			return true
		case *a.CompositeScore != *b.CompositeScore:
			return *a.CompositeScore > *b.CompositeScore
		case a.ReviewCount != b.ReviewCount:
			return a.ReviewCount > b.ReviewCount
		default:
			return a.DisplayName < b.DisplayName
		}
	})

	snapshot := model.RankingSnapshot{
		ID:              uuid.New().String(),
		GeneratedAt:     time.Now().UTC(),
		Entities:        sorted,
		DataSourcesUsed: make(map[model.Category]bool, len(model.Categories)),
	}

	rank := 0
	for i := range snapshot.Entities {
		e := &snapshot.Entities[i]

		if e.CompositeScore != nil {
			rank++
			r := rank
			e.Rank = &r
			if e.IsSubject {
				snapshot.SubjectRank = &r
			}
		} else {
			e.Rank = nil
		}

		for cat, rec := range e.Metrics {
			if rec.OK() {
				snapshot.DataSourcesUsed[cat] = true
			}
		}
	}

	for _, cat := range model.Categories {
		if _, ok := snapshot.DataSourcesUsed[cat]; !ok {
			snapshot.DataSourcesUsed[cat] = false
		}
	}

	return snapshot
}
