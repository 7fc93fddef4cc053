package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/imbue-digital/visibility-cli/internal/model"
)

// Baseline builds the last-resort snapshot served when live aggregation
// fails and no cached snapshot has ever been written. It lists the
// configured subject and competitors with no scores and no ranks, flagged
// as fallback so the dashboard can render a degraded-but-populated table
// instead of an error page.
func (e *Engine) Baseline() model.RankingSnapshot {
	entities := e.buildEntities()
	for i := range entities {
		entities[i].InsufficientData = true
	}

	used := make(map[model.Category]bool, len(model.Categories))
	for _, cat := range model.Categories {
		used[cat] = false
	}

	return model.RankingSnapshot{
		ID:              uuid.New().String(),
		GeneratedAt:     time.Now().UTC(),
		Entities:        entities,
		DataSourcesUsed: used,
		IsFallback:      true,
	}
}
