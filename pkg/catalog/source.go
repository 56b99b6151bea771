package catalog

import (
	"context"
	"sync"
)

// PlansSource defines how plans are loaded into the catalog.
type PlansSource interface {
	Load(ctx context.Context) (map[string]Plan, error)
}

type inMemSource struct {
	mu    sync.RWMutex
	plans map[string]Plan
}

// NewInMemSource returns an in-memory PlansSource with a copy of the given plans.
// Panics if no plans are provided to ensure the catalog always has at least
// one valid plan. Plans contain no reference types, so a shallow copy is
// enough to isolate the source from its callers.
func NewInMemSource(plans ...Plan) PlansSource {
	if len(plans) < 1 {
		panic("catalog: at least one plan is required")
	}
	plansCopy := make(map[string]Plan, len(plans))
	for _, plan := range plans {
		plansCopy[plan.ID] = plan
	}
	return &inMemSource{plans: plansCopy}
}

// Load returns a copy of all available plans from memory.
func (s *inMemSource) Load(ctx context.Context) (map[string]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plansCopy := make(map[string]Plan, len(s.plans))
	for id, plan := range s.plans {
		plansCopy[id] = plan
	}
	return plansCopy, nil
}
