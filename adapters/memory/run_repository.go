package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"reedfrost/domain/core"
	"reedfrost/domain/epidemic"
)

// RunRepository keeps ensemble runs in process memory. It is used when no
// database is configured and in tests.
type RunRepository struct {
	runs  map[core.RunID]*epidemic.EnsembleRun
	order []core.RunID
	mu    sync.RWMutex
}

// NewRunRepository creates an empty in-memory run store
func NewRunRepository() *RunRepository {
	return &RunRepository{
		runs: make(map[core.RunID]*epidemic.EnsembleRun),
	}
}

// Save stores a run, replacing any run with the same ID
func (s *RunRepository) Save(ctx context.Context, run *epidemic.EnsembleRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; !exists {
		s.order = append(s.order, run.ID)
	}
	s.runs[run.ID] = run
	return nil
}

// Get retrieves a run by ID
func (s *RunRepository) Get(ctx context.Context, id core.RunID) (*epidemic.EnsembleRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	return run, nil
}

// List returns runs newest first
func (s *RunRepository) List(ctx context.Context, limit, offset int) ([]*epidemic.EnsembleRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*epidemic.EnsembleRun, 0, len(s.order))
	for _, id := range s.order {
		results = append(results, s.runs[id])
	}
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].CreatedAt.After(results[b].CreatedAt)
	})

	if offset >= len(results) {
		return []*epidemic.EnsembleRun{}, nil
	}
	results = results[offset:]
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}
