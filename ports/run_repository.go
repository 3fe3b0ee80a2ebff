package ports

import (
	"context"

	"reedfrost/domain/core"
	"reedfrost/domain/epidemic"
)

// RunRepository defines the interface for ensemble run persistence
type RunRepository interface {
	// Save stores a completed ensemble run
	Save(ctx context.Context, run *epidemic.EnsembleRun) error

	// Get retrieves a run by ID, returning core.ErrRunNotFound when absent
	Get(ctx context.Context, id core.RunID) (*epidemic.EnsembleRun, error)

	// List returns runs newest first
	List(ctx context.Context, limit, offset int) ([]*epidemic.EnsembleRun, error)
}
