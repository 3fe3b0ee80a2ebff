package migration

import (
	"context"

	"reedfrost/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createEnsembleRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create ensemble_runs table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

// Statements returns the DDL in execution order, for dry runs
func (r *MigrationRunner) Statements() []string {
	return []string{ensembleRunsDDL, ensembleRunsIndexDDL}
}

const ensembleRunsDDL = `
		CREATE TABLE IF NOT EXISTS ensemble_runs (
			id UUID PRIMARY KEY,
			s0 BIGINT NOT NULL CHECK (s0 >= 0),
			i0 BIGINT NOT NULL CHECK (i0 >= 0),
			p DOUBLE PRECISION NOT NULL CHECK (p >= 0 AND p <= 1),
			runs INTEGER NOT NULL CHECK (runs > 0),
			base_seed BIGINT NOT NULL,
			algorithm VARCHAR(32) NOT NULL DEFAULT 'pcg',
			trajectories JSONB NOT NULL,
			mean_final_size DOUBLE PRECISION NOT NULL,
			median_final_size DOUBLE PRECISION NOT NULL,
			std_dev_final_size DOUBLE PRECISION NOT NULL,
			p05_final_size DOUBLE PRECISION NOT NULL,
			p95_final_size DOUBLE PRECISION NOT NULL,
			min_final_size DOUBLE PRECISION NOT NULL,
			max_final_size DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`

const ensembleRunsIndexDDL = `
		CREATE INDEX IF NOT EXISTS idx_ensemble_runs_created_at ON ensemble_runs (created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_ensemble_runs_params ON ensemble_runs (s0, i0, p)
	`

func (r *MigrationRunner) createEnsembleRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, ensembleRunsDDL)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, ensembleRunsIndexDDL)
	return err
}
