package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"reedfrost/domain/core"
	"reedfrost/domain/epidemic"
	"reedfrost/internal/errors"
	"reedfrost/ports"

	"github.com/jmoiron/sqlx"
)

// runRow is the ensemble_runs table layout. base_seed keeps the uint64 bit
// pattern in a signed BIGINT; derived columns of EnsembleRun are recomputed
// from the trajectories on load.
type runRow struct {
	ID           string    `db:"id"`
	S0           int64     `db:"s0"`
	I0           int64     `db:"i0"`
	P            float64   `db:"p"`
	Runs         int       `db:"runs"`
	BaseSeed     int64     `db:"base_seed"`
	Algorithm    string    `db:"algorithm"`
	Trajectories []byte    `db:"trajectories"`
	CreatedAt    time.Time `db:"created_at"`
	epidemic.Summary
}

const runColumns = `id, s0, i0, p, runs, base_seed, algorithm, trajectories,
		mean_final_size, median_final_size, std_dev_final_size,
		p05_final_size, p95_final_size, min_final_size, max_final_size, created_at`

// RunRepositoryImpl implements RunRepository for PostgreSQL
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL ensemble run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

// Save stores a completed ensemble run. Runs are immutable; saving an existing ID is a no-op.
func (r *RunRepositoryImpl) Save(ctx context.Context, run *epidemic.EnsembleRun) error {
	row, err := toRow(run)
	if err != nil {
		return err
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO ensemble_runs (`+runColumns+`) VALUES (
			:id, :s0, :i0, :p, :runs, :base_seed, :algorithm, :trajectories,
			:mean_final_size, :median_final_size, :std_dev_final_size,
			:p05_final_size, :p95_final_size, :min_final_size, :max_final_size, :created_at
		)
		ON CONFLICT (id) DO NOTHING
	`, row)
	if err != nil {
		return errors.DatabaseError("failed to insert ensemble run", err)
	}
	return nil
}

// Get retrieves a run by ID
func (r *RunRepositoryImpl) Get(ctx context.Context, id core.RunID) (*epidemic.EnsembleRun, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `SELECT `+runColumns+` FROM ensemble_runs WHERE id = $1`, id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load ensemble run", err)
	}
	return fromRow(&row)
}

// List returns runs newest first
func (r *RunRepositoryImpl) List(ctx context.Context, limit, offset int) ([]*epidemic.EnsembleRun, error) {
	var rows []runRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+runColumns+`
		FROM ensemble_runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, errors.DatabaseError("failed to list ensemble runs", err)
	}

	runs := make([]*epidemic.EnsembleRun, 0, len(rows))
	for k := range rows {
		run, err := fromRow(&rows[k])
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func toRow(run *epidemic.EnsembleRun) (*runRow, error) {
	trajectories, err := json.Marshal(run.Trajectories)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode trajectories")
	}
	return &runRow{
		ID:           run.ID.String(),
		S0:           int64(run.Params.S0),
		I0:           int64(run.Params.I0),
		P:            run.Params.P,
		Runs:         run.Runs,
		BaseSeed:     int64(run.BaseSeed),
		Algorithm:    run.Algorithm,
		Trajectories: trajectories,
		CreatedAt:    run.CreatedAt,
		Summary:      run.Summary,
	}, nil
}

func fromRow(row *runRow) (*epidemic.EnsembleRun, error) {
	run := &epidemic.EnsembleRun{
		ID: core.RunID(row.ID),
		Params: epidemic.Params{
			S0: uint(row.S0),
			I0: uint(row.I0),
			P:  row.P,
		},
		BaseSeed:  uint64(row.BaseSeed),
		Algorithm: row.Algorithm,
		Summary:   row.Summary,
		CreatedAt: row.CreatedAt,
	}
	if err := json.Unmarshal(row.Trajectories, &run.Trajectories); err != nil {
		return nil, errors.Wrapf(err, "failed to decode trajectories of run %s", row.ID)
	}
	run.Recount()
	return run, nil
}
