package reedfrost

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"reedfrost/domain/core"
	"reedfrost/domain/epidemic"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
)

// EnsembleRequest describes a batch of simulations sharing one start condition
type EnsembleRequest struct {
	Params   epidemic.Params
	Runs     int
	BaseSeed uint64
	Workers  int
}

// Ensemble simulates req.Runs trajectories concurrently. Run k uses seed
// epidemic.SeedFor(BaseSeed, k), so the result does not depend on the worker count.
func (sim *Simulator) Ensemble(ctx context.Context, req EnsembleRequest) (*epidemic.EnsembleRun, error) {
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}
	if req.Runs <= 0 {
		return nil, fmt.Errorf("%w: got %d", core.ErrInvalidRuns, req.Runs)
	}
	workers := req.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trajectories := make([]epidemic.Trajectory, req.Runs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for k := 0; k < req.Runs; k++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			seed := epidemic.SeedFor(req.BaseSeed, k)
			traj, err := sim.Trajectory(req.Params.S0, req.Params.I0, req.Params.P, seed)
			if err != nil {
				return fmt.Errorf("run %d (seed %d): %w", k, seed, err)
			}
			trajectories[k] = traj
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	run := &epidemic.EnsembleRun{
		ID:           core.NewRunID(),
		Params:       req.Params,
		BaseSeed:     req.BaseSeed,
		Algorithm:    sim.Algorithm(),
		Trajectories: trajectories,
		CreatedAt:    time.Now().UTC(),
	}
	run.Recount()

	summary, err := Summarize(run.FinalSizes)
	if err != nil {
		return nil, err
	}
	run.Summary = summary
	return run, nil
}

// Summarize computes descriptive statistics of final sizes. Percentiles use
// the nearest-rank definition so small ensembles still get a value.
func Summarize(finalSizes []uint) (epidemic.Summary, error) {
	data := make(stats.Float64Data, len(finalSizes))
	for k, v := range finalSizes {
		data[k] = float64(v)
	}

	var (
		summary epidemic.Summary
		err     error
	)
	if summary.Mean, err = data.Mean(); err != nil {
		return epidemic.Summary{}, fmt.Errorf("mean: %w", err)
	}
	if summary.Median, err = data.Median(); err != nil {
		return epidemic.Summary{}, fmt.Errorf("median: %w", err)
	}
	if summary.StdDev, err = data.StandardDeviation(); err != nil {
		return epidemic.Summary{}, fmt.Errorf("std dev: %w", err)
	}
	if summary.Percentile5, err = stats.PercentileNearestRank(data, 5); err != nil {
		return epidemic.Summary{}, fmt.Errorf("p05: %w", err)
	}
	if summary.Percentile95, err = stats.PercentileNearestRank(data, 95); err != nil {
		return epidemic.Summary{}, fmt.Errorf("p95: %w", err)
	}
	if summary.Min, err = data.Min(); err != nil {
		return epidemic.Summary{}, fmt.Errorf("min: %w", err)
	}
	if summary.Max, err = data.Max(); err != nil {
		return epidemic.Summary{}, fmt.Errorf("max: %w", err)
	}
	return summary, nil
}

// CompareWithExact returns the total-variation distance between the ensemble's
// empirical final sizes and an exact distribution for the same start condition.
func CompareWithExact(run *epidemic.EnsembleRun, dist epidemic.Distribution) float64 {
	freq := run.Frequencies()
	distance := 0.0
	for size, f := range freq {
		distance += math.Abs(f - dist.ProbabilityOfFinalSize(uint(size)))
	}
	return distance / 2
}
