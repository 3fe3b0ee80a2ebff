package app

import (
	"context"
	"fmt"
	"time"

	"reedfrost/domain/core"
	"reedfrost/domain/epidemic"
	"reedfrost/internal"
	"reedfrost/internal/profiling"
	"reedfrost/internal/reedfrost"
	"reedfrost/ports"

	"golang.org/x/sync/semaphore"
)

// Limits bounds the work a single request may trigger. Zero values disable a limit.
type Limits struct {
	MaxPopulation uint
	MaxRuns       int
	Workers       int
	// IsolateCache gives every call a fresh engine cache instead of the service's
	IsolateCache bool
}

// EpidemicService exposes the final-size engine, the trajectory simulator and
// ensemble persistence to the outer surfaces (HTTP, UI, CLI).
type EpidemicService struct {
	engine    *reedfrost.Engine
	simulator *reedfrost.Simulator
	runs      ports.RunRepository
	profiler  *profiling.OutbreakProfiler
	capacity  *semaphore.Weighted // trajectories in flight across ensembles; nil when MaxRuns is 0
	limits    Limits
	logger    *internal.Logger
}

// TrajectoryResult is one simulated epidemic together with derived views
type TrajectoryResult struct {
	Params      epidemic.Params     `json:"params"`
	Seed        uint64              `json:"seed"`
	Algorithm   string              `json:"algorithm"`
	Trajectory  epidemic.Trajectory `json:"trajectory"`
	Cumulative  []uint              `json:"cumulative"`
	FinalSize   uint                `json:"final_size"`
	Generations int                 `json:"generations"`
	Fingerprint core.Hash           `json:"fingerprint"`
}

// EnsembleRequest describes an ensemble to simulate and persist
type EnsembleRequest struct {
	Params   epidemic.Params
	Runs     int
	BaseSeed uint64
}

// Comparison relates a stored ensemble to the exact final-size distribution
type Comparison struct {
	RunID                  core.RunID                 `json:"run_id"`
	TotalVariationDistance float64                    `json:"total_variation_distance"`
	ExactMeanFinalSize     float64                    `json:"exact_mean_final_size"`
	SimulatedMeanFinalSize float64                    `json:"simulated_mean_final_size"`
	Empirical              []float64                  `json:"empirical"`
	Exact                  epidemic.Distribution      `json:"exact"`
	Profile                *profiling.EnsembleProfile `json:"profile"`
}

// NewEpidemicService creates an epidemic service
func NewEpidemicService(engine *reedfrost.Engine, simulator *reedfrost.Simulator, runs ports.RunRepository, limits Limits, logger *internal.Logger) *EpidemicService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	var capacity *semaphore.Weighted
	if limits.MaxRuns > 0 {
		capacity = semaphore.NewWeighted(int64(limits.MaxRuns))
	}
	return &EpidemicService{
		engine:    engine,
		simulator: simulator,
		runs:      runs,
		profiler:  profiling.NewOutbreakProfiler(),
		capacity:  capacity,
		limits:    limits,
		logger:    logger.With("epidemic"),
	}
}

// PMF returns the probability that an epidemic from (s, i) ends with sInf
// susceptibles. Unlike the engine, it rejects sInf > s as invalid input.
func (s *EpidemicService) PMF(ctx context.Context, sInf, sus, inf uint, p float64) (float64, error) {
	if err := s.checkPopulation(sus); err != nil {
		return 0, err
	}
	if sInf > sus {
		return 0, core.NewTargetError(sInf, sus)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	start := time.Now()
	prob, err := s.engineForCall().PMF(ctx, sInf, sus, inf, p)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("pmf(%d, %d, %d, %g) = %g in %s", sInf, sus, inf, p, prob, time.Since(start))
	return prob, nil
}

// Distribution returns the full final-size distribution from (s, i)
func (s *EpidemicService) Distribution(ctx context.Context, sus, inf uint, p float64) (epidemic.Distribution, error) {
	if err := s.checkPopulation(sus); err != nil {
		return epidemic.Distribution{}, err
	}
	if err := ctx.Err(); err != nil {
		return epidemic.Distribution{}, err
	}

	start := time.Now()
	dist, err := s.engineForCall().Distribution(ctx, sus, inf, p)
	if err != nil {
		return epidemic.Distribution{}, err
	}
	s.logger.Debug("distribution(%d, %d, %g) in %s", sus, inf, p, time.Since(start))
	return dist, nil
}

// Trajectory simulates one seeded epidemic
func (s *EpidemicService) Trajectory(ctx context.Context, params epidemic.Params, seed uint64) (*TrajectoryResult, error) {
	if err := s.checkPopulation(params.S0); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	traj, err := s.simulator.Trajectory(params.S0, params.I0, params.P, seed)
	if err != nil {
		return nil, err
	}
	return &TrajectoryResult{
		Params:      params,
		Seed:        seed,
		Algorithm:   s.simulator.Algorithm(),
		Trajectory:  traj,
		Cumulative:  traj.Cumulative(),
		FinalSize:   traj.NewInfections(),
		Generations: traj.Generations(),
		Fingerprint: core.FingerprintTrajectory(params.S0, params.I0, params.P, seed, traj),
	}, nil
}

// VerifyDeterminism simulates the same trajectory repeats times and fails with
// core.ErrNonDeterministic if any fingerprint differs from the first.
func (s *EpidemicService) VerifyDeterminism(ctx context.Context, params epidemic.Params, seed uint64, repeats int) (core.Hash, error) {
	var want core.Hash
	for k := 0; k < max(repeats, 1); k++ {
		result, err := s.Trajectory(ctx, params, seed)
		if err != nil {
			return "", err
		}
		if k == 0 {
			want = result.Fingerprint
			continue
		}
		if !want.Equals(result.Fingerprint) {
			return "", core.NewDeterminismError(want, result.Fingerprint)
		}
	}
	return want, nil
}

// RunEnsemble simulates and stores a batch of trajectories
func (s *EpidemicService) RunEnsemble(ctx context.Context, req EnsembleRequest) (*epidemic.EnsembleRun, error) {
	start := time.Now()
	run, err := s.SimulateEnsemble(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.runs.Save(ctx, run); err != nil {
		s.logger.Warn("failed to persist ensemble %s: %v", run.ID, err)
		return nil, fmt.Errorf("persisting ensemble %s: %w", run.ID, err)
	}

	s.logger.Info("ensemble %s: %d runs of (s0=%d, i0=%d, p=%g) in %s, mean final size %.2f",
		run.ID, run.Runs, req.Params.S0, req.Params.I0, req.Params.P, time.Since(start), run.Summary.Mean)
	return run, nil
}

// SimulateEnsemble runs a batch of trajectories under the service limits
// without storing it.
func (s *EpidemicService) SimulateEnsemble(ctx context.Context, req EnsembleRequest) (*epidemic.EnsembleRun, error) {
	if err := s.checkPopulation(req.Params.S0); err != nil {
		return nil, err
	}
	if s.limits.MaxRuns > 0 && req.Runs > s.limits.MaxRuns {
		return nil, fmt.Errorf("%w: %d exceeds the maximum of %d", core.ErrInvalidRuns, req.Runs, s.limits.MaxRuns)
	}

	if s.capacity != nil && req.Runs > 0 {
		// Acquire semaphore (weighted by run count)
		if err := s.capacity.Acquire(ctx, int64(req.Runs)); err != nil {
			return nil, err
		}
		defer s.capacity.Release(int64(req.Runs))
	}

	return s.simulator.Ensemble(ctx, reedfrost.EnsembleRequest{
		Params:   req.Params,
		Runs:     req.Runs,
		BaseSeed: req.BaseSeed,
		Workers:  s.limits.Workers,
	})
}

// GetEnsemble loads a stored ensemble
func (s *EpidemicService) GetEnsemble(ctx context.Context, id core.RunID) (*epidemic.EnsembleRun, error) {
	return s.runs.Get(ctx, id)
}

// ListEnsembles returns stored ensembles newest first
func (s *EpidemicService) ListEnsembles(ctx context.Context, limit, offset int) ([]*epidemic.EnsembleRun, error) {
	return s.runs.List(ctx, limit, offset)
}

// CompareEnsemble measures how far a stored ensemble is from the exact distribution
func (s *EpidemicService) CompareEnsemble(ctx context.Context, id core.RunID) (*Comparison, error) {
	run, err := s.runs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Compare(ctx, run)
}

// Compare relates an ensemble to the exact distribution for its parameters
func (s *EpidemicService) Compare(ctx context.Context, run *epidemic.EnsembleRun) (*Comparison, error) {
	dist, err := s.Distribution(ctx, run.Params.S0, run.Params.I0, run.Params.P)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiler.Profile(run, dist)
	if err != nil {
		return nil, fmt.Errorf("profiling ensemble %s: %w", run.ID, err)
	}
	return &Comparison{
		RunID:                  run.ID,
		TotalVariationDistance: reedfrost.CompareWithExact(run, dist),
		ExactMeanFinalSize:     dist.MeanFinalSize(),
		SimulatedMeanFinalSize: run.Summary.Mean,
		Empirical:              run.Frequencies(),
		Exact:                  dist,
		Profile:                &profile,
	}, nil
}

// CacheStats reports the final-size engine's cache occupancy
func (s *EpidemicService) CacheStats() reedfrost.CacheStats {
	return s.engine.Cache().Stats()
}

// ResetCache empties the shared final-size cache
func (s *EpidemicService) ResetCache() {
	stats := s.engine.Cache().Stats()
	s.engine.Cache().Reset()
	s.logger.Info("cache reset: dropped %d pmf and %d transition entries", stats.PMFEntries, stats.TransitionEntries)
}

// Algorithm names the random generator used for simulations
func (s *EpidemicService) Algorithm() string {
	return s.simulator.Algorithm()
}

func (s *EpidemicService) engineForCall() *reedfrost.Engine {
	if s.limits.IsolateCache {
		return reedfrost.NewEngine()
	}
	return s.engine
}

func (s *EpidemicService) checkPopulation(sus uint) error {
	if s.limits.MaxPopulation > 0 && sus > s.limits.MaxPopulation {
		return core.NewPopulationError(sus, s.limits.MaxPopulation)
	}
	return nil
}
