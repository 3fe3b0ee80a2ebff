package reedfrost

import (
	"fmt"
	"math"
	"math/rand/v2"

	"reedfrost/adapters/rng"
	"reedfrost/domain/core"
	"reedfrost/domain/epidemic"
	"reedfrost/ports"

	"gonum.org/v1/gonum/stat/distuv"
)

// Simulator draws stochastic Reed-Frost trajectories. Each call takes a fresh
// stream from its RNG port, so concurrent simulations never share state.
type Simulator struct {
	rng ports.RNGPort
}

// NewSimulator creates a simulator. A nil port selects the PCG stream.
func NewSimulator(rngPort ports.RNGPort) *Simulator {
	if rngPort == nil {
		rngPort = rng.NewPCGAdapter()
	}
	return &Simulator{rng: rngPort}
}

// Algorithm names the random generator backing the simulator
func (sim *Simulator) Algorithm() string {
	return sim.rng.Algorithm()
}

// Trajectory simulates one epidemic from s0 susceptibles and i0 infected.
// The result has length s0+1; element t is the number infected at generation
// t, and every entry after the first zero is zero. Identical arguments
// reproduce the identical sequence.
func (sim *Simulator) Trajectory(s0, i0 uint, p float64, seed uint64) (epidemic.Trajectory, error) {
	if err := epidemic.ValidateProbability(p); err != nil {
		return nil, err
	}

	src, err := sim.rng.Stream(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrRandomSource, err)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: %s returned no source", core.ErrRandomSource, sim.rng.Algorithm())
	}

	traj := make(epidemic.Trajectory, s0+1)
	traj[0] = i0
	s := s0
	for t := uint(0); t < s0; t++ {
		if traj[t] == 0 {
			break
		}
		next := drawInfections(s, traj[t], p, src)
		traj[t+1] = next
		s -= next
	}
	return traj, nil
}

// drawInfections samples Binomial(s, 1-(1-p)^i) from src
func drawInfections(s, i uint, p float64, src rand.Source) uint {
	q := infectionProbability(i, p)
	switch {
	case s == 0 || q == 0:
		return 0
	case q == 1:
		return s
	}
	n := distuv.Binomial{N: float64(s), P: q, Src: src}.Rand()
	return min(uint(math.Round(n)), s)
}
