package reedfrost

import (
	"errors"
	"math/rand/v2"
	"testing"

	"reedfrost/adapters/rng"
	"reedfrost/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenRNG struct{}

func (brokenRNG) Stream(seed uint64) (rand.Source, error) {
	return nil, errors.New("entropy exhausted")
}

func (brokenRNG) Algorithm() string { return "broken" }

type nilRNG struct{}

func (nilRNG) Stream(seed uint64) (rand.Source, error) { return nil, nil }

func (nilRNG) Algorithm() string { return "nil" }

func TestTrajectory_Length(t *testing.T) {
	sim := NewSimulator(nil)
	traj, err := sim.Trajectory(20, 2, 0.5, 42)
	require.NoError(t, err)
	assert.Len(t, traj, 21)
	assert.Equal(t, uint(2), traj[0])
}

func TestTrajectory_Invariants(t *testing.T) {
	for _, algorithm := range []string{rng.AlgorithmPCG, rng.AlgorithmChaCha8} {
		port, err := rng.New(algorithm)
		require.NoError(t, err)
		sim := NewSimulator(port)

		for seed := uint64(0); seed < 200; seed++ {
			s0 := uint(seed % 37)
			i0 := uint(seed%4) + 1
			p := float64(seed%10) / 10

			traj, err := sim.Trajectory(s0, i0, p, seed)
			require.NoError(t, err)
			require.NoErrorf(t, traj.Validate(s0), "seed %d: %v", seed, traj)
			assert.LessOrEqual(t, traj.NewInfections(), s0)
		}
	}
}

func TestTrajectory_Deterministic(t *testing.T) {
	sim := NewSimulator(nil)
	a, err := sim.Trajectory(50, 3, 0.04, 1234)
	require.NoError(t, err)
	b, err := sim.Trajectory(50, 3, 0.04, 1234)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	fa := core.FingerprintTrajectory(50, 3, 0.04, 1234, a)
	fb := core.FingerprintTrajectory(50, 3, 0.04, 1234, b)
	assert.True(t, fa.Equals(fb))
}

func TestTrajectory_SeedsDiverge(t *testing.T) {
	sim := NewSimulator(nil)
	seen := make(map[core.Hash]bool)
	for seed := uint64(1); seed <= 20; seed++ {
		traj, err := sim.Trajectory(60, 2, 0.05, seed)
		require.NoError(t, err)
		seen[core.FingerprintTrajectory(60, 2, 0.05, 0, traj)] = true
	}
	assert.Greater(t, len(seen), 1, "twenty seeds produced a single trajectory")
}

func TestTrajectory_EdgeCases(t *testing.T) {
	sim := NewSimulator(nil)

	traj, err := sim.Trajectory(5, 2, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 0, 0, 0, 0, 0}, []uint(traj))

	traj, err = sim.Trajectory(5, 2, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 5, 0, 0, 0, 0}, []uint(traj))

	traj, err = sim.Trajectory(5, 0, 0.9, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{0, 0, 0, 0, 0, 0}, []uint(traj))

	traj, err = sim.Trajectory(0, 4, 0.9, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{4}, []uint(traj))
}

func TestTrajectory_Errors(t *testing.T) {
	_, err := NewSimulator(nil).Trajectory(10, 1, 1.2, 1)
	assert.True(t, errors.Is(err, core.ErrInvalidProbability))

	_, err = NewSimulator(brokenRNG{}).Trajectory(10, 1, 0.2, 1)
	assert.True(t, errors.Is(err, core.ErrRandomSource))
	assert.Contains(t, err.Error(), "entropy exhausted")

	_, err = NewSimulator(nilRNG{}).Trajectory(10, 1, 0.2, 1)
	assert.True(t, errors.Is(err, core.ErrRandomSource))
}
