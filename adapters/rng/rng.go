package rng

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"strings"

	"reedfrost/ports"
)

// Supported generator names
const (
	AlgorithmPCG     = "pcg"
	AlgorithmChaCha8 = "chacha8"
)

// PCGAdapter seeds math/rand/v2's PCG generator with (seed, seed).
// This is the pinned default stream for trajectory simulation.
type PCGAdapter struct{}

// NewPCGAdapter creates the default RNG adapter
func NewPCGAdapter() *PCGAdapter {
	return &PCGAdapter{}
}

// Stream returns a freshly seeded PCG source
func (a *PCGAdapter) Stream(seed uint64) (rand.Source, error) {
	return rand.NewPCG(seed, seed), nil
}

// Algorithm names the generator
func (a *PCGAdapter) Algorithm() string { return AlgorithmPCG }

// ChaCha8Adapter seeds math/rand/v2's ChaCha8 generator. The 32-byte key is
// the little-endian seed repeated four times.
type ChaCha8Adapter struct{}

// NewChaCha8Adapter creates a ChaCha8-backed RNG adapter
func NewChaCha8Adapter() *ChaCha8Adapter {
	return &ChaCha8Adapter{}
}

// Stream returns a freshly seeded ChaCha8 source
func (a *ChaCha8Adapter) Stream(seed uint64) (rand.Source, error) {
	var key [32]byte
	for k := 0; k < 4; k++ {
		binary.LittleEndian.PutUint64(key[8*k:], seed)
	}
	return rand.NewChaCha8(key), nil
}

// Algorithm names the generator
func (a *ChaCha8Adapter) Algorithm() string { return AlgorithmChaCha8 }

// New resolves an adapter by name; the empty string selects PCG
func New(algorithm string) (ports.RNGPort, error) {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", AlgorithmPCG:
		return NewPCGAdapter(), nil
	case AlgorithmChaCha8:
		return NewChaCha8Adapter(), nil
	default:
		return nil, fmt.Errorf("unsupported random generator %q", algorithm)
	}
}
