package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: ensemble run", ErrNotFound)

	// Validation errors
	ErrInvalidProbability  = errors.New("transmission probability must be in [0, 1]")
	ErrInvalidTarget       = errors.New("final susceptible count exceeds initial susceptibles")
	ErrPopulationTooLarge  = errors.New("population exceeds configured maximum")
	ErrInvalidRuns         = errors.New("ensemble run count must be positive")
	ErrMalformedTrajectory = errors.New("malformed trajectory")

	// Determinism errors
	ErrNonDeterministic = errors.New("non-deterministic result")
	ErrHashMismatch     = errors.New("hash mismatch")

	// Random stream errors
	ErrRandomSource = errors.New("random source unavailable")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewProbabilityError(p float64) error {
	return fmt.Errorf("%w: got %v", ErrInvalidProbability, p)
}

func NewTargetError(sInf, s uint) error {
	return fmt.Errorf("%w: s_inf %d > s %d", ErrInvalidTarget, sInf, s)
}

func NewPopulationError(s, max uint) error {
	return fmt.Errorf("%w: %d > %d", ErrPopulationTooLarge, s, max)
}

func NewDeterminismError(want, got Hash) error {
	return fmt.Errorf("%w: %w: %s != %s", ErrNonDeterministic, ErrHashMismatch, want, got)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidProbability) ||
		errors.Is(err, ErrInvalidTarget) ||
		errors.Is(err, ErrPopulationTooLarge) ||
		errors.Is(err, ErrInvalidRuns) ||
		errors.Is(err, ErrMalformedTrajectory)
}

func IsDeterminismError(err error) bool {
	return errors.Is(err, ErrNonDeterministic) ||
		errors.Is(err, ErrHashMismatch)
}
