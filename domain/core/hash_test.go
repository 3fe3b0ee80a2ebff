package core

import (
	"errors"
	"testing"
)

func TestFingerprintTrajectory_Deterministic(t *testing.T) {
	counts := []uint{2, 5, 3, 0, 0}

	fp1 := FingerprintTrajectory(4, 2, 0.3, 42, counts)
	fp2 := FingerprintTrajectory(4, 2, 0.3, 42, counts)

	if !fp1.Equals(fp2) {
		t.Errorf("Fingerprints not identical: %s vs %s", fp1, fp2)
	}
	if len(fp1.String()) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(fp1.String()))
	}
}

func TestFingerprintTrajectory_SensitiveToInputs(t *testing.T) {
	base := FingerprintTrajectory(4, 2, 0.3, 42, []uint{2, 1, 0, 0, 0})

	variants := map[string]Hash{
		"seed":   FingerprintTrajectory(4, 2, 0.3, 43, []uint{2, 1, 0, 0, 0}),
		"p":      FingerprintTrajectory(4, 2, 0.30000000000000004, 42, []uint{2, 1, 0, 0, 0}),
		"counts": FingerprintTrajectory(4, 2, 0.3, 42, []uint{2, 0, 1, 0, 0}),
		"s0":     FingerprintTrajectory(5, 2, 0.3, 42, []uint{2, 1, 0, 0, 0}),
	}
	for name, fp := range variants {
		if fp.Equals(base) {
			t.Errorf("Changing %s did not change the fingerprint", name)
		}
	}
}

func TestDeterminismError(t *testing.T) {
	err := NewDeterminismError(Hash("a"), Hash("b"))
	if !IsDeterminismError(err) {
		t.Fatalf("Expected determinism error, got %v", err)
	}
	if !errors.Is(err, ErrHashMismatch) {
		t.Errorf("Expected error to wrap ErrHashMismatch")
	}
	if IsValidationError(err) {
		t.Errorf("Determinism error should not be a validation error")
	}
}

func TestValidationErrors(t *testing.T) {
	cases := []error{
		NewProbabilityError(1.5),
		NewTargetError(6, 5),
		NewPopulationError(5000, 1000),
		ErrInvalidRuns,
	}
	for _, err := range cases {
		if !IsValidationError(err) {
			t.Errorf("Expected %v to be a validation error", err)
		}
	}
	if !IsNotFoundError(ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound to be a not-found error")
	}
}
