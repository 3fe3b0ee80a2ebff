package migration

import (
	"strings"
	"testing"
)

func TestRunner_Statements(t *testing.T) {
	r := NewRunner()
	if r.Version() == "" {
		t.Fatal("Expected a migration version")
	}

	stmts := r.Statements()
	if len(stmts) != 2 {
		t.Fatalf("Expected 2 statements, got %d", len(stmts))
	}
	if !strings.Contains(stmts[0], "CREATE TABLE IF NOT EXISTS ensemble_runs") {
		t.Errorf("First statement should create ensemble_runs: %s", stmts[0])
	}
	for _, column := range []string{"trajectories JSONB", "base_seed BIGINT", "mean_final_size"} {
		if !strings.Contains(stmts[0], column) {
			t.Errorf("ensemble_runs is missing %q", column)
		}
	}
	for _, stmt := range stmts {
		if !strings.Contains(stmt, "IF NOT EXISTS") {
			t.Errorf("Statement is not idempotent: %s", stmt)
		}
	}
}
