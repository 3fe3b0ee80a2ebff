package main

import (
	"bytes"
	"context"
	"testing"

	"reedfrost/domain/epidemic"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCrosscheck(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runCrosscheck(context.Background(), &out, 6, 0.3, 1e-12))
	assert.Contains(t, out.String(), "values agree")

	assert.Error(t, runCrosscheck(context.Background(), &out, 6, 1.5, 1e-12))
}

func TestTestDeterminism(t *testing.T) {
	var out bytes.Buffer
	err := testDeterminism(context.Background(), &out, epidemic.Params{S0: 40, I0: 1, P: 0.07}, 45, 3)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Deterministic")
}
