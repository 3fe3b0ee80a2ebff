package testkit

import (
	"context"

	"reedfrost/adapters/memory"
	"reedfrost/adapters/rng"
	"reedfrost/app"
	"reedfrost/domain/core"
	"reedfrost/domain/epidemic"
	"reedfrost/internal"
	"reedfrost/internal/reedfrost"
	"reedfrost/ports"

	"github.com/stretchr/testify/mock"
)

// TestKit wires the epidemic stack against in-memory adapters
type TestKit struct {
	Engine    *reedfrost.Engine
	Simulator *reedfrost.Simulator
	Runs      ports.RunRepository
	Service   *app.EpidemicService
}

// DefaultLimits are generous enough for tests yet small enough to exercise the checks
var DefaultLimits = app.Limits{
	MaxPopulation: 200,
	MaxRuns:       5000,
	Workers:       4,
}

// NewTestKit creates a kit with a PCG simulator and an in-memory run store
func NewTestKit() *TestKit {
	return NewTestKitWithRepository(memory.NewRunRepository())
}

// NewTestKitWithRepository creates a kit around a caller-supplied run store
func NewTestKitWithRepository(runs ports.RunRepository) *TestKit {
	engine := reedfrost.NewEngine()
	simulator := reedfrost.NewSimulator(rng.NewPCGAdapter())
	logger := internal.NewLogger(internal.LogLevelError)
	return &TestKit{
		Engine:    engine,
		Simulator: simulator,
		Runs:      runs,
		Service:   app.NewEpidemicService(engine, simulator, runs, DefaultLimits, logger),
	}
}

// SampleParams is the start condition used throughout the test suites
var SampleParams = epidemic.Params{S0: 10, I0: 1, P: 0.05}

// MockRunRepository is a testify mock of ports.RunRepository
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) Save(ctx context.Context, run *epidemic.EnsembleRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunRepository) Get(ctx context.Context, id core.RunID) (*epidemic.EnsembleRun, error) {
	args := m.Called(ctx, id)
	run, _ := args.Get(0).(*epidemic.EnsembleRun)
	return run, args.Error(1)
}

func (m *MockRunRepository) List(ctx context.Context, limit, offset int) ([]*epidemic.EnsembleRun, error) {
	args := m.Called(ctx, limit, offset)
	runs, _ := args.Get(0).([]*epidemic.EnsembleRun)
	return runs, args.Error(1)
}
