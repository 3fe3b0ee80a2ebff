package container

import (
	"context"
	"fmt"

	"reedfrost/adapters/memory"
	"reedfrost/adapters/postgres"
	"reedfrost/adapters/rng"
	"reedfrost/app"
	"reedfrost/internal"
	"reedfrost/internal/config"
	"reedfrost/internal/errors"
	"reedfrost/internal/migration"
	"reedfrost/internal/reedfrost"
	"reedfrost/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Ports
	RNG     ports.RNGPort
	RunRepo ports.RunRepository

	// Computation
	Engine    *reedfrost.Engine
	Simulator *reedfrost.Simulator

	// Application services
	EpidemicService *app.EpidemicService
}

// New creates a new dependency injection container backed by the in-memory run store
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	rngPort, err := rng.New(cfg.Model.RNG)
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to select random generator")
	}

	c := &Container{
		Config:    cfg,
		Logger:    internal.DefaultLogger,
		RNG:       rngPort,
		RunRepo:   memory.NewRunRepository(),
		Engine:    reedfrost.NewEngine(reedfrost.WithCache(reedfrost.NewCache(reedfrost.WithMaxEntries(cfg.Model.CacheEntries)))),
		Simulator: reedfrost.NewSimulator(rngPort),
	}
	c.initServices()

	return c, nil
}

// InitWithDatabase switches run persistence to PostgreSQL
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	// Test database connection
	if err := db.Ping(); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.DB = db
	c.RunRepo = postgres.NewRunRepository(db)
	c.initServices()

	c.Logger.Info("Container initialized with database connection")
	return nil
}

// Limits translates model configuration into service limits
func (c *Container) Limits() app.Limits {
	return app.Limits{
		MaxPopulation: c.Config.Model.MaxPopulation,
		MaxRuns:       c.Config.Model.MaxRuns,
		Workers:       c.Config.Model.Workers,
		IsolateCache:  !c.Config.Model.SharedCache,
	}
}

func (c *Container) initServices() {
	c.EpidemicService = app.NewEpidemicService(c.Engine, c.Simulator, c.RunRepo, c.Limits(), c.Logger)
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// ConnectDatabase opens the PostgreSQL connection named by cfg and applies migrations
func ConnectDatabase(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	if cfg.Database.URL == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.URL)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}

	return db, nil
}

// Build creates a container and, when DATABASE_URL is set, connects it to PostgreSQL
func Build(ctx context.Context, cfg *config.Config) (*Container, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Database.URL == "" {
		c.Logger.Info("No DATABASE_URL configured, ensemble runs are kept in memory")
		return c, nil
	}

	db, err := ConnectDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := c.InitWithDatabase(db); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}
