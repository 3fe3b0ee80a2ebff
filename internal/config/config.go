package config

import (
	"math"
	"os"
	"strconv"
	"time"

	"reedfrost/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Model     ModelConfig
	Profiling ProfilingConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port           string
	UIPort         string
	GinMode        string
	RequestTimeout time.Duration
}

// DatabaseConfig holds database connection settings. An empty URL selects
// the in-memory run store.
type DatabaseConfig struct {
	URL string
}

// ModelConfig holds Reed-Frost computation limits and defaults
type ModelConfig struct {
	// DefaultP is used by the HTTP API when a request omits p. Nil means p is required.
	DefaultP      *float64
	MaxPopulation uint
	MaxRuns       int
	Workers       int
	SharedCache   bool
	// CacheEntries bounds the probabilities held by the shared cache
	CacheEntries  int
	RNG           string
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	modelConfig, err := loadModelConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load model configuration")
	}

	config := &Config{
		Server:    *loadServerConfig(),
		Database:  DatabaseConfig{URL: os.Getenv("DATABASE_URL")},
		Model:     *modelConfig,
		Profiling: ProfilingConfig{Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false)},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// Default returns the configuration used when no environment is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			UIPort:         "8090",
			GinMode:        "release",
			RequestTimeout: 30 * time.Second,
		},
		Model: ModelConfig{
			MaxPopulation: 400,
			MaxRuns:       10000,
			Workers:       4,
			SharedCache:   true,
			CacheEntries:  8_000_000,
			RNG:           "pcg",
		},
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:           getEnvOrDefault("PORT", "8080"),
		UIPort:         getEnvOrDefault("UI_PORT", "8090"),
		GinMode:        getEnvOrDefault("GIN_MODE", "release"),
		RequestTimeout: getEnvDurationOrDefault("REEDFROST_REQUEST_TIMEOUT", 30*time.Second),
	}
}

func loadModelConfig() (*ModelConfig, error) {
	maxPopulation := getEnvIntOrDefault("REEDFROST_MAX_POPULATION", 400)
	if maxPopulation < 0 {
		maxPopulation = 0
	}

	cfg := &ModelConfig{
		MaxPopulation: uint(maxPopulation),
		MaxRuns:       getEnvIntOrDefault("REEDFROST_MAX_RUNS", 10000),
		Workers:       getEnvIntOrDefault("REEDFROST_WORKERS", 4),
		SharedCache:   getEnvBoolOrDefault("REEDFROST_SHARED_CACHE", true),
		CacheEntries:  getEnvIntOrDefault("REEDFROST_CACHE_ENTRIES", 8_000_000),
		RNG:           getEnvOrDefault("REEDFROST_RNG", "pcg"),
	}

	if value := os.Getenv("REEDFROST_DEFAULT_P"); value != "" {
		p, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, errors.ConfigInvalid("REEDFROST_DEFAULT_P must be a number")
		}
		cfg.DefaultP = &p
	}

	return cfg, nil
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if p := config.Model.DefaultP; p != nil && (math.IsNaN(*p) || *p < 0 || *p > 1) {
		return errors.ConfigInvalid("REEDFROST_DEFAULT_P must be in [0, 1]")
	}
	if config.Model.MaxPopulation == 0 {
		return errors.ConfigInvalid("REEDFROST_MAX_POPULATION must be positive")
	}
	if config.Model.CacheEntries <= 0 {
		return errors.ConfigInvalid("REEDFROST_CACHE_ENTRIES must be positive")
	}
	if config.Model.MaxRuns <= 0 {
		return errors.ConfigInvalid("REEDFROST_MAX_RUNS must be positive")
	}
	if config.Model.Workers <= 0 {
		return errors.ConfigInvalid("REEDFROST_WORKERS must be positive")
	}
	if config.Server.RequestTimeout <= 0 {
		return errors.ConfigInvalid("REEDFROST_REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
