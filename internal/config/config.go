// Package config defines the single immutable EngineConfig consumed by one
// replay or optimizer run. It is loaded once at process startup from flags
// and environment variables; no component reads the environment later.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// EngineConfig is loaded once per process and passed explicitly to every
// component that needs it. Apart from cmd/optimize's REDIS_ADDR lookup,
// nothing reads os.Getenv after New returns.
type EngineConfig struct {
	DatabaseURL        string `validate:"omitempty,url"`
	HistoryServiceURL  string `validate:"omitempty,url"`
	NewsWindowURL      string `validate:"omitempty,url"`
	Timezone           string `validate:"required"`
	InitialBalance     float64 `validate:"gt=0"`
	RiskPercent        float64 `validate:"gt=0,lte=100"`
	ContractSize       float64 `validate:"gt=0"`
	PipValue           float64 `validate:"gt=0"`
	SnapshotEveryBars  int     `validate:"gt=0"`
	ParallelRuns       int     `validate:"gt=0"`
	StopWinsTies       bool
	MetricsAddr        string
}

// DefaultTimezone matches the session-window default in the external
// interfaces contract.
const DefaultTimezone = "America/New_York"

// New builds an EngineConfig from environment variables layered under the
// given overrides (typically CLI flag values), then validates it.
func New(overrides EngineConfig) (*EngineConfig, error) {
	cfg := overrides

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.HistoryServiceURL == "" {
		cfg.HistoryServiceURL = os.Getenv("HISTORY_SERVICE_URL")
	}
	if cfg.NewsWindowURL == "" {
		cfg.NewsWindowURL = os.Getenv("NEWS_WINDOW_SERVICE_URL")
	}
	if cfg.Timezone == "" {
		cfg.Timezone = os.Getenv("ENGINE_TIMEZONE")
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if cfg.ContractSize == 0 {
		cfg.ContractSize = 1.0
	}
	if cfg.PipValue == 0 {
		cfg.PipValue = 1.0
	}
	if cfg.SnapshotEveryBars == 0 {
		cfg.SnapshotEveryBars = 50
	}
	if cfg.ParallelRuns == 0 {
		cfg.ParallelRuns = 4
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("config: invalid timezone %q: %w", cfg.Timezone, err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &cfg, nil
}
