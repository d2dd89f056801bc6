package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"PoolRisk/internal/core"
)

// EnvPrefix prefixes every variable, e.g. POOLRISK_NATS_URL.
const EnvPrefix = "POOLRISK"

type Config struct {
	NATS     NATSConfig     `envconfig:"NATS"`
	Server   ServerConfig   `envconfig:"SERVER"`
	Engine   EngineConfig   `envconfig:"ENGINE"`
	Reporter ReporterConfig `envconfig:"REPORTER"`
}

type NATSConfig struct {
	URL           string `envconfig:"URL" default:"nats://localhost:4222"`
	EnsureStreams bool   `envconfig:"ENSURE_STREAMS" default:"true"`
	RawChanSize   int    `envconfig:"RAW_CHAN_SIZE" default:"4096"`
}

type ServerConfig struct {
	GRPCAddr    string `envconfig:"GRPC_ADDR" default:":9090"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9091"`
}

// EngineConfig holds the shock grid and memo size.
type EngineConfig struct {
	CacheSize    int     `envconfig:"CACHE_SIZE" default:"256"`
	ShockMinPct  float64 `envconfig:"SHOCK_MIN_PCT" default:"-50"`
	ShockMaxPct  float64 `envconfig:"SHOCK_MAX_PCT" default:"20"`
	ShockStepPct float64 `envconfig:"SHOCK_STEP_PCT" default:"2"`
}

// ReporterConfig holds the view parameters of reports published on
// snapshot changes.
type ReporterConfig struct {
	Enabled          bool    `envconfig:"ENABLED" default:"true"`
	SelectedShockPct float64 `envconfig:"SELECTED_SHOCK_PCT" default:"-20"`
	DepositUSD       float64 `envconfig:"DEPOSIT_USD" default:"1000"`
	HorizonDays      int     `envconfig:"HORIZON_DAYS" default:"30"`
	PublishChanSize  int     `envconfig:"PUBLISH_CHAN_SIZE" default:"1024"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values the engine would otherwise reject per call.
func (c *Config) Validate() error {
	if err := c.Engine.Grid().Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	if err := core.ValidateHorizon(c.Reporter.HorizonDays); err != nil {
		return fmt.Errorf("reporter config: %w", err)
	}
	if c.NATS.RawChanSize <= 0 || c.Reporter.PublishChanSize <= 0 {
		return fmt.Errorf("channel sizes must be > 0")
	}
	return nil
}

func (e EngineConfig) Grid() core.ShockGrid {
	return core.ShockGrid{MinPct: e.ShockMinPct, MaxPct: e.ShockMaxPct, StepPct: e.ShockStepPct}
}

// Options returns the evaluation options used for published reports.
func (c *Config) Options() core.EvalOptions {
	return core.EvalOptions{
		Grid:             c.Engine.Grid(),
		SelectedShockPct: c.Reporter.SelectedShockPct,
		DepositUSD:       c.Reporter.DepositUSD,
		HorizonDays:      c.Reporter.HorizonDays,
	}
}
