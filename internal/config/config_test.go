package config_test

import (
	"errors"
	"testing"

	"PoolRisk/internal/config"
	"PoolRisk/internal/core"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("nats url: got %s", cfg.NATS.URL)
	}
	if cfg.Engine.Grid() != core.DefaultShockGrid {
		t.Errorf("grid: got %+v, want %+v", cfg.Engine.Grid(), core.DefaultShockGrid)
	}
	if cfg.Reporter.HorizonDays != 30 || !cfg.Reporter.Enabled {
		t.Errorf("reporter: got %+v", cfg.Reporter)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("POOLRISK_NATS_URL", "nats://broker:4222")
	t.Setenv("POOLRISK_ENGINE_SHOCK_STEP_PCT", "5")
	t.Setenv("POOLRISK_REPORTER_DEPOSIT_USD", "2500.5")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.NATS.URL != "nats://broker:4222" {
		t.Errorf("nats url: got %s", cfg.NATS.URL)
	}
	if cfg.Engine.ShockStepPct != 5 {
		t.Errorf("step: got %v, want 5", cfg.Engine.ShockStepPct)
	}
	if opts := cfg.Options(); opts.DepositUSD != 2500.5 || opts.Grid.StepPct != 5 {
		t.Errorf("options: got %+v", opts)
	}
}

func TestLoad_InvalidGrid(t *testing.T) {
	t.Setenv("POOLRISK_ENGINE_SHOCK_STEP_PCT", "0")

	_, err := config.Load()
	if !errors.Is(err, core.ErrInvalidGrid) {
		t.Errorf("expected ErrInvalidGrid, got %v", err)
	}
}

func TestLoad_InvalidHorizon(t *testing.T) {
	t.Setenv("POOLRISK_REPORTER_HORIZON_DAYS", "0")

	_, err := config.Load()
	if !errors.Is(err, core.ErrInvalidHorizon) {
		t.Errorf("expected ErrInvalidHorizon, got %v", err)
	}
}
