package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func TestLoad_FromFile(t *testing.T) {
	cfgPath := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9090

signal:
  target_annual_vol: 0.25
  take_profit_pct: 0.06

backtest:
  cost_bps: 5
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Signal.TargetAnnualVol != 0.25 {
		t.Errorf("expected target_annual_vol 0.25, got %f", cfg.Signal.TargetAnnualVol)
	}
	if cfg.Signal.TakeProfitPct != 0.06 {
		t.Errorf("expected take_profit_pct 0.06, got %f", cfg.Signal.TakeProfitPct)
	}
	if cfg.Backtest.CostBps != 5 {
		t.Errorf("expected cost_bps 5, got %f", cfg.Backtest.CostBps)
	}
}

func TestLoad_AbsentKeysKeepDefaults(t *testing.T) {
	cfgPath := writeConfig(t, `
server:
  port: 9090
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	def := Defaults()
	if cfg.Signal.VolWindow != def.Signal.VolWindow {
		t.Errorf("vol_window = %d, want default %d", cfg.Signal.VolWindow, def.Signal.VolWindow)
	}
	if !cfg.Signal.UseRegimeFilter {
		t.Error("use_regime_filter should default to true")
	}
	// Optional thresholds stay disabled when never mentioned.
	if !math.IsNaN(cfg.Signal.ATRPctMax) {
		t.Errorf("atr_pct_max = %v, want disabled (NaN)", cfg.Signal.ATRPctMax)
	}
	if !math.IsNaN(cfg.Signal.TakeProfitPct) {
		t.Errorf("take_profit_pct = %v, want disabled (NaN)", cfg.Signal.TakeProfitPct)
	}
}

func TestLoad_ZeroDisablesOptionalThresholds(t *testing.T) {
	cfgPath := writeConfig(t, `
signal:
  take_profit_pct: 0
  atr_pct_max: 0
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if !math.IsNaN(cfg.Signal.TakeProfitPct) {
		t.Errorf("take_profit_pct 0 should disable the rule, got %v", cfg.Signal.TakeProfitPct)
	}
	if !math.IsNaN(cfg.Signal.ATRPctMax) {
		t.Errorf("atr_pct_max 0 should disable the rule, got %v", cfg.Signal.ATRPctMax)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("KEEL_TEST_HOST", "10.1.2.3")
	cfgPath := writeConfig(t, `
server:
  host: "${KEEL_TEST_HOST}"
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Host != "10.1.2.3" {
		t.Errorf("host = %q, want expanded env value", cfg.Server.Host)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Backtest.CostBps != 10 {
		t.Errorf("expected default cost_bps 10, got %f", cfg.Backtest.CostBps)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid port - zero",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port - too high",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "invalid mode",
			mutate:  func(c *Config) { c.Server.Mode = "debug" },
			wantErr: true,
		},
		{
			name:    "invalid signal section",
			mutate:  func(c *Config) { c.Signal.VolWindow = 1 },
			wantErr: true,
		},
		{
			name:    "invalid backtest section",
			mutate:  func(c *Config) { c.Backtest.CostBps = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
