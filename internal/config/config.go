// Package config loads the keel YAML configuration with environment
// variable overrides.
package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/keelquant/keel/internal/backtest"
	"github.com/keelquant/keel/internal/core"
	"github.com/keelquant/keel/internal/signal"
)

type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Signal   signal.Config   `mapstructure:"signal"`
	Backtest backtest.Config `mapstructure:"backtest"`
	Metrics  MetricsConfig   `mapstructure:"metrics"`
	Output   OutputConfig    `mapstructure:"output"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Mode        string `mapstructure:"mode"` // "development" or "production"
	APIKey      string `mapstructure:"api_key"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

// MetricsConfig holds Prometheus exposure settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// OutputConfig holds default artifact locations for the run command.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load reads configuration from file, layered over Defaults. Keys
// absent from the file keep their default values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.normalize()

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Mode:        "production",
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Signal:   signal.DefaultConfig(),
		Backtest: backtest.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Output: OutputConfig{
			Dir: "artifacts",
		},
	}
}

// normalize maps the YAML convention for optional thresholds onto the
// engine convention: a zero or negative value disables the rule, which
// the engine represents as NaN.
func (c *Config) normalize() {
	if c.Signal.ATRPctMax <= 0 {
		c.Signal.ATRPctMax = math.NaN()
	}
	if c.Signal.TakeProfitPct <= 0 {
		c.Signal.TakeProfitPct = math.NaN()
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.Mode != "development" && c.Server.Mode != "production" {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("mode must be development or production, got %q", c.Server.Mode))
	}
	if c.Server.MaxJobs < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_jobs must be positive, got %d", c.Server.MaxJobs))
	}

	if err := c.Signal.Validate(); err != nil {
		return err
	}
	if err := c.Backtest.Validate(); err != nil {
		return err
	}
	return nil
}
