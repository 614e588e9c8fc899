// Package config loads process settings from an optional YAML file and
// PRISM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/danielpatrickdp/prism-engine/internal/backfill"
	"github.com/danielpatrickdp/prism-engine/internal/catalog"
	"github.com/danielpatrickdp/prism-engine/internal/engine"
	"github.com/danielpatrickdp/prism-engine/internal/reliability"
)

// EnvPrefix prefixes every environment override, e.g. PRISM_DB_PATH.
const EnvPrefix = "PRISM"

// #region types
// Config is the process configuration. Scoring constants are not here; they
// belong to the engine version.
type Config struct {
	DBPath      string `mapstructure:"db_path" validate:"required"`
	CatalogDir  string `mapstructure:"catalog_dir"`
	LogLevel    string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	GRPCAddr    string `mapstructure:"grpc_addr" validate:"required"`
	MetricsAddr string `mapstructure:"metrics_addr"`

	MaxConflictRetries int `mapstructure:"max_conflict_retries" validate:"min=0,max=10"`

	Backfill    Backfill    `mapstructure:"backfill"`
	Reliability Reliability `mapstructure:"reliability"`
}

// Backfill configures batch re-scoring.
type Backfill struct {
	Workers       int     `mapstructure:"workers" validate:"min=1,max=64"`
	RatePerSecond float64 `mapstructure:"rate_per_second" validate:"min=0"`
	Burst         int     `mapstructure:"burst" validate:"min=1"`
}

// Reliability configures the auditor.
type Reliability struct {
	MinRespondents int `mapstructure:"min_respondents" validate:"min=2"`
	RefreshEvery   int `mapstructure:"refresh_every" validate:"min=0"`
}

// #endregion types

// #region load
var validate = validator.New()

func setDefaults(v *viper.Viper) {
	bf := backfill.DefaultConfig()
	rel := reliability.DefaultConfig()
	v.SetDefault("db_path", "prism.db")
	v.SetDefault("catalog_dir", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("grpc_addr", "localhost:50061")
	v.SetDefault("metrics_addr", ":9464")
	v.SetDefault("max_conflict_retries", engine.DefaultConfig().MaxConflictRetries)
	v.SetDefault("backfill.workers", bf.Workers)
	v.SetDefault("backfill.rate_per_second", bf.RatePerSecond)
	v.SetDefault("backfill.burst", bf.Burst)
	v.SetDefault("reliability.min_respondents", rel.MinRespondents)
	v.SetDefault("reliability.refresh_every", rel.RefreshEvery)
}

// Load reads path (when non-empty), applies environment overrides and
// validates the result. Without a path, prism.yaml in the working directory
// is used if present.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("prism")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := validate.Struct(c); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// #endregion load

// #region derived
// Engine returns the engine configuration with process overrides applied.
func (c Config) Engine(trigger string) engine.Config {
	cfg := engine.DefaultConfig()
	cfg.MaxConflictRetries = c.MaxConflictRetries
	if trigger != "" {
		cfg.Trigger = trigger
	}
	return cfg
}

// BackfillConfig returns the backfill runner settings.
func (c Config) BackfillConfig() backfill.Config {
	return backfill.Config{
		Workers:       c.Backfill.Workers,
		RatePerSecond: c.Backfill.RatePerSecond,
		Burst:         c.Backfill.Burst,
	}
}

// ReliabilityConfig returns the auditor settings.
func (c Config) ReliabilityConfig() reliability.Config {
	return reliability.Config{
		MinRespondents: c.Reliability.MinRespondents,
		RefreshEvery:   c.Reliability.RefreshEvery,
	}
}

// Registry returns the embedded catalogs with every catalog in CatalogDir
// registered over them.
func (c Config) Registry() (*catalog.Registry, error) {
	reg, err := catalog.Embedded()
	if err != nil {
		return nil, err
	}
	if c.CatalogDir == "" {
		return reg, nil
	}
	dir, err := catalog.LoadDir(c.CatalogDir)
	if err != nil {
		return nil, err
	}
	for _, v := range dir.Versions() {
		cat, err := dir.Get(v)
		if err != nil {
			return nil, err
		}
		reg.Add(cat)
	}
	return reg, nil
}

// Catalog returns the latest catalog of Registry.
func (c Config) Catalog() (*catalog.Catalog, error) {
	reg, err := c.Registry()
	if err != nil {
		return nil, err
	}
	return reg.Latest()
}

// #endregion derived
