package config

import (
	"fmt"

	"ctfplatform/internal/bootstrap"
)

const (
	DefaultHistoryFile = ".ctfplatform_admin_history"
	DefaultLogLevel    = "warn"
)

// Config holds admin CLI configuration. The store, cache and realtime
// sections are the same as the platform service's so commands hit the same
// backends and events reach connected clients.
type Config struct {
	bootstrap.Config `yaml:",inline"`

	HistoryFile string `yaml:"historyFile"`
	BcryptCost  int    `yaml:"bcryptCost"`
}

func Load(path string) (Config, error) {
	cfg := Config{}
	if err := bootstrap.LoadDotEnv(".env"); err != nil {
		return cfg, err
	}
	if err := bootstrap.LoadYAML(path, &cfg); err != nil {
		return cfg, err
	}
	cfg.ApplyEnv(nil)
	if err := applyDefaults(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) error {
	if cfg.HistoryFile == "" {
		cfg.HistoryFile = DefaultHistoryFile
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = DefaultLogLevel
	}
	if cfg.Logger.OutputPath == "" {
		cfg.Logger.OutputPath = "stderr"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "console"
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
