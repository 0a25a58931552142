package main

import (
	"fmt"
	"time"

	"ctfplatform/internal/bootstrap"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
	// GinMode is passed to gin.SetMode (debug, release, test).
	GinMode string `yaml:"ginMode"`
}

// SubmissionConfig limits answer attempts per team.
type SubmissionConfig struct {
	RateWindow time.Duration `yaml:"rateWindow"`
	RateMax    int           `yaml:"rateMax"`
}

// AppConfig holds the platform-service configuration.
type AppConfig struct {
	bootstrap.Config `yaml:",inline"`

	Server     ServerConfig     `yaml:"server"`
	Submission SubmissionConfig `yaml:"submission"`
}

func loadAppConfig(path string) (*AppConfig, error) {
	if err := bootstrap.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	var cfg AppConfig
	if err := bootstrap.LoadYAML(path, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyEnv(nil)
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	return &cfg, nil
}
