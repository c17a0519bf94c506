package main

import (
	"fmt"
	"os"
	"time"

	"execbox/internal/sandbox"
	"execbox/internal/sandbox/engine"
	"execbox/internal/sandbox/runtime"
	"execbox/internal/sandbox/scheduler"
	"execbox/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8090"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 120 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second

	defaultMaxConcurrentJobs = 4
	defaultMaxQueueLength    = 64
	defaultPerCallerQuota    = 8
	defaultOutputByteLimit   = 64 * 1024
	defaultPollInterval      = 50 * time.Millisecond
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// LimitsConfig holds global execution limit settings.
type LimitsConfig struct {
	Admission       sandbox.AdmissionLimits `yaml:",inline"`
	OutputByteLimit int64                   `yaml:"outputByteLimit"`
	PollInterval    time.Duration           `yaml:"pollInterval"`
}

// AppConfig holds sandboxd config, read once at startup.
type AppConfig struct {
	Server    ServerConfig           `yaml:"server"`
	Logger    logger.Config          `yaml:"logger"`
	Scheduler scheduler.Config       `yaml:"scheduler"`
	Limits    LimitsConfig           `yaml:"limits"`
	Sandbox   engine.Config          `yaml:"sandbox"`
	Languages []runtime.LanguageSpec `yaml:"languages"`
}

func loadAppConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file failed: %w", err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file failed: %w", err)
	}

	if cfg.Sandbox.WorkRoot == "" {
		return nil, fmt.Errorf("sandbox work root is required")
	}
	if len(cfg.Languages) == 0 {
		return nil, fmt.Errorf("at least one language must be configured")
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
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.Scheduler.MaxConcurrentJobs <= 0 {
		cfg.Scheduler.MaxConcurrentJobs = defaultMaxConcurrentJobs
	}
	if cfg.Scheduler.MaxQueueLength <= 0 {
		cfg.Scheduler.MaxQueueLength = defaultMaxQueueLength
	}
	if cfg.Scheduler.PerCallerQuota <= 0 {
		cfg.Scheduler.PerCallerQuota = defaultPerCallerQuota
	}
	if cfg.Limits.OutputByteLimit <= 0 {
		cfg.Limits.OutputByteLimit = defaultOutputByteLimit
	}
	if cfg.Limits.PollInterval <= 0 {
		cfg.Limits.PollInterval = defaultPollInterval
	}
	return &cfg, nil
}
