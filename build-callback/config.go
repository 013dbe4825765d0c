package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prompt-apk-builder/build-callback/internal/platform/env"
	"github.com/prompt-apk-builder/build-callback/internal/platform/store"
	"gopkg.in/yaml.v3"
)

const (
	serviceName         = "build-callback"
	defaultCallbackPath = "/build-callback"
)

type serviceConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
	CallbackPath    string
	LogLevel        slog.Level
	Store           store.Config
}

// fileConfig mirrors the optional YAML file named by BUILD_CALLBACK_CONFIG.
type fileConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CallbackPath    string        `yaml:"callback_path"`
	LogLevel        string        `yaml:"log_level"`
	Store           struct {
		URL        string        `yaml:"url"`
		ServiceKey string        `yaml:"service_key"`
		Table      string        `yaml:"table"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"store"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	if strings.TrimSpace(path) == "" {
		return fc, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

// loadServiceConfig layers environment variables over the optional config file.
func loadServiceConfig() (serviceConfig, error) {
	fc, err := loadFileConfig(env.String("BUILD_CALLBACK_CONFIG", ""))
	if err != nil {
		return serviceConfig{}, err
	}

	addr := env.String("BUILD_CALLBACK_HTTP_ADDR", orDefault(fc.HTTPAddr, ":8080"))
	shutdownDefault := fc.ShutdownTimeout
	if shutdownDefault == 0 {
		shutdownDefault = 10 * time.Second
	}
	shutdownTimeout, err := env.Duration("BUILD_CALLBACK_SHUTDOWN_TIMEOUT", shutdownDefault)
	if err != nil {
		return serviceConfig{}, err
	}

	levelDefault := slog.LevelInfo
	if fc.LogLevel != "" {
		if err := levelDefault.UnmarshalText([]byte(fc.LogLevel)); err != nil {
			return serviceConfig{}, fmt.Errorf("parse log_level: %w", err)
		}
	}
	level, err := env.Level("LOG_LEVEL", levelDefault)
	if err != nil {
		return serviceConfig{}, err
	}

	storeCfg, err := store.ConfigFromEnvWithDefaults(store.Config{
		URL:        fc.Store.URL,
		ServiceKey: fc.Store.ServiceKey,
		Table:      fc.Store.Table,
		Timeout:    fc.Store.Timeout,
	})
	if err != nil {
		return serviceConfig{}, err
	}

	cfg := serviceConfig{
		Addr:            strings.TrimSpace(addr),
		ShutdownTimeout: shutdownTimeout,
		CallbackPath:    strings.TrimSpace(env.String("BUILD_CALLBACK_PATH", orDefault(fc.CallbackPath, defaultCallbackPath))),
		LogLevel:        level,
		Store:           storeCfg,
	}
	if err := cfg.Validate(); err != nil {
		return serviceConfig{}, err
	}
	return cfg, nil
}

func (c serviceConfig) Validate() error {
	if c.Addr == "" {
		return errors.New("BUILD_CALLBACK_HTTP_ADDR is required")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("BUILD_CALLBACK_SHUTDOWN_TIMEOUT must be positive")
	}
	if !strings.HasPrefix(c.CallbackPath, "/") {
		return fmt.Errorf("BUILD_CALLBACK_PATH %q must start with /", c.CallbackPath)
	}
	switch c.CallbackPath {
	case "/healthz", "/readyz", "/metrics":
		return fmt.Errorf("BUILD_CALLBACK_PATH %q collides with a built-in route", c.CallbackPath)
	}
	return c.Store.Validate()
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
