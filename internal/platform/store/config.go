package store

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/prompt-apk-builder/build-callback/internal/platform/env"
)

type Backend string

const (
	BackendREST     Backend = "rest"
	BackendPostgres Backend = "postgres"
)

const DefaultTable = "build_runs"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config identifies the managed store holding build runs.
type Config struct {
	URL        string
	ServiceKey string
	Table      string
	Timeout    time.Duration
}

// ConfigFromEnvWithDefaults reads STORE_* variables, falling back to base for
// anything unset.
func ConfigFromEnvWithDefaults(base Config) (Config, error) {
	if base.Table == "" {
		base.Table = DefaultTable
	}
	if base.Timeout == 0 {
		base.Timeout = 10 * time.Second
	}
	timeout, err := env.Duration("STORE_TIMEOUT", base.Timeout)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		URL:        strings.TrimSpace(env.String("STORE_URL", base.URL)),
		ServiceKey: strings.TrimSpace(env.String("STORE_SERVICE_KEY", base.ServiceKey)),
		Table:      strings.TrimSpace(env.String("STORE_TABLE", base.Table)),
		Timeout:    timeout,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("STORE_URL is required")
	}
	if c.ServiceKey == "" {
		return errors.New("STORE_SERVICE_KEY is required")
	}
	if _, err := c.Backend(); err != nil {
		return err
	}
	if !tableNamePattern.MatchString(c.Table) {
		return fmt.Errorf("STORE_TABLE %q is not a valid table name", c.Table)
	}
	if c.Timeout <= 0 {
		return errors.New("STORE_TIMEOUT must be positive")
	}
	return nil
}

// Backend picks the store implementation from the URL scheme.
func (c Config) Backend() (Backend, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", fmt.Errorf("parse STORE_URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return "", fmt.Errorf("invalid STORE_URL: %q", c.URL)
		}
		return BackendREST, nil
	case "postgres", "postgresql":
		return BackendPostgres, nil
	default:
		return "", fmt.Errorf("unsupported STORE_URL scheme %q", u.Scheme)
	}
}

// PostgresDSN returns the connection URL with the service key as password when
// the URL does not carry one.
func (c Config) PostgresDSN() (string, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", fmt.Errorf("parse STORE_URL: %w", err)
	}
	if u.User == nil {
		u.User = url.UserPassword("postgres", c.ServiceKey)
		return u.String(), nil
	}
	if _, ok := u.User.Password(); !ok {
		u.User = url.UserPassword(u.User.Username(), c.ServiceKey)
	}
	return u.String(), nil
}
