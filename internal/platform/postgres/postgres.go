package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prompt-apk-builder/build-callback/internal/platform/env"
)

// Config describes the pooled connection used by the direct Postgres store.
type Config struct {
	URL              string
	ApplicationName  string
	StatementTimeout time.Duration
	PingTimeout      time.Duration
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// ConfigFromEnv reads pool settings from STORE_* variables for dsn.
func ConfigFromEnv(dsn string, statementTimeout time.Duration) (Config, error) {
	pingTimeout, err := env.Duration("STORE_PING_TIMEOUT", 2*time.Second)
	if err != nil {
		return Config{}, err
	}
	maxOpenConns, err := env.Int("STORE_MAX_OPEN_CONNS", 4)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := env.Int("STORE_MAX_IDLE_CONNS", 2)
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := env.Duration("STORE_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		URL:              dsn,
		ApplicationName:  "build-callback",
		StatementTimeout: statementTimeout,
		PingTimeout:      pingTimeout,
		MaxOpenConns:     maxOpenConns,
		MaxIdleConns:     maxIdleConns,
		ConnMaxLifetime:  connMaxLifetime,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.URL == "":
		return errors.New("postgres url is required")
	case c.PingTimeout <= 0:
		return errors.New("STORE_PING_TIMEOUT must be positive")
	case c.MaxOpenConns < 1:
		return errors.New("STORE_MAX_OPEN_CONNS must be >= 1")
	case c.MaxIdleConns < 0 || c.MaxIdleConns > c.MaxOpenConns:
		return errors.New("STORE_MAX_IDLE_CONNS must be between 0 and STORE_MAX_OPEN_CONNS")
	case c.ConnMaxLifetime < 0:
		return errors.New("STORE_CONN_MAX_LIFETIME must be >= 0")
	case c.StatementTimeout < 0:
		return errors.New("statement timeout must be >= 0")
	}
	return nil
}

func connConfig(cfg Config) (*pgx.ConnConfig, error) {
	connCfg, err := pgx.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if connCfg.RuntimeParams == nil {
		connCfg.RuntimeParams = map[string]string{}
	}
	if cfg.ApplicationName != "" {
		connCfg.RuntimeParams["application_name"] = cfg.ApplicationName
	}
	if cfg.StatementTimeout > 0 {
		connCfg.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}
	return connCfg, nil
}

// Open returns a database/sql pool over the pgx driver and checks it with a ping.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	connCfg, err := connConfig(cfg)
	if err != nil {
		return nil, err
	}

	db := stdlib.OpenDB(*connCfg)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}
