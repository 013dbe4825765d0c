package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prompt-apk-builder/build-callback/internal/platform/postgres"
	"github.com/prompt-apk-builder/build-callback/internal/platform/store"
	"github.com/prompt-apk-builder/build-callback/internal/repo"
	pgrepo "github.com/prompt-apk-builder/build-callback/internal/repo/postgres"
	"github.com/prompt-apk-builder/build-callback/internal/repo/postgrest"
)

type buildRunStore interface {
	repo.BuildRunStore
	repo.Pinger
}

// openStore constructs the store client once for the process. The returned
// close func releases any pooled connections.
func openStore(ctx context.Context, logger *slog.Logger, cfg store.Config) (buildRunStore, store.Backend, func(), error) {
	backend, err := cfg.Backend()
	if err != nil {
		return nil, "", nil, err
	}
	switch backend {
	case store.BackendREST:
		s, err := postgrest.NewBuildRunStore(postgrest.Config{
			BaseURL:    cfg.URL,
			ServiceKey: cfg.ServiceKey,
			Table:      cfg.Table,
			Timeout:    cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, "", nil, err
		}
		return s, backend, func() {}, nil
	case store.BackendPostgres:
		dsn, err := cfg.PostgresDSN()
		if err != nil {
			return nil, "", nil, err
		}
		dbCfg, err := postgres.ConfigFromEnv(dsn, cfg.Timeout)
		if err != nil {
			return nil, "", nil, err
		}
		db, err := postgres.Open(ctx, dbCfg)
		if err != nil {
			return nil, "", nil, err
		}
		return pgrepo.NewBuildRunStore(db, cfg.Table, logger), backend, func() { _ = db.Close() }, nil
	default:
		return nil, "", nil, fmt.Errorf("unsupported store backend %q", backend)
	}
}
