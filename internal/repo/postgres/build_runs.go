package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prompt-apk-builder/build-callback/internal/domain"
	"github.com/prompt-apk-builder/build-callback/internal/repo"
)

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PingContext(ctx context.Context) error
}

// BuildRunStore updates build runs over a direct Postgres connection.
type BuildRunStore struct {
	db     DB
	table  string
	logger *slog.Logger
}

func NewBuildRunStore(db DB, table string, logger *slog.Logger) *BuildRunStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &BuildRunStore{db: db, table: table, logger: logger}
}

func (s *BuildRunStore) UpdateBuildRun(ctx context.Context, id string, update domain.BuildRunUpdate) error {
	if s.db == nil {
		return errors.New("build run store not initialized")
	}
	query, args, ok := buildUpdateQuery(s.table, id, update)
	if !ok {
		return nil
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storeError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.logger.Warn("build run update matched no rows", "build_id", id, "rows_affected", n)
	}
	return nil
}

func (s *BuildRunStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return errors.New("build run store not initialized")
	}
	return s.db.PingContext(ctx)
}

// buildUpdateQuery renders a single UPDATE for the set columns. It reports false
// when there is nothing to write.
func buildUpdateQuery(table string, id string, update domain.BuildRunUpdate) (string, []any, bool) {
	cols := update.Columns()
	if len(cols) == 0 {
		return "", nil, false
	}
	if table == "" {
		table = "build_runs"
	}

	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", pgx.Identifier{col.Name}.Sanitize(), i+1))
		args = append(args, col.Value)
	}
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = $%d",
		pgx.Identifier{table}.Sanitize(),
		strings.Join(sets, ", "),
		len(args),
	)
	return query, args, true
}

func storeError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &repo.StoreError{Message: pgErr.Message, Code: pgErr.Code, Err: err}
	}
	return &repo.StoreError{Message: err.Error(), Err: err}
}
