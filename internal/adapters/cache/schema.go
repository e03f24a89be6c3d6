package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Initialize the Postgres schema used by SQLMatrixCache.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createMatrixCacheQuery := `
	CREATE TABLE IF NOT EXISTS matrix_cache (
        request_hash TEXT PRIMARY KEY,
        response JSONB NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_matrix_cache_created_at
    ON matrix_cache(created_at);
	`

	statements := []string{
		createMatrixCacheQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Delete cache entries older than maxAge; returns the number of rows removed.
func Prune(ctx context.Context, db *sql.DB, maxAgeSeconds int64) (int64, error) {
	if db == nil {
		return 0, errors.New("prune matrix cache: DB is nil")
	}

	res, err := db.ExecContext(ctx, `
	DELETE FROM matrix_cache
    WHERE created_at < now() - make_interval(secs => $1::bigint);
	`, maxAgeSeconds)
	if err != nil {
		return 0, fmt.Errorf("prune matrix cache: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune matrix cache: rows affected: %w", err)
	}
	return n, nil
}
