package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"matrix-routing-client/internal/domain"
	"matrix-routing-client/internal/platform/obs"
	"strings"
	"time"
)

// SQLMatrixCache is a Postgres-backed cache of matrix responses keyed by
// request hash. Entries older than TTL are treated as misses; a zero TTL
// keeps entries forever.
type SQLMatrixCache struct {
	DB     *sql.DB
	TTL    time.Duration
	Logger *slog.Logger
}

func NewSQLMatrixCache(db *sql.DB, ttl time.Duration) *SQLMatrixCache {
	return &SQLMatrixCache{DB: db, TTL: ttl, Logger: slog.Default()}
}

// Fetch a cached response for the given request hash.
func (s *SQLMatrixCache) Get(
	ctx context.Context,
	key string,
) (_ *domain.MatrixResponse, _ bool, err error) {
	defer obs.Time(ctx, s.logger(), "matrix.cache.sql.Get")(&err)

	if s.DB == nil {
		return nil, false, errors.New("matrix cache: db is nil")
	}

	if strings.TrimSpace(key) == "" {
		return nil, false, errors.New("get matrix cache: key must not be empty")
	}

	q := `
	SELECT response
    FROM matrix_cache
    WHERE request_hash = $1
        AND ($2::bigint = 0 OR created_at > now() - make_interval(secs => $2::bigint));
	`

	var raw []byte
	err = s.DB.QueryRowContext(ctx, q, key, int64(s.TTL.Seconds())).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get matrix cache: query matrix_cache table: %w", err)
	}

	var res domain.MatrixResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false, fmt.Errorf("get matrix cache: decode response: %w", err)
	}

	return &res, true, nil
}

// Store a response under the given request hash, replacing any older entry.
func (s *SQLMatrixCache) Put(
	ctx context.Context,
	key string,
	res *domain.MatrixResponse,
) error {
	if s.DB == nil {
		return errors.New("matrix cache: db is nil")
	}

	if strings.TrimSpace(key) == "" {
		return errors.New("insert matrix cache: key must not be empty")
	}

	if res == nil {
		return errors.New("insert matrix cache: response must not be nil")
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("insert matrix cache: encode response: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
	INSERT INTO matrix_cache (request_hash, response, created_at)
    VALUES ($1, $2, now())
	ON CONFLICT (request_hash) DO UPDATE
	SET response = EXCLUDED.response,
		created_at = EXCLUDED.created_at;
	`, key, raw)
	if err != nil {
		return fmt.Errorf("insert matrix cache key=%q: %w", key, err)
	}

	return nil
}

func (s *SQLMatrixCache) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
