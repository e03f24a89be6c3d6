package cache

import (
	"context"
	"matrix-routing-client/internal/domain"
	"matrix-routing-client/internal/platform/db"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real Postgres when MATRIX_TEST_DATABASE_URL is set.
func TestSQLMatrixCacheRoundTrip(t *testing.T) {
	url := os.Getenv("MATRIX_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("MATRIX_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, url)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, InitSchema(ctx, conn))

	c := NewSQLMatrixCache(conn, time.Hour)
	key := "matrix:test-" + time.Now().Format(time.RFC3339Nano)

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	want := &domain.MatrixResponse{Distances: [][]float64{{0, 1500.5}, {1480.25, 0}}}
	require.NoError(t, c.Put(ctx, key, want))
	require.NoError(t, c.Put(ctx, key, want))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestSQLMatrixCacheRequiresDB(t *testing.T) {
	c := &SQLMatrixCache{}

	_, _, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, c.Put(context.Background(), "k", &domain.MatrixResponse{}))
}
