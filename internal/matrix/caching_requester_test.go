package matrix

import (
	"context"
	"errors"
	"matrix-routing-client/internal/domain"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*domain.MatrixResponse
	getErr  error
	putErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]*domain.MatrixResponse{}}
}

func (m *memoryCache) Get(ctx context.Context, key string) (*domain.MatrixResponse, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	r, ok := m.entries[key]
	return r, ok, nil
}

func (m *memoryCache) Put(ctx context.Context, key string, resp *domain.MatrixResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[key] = resp
	return nil
}

func TestCachingRequesterServesRepeats(t *testing.T) {
	rec := &recordingRequester{}
	cache := newMemoryCache()
	r := NewCachingRequester(rec, cache, discardLogger())

	for range 3 {
		res, err := r.Route(context.Background(), twoPointRequest())
		require.NoError(t, err)
		assert.Equal(t, [][]float64{{0}}, res.Times)
	}

	assert.Len(t, rec.seen, 1)
	assert.Len(t, cache.entries, 1)
}

func TestCacheKeyIgnoresAPIKey(t *testing.T) {
	a := twoPointRequest()
	a.Hints = map[string]any{domain.KeyParam: "one"}
	b := twoPointRequest()
	b.Hints = map[string]any{domain.KeyParam: "two"}
	c := twoPointRequest(domain.OutDistances)

	ka, err := CacheKey(a)
	require.NoError(t, err)
	kb, err := CacheKey(b)
	require.NoError(t, err)
	kc, err := CacheKey(c)
	require.NoError(t, err)

	assert.Equal(t, ka, kb)
	assert.NotEqual(t, ka, kc)
	assert.Regexp(t, `^matrix:[0-9a-f]{16}$`, ka)
}

func TestCachingRequesterSurvivesCacheFailures(t *testing.T) {
	rec := &recordingRequester{}
	cache := newMemoryCache()
	cache.getErr = errors.New("cache down")
	cache.putErr = errors.New("cache down")
	r := NewCachingRequester(rec, cache, discardLogger())

	_, err := r.Route(context.Background(), twoPointRequest())
	require.NoError(t, err)
	_, err = r.Route(context.Background(), twoPointRequest())
	require.NoError(t, err)

	assert.Len(t, rec.seen, 2)
}

func TestCachingRequesterDoesNotStoreFailures(t *testing.T) {
	boom := &domain.Error{Kind: domain.KindServer}
	cache := newMemoryCache()
	r := NewCachingRequester(&recordingRequester{err: boom}, cache, discardLogger())

	_, err := r.Route(context.Background(), twoPointRequest())
	assert.ErrorIs(t, err, domain.ErrServer)
	assert.Empty(t, cache.entries)
}
