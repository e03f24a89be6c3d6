package matrix

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"matrix-routing-client/internal/domain"
	"matrix-routing-client/internal/ports"

	"github.com/cespare/xxhash/v2"
)

// CachingRequester serves repeated requests from a ResponseCache and stores
// successful results of the wrapped Requester. Cache failures are logged and
// never fail a route.
type CachingRequester struct {
	next   ports.Requester
	cache  ports.ResponseCache
	logger *slog.Logger
}

func NewCachingRequester(next ports.Requester, cache ports.ResponseCache, logger *slog.Logger) *CachingRequester {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingRequester{next: next, cache: cache, logger: logger}
}

// CacheKey identifies a request by its serialized body. The API key is not
// part of the body, so callers with different keys share entries.
func CacheKey(req domain.MatrixRequest) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	return fmt.Sprintf("matrix:%016x", xxhash.Sum64(b)), nil
}

func (c *CachingRequester) Route(ctx context.Context, req domain.MatrixRequest) (*domain.MatrixResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key, err := CacheKey(req)
	if err != nil {
		return nil, err
	}

	cached, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.logger.WarnContext(ctx, "matrix cache read failed", "key", key, "err", err)
	case ok:
		c.logger.DebugContext(ctx, "matrix cache hit", "key", key)
		return cached, nil
	}

	res, err := c.next.Route(ctx, req)
	if err != nil {
		return nil, err
	}

	if !res.HasErrors() {
		if err := c.cache.Put(ctx, key, res); err != nil {
			c.logger.WarnContext(ctx, "matrix cache write failed", "key", key, "err", err)
		}
	}
	return res, nil
}
