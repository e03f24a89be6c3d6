package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"matrix-routing-client/internal/domain"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMatrixCache stores matrix responses as JSON strings with a TTL.
type RedisMatrixCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisMatrixCache(client *redis.Client, ttl time.Duration) *RedisMatrixCache {
	return &RedisMatrixCache{client: client, ttl: ttl}
}

func (r *RedisMatrixCache) Get(ctx context.Context, key string) (*domain.MatrixResponse, bool, error) {
	val, err := r.client.Get(ctx, formatKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("getting matrix response: %w", err)
	}

	var res domain.MatrixResponse
	if err := json.Unmarshal(val, &res); err != nil {
		return nil, false, fmt.Errorf("unmarshalling matrix response: %w", err)
	}
	return &res, true, nil
}

func (r *RedisMatrixCache) Put(ctx context.Context, key string, res *domain.MatrixResponse) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshalling matrix response: %w", err)
	}
	if err := r.client.Set(ctx, formatKey(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("setting matrix response: %w", err)
	}
	return nil
}

func formatKey(key string) string {
	return fmt.Sprintf("routing:%s", key)
}
