package ports

import (
	"context"
	"matrix-routing-client/internal/domain"
)

// Port: storage for previously computed matrix responses.
type ResponseCache interface {
	// Return the cached response for key; ok is false on a miss.
	Get(ctx context.Context, key string) (resp *domain.MatrixResponse, ok bool, err error)
	Put(ctx context.Context, key string, resp *domain.MatrixResponse) error
}
