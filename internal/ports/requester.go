package ports

import (
	"context"
	"matrix-routing-client/internal/domain"
)

// Contract shared by the synchronous and batch protocols.
type Requester interface {
	// Compute the matrices described by req.
	Route(ctx context.Context, req domain.MatrixRequest) (*domain.MatrixResponse, error)
}
