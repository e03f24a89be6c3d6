package ports

import (
	"context"
	"matrix-routing-client/internal/domain"
)

// Port: the I/O boundary to the matrix service.
//
// Implementations return a JsonResult for every HTTP status and an error only
// when the server could not be reached at all. They never retry.
type Transport interface {
	Post(ctx context.Context, url string, body []byte) (domain.JsonResult, error)
	Get(ctx context.Context, url string) (domain.JsonResult, error)
}
