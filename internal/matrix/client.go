package matrix

import (
	"context"
	"fmt"
	"matrix-routing-client/internal/domain"
	"matrix-routing-client/internal/ports"

	"golang.org/x/sync/errgroup"
)

// Client binds an API key to a Requester.
//
// The key is expected to be set once before the client is shared; Route may
// be called concurrently afterwards.
type Client struct {
	requester ports.Requester
	key       string
}

func NewClient(requester ports.Requester) *Client {
	return &Client{requester: requester}
}

// NewSyncClient returns a client using the single round-trip protocol.
func NewSyncClient(transport ports.Transport, serviceURL string) (*Client, error) {
	r, err := NewSyncRequester(transport, serviceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new sync client: %w", err)
	}
	return NewClient(r), nil
}

// NewBatchClient returns a client using the asynchronous job protocol.
func NewBatchClient(transport ports.Transport, serviceURL string, options ...BatchOptions) (*Client, error) {
	r, err := NewBatchRequester(transport, serviceURL, options...)
	if err != nil {
		return nil, fmt.Errorf("new batch client: %w", err)
	}
	return NewClient(r), nil
}

// SetKey sets the API key sent with every request. An empty key is rejected
// and the previous key is kept.
func (c *Client) SetKey(key string) error {
	if key == "" {
		return domain.ErrEmptyKey
	}
	c.key = key
	return nil
}

func (c *Client) Key() string { return c.key }

// Route computes the matrices for req. The client key is added unless req
// already carries one; req itself is left untouched.
func (c *Client) Route(ctx context.Context, req domain.MatrixRequest) (*domain.MatrixResponse, error) {
	if c.key != "" && req.Key() == "" {
		req = req.Clone()
		if req.Hints == nil {
			req.Hints = make(map[string]any, 1)
		}
		req.Hints[domain.KeyParam] = c.key
	}
	return c.requester.Route(ctx, req)
}

// RouteMany routes independent requests concurrently, at most limit at a time
// (unbounded when limit <= 0). Responses keep the order of reqs. The first
// failure cancels the remaining calls.
func (c *Client) RouteMany(ctx context.Context, reqs []domain.MatrixRequest, limit int) ([]*domain.MatrixResponse, error) {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	out := make([]*domain.MatrixResponse, len(reqs))
	for i, req := range reqs {
		g.Go(func() error {
			res, err := c.Route(ctx, req)
			if err != nil {
				return fmt.Errorf("route request %d: %w", i, err)
			}
			out[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
