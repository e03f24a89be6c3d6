package matrix

import (
	"context"
	"errors"
	"matrix-routing-client/internal/adapters/transport"
	"matrix-routing-client/internal/domain"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRequester captures the requests it receives.
type recordingRequester struct {
	mu   sync.Mutex
	seen []domain.MatrixRequest
	err  error
}

func (r *recordingRequester) Route(ctx context.Context, req domain.MatrixRequest) (*domain.MatrixResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, req)
	if r.err != nil {
		return nil, r.err
	}
	return &domain.MatrixResponse{Times: [][]float64{{0}}}, nil
}

func TestClientSetKeyRejectsEmpty(t *testing.T) {
	c := NewClient(&recordingRequester{})

	assert.ErrorIs(t, c.SetKey(""), domain.ErrEmptyKey)
	assert.Equal(t, "", c.Key())

	require.NoError(t, c.SetKey("first"))
	assert.ErrorIs(t, c.SetKey(""), domain.ErrEmptyKey)
	assert.Equal(t, "first", c.Key())
}

func TestClientInjectsKey(t *testing.T) {
	rec := &recordingRequester{}
	c := NewClient(rec)
	require.NoError(t, c.SetKey("client-key"))

	req := twoPointRequest()
	req.Hints = map[string]any{"snap_prevention": "motorway"}

	_, err := c.Route(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, rec.seen, 1)
	assert.Equal(t, "client-key", rec.seen[0].Key())
	assert.Equal(t, "motorway", rec.seen[0].Hints["snap_prevention"])

	// The caller's request is not modified.
	assert.NotContains(t, req.Hints, domain.KeyParam)
}

func TestClientKeepsRequestKey(t *testing.T) {
	rec := &recordingRequester{}
	c := NewClient(rec)
	require.NoError(t, c.SetKey("client-key"))

	req := twoPointRequest()
	req.Hints = map[string]any{domain.KeyParam: "request-key"}

	_, err := c.Route(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "request-key", rec.seen[0].Key())
}

func TestClientWithoutKeySendsNone(t *testing.T) {
	rec := &recordingRequester{}

	_, err := NewClient(rec).Route(context.Background(), twoPointRequest())
	require.NoError(t, err)
	assert.Equal(t, "", rec.seen[0].Key())
	assert.Nil(t, rec.seen[0].Hints)
}

func TestClientRouteManyKeepsOrder(t *testing.T) {
	ft := transport.NewFixtureTransport().OnPost(`{"times": [[0, 5], [5, 0]]}`, http.StatusOK)
	c, err := NewSyncClient(ft, testServiceURL)
	require.NoError(t, err)
	require.NoError(t, c.SetKey("k"))

	reqs := []domain.MatrixRequest{twoPointRequest(), twoPointRequest(), twoPointRequest()}
	res, err := c.RouteMany(context.Background(), reqs, 0)
	require.NoError(t, err)

	require.Len(t, res, 3)
	for _, r := range res {
		assert.Equal(t, [][]float64{{0, 5}, {5, 0}}, r.Times)
	}
	assert.Equal(t, 3, ft.Count(http.MethodPost))
}

func TestClientRouteManyReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	c := NewClient(&recordingRequester{err: boom})

	_, err := c.RouteMany(context.Background(), []domain.MatrixRequest{twoPointRequest(), twoPointRequest()}, 1)
	assert.ErrorIs(t, err, boom)
}

func TestNewBatchClient(t *testing.T) {
	ft := transport.NewFixtureTransport().
		OnPost(`{"job_id": "1"}`, http.StatusOK).
		OnGet(solvedJobJSON, http.StatusOK)

	opts := testBatchOptions(newFakeClock())
	c, err := NewBatchClient(ft, testServiceURL, opts)
	require.NoError(t, err)

	res, err := c.Route(context.Background(), twoPointRequest(domain.OutWeights))
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 130.4}, {128.9, 0}}, res.Weights)

	_, err = NewBatchClient(ft, "")
	assert.Error(t, err)
}
