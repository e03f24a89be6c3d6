package matrix

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"matrix-routing-client/internal/adapters/transport"
	"matrix-routing-client/internal/domain"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testServiceURL = "https://matrix.example.com/api/1"

// Batch-shaped fixture; sync tests unwrap its solution.
const solvedJobJSON = `{
	"status": "finished",
	"solution": {
		"distances": [[0, 1500.5], [1480.25, 0]],
		"times": [[0, 119.6], [120.2, 0]],
		"weights": [[0, 130.4], [128.9, 0]],
		"info": {"copyrights": ["GraphHopper"], "took": 12}
	}
}`

const pointNotFoundJSON = `{
	"message": "Cannot find point 3: 49.6,11.5",
	"hints": [{
		"message": "Cannot find point 3: 49.6,11.5",
		"details": "com.graphhopper.util.exceptions.PointNotFoundException",
		"point_index": 3
	}]
}`

func twoPointRequest(out ...domain.OutArray) domain.MatrixRequest {
	return domain.MatrixRequest{
		Points: []domain.Point{
			{Lat: 49.932707, Lon: 11.588051},
			{Lat: 50.241935, Lon: 10.747375},
		},
		OutArrays: out,
		Profile:   "car",
	}
}

func fourPointRequest() domain.MatrixRequest {
	return domain.MatrixRequest{
		Points: []domain.Point{
			{Lat: 49.932707, Lon: 11.588051},
			{Lat: 50.241935, Lon: 10.747375},
			{Lat: 50.118817, Lon: 11.983337},
			{Lat: 49.6, Lon: 11.5},
		},
		OutArrays: []domain.OutArray{domain.OutTimes},
	}
}

// solutionOf returns the "solution" member of a batch document, as the sync
// endpoint would answer with it directly.
func solutionOf(t *testing.T, batchJSON string) string {
	t.Helper()
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(batchJSON), &doc))
	if sol, ok := doc["solution"]; ok {
		return string(sol)
	}
	return batchJSON
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock advances only when slept on.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func testBatchOptions(clock *fakeClock) BatchOptions {
	opts := DefaultBatchOptions()
	opts.Clock = clock
	opts.Logger = discardLogger()
	return opts
}

// newSyncFixture answers the sync POST with the solution of batchJSON.
func newSyncFixture(t *testing.T, batchJSON string, status int) (*Client, *transport.FixtureTransport) {
	t.Helper()
	ft := transport.NewFixtureTransport().OnPost(solutionOf(t, batchJSON), status)
	r, err := NewSyncRequester(ft, testServiceURL, discardLogger())
	require.NoError(t, err)
	return NewClient(r), ft
}

// newBatchFixture accepts the job and answers every poll with batchJSON.
func newBatchFixture(t *testing.T, batchJSON string, status int) (*Client, *transport.FixtureTransport) {
	t.Helper()
	ft := transport.NewFixtureTransport().
		OnPost(`{"job_id": "1"}`, 200).
		OnGet(batchJSON, status)
	r, err := NewBatchRequester(ft, testServiceURL, testBatchOptions(newFakeClock()))
	require.NoError(t, err)
	return NewClient(r), ft
}

type clientFactory func(t *testing.T, batchJSON string, status int) (*Client, *transport.FixtureTransport)

var modes = map[string]clientFactory{
	"sync":  newSyncFixture,
	"batch": newBatchFixture,
}
