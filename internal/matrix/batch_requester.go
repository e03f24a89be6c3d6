package matrix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"matrix-routing-client/internal/domain"
	"matrix-routing-client/internal/platform/obs"
	"matrix-routing-client/internal/ports"
	"time"
)

type jobState string

const (
	stateSubmitting jobState = "submitting"
	statePolling    jobState = "polling"
	stateSucceeded  jobState = "succeeded"
	stateFailed     jobState = "failed"
	stateTimedOut   jobState = "timed_out"
)

// Job status values reported by the service.
const (
	statusWaiting    = "waiting"
	statusProcessing = "processing"
	statusFinished   = "finished"
)

type BatchOptions struct {
	Backoff Backoff
	// Upper bound on the total time spent polling one job.
	MaxWait time.Duration
	// Upper bound on status requests per job; 0 means unbounded.
	MaxPolls int
	// Consecutive transport failures or 5xx polls tolerated before giving up.
	MaxTransientErrors int
	Clock              ports.Clock
	Logger             *slog.Logger
}

func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		Backoff:            DefaultBackoff(),
		MaxWait:            5 * time.Minute,
		MaxTransientErrors: 3,
		Clock:              RealClock{},
	}
}

// BatchRequester computes a matrix through the asynchronous job protocol:
// submit the request, poll the job until it reaches a terminal status, then
// parse its solution.
//
// Each Route call owns its job id and counters, so concurrent calls are safe
// when the transport is.
type BatchRequester struct {
	transport ports.Transport
	endpoint  endpoint
	opts      BatchOptions
	logger    *slog.Logger
}

func NewBatchRequester(transport ports.Transport, serviceURL string, options ...BatchOptions) (*BatchRequester, error) {
	ep, err := newEndpoint(serviceURL)
	if err != nil {
		return nil, err
	}

	opts := DefaultBatchOptions()
	if len(options) > 0 {
		opts = options[0]
	}
	if err := opts.Backoff.Validate(); err != nil {
		return nil, err
	}
	if opts.MaxWait <= 0 {
		return nil, fmt.Errorf("batch requester: max wait must be positive, got %v", opts.MaxWait)
	}
	if opts.MaxPolls < 0 || opts.MaxTransientErrors < 0 {
		return nil, fmt.Errorf("batch requester: poll limits must not be negative")
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &BatchRequester{transport: transport, endpoint: ep, opts: opts, logger: logger}, nil
}

func (b *BatchRequester) Route(ctx context.Context, req domain.MatrixRequest) (_ *domain.MatrixResponse, err error) {
	defer obs.Time(ctx, b.logger, "matrix.batch.Route")(&err)

	body, err := encodeRequest(req)
	if err != nil {
		return nil, err
	}

	b.transition(ctx, stateSubmitting, "")
	jobID, err := b.submit(ctx, body, req)
	if err != nil {
		b.transition(ctx, stateFailed, "")
		return nil, err
	}

	b.transition(ctx, statePolling, jobID)
	res, err := b.poll(ctx, jobID, req)
	switch {
	case err == nil:
		b.transition(ctx, stateSucceeded, jobID)
	case errors.Is(err, domain.ErrTimeout):
		b.transition(ctx, stateTimedOut, jobID)
	default:
		b.transition(ctx, stateFailed, jobID)
	}
	return res, err
}

func (b *BatchRequester) submit(ctx context.Context, body []byte, req domain.MatrixRequest) (string, error) {
	const op = "submit job"

	res, err := b.transport.Post(ctx, b.endpoint.submitURL(req.Key()), body)
	if err != nil {
		return "", &domain.Error{Kind: domain.KindSubmission, Op: op, Err: err}
	}

	if !res.IsSuccess() {
		return "", statusError(domain.KindSubmission, op, res, req.PointCount())
	}

	var sub struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal([]byte(res.Body), &sub); err != nil || sub.JobID == "" {
		return "", &domain.Error{
			Kind:       domain.KindSubmission,
			Op:         op,
			StatusCode: res.StatusCode,
			Err:        malformed("response has no job_id: %s", truncate(res.Body, 200)),
		}
	}

	return sub.JobID, nil
}

// poll requests the job status until a terminal status, the wait budget, or
// ctx ends the loop. It sleeps only after an unfinished poll.
func (b *BatchRequester) poll(ctx context.Context, jobID string, req domain.MatrixRequest) (*domain.MatrixResponse, error) {
	const op = "poll job"

	url := b.endpoint.jobURL(jobID, req.Key())
	start := b.opts.Clock.Now()
	transient := 0

	for attempt := 0; ; attempt++ {
		if b.opts.MaxPolls > 0 && attempt >= b.opts.MaxPolls {
			return nil, b.timeoutError(jobID, fmt.Sprintf("job unfinished after %d polls", attempt))
		}

		res, err := b.transport.Get(ctx, url)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%s %s: %w", op, jobID, ctxErr)
			}
			transient++
			if transient > b.opts.MaxTransientErrors {
				return nil, &domain.Error{Kind: domain.KindServer, Op: op, JobID: jobID, Err: err}
			}
			b.logger.WarnContext(ctx, "job poll failed, retrying", "job_id", jobID, "attempt", attempt+1, "err", err)

		case res.StatusCode >= 500:
			transient++
			if transient > b.opts.MaxTransientErrors {
				e := statusError(domain.KindServer, op, res, req.PointCount())
				e.JobID = jobID
				return nil, e
			}
			b.logger.WarnContext(ctx, "job poll returned server error, retrying", "job_id", jobID, "status", res.StatusCode, "attempt", attempt+1)

		case res.IsClientError():
			e := statusError(domain.KindClientRequest, op, res, req.PointCount())
			e.JobID = jobID
			return nil, e

		case !res.IsSuccess():
			e := statusError(domain.KindServer, op, res, req.PointCount())
			e.JobID = jobID
			return nil, e

		default:
			transient = 0
			done, resp, err := evaluateJob(res.Body, jobID, req)
			if err != nil {
				return nil, err
			}
			if done {
				return resp, nil
			}
		}

		elapsed := b.opts.Clock.Now().Sub(start)
		if elapsed >= b.opts.MaxWait {
			return nil, b.timeoutError(jobID, fmt.Sprintf("job unfinished after %v", elapsed))
		}

		// Never sleep past the deadline so the last poll lands on it.
		delay := min(b.opts.Backoff.Delay(attempt), b.opts.MaxWait-elapsed)
		if err := b.opts.Clock.Sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("%s %s: %w", op, jobID, err)
		}
	}
}

type jobStatus struct {
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Solution json.RawMessage `json:"solution"`
}

// evaluateJob inspects one status document. done is true once the job
// reached "finished" and the solution parsed.
func evaluateJob(body, jobID string, req domain.MatrixRequest) (bool, *domain.MatrixResponse, error) {
	var js jobStatus
	if err := json.Unmarshal([]byte(body), &js); err != nil {
		e := malformed("decode job status: %v", err)
		e.JobID = jobID
		return false, nil, e
	}

	switch js.Status {
	case statusWaiting, statusProcessing:
		return false, nil, nil

	case statusFinished:
		if len(js.Solution) == 0 || string(js.Solution) == "null" {
			e := malformed("finished job has no solution")
			e.JobID = jobID
			return false, nil, e
		}
		resp, err := ParseResponse(js.Solution, req)
		if err != nil {
			return false, nil, fmt.Errorf("job %s: %w", jobID, err)
		}
		return true, resp, nil

	default:
		return false, nil, jobFailure(js, body, jobID, req.PointCount())
	}
}

// jobFailure reports a job that ended in "error" or an unknown status. Point
// errors come from the status document itself or from its solution.
func jobFailure(js jobStatus, body, jobID string, pointCount int) error {
	e := &domain.Error{
		Kind:    domain.KindServer,
		Op:      "poll job",
		JobID:   jobID,
		Message: js.Message,
	}

	doc := []byte(body)
	if js.Message == "" && len(js.Solution) > 0 && string(js.Solution) != "null" {
		doc = js.Solution
	}

	points, err := ParseErrors(doc, pointCount)
	e.Points = points
	e.Err = err
	if e.Message == "" && len(points) > 0 {
		e.Message = points[0].Message
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("job ended with status %q", js.Status)
	}
	return e
}

func (b *BatchRequester) timeoutError(jobID, msg string) error {
	return &domain.Error{Kind: domain.KindTimeout, Op: "poll job", JobID: jobID, Message: msg}
}

func (b *BatchRequester) transition(ctx context.Context, s jobState, jobID string) {
	b.logger.DebugContext(ctx, "batch job state", "state", string(s), "job_id", jobID)
}
