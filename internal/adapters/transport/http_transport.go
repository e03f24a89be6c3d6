package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"matrix-routing-client/internal/domain"
	"matrix-routing-client/internal/platform/obs"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "matrix-routing-client/1.0"

	// httpMaxIdleConns is the maximum number of idle (keep-alive) connections
	// kept in the transport pool. Batch polling reuses a single host.
	httpMaxIdleConns    = 10
	httpIdleConnTimeout = 30 * time.Second
)

type Options struct {
	Timeout   time.Duration
	UserAgent string
	// Requests per second across all calls; 0 disables limiting.
	RateLimit float64
	RateBurst int
	// Consecutive transport failures before the circuit opens; 0 disables it.
	BreakerFailures uint32
	BreakerCooldown time.Duration
	Logger          *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Timeout:         defaultTimeout,
		UserAgent:       defaultUserAgent,
		RateBurst:       1,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
	}
}

// HTTPTransport implements ports.Transport over net/http.
//
// It reports every HTTP status as a JsonResult and returns an error only when
// the request never produced a response (DNS, refused connection, timeout,
// open circuit). It does not retry.
//
// The transport is safe for concurrent use.
type HTTPTransport struct {
	session   *http.Client
	userAgent string
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	logger    *slog.Logger
}

func NewHTTPTransport(options ...Options) *HTTPTransport {
	opts := DefaultOptions()
	if len(options) > 0 {
		opts = options[0]
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := max(opts.RateBurst, 1)

	t := &HTTPTransport{
		session: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        httpMaxIdleConns,
				MaxIdleConnsPerHost: httpMaxIdleConns,
				IdleConnTimeout:     httpIdleConnTimeout,
			},
		},
		userAgent: opts.UserAgent,
		limiter:   rate.NewLimiter(limit, burst),
		logger:    opts.Logger,
	}

	if opts.BreakerFailures > 0 {
		failures := opts.BreakerFailures
		logger := opts.Logger
		t.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "matrix-transport",
			Timeout: opts.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		})
	}

	return t
}

func (t *HTTPTransport) Post(ctx context.Context, url string, body []byte) (domain.JsonResult, error) {
	if !json.Valid(body) {
		return domain.JsonResult{}, fmt.Errorf("%w: post %s: body is not valid JSON", domain.ErrInvalidRequest, redactKey(url))
	}
	return t.send(ctx, http.MethodPost, url, body)
}

func (t *HTTPTransport) Get(ctx context.Context, url string) (domain.JsonResult, error) {
	return t.send(ctx, http.MethodGet, url, nil)
}

func (t *HTTPTransport) send(ctx context.Context, method, url string, body []byte) (_ domain.JsonResult, err error) {
	defer obs.Time(ctx, t.logger, "transport."+method)(&err)

	if url == "" {
		return domain.JsonResult{}, fmt.Errorf("%w: transport: url must be non-empty", domain.ErrInvalidRequest)
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return domain.JsonResult{}, connectionError(method, url, err)
	}

	if t.breaker == nil {
		return t.roundTrip(ctx, method, url, body)
	}

	// Failures after the caller's ctx ended are reported to the caller but
	// not counted against the service.
	var abandoned error
	out, err := t.breaker.Execute(func() (interface{}, error) {
		res, err := t.roundTrip(ctx, method, url, body)
		if err != nil && ctx.Err() != nil {
			abandoned = err
			return res, nil
		}
		return res, err
	})
	if abandoned != nil {
		return domain.JsonResult{}, abandoned
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.JsonResult{}, connectionError(method, url, err)
	}
	if err != nil {
		return domain.JsonResult{}, err
	}
	return out.(domain.JsonResult), nil
}

func (t *HTTPTransport) roundTrip(ctx context.Context, method, url string, body []byte) (domain.JsonResult, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := t.newRequest(ctx, method, url, reader)
	if err != nil {
		return domain.JsonResult{}, err
	}

	resp, err := t.session.Do(req)
	if err != nil {
		return domain.JsonResult{}, connectionError(method, url, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.JsonResult{}, connectionError(method, url, fmt.Errorf("read response body: %w", err))
	}

	return domain.JsonResult{
		Body:       string(b),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}, nil
}

func (t *HTTPTransport) newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", redactErr(err))
	}

	reqID := obs.RequestID(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("X-Request-ID", reqID)

	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	return req, nil
}

func connectionError(method, url string, err error) error {
	return &domain.Error{
		Kind: domain.KindConnection,
		Op:   method + " " + redactKey(url),
		Err:  redactErr(err),
	}
}
