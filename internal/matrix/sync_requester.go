package matrix

import (
	"context"
	"log/slog"
	"matrix-routing-client/internal/domain"
	"matrix-routing-client/internal/platform/obs"
	"matrix-routing-client/internal/ports"
)

// SyncRequester computes a matrix in a single round trip: one POST whose
// response body is the result.
//
// It keeps no state between calls and is safe for concurrent use when its
// transport is.
type SyncRequester struct {
	transport ports.Transport
	endpoint  endpoint
	logger    *slog.Logger
}

func NewSyncRequester(transport ports.Transport, serviceURL string, logger *slog.Logger) (*SyncRequester, error) {
	ep, err := newEndpoint(serviceURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncRequester{transport: transport, endpoint: ep, logger: logger}, nil
}

func (s *SyncRequester) Route(ctx context.Context, req domain.MatrixRequest) (_ *domain.MatrixResponse, err error) {
	defer obs.Time(ctx, s.logger, "matrix.sync.Route")(&err)

	body, err := encodeRequest(req)
	if err != nil {
		return nil, err
	}

	res, err := s.transport.Post(ctx, s.endpoint.submitURL(req.Key()), body)
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindServer, Op: "sync route", Err: err}
	}

	switch {
	case res.IsSuccess():
		return ParseResponse([]byte(res.Body), req)
	case res.IsClientError():
		return nil, statusError(domain.KindClientRequest, "sync route", res, req.PointCount())
	default:
		return nil, statusError(domain.KindServer, "sync route", res, req.PointCount())
	}
}

// statusError builds a typed error from a non-2xx result, keeping any point
// errors the server reported.
func statusError(kind domain.ErrorKind, op string, res domain.JsonResult, pointCount int) *domain.Error {
	points, msg, perr := parseErrorBody(res.Body, pointCount)
	return &domain.Error{
		Kind:       kind,
		Op:         op,
		StatusCode: res.StatusCode,
		Message:    msg,
		Points:     points,
		Err:        perr,
	}
}
