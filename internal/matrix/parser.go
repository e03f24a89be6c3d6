package matrix

import (
	"encoding/json"
	"fmt"
	"math"
	"matrix-routing-client/internal/domain"
	"strings"
)

// errorDocument is the error shape shared by sync responses, batch
// submissions and failed batch jobs.
type errorDocument struct {
	Message string      `json:"message"`
	Hints   []errorHint `json:"hints"`
}

type errorHint struct {
	Message    string `json:"message"`
	Details    string `json:"details"`
	PointIndex *int   `json:"point_index"`
}

type matrixDocument struct {
	Distances [][]*float64    `json:"distances"`
	Times     [][]*float64    `json:"times"`
	Weights   [][]*float64    `json:"weights"`
	Info      map[string]any  `json:"info"`
	Message   *string         `json:"message"`
	Hints     json.RawMessage `json:"hints"`
}

// partialHint is a hint attached to an otherwise successful matrix when the
// request did not fail fast.
type partialHint struct {
	Message           string `json:"message"`
	Details           string `json:"details"`
	PointIndex        *int   `json:"point_index"`
	InvalidFromPoints []int  `json:"invalid_from_points"`
	InvalidToPoints   []int  `json:"invalid_to_points"`
	DisconnectedPoint []int  `json:"disconnected_points"`
}

// ParseResponse interprets a matrix document for req. The caller selects the
// document: the body of a sync response or the "solution" of a finished job.
//
// A document carrying a message is an error document and yields a response
// whose Errors list is populated. Otherwise every requested out array must be
// present with one row per from point and one column per to point.
func ParseResponse(doc []byte, req domain.MatrixRequest) (*domain.MatrixResponse, error) {
	var md matrixDocument
	if err := json.Unmarshal(doc, &md); err != nil {
		return nil, malformed("decode matrix document: %v", err)
	}

	pointCount := req.PointCount()

	if md.Message != nil {
		points, err := ParseErrors(doc, pointCount)
		if err != nil {
			return nil, err
		}
		if len(points) == 0 {
			return nil, malformed("error document has neither message nor hints")
		}
		return &domain.MatrixResponse{Errors: points}, nil
	}

	rows, cols := req.FromCount(), req.ToCount()
	raw := map[domain.OutArray][][]*float64{
		domain.OutDistances: md.Distances,
		domain.OutTimes:     md.Times,
		domain.OutWeights:   md.Weights,
	}

	matrices := make(map[domain.OutArray][][]float64, len(req.Outputs()))
	for _, kind := range req.Outputs() {
		m, ok := raw[kind]
		if !ok || m == nil {
			return nil, malformed("missing %q array", kind)
		}

		parsed, err := toMatrix(kind, m, rows, cols)
		if err != nil {
			return nil, err
		}
		matrices[kind] = parsed
	}

	invalid, err := parsePartialHints(md.Hints, pointCount)
	if err != nil {
		return nil, err
	}

	res := domain.NewMatrixResponse(matrices, invalid)
	res.Info = md.Info
	return res, nil
}

func toMatrix(kind domain.OutArray, m [][]*float64, rows, cols int) ([][]float64, error) {
	if len(m) != rows {
		return nil, malformed("%q has %d rows, want %d", kind, len(m), rows)
	}

	out := make([][]float64, rows)
	for i, row := range m {
		if len(row) != cols {
			return nil, malformed("%q row %d has %d columns, want %d", kind, i, len(row), cols)
		}

		out[i] = make([]float64, cols)
		for j, v := range row {
			switch {
			case v == nil:
				out[i][j] = domain.Unreachable
			case kind == domain.OutTimes:
				// Times are reported in seconds; keep whole seconds only.
				out[i][j] = math.Round(*v)
			default:
				out[i][j] = *v
			}
		}
	}
	return out, nil
}

// ParseErrors extracts the per-point errors of an error document. Hints
// without a point index get index -1; a document with a message but no hints
// yields a single unattributed error.
func ParseErrors(doc []byte, pointCount int) ([]domain.PointError, error) {
	var ed errorDocument
	if err := json.Unmarshal(doc, &ed); err != nil {
		return nil, malformed("decode error document: %v", err)
	}

	if len(ed.Hints) == 0 {
		if ed.Message == "" {
			return nil, nil
		}
		return []domain.PointError{{Index: -1, Kind: "error", Message: ed.Message}}, nil
	}

	out := make([]domain.PointError, 0, len(ed.Hints))
	for _, h := range ed.Hints {
		pe, err := toPointError(h.PointIndex, h.Details, h.Message, pointCount)
		if err != nil {
			return nil, err
		}
		if pe.Message == "" {
			pe.Message = ed.Message
		}
		out = append(out, pe)
	}
	return out, nil
}

func parsePartialHints(raw json.RawMessage, pointCount int) ([]domain.PointError, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var hints []partialHint
	if err := json.Unmarshal(raw, &hints); err != nil {
		return nil, malformed("decode hints: %v", err)
	}

	var out []domain.PointError
	add := func(idx []int, kind, msg string) error {
		for _, i := range idx {
			pe, err := toPointError(&i, kind, msg, pointCount)
			if err != nil {
				return err
			}
			out = append(out, pe)
		}
		return nil
	}

	for _, h := range hints {
		if h.PointIndex != nil {
			pe, err := toPointError(h.PointIndex, h.Details, h.Message, pointCount)
			if err != nil {
				return nil, err
			}
			out = append(out, pe)
		}
		if err := add(h.InvalidFromPoints, "invalid_from_point", h.Message); err != nil {
			return nil, err
		}
		if err := add(h.InvalidToPoints, "invalid_to_point", h.Message); err != nil {
			return nil, err
		}
		if err := add(h.DisconnectedPoint, "disconnected_point", h.Message); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func toPointError(index *int, details, message string, pointCount int) (domain.PointError, error) {
	pe := domain.PointError{Index: -1, Kind: errorKind(details), Message: message}
	if index == nil {
		return pe, nil
	}
	if *index < 0 || *index >= pointCount {
		return domain.PointError{}, malformed("point_index %d out of range [0, %d)", *index, pointCount)
	}
	pe.Index = *index
	return pe, nil
}

// errorKind reduces a server detail such as
// "com.graphhopper.util.exceptions.PointNotFoundException" to its last
// dotted segment.
func errorKind(details string) string {
	details = strings.TrimSpace(details)
	if details == "" {
		return "error"
	}
	if i := strings.LastIndexByte(details, '.'); i >= 0 && i < len(details)-1 {
		return details[i+1:]
	}
	return details
}

func malformed(format string, args ...any) *domain.Error {
	return &domain.Error{
		Kind:    domain.KindMalformedResponse,
		Op:      "parse",
		Message: fmt.Sprintf(format, args...),
	}
}

// parseErrorBody reads the message and point errors of a non-2xx body. A body
// that is not an error document still yields its text as the message.
func parseErrorBody(body string, pointCount int) ([]domain.PointError, string, error) {
	var ed errorDocument
	if err := json.Unmarshal([]byte(body), &ed); err != nil {
		return nil, truncate(strings.TrimSpace(body), 200), nil
	}

	points, err := ParseErrors([]byte(body), pointCount)
	if err != nil {
		return nil, ed.Message, err
	}
	return points, ed.Message, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
