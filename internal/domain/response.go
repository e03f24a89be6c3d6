package domain

// Unreachable marks a matrix entry the service could not compute.
const Unreachable = -1.0

// An error attributed to one input point. Index is -1 when the server did
// not name a point.
type PointError struct {
	Index   int    `json:"index"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Represents the parsed result of a matrix computation.
//
// Exactly one of the matrices or Errors is populated. Invalid holds points
// the server reported as unusable while still returning matrices for the
// rest, so a partially disconnected point set keeps its results.
type MatrixResponse struct {
	Distances [][]float64    `json:"distances,omitempty"`
	Times     [][]float64    `json:"times,omitempty"`
	Weights   [][]float64    `json:"weights,omitempty"`
	Info      map[string]any `json:"info,omitempty"`
	Errors    []PointError   `json:"errors,omitempty"`
	Invalid   []PointError   `json:"invalid,omitempty"`
}

func (r *MatrixResponse) HasErrors() bool { return len(r.Errors) > 0 }

// Return the matrix for the given out array, nil if it was not requested.
func (r *MatrixResponse) Matrix(kind OutArray) [][]float64 {
	switch kind {
	case OutDistances:
		return r.Distances
	case OutTimes:
		return r.Times
	case OutWeights:
		return r.Weights
	default:
		return nil
	}
}

func (r *MatrixResponse) setMatrix(kind OutArray, m [][]float64) {
	switch kind {
	case OutDistances:
		r.Distances = m
	case OutTimes:
		r.Times = m
	case OutWeights:
		r.Weights = m
	}
}

// Build a successful response from per-kind matrices.
func NewMatrixResponse(matrices map[OutArray][][]float64, invalid []PointError) *MatrixResponse {
	res := &MatrixResponse{Invalid: invalid}
	for k, m := range matrices {
		res.setMatrix(k, m)
	}
	return res
}
