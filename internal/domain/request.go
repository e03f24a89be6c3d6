package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
)

// OutArray names one of the matrices the service can compute.
type OutArray string

const (
	OutDistances OutArray = "distances"
	OutTimes     OutArray = "times"
	OutWeights   OutArray = "weights"
)

func (o OutArray) IsValid() bool {
	switch o {
	case OutDistances, OutTimes, OutWeights:
		return true
	default:
		return false
	}
}

// KeyParam is the hint under which the API key travels with a request.
const KeyParam = "key"

const DefaultProfile = "car"

// Represents one matrix computation request.
//
// Either Points (symmetric N x N matrix) or FromPoints and ToPoints
// (rectangular F x T matrix) are set, never both. A request is treated as
// immutable once handed to a requester.
type MatrixRequest struct {
	Points     []Point
	FromPoints []Point
	ToPoints   []Point
	OutArrays  []OutArray
	Profile    string
	FailFast   *bool
	Hints      map[string]any
}

// Return the effective out arrays, defaulting to times.
func (r MatrixRequest) Outputs() []OutArray {
	if len(r.OutArrays) == 0 {
		return []OutArray{OutTimes}
	}
	return r.OutArrays
}

// Number of matrix rows.
func (r MatrixRequest) FromCount() int {
	if len(r.Points) > 0 {
		return len(r.Points)
	}
	return len(r.FromPoints)
}

// Number of matrix columns.
func (r MatrixRequest) ToCount() int {
	if len(r.Points) > 0 {
		return len(r.Points)
	}
	return len(r.ToPoints)
}

// Upper bound for point indices reported by the server.
func (r MatrixRequest) PointCount() int {
	return max(r.FromCount(), r.ToCount())
}

// Return the API key carried in the request hints, if any.
func (r MatrixRequest) Key() string {
	k, _ := r.Hints[KeyParam].(string)
	return k
}

// Return a copy of the request whose hints map can be modified freely.
func (r MatrixRequest) Clone() MatrixRequest {
	c := r
	c.Hints = maps.Clone(r.Hints)
	return c
}

func (r MatrixRequest) Validate() error {
	if len(r.Points) > 0 && (len(r.FromPoints) > 0 || len(r.ToPoints) > 0) {
		return fmt.Errorf("%w: points and from_points/to_points are mutually exclusive", ErrInvalidRequest)
	}
	if len(r.Points) == 0 && (len(r.FromPoints) == 0 || len(r.ToPoints) == 0) {
		return fmt.Errorf("%w: at least one point (or from and to points) must be provided", ErrInvalidRequest)
	}

	for _, set := range []struct {
		name   string
		points []Point
	}{
		{"points", r.Points},
		{"from_points", r.FromPoints},
		{"to_points", r.ToPoints},
	} {
		for i, p := range set.points {
			if err := p.Validate(); err != nil {
				return fmt.Errorf("%w: %s[%d]: %v", ErrInvalidRequest, set.name, i, err)
			}
		}
	}

	seen := make(map[OutArray]struct{}, len(r.OutArrays))
	for _, o := range r.OutArrays {
		if !o.IsValid() {
			return fmt.Errorf("%w: out array %q is invalid", ErrInvalidRequest, o)
		}
		if _, ok := seen[o]; ok {
			return fmt.Errorf("%w: out array %q requested twice", ErrInvalidRequest, o)
		}
		seen[o] = struct{}{}
	}

	return nil
}

// Top-level members with a typed field; everything else is a hint.
var bodyFields = map[string]struct{}{
	"points": {}, "from_points": {}, "to_points": {},
	"out_arrays": {}, "profile": {}, "fail_fast": {}, "hints": {},
}

type requestBody struct {
	Points     []Point    `json:"points,omitempty"`
	FromPoints []Point    `json:"from_points,omitempty"`
	ToPoints   []Point    `json:"to_points,omitempty"`
	OutArrays  []OutArray `json:"out_arrays"`
	Profile    string     `json:"profile"`
	FailFast   *bool      `json:"fail_fast,omitempty"`
}

// Serialize the request body sent to the service. Hints are merged into the
// top-level object; the API key is never part of the body.
func (r MatrixRequest) MarshalJSON() ([]byte, error) {
	profile := r.Profile
	if profile == "" {
		profile = DefaultProfile
	}

	b, err := json.Marshal(requestBody{
		Points:     r.Points,
		FromPoints: r.FromPoints,
		ToPoints:   r.ToPoints,
		OutArrays:  r.Outputs(),
		Profile:    profile,
		FailFast:   r.FailFast,
	})
	if err != nil {
		return nil, err
	}

	extra := make(map[string]any, len(r.Hints))
	for k, v := range r.Hints {
		if k == KeyParam {
			continue
		}
		extra[k] = v
	}
	if len(extra) == 0 {
		return b, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, err
	}
	// Typed fields win over pass-through hints with the same name.
	for k, v := range extra {
		if _, ok := obj[k]; !ok {
			obj[k] = v
		}
	}
	return json.Marshal(obj)
}

// Read a request from either the body MarshalJSON writes (pass-through
// parameters at the top level) or a document with a nested "hints" object.
// Nested hints win over top-level keys of the same name.
func (r *MatrixRequest) UnmarshalJSON(b []byte) error {
	var body struct {
		requestBody
		Hints map[string]any `json:"hints"`
	}
	if err := json.Unmarshal(b, &body); err != nil {
		return err
	}
	if body.Points == nil && body.FromPoints == nil && body.ToPoints == nil {
		return errors.New("request has no points")
	}

	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	for k, v := range fields {
		if _, ok := bodyFields[k]; ok {
			continue
		}
		if body.Hints == nil {
			body.Hints = make(map[string]any)
		}
		if _, ok := body.Hints[k]; !ok {
			body.Hints[k] = v
		}
	}

	*r = MatrixRequest{
		Points:     body.Points,
		FromPoints: body.FromPoints,
		ToPoints:   body.ToPoints,
		OutArrays:  body.OutArrays,
		Profile:    body.Profile,
		FailFast:   body.FailFast,
		Hints:      body.Hints,
	}
	return nil
}
