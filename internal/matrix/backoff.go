package matrix

import (
	"errors"
	"math"
	"time"
)

// Backoff describes the delay between job status polls:
// delay(n) = min(Initial * Factor^n, Max). A Factor of 1 keeps the delay fixed.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
}

func DefaultBackoff() Backoff {
	return Backoff{
		Initial: 500 * time.Millisecond,
		Max:     5 * time.Second,
		Factor:  1.5,
	}
}

func (b Backoff) Validate() error {
	if b.Initial <= 0 {
		return errors.New("backoff: initial delay must be positive")
	}
	if b.Max < b.Initial {
		return errors.New("backoff: max delay must not be below initial delay")
	}
	if b.Factor < 1 {
		return errors.New("backoff: factor must be >= 1")
	}
	return nil
}

// Delay returns the wait after the n-th (zero-based) unfinished poll.
func (b Backoff) Delay(n int) time.Duration {
	d := float64(b.Initial) * math.Pow(b.Factor, float64(n))
	if d >= float64(b.Max) || math.IsInf(d, 1) {
		return b.Max
	}
	return time.Duration(d)
}
