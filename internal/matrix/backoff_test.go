package matrix

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Initial: 500 * time.Millisecond, Max: 2 * time.Second, Factor: 2}

	assert.Equal(t, 500*time.Millisecond, b.Delay(0))
	assert.Equal(t, time.Second, b.Delay(1))
	assert.Equal(t, 2*time.Second, b.Delay(2))
	assert.Equal(t, 2*time.Second, b.Delay(3))
	assert.Equal(t, 2*time.Second, b.Delay(5000))
}

func TestBackoffFixed(t *testing.T) {
	b := Backoff{Initial: 500 * time.Millisecond, Max: 500 * time.Millisecond, Factor: 1}

	for n := range 5 {
		assert.Equal(t, 500*time.Millisecond, b.Delay(n))
	}
}

func TestBackoffValidate(t *testing.T) {
	assert.NoError(t, DefaultBackoff().Validate())
	assert.Error(t, Backoff{Initial: 0, Max: time.Second, Factor: 1}.Validate())
	assert.Error(t, Backoff{Initial: time.Second, Max: time.Millisecond, Factor: 1}.Validate())
	assert.Error(t, Backoff{Initial: time.Second, Max: time.Second, Factor: 0.5}.Validate())
}

func TestRealClockSleepHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := RealClock{}.Sleep(ctx, time.Hour)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
