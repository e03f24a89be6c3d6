package ports

import (
	"context"
	"time"
)

// Clock abstracts wall-clock reads and sleeping so poll loops can be driven
// without real delays.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in that case.
	Sleep(ctx context.Context, d time.Duration) error
}
