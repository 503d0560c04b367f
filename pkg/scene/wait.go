package scene

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/exhibit/pkg/domain"
)

// After waits for d and then calls onDone, which may be nil.
// When ctx ends first, onDone is never called and OutcomeCancelled is returned.
func After(ctx context.Context, d time.Duration, onDone func()) domain.Outcome {
	if ctx.Err() != nil {
		return domain.OutcomeCancelled
	}

	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return domain.OutcomeCancelled
		case <-timer.C:
		}
	}

	// A cancellation racing the timer wins.
	if ctx.Err() != nil {
		return domain.OutcomeCancelled
	}
	if onDone != nil {
		onDone()
	}
	return domain.OutcomeApplied
}

// IsCancellation reports whether err only signals that a context ended.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// joinScope returns a context that ends when either parent ends.
func joinScope(ctx, scope context.Context) (context.Context, context.CancelFunc) {
	joined, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(scope, cancel)
	return joined, func() {
		stop()
		cancel()
	}
}
