package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout runs fn under a deadline. A panic inside fn is converted to
// ErrPanic rather than crashing the process, since fn runs on its own
// goroutine and the caller could not recover it. When the deadline fires
// first, WithTimeout returns without waiting for fn; fn must honour ctx.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return Recover(name, func() error { return fn(ctx) })
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Recover(name, func() error { return fn(timeoutCtx) })
	}()

	select {
	case err := <-done:
		return err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("%s: cancelled: %w", name, ctx.Err())
		}
		return fmt.Errorf("%s: %w after %v", name, context.DeadlineExceeded, timeout)
	}
}
