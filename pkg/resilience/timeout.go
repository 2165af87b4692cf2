package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/maryam-tariqq/DSA-Project/pkg/errors"
)

// WithTimeout bounds fn to the given duration. A zero or negative timeout
// runs fn with the caller's context unchanged. An expired deadline surfaces
// as ErrTimeout so barrel reads can be classified as retryable.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	boundedCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(boundedCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-boundedCtx.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("%s: caller context cancelled: %w", name, ctx.Err())
		}
		return fmt.Errorf("%s exceeded %v: %w", name, timeout, apperrors.ErrTimeout)
	}
}
