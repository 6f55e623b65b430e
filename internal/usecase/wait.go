package usecase

import (
	"context"
	"time"
)

// settle blocks for a fixed delay so client-side rendering can finish.
// The portal exposes no render-complete signal, so fixed waits are all we have.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
