package repository

import (
	"context"
	"time"
)

// RunLock excludes concurrent extraction runs across processes.
type RunLock interface {
	// Acquire takes the lock for owner. It returns false when another owner holds it.
	Acquire(ctx context.Context, owner string, ttl time.Duration) (bool, error)
	// Release drops the lock if owner still holds it.
	Release(ctx context.Context, owner string) error
	// Holder returns the current owner, or "" when the lock is free.
	Holder(ctx context.Context) (string, error)
}
