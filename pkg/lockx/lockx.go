// Package lockx serializes work on a key, either inside one process or
// across processes sharing a Redis instance.
package lockx

import (
	"context"
	"errors"
	"time"
)

// ErrLockTimeout is returned when a lock is not acquired within the wait.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// UnlockFunc releases a held lock. It is safe to call more than once.
type UnlockFunc func()

type Locker interface {
	// Lock blocks until key is held, ctx is done or the wait elapses.
	Lock(ctx context.Context, key string) (UnlockFunc, error)
}

func withWait(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}

func waitError(parent, waited context.Context) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(waited.Err(), context.DeadlineExceeded) {
		return ErrLockTimeout
	}
	return waited.Err()
}
