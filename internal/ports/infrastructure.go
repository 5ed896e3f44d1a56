package ports

import (
	"context"
	"errors"
	"time"
)

// ObjectStore deletes blobs from remote object storage. Delete may fail
// transiently; deleting a missing key is not an error.
type ObjectStore interface {
	Delete(ctx context.Context, key string) error
}

// ErrLockHeld is returned by RunLock.Acquire when another holder owns the lock
var ErrLockHeld = errors.New("lock is held by another process")

// RunLock provides mutual exclusion for the purge job across processes
type RunLock interface {
	// Acquire takes the named lock for at most ttl and returns a release
	// function, or ErrLockHeld.
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, err error)
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// SystemClock is a Clock backed by time.Now in UTC
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant
type FixedClock time.Time

// Now returns the fixed instant
func (c FixedClock) Now() time.Time {
	return time.Time(c)
}
