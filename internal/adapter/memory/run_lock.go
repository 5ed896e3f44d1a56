package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fixora/tracker/internal/ports"
)

// RunLock is a process-local ports.RunLock with expiry
type RunLock struct {
	mu    sync.Mutex
	held  map[string]time.Time
	now   func() time.Time
	token uint64
	owner map[string]uint64
}

// NewRunLock creates a new process-local lock
func NewRunLock() *RunLock {
	return &RunLock{
		held:  make(map[string]time.Time),
		owner: make(map[string]uint64),
		now:   time.Now,
	}
}

// Acquire takes the lock or returns ports.ErrLockHeld
func (l *RunLock) Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, ok := l.held[name]; ok && l.now().Before(expiry) {
		return nil, ports.ErrLockHeld
	}

	l.token++
	token := l.token
	l.held[name] = l.now().Add(ttl)
	l.owner[name] = token

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()

		if l.owner[name] == token {
			delete(l.held, name)
			delete(l.owner, name)
		}
		return nil
	}, nil
}
