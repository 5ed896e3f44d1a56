package memory

import (
	"context"
	"errors"
	"sync"
)

// ErrObjectStoreUnavailable is returned for keys configured to fail
var ErrObjectStoreUnavailable = errors.New("object store unavailable")

// ObjectStore is an in-memory blob store. Keys can be configured to fail a
// number of times to exercise retry handling.
type ObjectStore struct {
	mu       sync.Mutex
	objects  map[string]struct{}
	attempts map[string]int
	failures map[string]int
}

// NewObjectStore creates an empty object store
func NewObjectStore() *ObjectStore {
	return &ObjectStore{
		objects:  make(map[string]struct{}),
		attempts: make(map[string]int),
		failures: make(map[string]int),
	}
}

// Put stores an object under key
func (s *ObjectStore) Put(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = struct{}{}
}

// FailKey makes the next n deletes of key fail. A negative n fails forever.
func (s *ObjectStore) FailKey(key string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[key] = n
}

// Delete removes the object. A missing key is not an error.
func (s *ObjectStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts[key]++
	if n, ok := s.failures[key]; ok && n != 0 {
		if n > 0 {
			s.failures[key] = n - 1
		}
		return ErrObjectStoreUnavailable
	}
	delete(s.objects, key)
	return nil
}

// Exists reports whether key is stored
func (s *ObjectStore) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.objects[key]
	return ok
}

// Attempts returns how many deletes were attempted for key
func (s *ObjectStore) Attempts(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.attempts[key]
}
