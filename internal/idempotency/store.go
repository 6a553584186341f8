package idempotency

import (
	"context"
	"sync"
	"time"
)

// Store guards an operation so that it runs at most once per key and
// remembers the result for later retries.
type Store interface {
	// TryLock claims key. It reports false when another caller holds it.
	TryLock(ctx context.Context, scope, key string) (bool, error)
	// Release drops a claim whose operation failed so a retry can run.
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

type memoryEntry struct {
	value   string
	expires time.Time
}

// MemoryStore is a process-local Store with the same expiry semantics as
// the Redis one.
type MemoryStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	locks  map[string]time.Time
	values map[string]memoryEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:    ttl,
		now:    time.Now,
		locks:  make(map[string]time.Time),
		values: make(map[string]memoryEntry),
	}
}

func storeKey(scope, key string) string {
	return scope + ":" + key
}

func (s *MemoryStore) TryLock(_ context.Context, scope, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := storeKey(scope, key)
	now := s.now()
	if exp, ok := s.locks[k]; ok && now.Before(exp) {
		return false, nil
	}
	s.locks[k] = now.Add(s.ttl)
	return true, nil
}

func (s *MemoryStore) Release(_ context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, storeKey(scope, key))
	return nil
}

func (s *MemoryStore) Remember(_ context.Context, scope, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[storeKey(scope, key)] = memoryEntry{value: value, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Recall(_ context.Context, scope, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := storeKey(scope, key)
	e, ok := s.values[k]
	if !ok {
		return "", false, nil
	}
	if !s.now().Before(e.expires) {
		delete(s.values, k)
		return "", false, nil
	}
	return e.value, true, nil
}

var _ Store = (*MemoryStore)(nil)
