package service

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// keyLock provides mutual exclusion per string key. Entries are created on
// first acquire and removed once the last holder or waiter releases, so the
// table stays proportional to in-flight keys rather than all keys ever seen.
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*lockEntry)}
}

// Acquire blocks until the key's lock is held or ctx is done. The
// semaphore honors context cancellation, which is what bounds how long a
// contended vote waits.
func (k *keyLock) Acquire(ctx context.Context, key string) error {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{sem: semaphore.NewWeighted(1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		k.release(key, e, false)
		return err
	}
	return nil
}

// Release frees the key's lock.
func (k *keyLock) Release(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	k.mu.Unlock()
	if !ok {
		return
	}
	k.release(key, e, true)
}

func (k *keyLock) release(key string, e *lockEntry, held bool) {
	if held {
		e.sem.Release(1)
	}

	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}
