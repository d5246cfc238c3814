package indexer

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrIngestInProgress is returned when the same document is already being ingested
var ErrIngestInProgress = errors.New("ingestion already in progress")

// IngestLock provides non-blocking lock semantics using atomic operations
type IngestLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking
func (l *IngestLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *IngestLock) Release() {
	l.state.Store(0)
}

// documentLocks hands out one lock per namespace and document
type documentLocks struct {
	mu    sync.Mutex
	locks map[string]*IngestLock
}

func newDocumentLocks() *documentLocks {
	return &documentLocks{locks: make(map[string]*IngestLock)}
}

// tryAcquire returns a release func, or false when key is held
func (d *documentLocks) tryAcquire(key string) (func(), bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.locks[key]
	if !ok {
		l = &IngestLock{}
		d.locks[key] = l
	}
	if !l.TryAcquire() {
		return nil, false
	}

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		l.Release()
		delete(d.locks, key)
	}, true
}
