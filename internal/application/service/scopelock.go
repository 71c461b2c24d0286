package service

import "sync"

// scopeLock serializes operations that write into the same (year, month)
// fact scope. Reconcile and restore both replace rows wholesale, so two
// concurrent writers for one month would interleave deletes and inserts.
type scopeLock struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func newScopeLock() *scopeLock {
	return &scopeLock{locks: make(map[int]*sync.Mutex)}
}

// monthLocks is shared by every service that rewrites month-scoped facts,
// so a reconcile and a restore for the same month never interleave.
var monthLocks = newScopeLock()

// Lock acquires the mutex for (year, month), creating it on first use.
// Returns the unlock function.
func (l *scopeLock) Lock(year, month int) func() {
	key := year*100 + month

	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
