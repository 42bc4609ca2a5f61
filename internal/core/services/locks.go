package services

import "sync"

// RunLocks hands out one mutex per run. Entries are dropped once nobody
// holds or waits on them.
type RunLocks struct {
	mu    sync.Mutex
	locks map[uint64]*runLock
}

type runLock struct {
	mu   sync.Mutex
	refs int
}

func NewRunLocks() *RunLocks {
	return &RunLocks{locks: make(map[uint64]*runLock)}
}

func (l *RunLocks) Lock(runID uint64) (unlock func()) {
	l.mu.Lock()
	lock, ok := l.locks[runID]
	if !ok {
		lock = &runLock{}
		l.locks[runID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, runID)
		}
		l.mu.Unlock()
	}
}

func (l *RunLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.locks)
}
