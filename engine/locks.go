package engine

import (
	"sync"

	"github.com/google/uuid"
)

// accountLocks serializes engine mutations per account. The lock is keyed by
// account ID so fills on different accounts never contend, and it is held
// only around the ledger-mutation + order-transition step, never across
// external I/O.
type accountLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *accountLocks) get(id uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}
