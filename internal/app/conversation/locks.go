package conversation

import (
	"sync"

	"github.com/PabloGalante/deltawind/internal/domain"
)

// sessionLocks serializes operations on the same session. Entries are
// dropped once nobody holds or waits on them.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[domain.SessionID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[domain.SessionID]*lockEntry)}
}

// lock blocks until id is free and returns the matching unlock.
func (l *sessionLocks) lock(id domain.SessionID) func() {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &lockEntry{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
