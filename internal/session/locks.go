// ABOUTME: Per-identity mutual exclusion for conversation turns
// ABOUTME: Entries are reference counted and dropped once no turn holds or waits on them

package session

import "sync"

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Locks serializes work per identity while letting different identities
// proceed in parallel.
type Locks struct {
	mu      sync.Mutex
	entries map[int64]*lockEntry
}

// NewLocks creates an empty lock table.
func NewLocks() *Locks {
	return &Locks{entries: make(map[int64]*lockEntry)}
}

// Lock blocks until the identity is free and returns the matching unlock.
func (l *Locks) Lock(identity int64) (unlock func()) {
	l.mu.Lock()
	e, ok := l.entries[identity]
	if !ok {
		e = &lockEntry{}
		l.entries[identity] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()

			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.entries, identity)
			}
			l.mu.Unlock()
		})
	}
}

// held reports how many identities have an active or pending lock.
func (l *Locks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
