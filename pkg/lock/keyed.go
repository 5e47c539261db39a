package lock

import (
	"sync"

	"github.com/google/uuid"
)

// Keyed serializes work per aggregate id. Sessions and shifts are independent
// aggregates, so each id gets its own mutex instead of a global lock.
type Keyed struct {
	mtx     sync.Mutex
	entries map[uuid.UUID]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyed builds an empty keyed lock set.
func NewKeyed() *Keyed {
	return &Keyed{entries: make(map[uuid.UUID]*entry)}
}

// Acquire blocks until the caller owns the lock for id and returns the
// release function. Entries are reference counted so the map does not grow
// with every aggregate ever touched.
func (k *Keyed) Acquire(id uuid.UUID) func() {
	k.mtx.Lock()
	e, ok := k.entries[id]
	if !ok {
		e = &entry{}
		k.entries[id] = e
	}
	e.refs++
	k.mtx.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			k.mtx.Lock()
			e.refs--
			if e.refs == 0 {
				delete(k.entries, id)
			}
			k.mtx.Unlock()
		})
	}
}

// Len reports how many aggregates currently hold or wait for a lock.
func (k *Keyed) Len() int {
	k.mtx.Lock()
	defer k.mtx.Unlock()
	return len(k.entries)
}
