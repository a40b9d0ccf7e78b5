// Package nodelock implements the per-node write lock of spec §4.4: an
// on-demand mutex keyed by NodeID, allocated lazily, reclaimed once no
// writer references it. It exists to avoid two concurrent writers to the
// same file wasting work racing each other locally; the database's
// conditional update remains the actual correctness primitive (spec §4.5,
// §5).
package nodelock

import (
	"sync"
	"weak"

	"github.com/inkfs/inkfs/internal/model"
)

// Locker hands out per-NodeID mutexes backed by weak references, so a node
// with no in-flight writers costs nothing beyond a transient map entry that
// a later sweep reclaims.
type Locker struct {
	mu      sync.RWMutex
	entries map[model.NodeID]weak.Pointer[sync.Mutex]
}

// New creates an empty Locker.
func New() *Locker {
	return &Locker{entries: make(map[model.NodeID]weak.Pointer[sync.Mutex])}
}

// resolve returns the live mutex for id, creating one if none exists or the
// previous one has already been collected.
func (l *Locker) resolve(id model.NodeID) *sync.Mutex {
	l.mu.RLock()
	if wp, ok := l.entries[id]; ok {
		if m := wp.Value(); m != nil {
			l.mu.RUnlock()
			return m
		}
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Sweep entries whose mutex has already been collected before doing
	// anything else, bounding the map to roughly the set of IDs with a
	// live writer.
	for k, wp := range l.entries {
		if wp.Value() == nil {
			delete(l.entries, k)
		}
	}

	if wp, ok := l.entries[id]; ok {
		if m := wp.Value(); m != nil {
			return m
		}
	}

	m := &sync.Mutex{}
	l.entries[id] = weak.Make(m)
	return m
}

// Lock acquires the mutex for id, suspending the caller if another writer
// already holds it, and returns a Guard that releases it on Unlock.
func (l *Locker) Lock(id model.NodeID) *Guard {
	m := l.resolve(id)
	m.Lock()
	return &Guard{m: m}
}

// Guard is the owning handle returned by Lock. Unlock must be called
// exactly once, typically via defer.
type Guard struct {
	m *sync.Mutex
}

// Unlock releases the underlying per-node mutex.
func (g *Guard) Unlock() {
	g.m.Unlock()
}
