// Package objectstore implements the process-wide keyed map of current
// objects: deduplication, expiry pruning, and persistence. Object validity
// is checked by callers before insertion, not by the store.
package objectstore

import (
	"sync"
	"time"

	"github.com/go-bmd/bmd/internal/wire"
)

// Store holds the set of objects currently known to this node, indexed by
// vector. Objects are immutable for their lifetime once inserted.
type Store struct {
	mu      sync.RWMutex
	objects map[wire.Vector]wire.Object
}

// New creates an empty Store.
func New() *Store {
	return &Store{objects: make(map[wire.Vector]wire.Object)}
}

// Insert adds obj if its vector is not already present. It reports false
// (and does not insert) when the vector already exists -- validity itself
// must be checked by the caller before calling Insert, since the store has
// no opinion on streams or PoW parameters.
func (s *Store) Insert(obj wire.Object) bool {
	v := obj.Vector()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[v]; exists {
		return false
	}
	s.objects[v] = obj
	return true
}

// Get returns the object for vector, if present.
func (s *Store) Get(v wire.Vector) (wire.Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[v]
	return obj, ok
}

// Has reports whether vector is currently stored.
func (s *Store) Has(v wire.Vector) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[v]
	return ok
}

// Vectors returns a snapshot of every vector currently stored.
func (s *Store) Vectors() []wire.Vector {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]wire.Vector, 0, len(s.objects))
	for v := range s.objects {
		out = append(out, v)
	}
	return out
}

// Len returns the number of objects currently stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Snapshot returns a copy of every stored object.
func (s *Store) Snapshot() []wire.Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]wire.Object, 0, len(s.objects))
	for _, o := range s.objects {
		out = append(out, o)
	}
	return out
}

// Prune removes every object whose expiresTime + 3h has passed relative to
// now, returning the count removed.
func (s *Store) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for v, o := range s.objects {
		if o.IsExpired(now) {
			delete(s.objects, v)
			removed++
		}
	}
	return removed
}

// Replace swaps the store's contents wholesale, used when loading from
// disk.
func (s *Store) Replace(objects []wire.Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = make(map[wire.Vector]wire.Object, len(objects))
	for _, o := range objects {
		s.objects[o.Vector()] = o
	}
}
