package entity

import (
	"sync"
	"sync/atomic"
)

// Set is the published collection of live entities. Readers take lock-free
// snapshots; writers replace the whole slice, so a reader sees either the
// set before a batch was published or the set with the whole batch.
type Set struct {
	mu      sync.Mutex // serializes writers
	current atomic.Pointer[[]Entity]
}

// NewSet returns an empty set.
func NewSet() *Set {
	s := &Set{}
	empty := []Entity{}
	s.current.Store(&empty)
	return s
}

// Snapshot returns the current entities. The slice must not be modified.
func (s *Set) Snapshot() []Entity {
	return *s.current.Load()
}

// Len returns the number of live entities.
func (s *Set) Len() int {
	return len(s.Snapshot())
}

// Publish appends batch as one atomic step.
func (s *Set) Publish(batch []Entity) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	old := *s.current.Load()
	next := make([]Entity, 0, len(old)+len(batch))
	next = append(next, old...)
	next = append(next, batch...)
	s.current.Store(&next)
}

// Clear empties the set and returns what it held.
func (s *Set) Clear() []Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := *s.current.Load()
	empty := []Entity{}
	s.current.Store(&empty)
	return old
}
