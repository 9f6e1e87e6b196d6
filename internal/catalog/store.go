package catalog

import (
	"sync"
)

// Store is the single shared collection. Every method holds mu only for
// in-memory work; callers do file I/O on a Snapshot.
type Store struct {
	mu      sync.Mutex
	entries []Entry
}

// NewStore creates a store seeded with a copy of c
func NewStore(c Catalog) *Store {
	return &Store{entries: c.Clone().Entries}
}

// Merge appends each candidate not already present (structural equality,
// candidates included) and returns how many were added.
func (s *Store) Merge(candidates []Entry) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, c := range candidates {
		if s.containsLocked(c) {
			continue
		}
		s.entries = append(s.entries, c.Clone())
		added++
	}
	return added
}

// AddPlaceholder appends an entry with no launchers and no catalog id
func (s *Store) AddPlaceholder() Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := NewEntry(nil)
	s.entries = append(s.entries, e)
	return e.Clone()
}

// AddPlaceholderSnapshot appends a placeholder and returns the resulting
// catalog from the same critical section
func (s *Store) AddPlaceholderSnapshot() (Entry, Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := NewEntry(nil)
	s.entries = append(s.entries, e)
	return e.Clone(), s.snapshotLocked()
}

// Snapshot returns an independent copy of the collection
func (s *Store) Snapshot() Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Replace swaps the whole collection, which is how a reload happens
func (s *Store) Replace(c Catalog) {
	entries := c.Clone().Entries
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
}

// Len returns the number of entries
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) containsLocked(e Entry) bool {
	for _, existing := range s.entries {
		if existing.Equal(e) {
			return true
		}
	}
	return false
}

func (s *Store) snapshotLocked() Catalog {
	return Catalog{Entries: s.entries}.Clone()
}
