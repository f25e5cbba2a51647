package contacts

import "sync"

// Store owns the current List snapshot. Each mutation computes the next
// snapshot from the current one and swaps it in; snapshots handed out
// earlier are left untouched.
type Store struct {
	mu      sync.RWMutex
	current List
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Snapshot() List {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) Replace(l List) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = l
}

func (s *Store) Add() List {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = s.current.Add()
	return s.current
}

// Update applies List.Update. On error the current snapshot is kept.
func (s *Store) Update(index int, field Field, value string) (List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.current.Update(index, field, value)
	if err != nil {
		return s.current, err
	}
	s.current = next
	return next, nil
}

// Delete applies List.Delete. On error the current snapshot is kept.
func (s *Store) Delete(index int) (List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.current.Delete(index)
	if err != nil {
		return s.current, err
	}
	s.current = next
	return next, nil
}
