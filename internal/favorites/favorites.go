// Package favorites keeps the user's curated set of currency codes.
package favorites

import "sync"

// Set is an insertion-ordered set of codes. Codes are not validated against
// the rate table; filtering happens when favorites are listed.
type Set struct {
	mu    sync.RWMutex
	codes []string
	index map[string]struct{}
}

// NewSet creates a set holding the given codes, ignoring duplicates.
func NewSet(codes ...string) *Set {
	s := &Set{index: make(map[string]struct{})}
	for _, c := range codes {
		s.Add(c)
	}
	return s
}

// Add inserts code. It reports whether the set changed.
func (s *Set) Add(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[code]; ok {
		return false
	}
	s.index[code] = struct{}{}
	s.codes = append(s.codes, code)
	return true
}

// Remove deletes code. It reports whether the set changed.
func (s *Set) Remove(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[code]; !ok {
		return false
	}
	delete(s.index, code)
	for i, c := range s.codes {
		if c == code {
			s.codes = append(s.codes[:i], s.codes[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether code is in the set.
func (s *Set) Contains(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[code]
	return ok
}

// Codes returns the codes in insertion order.
func (s *Set) Codes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.codes))
	copy(out, s.codes)
	return out
}

// Len returns the number of codes.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.codes)
}
