package discovery

import "sync"

// SeenSet records every address ever accepted in this process.
// It only grows; entries are never removed.
type SeenSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewSeenSet creates an empty set.
func NewSeenSet() *SeenSet {
	return &SeenSet{seen: make(map[string]struct{})}
}

// Add records address and reports whether it was new. The check and the
// insert are one atomic step.
func (s *SeenSet) Add(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[address]; ok {
		return false
	}
	s.seen[address] = struct{}{}
	return true
}

// Contains reports whether address has been recorded.
func (s *SeenSet) Contains(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[address]
	return ok
}

// Len returns the number of recorded addresses.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
