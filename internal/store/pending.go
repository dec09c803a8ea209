package store

import (
	"sync"

	"github.com/tbourn/cptrainer/internal/domain"
)

// PendingVerifications keeps at most one challenge per handle. Expiry is
// checked lazily by the caller; entries are never swept in the background.
type PendingVerifications struct {
	mu sync.Mutex
	m  map[string]domain.PendingVerification
}

// NewPendingVerifications returns an empty set.
func NewPendingVerifications() *PendingVerifications {
	return &PendingVerifications{m: make(map[string]domain.PendingVerification)}
}

// Put stores p, overwriting any earlier challenge for p.Handle.
func (s *PendingVerifications) Put(p domain.PendingVerification) {
	s.mu.Lock()
	s.m[p.Handle] = p
	s.mu.Unlock()
}

// Get returns the challenge for handle.
func (s *PendingVerifications) Get(handle string) (domain.PendingVerification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[handle]
	return p, ok
}

// Delete removes the challenge for handle.
func (s *PendingVerifications) Delete(handle string) {
	s.mu.Lock()
	delete(s.m, handle)
	s.mu.Unlock()
}

// Len returns the number of stored challenges, expired ones included.
func (s *PendingVerifications) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
