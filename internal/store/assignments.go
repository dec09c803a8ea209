// Package store holds the volatile, process-local state of the trainer: the
// current assignment of every user and the pending handle verifications.
//
// Nothing here survives a restart. Each structure is guarded by a single
// map-level lock; callers always receive copies.
package store

import (
	"sort"
	"sync"

	"github.com/tbourn/cptrainer/internal/domain"
)

// AssignmentStore is the keyed store of daily assignments shared by the
// command handlers and the daily jobs.
type AssignmentStore interface {
	// Get returns the assignment of handle, if any.
	Get(handle string) (domain.Assignment, bool)
	// Put replaces the assignment of a.Handle outright.
	Put(a domain.Assignment)
	// Delete removes the assignment of handle.
	Delete(handle string)
	// MarkSolved flags the assignment of handle as solved and reports
	// whether one existed.
	MarkSolved(handle string) bool
	// List returns a snapshot of all assignments ordered by handle.
	List() []domain.Assignment
	// Retain drops every assignment whose handle keep rejects and returns
	// how many were dropped.
	Retain(keep func(handle string) bool) int
}

// Assignments is the in-memory AssignmentStore.
type Assignments struct {
	mu sync.RWMutex
	m  map[string]domain.Assignment
}

var _ AssignmentStore = (*Assignments)(nil)

// NewAssignments returns an empty store.
func NewAssignments() *Assignments {
	return &Assignments{m: make(map[string]domain.Assignment)}
}

func (s *Assignments) Get(handle string) (domain.Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.m[handle]
	return a, ok
}

func (s *Assignments) Put(a domain.Assignment) {
	s.mu.Lock()
	s.m[a.Handle] = a
	s.mu.Unlock()
}

func (s *Assignments) Delete(handle string) {
	s.mu.Lock()
	delete(s.m, handle)
	s.mu.Unlock()
}

func (s *Assignments) MarkSolved(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.m[handle]
	if !ok {
		return false
	}
	a.Solved = true
	s.m[handle] = a
	return true
}

func (s *Assignments) List() []domain.Assignment {
	s.mu.RLock()
	out := make([]domain.Assignment, 0, len(s.m))
	for _, a := range s.m {
		out = append(out, a)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

func (s *Assignments) Retain(keep func(handle string) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for h := range s.m {
		if !keep(h) {
			delete(s.m, h)
			n++
		}
	}
	return n
}

// Len returns the number of stored assignments.
func (s *Assignments) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
