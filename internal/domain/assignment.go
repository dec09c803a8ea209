package domain

import "time"

// PendingVerification is an in-flight ownership challenge for a handle,
// bound to the chat that requested it.
type PendingVerification struct {
	Handle   string
	ChatID   int64
	Token    string
	Problem  Problem
	IssuedAt time.Time
}

// Expired reports whether more than ttl has elapsed since the challenge was
// issued. Exactly ttl is still valid.
func (p PendingVerification) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(p.IssuedAt) > ttl
}

// Assignment is the daily task of one user: an easy and a hard problem, either
// of which may be missing when the catalog had no candidate at that rating.
type Assignment struct {
	Handle     string
	Text       string
	Easy       *Problem
	Hard       *Problem
	AssignedAt time.Time
	Solved     bool
}

// ProblemIDs returns the ids of the assigned problems; a missing problem
// yields an empty string.
func (a Assignment) ProblemIDs() (easy, hard string) {
	if a.Easy != nil {
		easy = a.Easy.ID()
	}
	if a.Hard != nil {
		hard = a.Hard.ID()
	}
	return easy, hard
}

// SolvedBy reports whether both assigned problems are present and contained in
// solved.
func (a Assignment) SolvedBy(solved SolvedSet) bool {
	easy, hard := a.ProblemIDs()
	return easy != "" && hard != "" && solved.Has(easy) && solved.Has(hard)
}
