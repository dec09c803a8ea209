// Package selector picks practice problems out of the catalog.
//
// Selection is difficulty-exact (the rounded target rating must match the
// problem rating), never repeats a solved problem, and is biased towards
// recent contests: candidates are ordered newest first and one is drawn
// uniformly from the first TopK.
package selector

import (
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/tbourn/cptrainer/internal/domain"
)

// Defaults used when the zero value is configured.
const (
	DefaultTopK        = 31
	DefaultExcludedTag = "*special"
)

// RoundRating rounds r to the nearest multiple of 100. Halves go to the even
// hundred: 850 -> 800, 950 -> 1000.
func RoundRating(r int) int {
	return int(math.RoundToEven(float64(r)/100)) * 100
}

// Selector draws problems with an injectable random source. It is safe for
// concurrent use.
type Selector struct {
	TopK        int
	ExcludedTag string

	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a Selector. A nil rnd seeds one from the clock.
func New(topK int, excludedTag string, rnd *rand.Rand) *Selector {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if rnd == nil {
		seed := uint64(time.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed>>17|1))
	}
	return &Selector{TopK: topK, ExcludedTag: excludedTag, rnd: rnd}
}

// Candidates returns the problems eligible at target, newest contest first.
// Problems without a rating never qualify.
func (s *Selector) Candidates(catalog []domain.Problem, target int, solved domain.SolvedSet) []domain.Problem {
	want := RoundRating(target)
	var out []domain.Problem
	for _, p := range catalog {
		if p.Rating == nil || *p.Rating != want {
			continue
		}
		if solved.Has(p.ID()) {
			continue
		}
		if s.ExcludedTag != "" && p.HasTag(s.ExcludedTag) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ContestID != out[j].ContestID {
			return out[i].ContestID > out[j].ContestID
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// Select returns one unsolved problem rated exactly RoundRating(target), or
// nil when there is none.
func (s *Selector) Select(catalog []domain.Problem, target int, solved domain.SolvedSet) *domain.Problem {
	cands := s.Candidates(catalog, target, solved)
	if len(cands) == 0 {
		return nil
	}
	hi := s.TopK
	if hi > len(cands) {
		hi = len(cands)
	}
	p := cands[s.intn(hi)]
	return &p
}

// Challenge picks a problem uniformly from the whole catalog, or nil for an
// empty catalog.
func (s *Selector) Challenge(catalog []domain.Problem) *domain.Problem {
	if len(catalog) == 0 {
		return nil
	}
	p := catalog[s.intn(len(catalog))]
	return &p
}

func (s *Selector) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.IntN(n)
}
