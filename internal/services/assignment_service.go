// Package services – AssignmentService
//
// AssignmentService computes and stores the daily problem pair of a user and
// answers status queries about it. Upstream failures never fail these
// operations: an unavailable catalog yields no candidates, an unavailable
// solved set is treated as empty and an unavailable profile falls back to the
// floor rating. Each degrade decision is logged.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/cptrainer/internal/domain"
	"github.com/tbourn/cptrainer/internal/repo"
	"github.com/tbourn/cptrainer/internal/selector"
	"github.com/tbourn/cptrainer/internal/store"
)

// Status is the outcome of a current-assignment query.
type Status int

const (
	// StatusCompleted means no assignment is stored: either today's pair was
	// already scored or a new one has not been issued yet.
	StatusCompleted Status = iota
	// StatusSolved means both assigned problems are in the solved set.
	StatusSolved
	// StatusPending means at least one problem is still open.
	StatusPending
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusSolved:
		return "solved"
	case StatusPending:
		return "pending"
	default:
		return "unknown"
	}
}

// Default difficulty settings.
const (
	DefaultFloorRating = 800
	DefaultHardOffset  = 200
)

// AssignmentService issues and queries daily assignments.
type AssignmentService struct {
	DB       *gorm.DB
	Users    UserRepo
	Catalog  Catalog
	Selector *selector.Selector
	Store    store.AssignmentStore

	// ProblemURLBase prefixes rendered problem links.
	ProblemURLBase string
	// FloorRating is the base rating of unrated or unknown accounts and the
	// lower clamp for rated ones.
	FloorRating int
	// HardOffset is added to the base rating for the hard problem.
	HardOffset int

	Now func() time.Time
}

// NewAssignmentService constructs an AssignmentService with default difficulty
// settings.
func NewAssignmentService(db *gorm.DB, users UserRepo, cat Catalog, sel *selector.Selector, st store.AssignmentStore, urlBase string) *AssignmentService {
	return &AssignmentService{
		DB:             db,
		Users:          users,
		Catalog:        cat,
		Selector:       sel,
		Store:          st,
		ProblemURLBase: urlBase,
		FloorRating:    DefaultFloorRating,
		HardOffset:     DefaultHardOffset,
		Now:            time.Now,
	}
}

// Pair is the result of AssignPair. Either problem may be nil when the
// catalog had no unsolved candidate at that rating.
type Pair struct {
	Easy, Hard             *domain.Problem
	EasyTarget, HardTarget int
}

// AssignPair selects an easy problem at the user's base rating and a hard one
// at base+HardOffset, both unsolved by handle.
func (s *AssignmentService) AssignPair(ctx context.Context, handle string) Pair {
	tr := otel.Tracer("services/AssignmentService")
	ctx, span := tr.Start(ctx, "AssignPair", trace.WithAttributes(attribute.String("user.handle", handle)))
	defer span.End()

	problems, err := s.Catalog.FetchCatalog(ctx)
	if err != nil {
		log.Warn().Str("component", "assignments").Err(err).Str("handle", handle).Msg("catalog unavailable, no candidates")
		problems = nil
	}
	solved, err := s.Catalog.FetchSolvedSet(ctx, handle)
	if err != nil {
		log.Warn().Str("component", "assignments").Err(err).Str("handle", handle).Msg("solved set unavailable, assuming none")
		solved = nil
	}

	base := s.floor()
	prof, err := s.Catalog.FetchUserProfile(ctx, handle)
	switch {
	case err != nil:
		log.Warn().Str("component", "assignments").Err(err).Str("handle", handle).Msg("profile unavailable, using floor rating")
	case prof != nil && prof.Rating != nil && *prof.Rating > base:
		base = *prof.Rating
	}

	p := Pair{
		EasyTarget: selector.RoundRating(base),
		HardTarget: selector.RoundRating(base + s.HardOffset),
	}
	p.Easy = s.Selector.Select(problems, base, solved)
	p.Hard = s.Selector.Select(problems, base+s.HardOffset, solved)
	span.SetAttributes(
		attribute.Int("rating.base", base),
		attribute.Bool("pair.easy_found", p.Easy != nil),
		attribute.Bool("pair.hard_found", p.Hard != nil),
	)
	return p
}

// Issue computes a fresh pair for handle, renders it and replaces the stored
// assignment outright.
func (s *AssignmentService) Issue(ctx context.Context, handle string) (domain.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Assignment{}, err
	}
	p := s.AssignPair(ctx, handle)
	a := domain.Assignment{
		Handle:     handle,
		Text:       renderAssignment(s.ProblemURLBase, p.Easy, p.Hard, p.EasyTarget, p.HardTarget),
		Easy:       p.Easy,
		Hard:       p.Hard,
		AssignedAt: s.now(),
	}
	s.Store.Put(a)
	return a, nil
}

// Current returns the stored assignment of handle.
func (s *AssignmentService) Current(handle string) (domain.Assignment, bool) {
	return s.Store.Get(handle)
}

// QueryStatus reports the state of handle's assignment. For StatusPending the
// stored assignment text is returned. A StatusSolved result also flags the
// stored record as solved.
func (s *AssignmentService) QueryStatus(ctx context.Context, handle string) (Status, string, error) {
	tr := otel.Tracer("services/AssignmentService")
	ctx, span := tr.Start(ctx, "QueryStatus", trace.WithAttributes(attribute.String("user.handle", handle)))
	defer span.End()

	if _, err := s.Users.GetUserByHandle(ctx, s.DB, handle); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, "", ErrNotRegistered
		}
		return 0, "", err
	}

	a, ok := s.Store.Get(handle)
	if !ok {
		return StatusCompleted, "", nil
	}

	solved, err := s.Catalog.FetchSolvedSet(ctx, handle)
	if err != nil {
		log.Warn().Str("component", "assignments").Err(err).Str("handle", handle).Msg("solved set unavailable, showing assignment")
	}
	if a.SolvedBy(solved) {
		s.Store.MarkSolved(handle)
		return StatusSolved, "", nil
	}
	return StatusPending, a.Text, nil
}

func (s *AssignmentService) floor() int {
	if s.FloorRating > 0 {
		return s.FloorRating
	}
	return DefaultFloorRating
}

func (s *AssignmentService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
