// Package services – VerificationService
//
// VerificationService proves that a chat user controls a catalog account.
// Begin hands out a random challenge problem and a short token to the
// requesting chat; the user submits a compilation error on that problem and
// calls Complete from the same chat. Only COMPILATION_ERROR verdicts created
// at or after Begin count. The challenge is valid for TTL after Begin;
// expiry is evaluated lazily when Complete is called.
//
//	NoPending --Begin--> Pending --Complete--> Verified (user registered)
//	                        |  \--Complete, deadline passed--> Expired (entry deleted)
//	                        \--Complete, no CE yet--> Pending (entry kept)
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/cptrainer/internal/catalog"
	"github.com/tbourn/cptrainer/internal/domain"
	"github.com/tbourn/cptrainer/internal/observability"
	"github.com/tbourn/cptrainer/internal/repo"
	"github.com/tbourn/cptrainer/internal/selector"
	"github.com/tbourn/cptrainer/internal/store"
)

// DefaultVerificationTTL is how long a challenge stays valid.
const DefaultVerificationTTL = 5 * time.Minute

// Challenge is what the user needs to complete a verification.
type Challenge struct {
	Handle   string
	Token    string
	Problem  domain.Problem
	URL      string
	Deadline time.Time
	TTL      time.Duration
}

// VerificationService runs the handle verification state machine.
type VerificationService struct {
	DB          *gorm.DB
	Users       UserRepo
	Catalog     Catalog
	Selector    *selector.Selector
	Pending     *store.PendingVerifications
	Assignments *AssignmentService

	TTL            time.Duration
	ProblemURLBase string
	FloorRating    int

	Now      func() time.Time
	NewToken func() string
}

// NewVerificationService constructs a VerificationService with the default
// TTL and UUID-derived tokens.
func NewVerificationService(db *gorm.DB, users UserRepo, cat Catalog, sel *selector.Selector, pending *store.PendingVerifications, as *AssignmentService, urlBase string) *VerificationService {
	return &VerificationService{
		DB:             db,
		Users:          users,
		Catalog:        cat,
		Selector:       sel,
		Pending:        pending,
		Assignments:    as,
		TTL:            DefaultVerificationTTL,
		ProblemURLBase: urlBase,
		FloorRating:    DefaultFloorRating,
		Now:            time.Now,
		NewToken:       shortToken,
	}
}

// shortToken returns the first 8 characters of a random UUID.
func shortToken() string {
	return uuid.NewString()[:8]
}

// Begin starts (or restarts) verification of handle for chatID, overwriting
// any earlier challenge. It returns ErrCatalogUnavailable when no challenge
// problem can be chosen.
func (s *VerificationService) Begin(ctx context.Context, handle string, chatID int64) (*Challenge, error) {
	tr := otel.Tracer("services/VerificationService")
	ctx, span := tr.Start(ctx, "Begin", trace.WithAttributes(
		attribute.String("user.handle", handle),
		attribute.Int64("chat.id", chatID),
	))
	defer span.End()

	handle, err := NormalizeHandle(handle)
	if err != nil {
		return nil, err
	}

	problems, err := s.Catalog.FetchCatalog(ctx)
	if err != nil {
		log.Warn().Str("component", "verification").Err(err).Str("handle", handle).Msg("catalog fetch failed")
	}
	p := s.Selector.Challenge(problems)
	if p == nil {
		observability.ObserveVerification("error")
		return nil, ErrCatalogUnavailable
	}

	now := s.now()
	pv := domain.PendingVerification{
		Handle:   handle,
		ChatID:   chatID,
		Token:    s.token(),
		Problem:  *p,
		IssuedAt: now,
	}
	s.Pending.Put(pv)
	observability.ObserveVerification("started")

	return &Challenge{
		Handle:   handle,
		Token:    pv.Token,
		Problem:  pv.Problem,
		URL:      catalog.ProblemURL(s.ProblemURLBase, pv.Problem),
		Deadline: now.Add(s.ttl()),
		TTL:      s.ttl(),
	}, nil
}

// Complete checks the pending challenge of handle. On success the user is
// registered with chatID, a first assignment is issued and returned, and the
// pending entry is consumed.
//
// Errors: ErrNoPendingVerification (also when chatID is not the chat that
// called Begin; the entry is kept), ErrVerificationExpired (entry deleted),
// ErrVerificationNotYetSatisfied (entry kept), ErrDuplicateUser (entry
// deleted, no assignment issued).
func (s *VerificationService) Complete(ctx context.Context, handle string, chatID int64) (domain.Assignment, error) {
	tr := otel.Tracer("services/VerificationService")
	ctx, span := tr.Start(ctx, "Complete", trace.WithAttributes(
		attribute.String("user.handle", handle),
		attribute.Int64("chat.id", chatID),
	))
	defer span.End()

	handle, err := NormalizeHandle(handle)
	if err != nil {
		return domain.Assignment{}, err
	}

	pv, ok := s.Pending.Get(handle)
	if ok && pv.ChatID != chatID {
		log.Warn().Str("component", "verification").Str("handle", handle).Int64("chat_id", chatID).Msg("completion from a foreign chat")
		ok = false
	}
	if !ok {
		observability.ObserveVerification("not_found")
		return domain.Assignment{}, ErrNoPendingVerification
	}
	if pv.Expired(s.now(), s.ttl()) {
		s.Pending.Delete(handle)
		observability.ObserveVerification("expired")
		return domain.Assignment{}, ErrVerificationExpired
	}

	subs, err := s.Catalog.FetchSubmissionsForProblem(ctx, handle, pv.Problem)
	if err != nil {
		log.Warn().Str("component", "verification").Err(err).Str("handle", handle).Msg("submission fetch failed")
	}
	if !hasVerdictSince(subs, domain.VerdictCompilationError, pv.IssuedAt) {
		observability.ObserveVerification("pending")
		return domain.Assignment{}, ErrVerificationNotYetSatisfied
	}

	rating, rank := s.FloorRating, ""
	if prof, err := s.Catalog.FetchUserProfile(ctx, handle); err != nil {
		log.Warn().Str("component", "verification").Err(err).Str("handle", handle).Msg("profile unavailable, using floor rating")
	} else if prof != nil {
		if prof.Rating != nil {
			rating = *prof.Rating
		}
		rank = prof.Rank
	}

	if _, err := s.Users.CreateUser(ctx, s.DB, handle, chatID, rating, rank); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			s.Pending.Delete(handle)
			observability.ObserveVerification("duplicate")
			return domain.Assignment{}, ErrDuplicateUser
		}
		observability.ObserveVerification("error")
		return domain.Assignment{}, err
	}

	a, err := s.Assignments.Issue(ctx, handle)
	s.Pending.Delete(handle)
	if err != nil {
		return domain.Assignment{}, err
	}
	observability.ObserveVerification("verified")
	log.Info().Str("component", "verification").Str("handle", handle).Int64("chat_id", chatID).Msg("handle verified")
	return a, nil
}

// hasVerdictSince reports whether a submission with verdict was created at or
// after since. Submission times have second precision.
func hasVerdictSince(subs []domain.Submission, verdict string, since time.Time) bool {
	since = since.Truncate(time.Second)
	for _, s := range subs {
		if s.Verdict == verdict && !s.CreatedAt.Before(since) {
			return true
		}
	}
	return false
}

func (s *VerificationService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultVerificationTTL
}

func (s *VerificationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *VerificationService) token() string {
	if s.NewToken != nil {
		return s.NewToken()
	}
	return shortToken()
}
