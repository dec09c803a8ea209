// Package services – UserService
//
// UserService answers streak and leaderboard queries against the user
// directory and performs administrative removal.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/cptrainer/internal/domain"
	"github.com/tbourn/cptrainer/internal/repo"
	"github.com/tbourn/cptrainer/internal/store"
)

// DefaultLeaderboardSize is used when a non-positive size is requested.
const DefaultLeaderboardSize = 10

// MaxLeaderboardSize caps leaderboard requests.
const MaxLeaderboardSize = 100

// UserService provides user-level queries and administration.
type UserService struct {
	DB          *gorm.DB
	Users       UserRepo
	Assignments store.AssignmentStore
	Pending     *store.PendingVerifications

	LeaderboardSize int
}

// NewUserService constructs a UserService with the default leaderboard size.
func NewUserService(db *gorm.DB, users UserRepo, as store.AssignmentStore, pending *store.PendingVerifications) *UserService {
	return &UserService{
		DB:              db,
		Users:           users,
		Assignments:     as,
		Pending:         pending,
		LeaderboardSize: DefaultLeaderboardSize,
	}
}

// Get returns the registered user with handle, or ErrNotRegistered.
func (s *UserService) Get(ctx context.Context, handle string) (*domain.User, error) {
	u, err := s.Users.GetUserByHandle(ctx, s.DB, handle)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, err
	}
	return u, nil
}

// Streak returns the current streak of handle.
func (s *UserService) Streak(ctx context.Context, handle string) (int, error) {
	u, err := s.Get(ctx, handle)
	if err != nil {
		return 0, err
	}
	return u.Streak, nil
}

// StreakForChat resolves the user registered from chatID.
func (s *UserService) StreakForChat(ctx context.Context, chatID int64) (*domain.User, error) {
	u, err := s.Users.GetUserByChatID(ctx, s.DB, chatID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, err
	}
	return u, nil
}

// Leaderboard returns up to n users by streak descending. n <= 0 selects
// the configured default; n is capped at MaxLeaderboardSize.
func (s *UserService) Leaderboard(ctx context.Context, n int) ([]domain.User, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Leaderboard", trace.WithAttributes(attribute.Int("limit.requested", n)))
	defer span.End()

	if n <= 0 {
		n = s.LeaderboardSize
		if n <= 0 {
			n = DefaultLeaderboardSize
		}
	}
	if n > MaxLeaderboardSize {
		n = MaxLeaderboardSize
	}
	return s.Users.Leaderboard(ctx, s.DB, n)
}

// Version returns an opaque token that changes whenever the directory does.
// It backs conditional leaderboard responses.
func (s *UserService) Version(ctx context.Context) (string, error) {
	count, maxAt, err := s.Users.UsersStats(ctx, s.DB)
	if err != nil {
		return "", err
	}
	var at int64
	if maxAt != nil {
		at = maxAt.UTC().UnixNano()
	}
	return fmt.Sprintf("%d-%s", count, time.Unix(0, at).UTC().Format("20060102T150405.000000000")), nil
}

// List returns every registered user.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.Users.ListUsers(ctx, s.DB)
}

// Remove deletes handle from the directory and drops its in-memory
// assignment and pending verification.
func (s *UserService) Remove(ctx context.Context, handle string) error {
	if err := s.Users.DeleteUser(ctx, s.DB, handle); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotRegistered
		}
		return err
	}
	if s.Assignments != nil {
		s.Assignments.Delete(handle)
	}
	if s.Pending != nil {
		s.Pending.Delete(handle)
	}
	return nil
}
