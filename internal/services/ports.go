package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/cptrainer/internal/domain"
)

// Catalog is the upstream problem catalog as seen by the services.
// Every method returns an explicit error; the services decide whether a
// failure degrades to an empty result or fails the operation.
type Catalog interface {
	FetchCatalog(ctx context.Context) ([]domain.Problem, error)
	FetchSolvedSet(ctx context.Context, handle string) (domain.SolvedSet, error)
	FetchSubmissionsForProblem(ctx context.Context, handle string, p domain.Problem) ([]domain.Submission, error)
	FetchUserProfile(ctx context.Context, handle string) (*domain.Profile, error)
}

// UserRepo defines the user directory contract required by the services.
type UserRepo interface {
	// CreateUser registers a verified handle with a zero streak.
	CreateUser(ctx context.Context, db *gorm.DB, handle string, chatID int64, rating int, rank string) (*domain.User, error)

	// GetUserByHandle fetches a user by handle.
	GetUserByHandle(ctx context.Context, db *gorm.DB, handle string) (*domain.User, error)

	// GetUserByChatID fetches the user bound to a chat.
	GetUserByChatID(ctx context.Context, db *gorm.DB, chatID int64) (*domain.User, error)

	// ListUsers returns every registered user.
	ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error)

	// IncrementStreak adds one to the streak of handle.
	IncrementStreak(ctx context.Context, db *gorm.DB, handle string) error

	// ResetStreak sets the streak of handle to zero.
	ResetStreak(ctx context.Context, db *gorm.DB, handle string) error

	// Leaderboard returns the top users by streak.
	Leaderboard(ctx context.Context, db *gorm.DB, limit int) ([]domain.User, error)

	// DeleteUser removes handle from the directory.
	DeleteUser(ctx context.Context, db *gorm.DB, handle string) error

	// UsersStats returns the user count and the latest UpdatedAt.
	UsersStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error)
}

// Notifier pushes a text message to a chat.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// handleRe matches the handles the catalog accepts.
var handleRe = regexp.MustCompile(`^[A-Za-z0-9_.\-]{1,24}$`)

// NormalizeHandle trims h and validates it, returning ErrInvalidHandle for
// anything the catalog would never accept.
func NormalizeHandle(h string) (string, error) {
	h = strings.TrimSpace(h)
	if !handleRe.MatchString(h) {
		return "", ErrInvalidHandle
	}
	return h, nil
}
