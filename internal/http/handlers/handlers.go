// Handler wiring.
//
// Handlers are transport-thin: they validate input, call the bot or the
// application services, and translate results into HTTP responses.
package handlers

import (
	"context"

	"github.com/tbourn/cptrainer/internal/domain"
	"github.com/tbourn/cptrainer/internal/scheduler"
)

// CommandBot answers chat commands. ok is false when text needs no reply.
type CommandBot interface {
	Handle(ctx context.Context, chatID int64, text string) (reply string, ok bool)
}

// UpdateDeduper records delivered updates. It returns repo.ErrDuplicate when
// the update was already processed.
type UpdateDeduper interface {
	MarkProcessed(ctx context.Context, chatID, updateID int64) error
}

// UserService is the read/admin view of the user directory.
type UserService interface {
	Get(ctx context.Context, handle string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Leaderboard(ctx context.Context, n int) ([]domain.User, error)
	Remove(ctx context.Context, handle string) error
	// Version changes whenever the directory does.
	Version(ctx context.Context) (string, error)
}

// JobRunner triggers scheduled jobs by name.
type JobRunner interface {
	RunNow(ctx context.Context, name string) error
	Upcoming() []scheduler.Entry
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	bot    CommandBot
	dedupe UpdateDeduper
	users  UserService
	jobs   JobRunner
}

// New constructs Handlers bound to the given dependencies.
func New(bot CommandBot, dedupe UpdateDeduper, users UserService, jobs JobRunner) *Handlers {
	return &Handlers{bot: bot, dedupe: dedupe, users: users, jobs: jobs}
}
