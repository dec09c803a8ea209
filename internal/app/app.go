// Package app assembles the trainer from configuration: database, catalog
// client, in-memory stores, services, bot, scheduler and HTTP router.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/cptrainer/internal/bot"
	"github.com/tbourn/cptrainer/internal/catalog"
	"github.com/tbourn/cptrainer/internal/config"
	"github.com/tbourn/cptrainer/internal/domain"
	httpapi "github.com/tbourn/cptrainer/internal/http"
	"github.com/tbourn/cptrainer/internal/http/handlers"
	"github.com/tbourn/cptrainer/internal/notify"
	"github.com/tbourn/cptrainer/internal/repo"
	"github.com/tbourn/cptrainer/internal/scheduler"
	"github.com/tbourn/cptrainer/internal/selector"
	"github.com/tbourn/cptrainer/internal/services"
	"github.com/tbourn/cptrainer/internal/store"
)

// JobPurge deletes expired webhook dedupe rows. The daily jobs register
// under the services.Job* names.
const JobPurge = "purge_updates"

// purgeAt is when expired webhook dedupe rows are deleted.
var purgeAt = scheduler.TimeOfDay{Hour: 4, Minute: 0}

// userRepoShim adapts the repository free functions to services.UserRepo.
type userRepoShim struct{}

func (userRepoShim) CreateUser(ctx context.Context, db *gorm.DB, handle string, chatID int64, rating int, rank string) (*domain.User, error) {
	return repo.CreateUser(ctx, db, handle, chatID, rating, rank)
}

func (userRepoShim) GetUserByHandle(ctx context.Context, db *gorm.DB, handle string) (*domain.User, error) {
	return repo.GetUserByHandle(ctx, db, handle)
}

func (userRepoShim) GetUserByChatID(ctx context.Context, db *gorm.DB, chatID int64) (*domain.User, error) {
	return repo.GetUserByChatID(ctx, db, chatID)
}

func (userRepoShim) ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	return repo.ListUsers(ctx, db)
}

func (userRepoShim) IncrementStreak(ctx context.Context, db *gorm.DB, handle string) error {
	return repo.IncrementStreak(ctx, db, handle)
}

func (userRepoShim) ResetStreak(ctx context.Context, db *gorm.DB, handle string) error {
	return repo.ResetStreak(ctx, db, handle)
}

func (userRepoShim) Leaderboard(ctx context.Context, db *gorm.DB, limit int) ([]domain.User, error) {
	return repo.Leaderboard(ctx, db, limit)
}

func (userRepoShim) DeleteUser(ctx context.Context, db *gorm.DB, handle string) error {
	return repo.DeleteUser(ctx, db, handle)
}

func (userRepoShim) UsersStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.UsersStats(ctx, db)
}

// updateDeduper records processed webhook updates in the database.
type updateDeduper struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

func (d updateDeduper) MarkProcessed(ctx context.Context, chatID, updateID int64) error {
	return repo.CreateProcessedUpdate(ctx, d.db, chatID, updateID, d.ttl, d.now())
}

// App is the assembled process.
type App struct {
	Config config.Config
	DB     *gorm.DB

	Catalog     *catalog.Cached
	Assignments *store.Assignments
	Pending     *store.PendingVerifications

	Users        *services.UserService
	Verification *services.VerificationService
	Training     *services.AssignmentService
	Jobs         *services.DailyJobs

	Bot       *bot.Bot
	Scheduler *scheduler.Scheduler
	Router    *gin.Engine
}

// Options override collaborators, mainly for tests. Zero values select the
// production implementations.
type Options struct {
	Clock    scheduler.Clock
	Notifier services.Notifier
	Now      func() time.Time
}

// New opens and migrates the configured database and assembles the App.
func New(cfg config.Config) (*App, error) {
	db, err := repo.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return Assemble(cfg, db, Options{})
}

// Assemble builds the App on an already migrated database.
func Assemble(cfg config.Config, db *gorm.DB, opts Options) (*App, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.New(cfg.Bot)
	}

	users := userRepoShim{}
	cat := catalog.NewCached(catalog.New(cfg.Catalog), cfg.Catalog.CacheTTL)
	sel := selector.New(cfg.Training.TopK, cfg.Training.ExcludedTag, nil)
	assignments := store.NewAssignments()
	pending := store.NewPendingVerifications()

	training := services.NewAssignmentService(db, users, cat, sel, assignments, cfg.Catalog.ProblemURLBase)
	training.FloorRating = cfg.Training.FloorRating
	training.HardOffset = cfg.Training.HardOffset
	training.Now = now

	verification := services.NewVerificationService(db, users, cat, sel, pending, training, cfg.Catalog.ProblemURLBase)
	verification.TTL = cfg.Training.VerificationTTL
	verification.FloorRating = cfg.Training.FloorRating
	verification.Now = now

	userSvc := services.NewUserService(db, users, assignments, pending)
	userSvc.LeaderboardSize = cfg.Training.LeaderboardSize

	jobs := services.NewDailyJobs(db, users, cat, training, assignments, notifier)
	jobs.Concurrency = cfg.Training.JobConcurrency

	a := &App{
		Config:       cfg,
		DB:           db,
		Catalog:      cat,
		Assignments:  assignments,
		Pending:      pending,
		Users:        userSvc,
		Verification: verification,
		Training:     training,
		Jobs:         jobs,
		Bot:          bot.New(verification, training, userSvc, cfg.Bot.Username),
		Scheduler:    scheduler.New(opts.Clock, cfg.Location()),
	}
	if err := a.registerJobs(now); err != nil {
		return nil, err
	}

	gin.SetMode(cfg.GinMode)
	a.Router = gin.New()
	dedupe := updateDeduper{db: db, ttl: cfg.UpdateDedupeTTL, now: now}
	httpapi.RegisterRoutes(a.Router, handlers.New(a.Bot, dedupe, userSvc, a.Scheduler), cfg)
	return a, nil
}

// registerJobs adds the daily jobs. Reconcile is registered before Rotate so
// that, should both ever fall on the same instant, streaks are settled
// against the outgoing assignments first.
func (a *App) registerJobs(now func() time.Time) error {
	sc := a.Config.Schedule
	reconcileAt, err := scheduler.ParseTimeOfDay(sc.ReconcileAt)
	if err != nil {
		return err
	}
	rotateAt, err := scheduler.ParseTimeOfDay(sc.RotateAt)
	if err != nil {
		return err
	}
	remindAt := make([]scheduler.TimeOfDay, 0, len(sc.RemindAt))
	for _, s := range sc.RemindAt {
		t, err := scheduler.ParseTimeOfDay(s)
		if err != nil {
			return err
		}
		remindAt = append(remindAt, t)
	}

	if err := a.Scheduler.Add(services.JobReconcile, reportJob(a.Jobs.Reconcile), reconcileAt); err != nil {
		return err
	}
	if err := a.Scheduler.Add(services.JobRotate, reportJob(a.Jobs.Rotate), rotateAt); err != nil {
		return err
	}
	if len(remindAt) > 0 {
		if err := a.Scheduler.Add(services.JobRemind, reportJob(a.Jobs.Remind), remindAt...); err != nil {
			return err
		}
	}
	return a.Scheduler.Add(JobPurge, func(ctx context.Context) error {
		n, err := repo.PurgeProcessedUpdates(ctx, a.DB, now())
		if err == nil {
			log.Info().Str("component", "app").Int64("rows", n).Msg("expired updates purged")
		}
		return err
	}, purgeAt)
}

// reportJob adapts a DailyJobs method to a scheduler job. The jobs log
// their own reports.
func reportJob(run func(context.Context) (services.Report, error)) scheduler.JobFunc {
	return func(ctx context.Context) error {
		_, err := run(ctx)
		return err
	}
}

// Close releases the database connection pool.
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
