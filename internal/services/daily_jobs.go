// Package services – DailyJobs
//
// DailyJobs implements the three scheduled jobs:
//
//   - Reconcile scores every stored assignment against the live solved set:
//     both problems solved increments the streak, anything else resets it.
//     Users without an assignment are untouched; users whose solved set
//     cannot be fetched are skipped rather than reset.
//   - Rotate issues a fresh assignment to every registered user and pushes it
//     to their chat. Assignments of users no longer registered are dropped.
//   - Remind nudges every user whose stored assignment is not solved yet,
//     checking the solved set live and flagging solved assignments.
//
// The unit of failure isolation is one user: a failed fetch, update or
// delivery is logged and counted, and the job moves on. Per-user work runs
// through a bounded errgroup.
package services

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/cptrainer/internal/catalog"
	"github.com/tbourn/cptrainer/internal/domain"
	"github.com/tbourn/cptrainer/internal/observability"
	"github.com/tbourn/cptrainer/internal/repo"
	"github.com/tbourn/cptrainer/internal/store"
)

// Job names as registered with the scheduler and accepted by the admin API.
const (
	JobReconcile = "reconcile"
	JobRotate    = "rotate"
	JobRemind    = "remind"
)

// DefaultJobConcurrency bounds per-user fan-out when unset.
const DefaultJobConcurrency = 4

// Report summarizes one job run.
type Report struct {
	Job       string `json:"job"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

type tally struct {
	mu sync.Mutex
	r  Report
}

func (t *tally) add(ok, skipped, failed int) {
	t.mu.Lock()
	t.r.Succeeded += ok
	t.r.Skipped += skipped
	t.r.Failed += failed
	t.mu.Unlock()
}

// DailyJobs runs the scheduled reconciliation, rotation and reminders.
type DailyJobs struct {
	DB          *gorm.DB
	Users       UserRepo
	Catalog     Catalog
	Assignments *AssignmentService
	Store       store.AssignmentStore
	Notifier    Notifier

	Concurrency int
}

// NewDailyJobs constructs DailyJobs with the default concurrency.
func NewDailyJobs(db *gorm.DB, users UserRepo, cat Catalog, as *AssignmentService, st store.AssignmentStore, n Notifier) *DailyJobs {
	return &DailyJobs{
		DB:          db,
		Users:       users,
		Catalog:     cat,
		Assignments: as,
		Store:       st,
		Notifier:    n,
		Concurrency: DefaultJobConcurrency,
	}
}

func (j *DailyJobs) group() *errgroup.Group {
	g := new(errgroup.Group)
	n := j.Concurrency
	if n <= 0 {
		n = DefaultJobConcurrency
	}
	g.SetLimit(n)
	return g
}

// startJob opens the job span and marks ctx so catalog calls yield to
// interactive commands.
func startJob(ctx context.Context, name string, total int) (context.Context, trace.Span) {
	tr := otel.Tracer("services/DailyJobs")
	return tr.Start(catalog.Background(ctx), name, trace.WithAttributes(attribute.Int("job.users", total)))
}

// Reconcile updates streaks from the stored assignments.
func (j *DailyJobs) Reconcile(ctx context.Context) (Report, error) {
	list := j.Store.List()
	ctx, span := startJob(ctx, JobReconcile, len(list))
	defer span.End()

	t := &tally{r: Report{Job: JobReconcile, Total: len(list)}}
	g := j.group()
	for _, a := range list {
		a := a
		g.Go(func() error {
			if ctx.Err() != nil {
				t.add(0, 1, 0)
				return nil
			}
			t.add(j.reconcileOne(ctx, a))
			return nil
		})
	}
	_ = g.Wait()

	log.Info().Str("component", "jobs").Str("job", JobReconcile).
		Int("total", t.r.Total).Int("ok", t.r.Succeeded).Int("skipped", t.r.Skipped).Int("failed", t.r.Failed).
		Msg("reconciliation finished")
	return t.r, ctx.Err()
}

func (j *DailyJobs) reconcileOne(ctx context.Context, a domain.Assignment) (ok, skipped, failed int) {
	l := log.With().Str("component", "jobs").Str("job", JobReconcile).Str("handle", a.Handle).Logger()

	solved, err := j.Catalog.FetchSolvedSet(ctx, a.Handle)
	if err != nil {
		l.Warn().Err(err).Msg("solved set unavailable, streak left unchanged")
		observability.ObserveStreak("skipped")
		return 0, 1, 0
	}

	outcome := "reset"
	if a.SolvedBy(solved) {
		outcome = "incremented"
		err = j.Users.IncrementStreak(ctx, j.DB, a.Handle)
	} else {
		err = j.Users.ResetStreak(ctx, j.DB, a.Handle)
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		l.Info().Msg("user no longer registered, skipped")
		observability.ObserveStreak("skipped")
		return 0, 1, 0
	case err != nil:
		l.Error().Err(err).Msg("streak update failed")
		return 0, 0, 1
	}
	l.Debug().Str("outcome", outcome).Msg("streak updated")
	observability.ObserveStreak(outcome)
	return 1, 0, 0
}

// Rotate issues and delivers a fresh assignment to every registered user.
func (j *DailyJobs) Rotate(ctx context.Context) (Report, error) {
	users, err := j.Users.ListUsers(ctx, j.DB)
	if err != nil {
		return Report{Job: JobRotate}, err
	}
	ctx, span := startJob(ctx, JobRotate, len(users))
	defer span.End()

	registered := make(map[string]struct{}, len(users))
	for _, u := range users {
		registered[u.Handle] = struct{}{}
	}

	t := &tally{r: Report{Job: JobRotate, Total: len(users)}}
	g := j.group()
	for _, u := range users {
		u := u
		g.Go(func() error {
			t.add(j.rotateOne(ctx, u))
			return nil
		})
	}
	_ = g.Wait()

	if dropped := j.Store.Retain(func(h string) bool { _, ok := registered[h]; return ok }); dropped > 0 {
		log.Info().Str("component", "jobs").Int("dropped", dropped).Msg("dropped assignments of unregistered users")
	}

	log.Info().Str("component", "jobs").Str("job", JobRotate).
		Int("total", t.r.Total).Int("ok", t.r.Succeeded).Int("failed", t.r.Failed).
		Msg("rotation finished")
	return t.r, ctx.Err()
}

func (j *DailyJobs) rotateOne(ctx context.Context, u domain.User) (ok, skipped, failed int) {
	l := log.With().Str("component", "jobs").Str("job", JobRotate).Str("handle", u.Handle).Int64("chat_id", u.ChatID).Logger()

	a, err := j.Assignments.Issue(ctx, u.Handle)
	if err != nil {
		l.Error().Err(err).Msg("assignment failed")
		return 0, 0, 1
	}
	err = j.Notifier.Notify(ctx, u.ChatID, a.Text)
	observability.ObserveNotification("assignment", err)
	if err != nil {
		l.Warn().Err(err).Msg("failed to deliver assignment")
		return 0, 0, 1
	}
	l.Debug().Msg("assignment sent")
	return 1, 0, 0
}

// Remind nudges every user with an unsolved assignment.
func (j *DailyJobs) Remind(ctx context.Context) (Report, error) {
	list := j.Store.List()
	ctx, span := startJob(ctx, JobRemind, len(list))
	defer span.End()

	t := &tally{r: Report{Job: JobRemind, Total: len(list)}}
	g := j.group()
	for _, a := range list {
		a := a
		if a.Solved {
			t.add(0, 1, 0)
			continue
		}
		g.Go(func() error {
			t.add(j.remindOne(ctx, a))
			return nil
		})
	}
	_ = g.Wait()

	log.Info().Str("component", "jobs").Str("job", JobRemind).
		Int("total", t.r.Total).Int("sent", t.r.Succeeded).Int("skipped", t.r.Skipped).Int("failed", t.r.Failed).
		Msg("reminders finished")
	return t.r, ctx.Err()
}

func (j *DailyJobs) remindOne(ctx context.Context, a domain.Assignment) (ok, skipped, failed int) {
	l := log.With().Str("component", "jobs").Str("job", JobRemind).Str("handle", a.Handle).Logger()

	solved, err := j.Catalog.FetchSolvedSet(ctx, a.Handle)
	if err != nil {
		l.Warn().Err(err).Msg("solved set unavailable, reminding anyway")
	} else if a.SolvedBy(solved) {
		j.Store.MarkSolved(a.Handle)
		return 0, 1, 0
	}

	u, err := j.Users.GetUserByHandle(ctx, j.DB, a.Handle)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn().Msg("user not found in directory, reminder skipped")
			return 0, 1, 0
		}
		l.Error().Err(err).Msg("user lookup failed")
		return 0, 0, 1
	}

	err = j.Notifier.Notify(ctx, u.ChatID, ReminderText(a.Handle))
	observability.ObserveNotification("reminder", err)
	if err != nil {
		l.Warn().Err(err).Int64("chat_id", u.ChatID).Msg("failed to deliver reminder")
		return 0, 0, 1
	}
	return 1, 0, 0
}
