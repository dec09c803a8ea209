// Package scheduler runs named jobs at fixed local wall-clock times.
//
// Semantics follow cron: each job fires once per day at each of its times in
// the configured location. Jobs never run concurrently with each other; jobs
// due at the same instant run in registration order. A trigger that passes
// while another job is still running fires as soon as that job returns; a
// trigger that passes while the process is down is skipped.
//
// Time comes from a Clock so tests can drive the loop with a FakeClock.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/cptrainer/internal/observability"
)

var (
	// ErrUnknownJob is returned by RunNow for names that were never added.
	ErrUnknownJob = errors.New("unknown job")
	// ErrDuplicateJob is returned by Add when the name is already taken.
	ErrDuplicateJob = errors.New("job already registered")
	// ErrNoTimes is returned by Add when no trigger time is given.
	ErrNoTimes = errors.New("job needs at least one trigger time")
)

// TimeOfDay is a local wall-clock time with minute precision.
type TimeOfDay struct {
	Hour, Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses "HH:MM" (24h).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("time of day %q: want HH:MM", s)
	}
	h, err1 := strconv.Atoi(hh)
	m, err2 := strconv.Atoi(mm)
	if err1 != nil || err2 != nil || len(mm) != 2 || h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q: want HH:MM", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

// MustParseTimes parses every entry or panics.
func MustParseTimes(ss ...string) []TimeOfDay {
	out := make([]TimeOfDay, 0, len(ss))
	for _, s := range ss {
		t, err := ParseTimeOfDay(s)
		if err != nil {
			panic(err)
		}
		out = append(out, t)
	}
	return out
}

// NextRun returns the first instant strictly after now at which the local
// time in loc reads at.
func NextRun(now time.Time, at TimeOfDay, loc *time.Location) time.Time {
	local := now.In(loc)
	y, m, d := local.Date()
	next := time.Date(y, m, d, at.Hour, at.Minute, 0, 0, loc)
	if !next.After(now) {
		next = time.Date(y, m, d+1, at.Hour, at.Minute, 0, 0, loc)
	}
	return next
}

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) error

type job struct {
	name  string
	times []TimeOfDay
	fn    JobFunc
}

// Scheduler runs registered jobs on their daily triggers.
type Scheduler struct {
	clock Clock
	loc   *time.Location

	mu   sync.Mutex // guards jobs
	jobs []*job

	runMu sync.Mutex // held while any job runs

	stopCh chan struct{}
	doneCh chan struct{}
}

// New returns a Scheduler evaluating triggers in loc (UTC when nil).
func New(clock Clock, loc *time.Location) *Scheduler {
	if clock == nil {
		clock = RealClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{clock: clock, loc: loc}
}

// Location returns the zone triggers are evaluated in.
func (s *Scheduler) Location() *time.Location { return s.loc }

// Add registers fn under name to fire daily at each of times.
func (s *Scheduler) Add(name string, fn JobFunc, times ...TimeOfDay) error {
	if len(times) == 0 {
		return ErrNoTimes
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.name == name {
			return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
		}
	}
	s.jobs = append(s.jobs, &job{name: name, times: append([]TimeOfDay(nil), times...), fn: fn})
	return nil
}

// Jobs returns the registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.name)
	}
	return out
}

// Entry is one upcoming trigger.
type Entry struct {
	Job  string    `json:"job"`
	Next time.Time `json:"next"`
}

// Upcoming returns the next trigger of every job, soonest first.
func (s *Scheduler) Upcoming() []Entry {
	now := s.clock.Now()
	s.mu.Lock()
	out := make([]Entry, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, Entry{Job: j.name, Next: s.nextOf(j, now)})
	}
	s.mu.Unlock()
	sort.SliceStable(out, func(a, b int) bool { return out[a].Next.Before(out[b].Next) })
	return out
}

func (s *Scheduler) nextOf(j *job, now time.Time) time.Time {
	var best time.Time
	for _, t := range j.times {
		n := NextRun(now, t, s.loc)
		if best.IsZero() || n.Before(best) {
			best = n
		}
	}
	return best
}

// due returns the earliest trigger instant after now and the jobs firing at
// it, in registration order.
func (s *Scheduler) due(now time.Time) (time.Time, []*job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		next time.Time
		out  []*job
	)
	for _, j := range s.jobs {
		n := s.nextOf(j, now)
		switch {
		case next.IsZero() || n.Before(next):
			next, out = n, []*job{j}
		case n.Equal(next):
			out = append(out, j)
		}
	}
	return next, out
}

// overdue returns the jobs with a trigger in (since, now], ordered by that
// trigger and then by registration.
func (s *Scheduler) overdue(since, now time.Time) []*job {
	s.mu.Lock()
	defer s.mu.Unlock()
	type hit struct {
		j  *job
		at time.Time
	}
	var hits []hit
	for _, j := range s.jobs {
		if at := s.nextOf(j, since); !at.After(now) {
			hits = append(hits, hit{j, at})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].at.Before(hits[b].at) })
	out := make([]*job, len(hits))
	for i, h := range hits {
		out[i] = h.j
	}
	return out
}

// runBatch runs jobs one after another. It reports false once ctx is done.
func (s *Scheduler) runBatch(ctx context.Context, jobs []*job, trigger string) bool {
	for _, j := range jobs {
		if ctx.Err() != nil {
			return false
		}
		s.runMu.Lock()
		_ = s.exec(ctx, j, trigger)
		s.runMu.Unlock()
	}
	return ctx.Err() == nil
}

// Run drives the scheduler until ctx is canceled. It returns nil on
// cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	now := s.clock.Now()
	for {
		next, jobs := s.due(now)
		if len(jobs) == 0 {
			<-ctx.Done()
			return nil
		}
		log.Debug().Str("component", "scheduler").Time("next", next).Int("jobs", len(jobs)).Msg("waiting for next trigger")

		select {
		case <-ctx.Done():
			return nil
		case <-s.clock.After(next.Sub(now)):
		}

		if !s.runBatch(ctx, jobs, "schedule") {
			return nil
		}

		// Catch up on triggers that passed while the batch was running.
		since := next
		for {
			now = s.clock.Now()
			late := s.overdue(since, now)
			if len(late) == 0 {
				break
			}
			log.Warn().Str("component", "scheduler").Int("jobs", len(late)).Msg("running triggers delayed by a long job")
			if !s.runBatch(ctx, late, "delayed") {
				return nil
			}
			since = now
		}
	}
}

// Start runs the loop in a goroutine until Stop is called or ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		<-s.stopCh
		cancel()
	}()
	go func() {
		defer close(s.doneCh)
		defer cancel()
		_ = s.Run(ctx)
	}()
}

// Stop ends the loop started by Start and waits for a running job to return.
func (s *Scheduler) Stop() {
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	s.stopCh = nil
}

// RunNow runs the named job immediately, waiting for any running job first.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	var target *job
	for _, j := range s.jobs {
		if j.name == name {
			target = j
			break
		}
	}
	s.mu.Unlock()
	if target == nil {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.exec(ctx, target, "manual")
}

// exec runs one job, recovering panics and recording the outcome.
func (s *Scheduler) exec(ctx context.Context, j *job, trigger string) (err error) {
	ctx, span := observability.Tracer("scheduler").Start(ctx, "job."+j.name, trace.WithAttributes(
		attribute.String("job.name", j.name),
		attribute.String("job.trigger", trigger),
	))
	start := s.clock.Now()
	status := "ok"
	l := log.With().Str("component", "scheduler").Str("job", j.name).Str("trigger", trigger).Logger()

	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			err = fmt.Errorf("job %s panicked: %v", j.name, r)
		}
		took := s.clock.Now().Sub(start)
		if err != nil {
			if status == "ok" {
				status = "error"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			l.Error().Err(err).Dur("took", took).Msg("job failed")
		} else {
			l.Info().Dur("took", took).Msg("job finished")
		}
		observability.ObserveJob(j.name, status, took)
		span.End()
	}()

	l.Info().Msg("job started")
	return j.fn(ctx)
}
