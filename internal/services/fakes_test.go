package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/cptrainer/internal/catalog"
	"github.com/tbourn/cptrainer/internal/domain"
	"github.com/tbourn/cptrainer/internal/repo"
	"github.com/tbourn/cptrainer/internal/selector"
	"github.com/tbourn/cptrainer/internal/store"
)

// ---------- catalog ----------

type fakeCatalog struct {
	mu          sync.Mutex
	problems    []domain.Problem
	catalogErr  error
	submissions map[string][]domain.Submission
	statusErr   map[string]error
	profiles    map[string]*domain.Profile
	profileErr  error
	calls       map[string]int
	background  int              // status calls made from job contexts
	now         func() time.Time // stamps submissions
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		submissions: map[string][]domain.Submission{},
		statusErr:   map[string]error{},
		profiles:    map[string]*domain.Profile{},
		calls:       map[string]int{},
	}
}

func (f *fakeCatalog) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeCatalog) FetchCatalog(ctx context.Context) ([]domain.Problem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["catalog"]++
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return f.problems, nil
}

func (f *fakeCatalog) subs(ctx context.Context, handle string) ([]domain.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["status"]++
	if catalog.IsBackground(ctx) {
		f.background++
	}
	if err := f.statusErr[handle]; err != nil {
		return nil, err
	}
	return append([]domain.Submission(nil), f.submissions[handle]...), nil
}

func (f *fakeCatalog) FetchSolvedSet(ctx context.Context, handle string) (domain.SolvedSet, error) {
	subs, err := f.subs(ctx, handle)
	if err != nil {
		return nil, err
	}
	out := domain.SolvedSet{}
	for _, s := range subs {
		if s.Verdict == domain.VerdictOK {
			out[s.Problem.ID()] = struct{}{}
		}
	}
	return out, nil
}

func (f *fakeCatalog) FetchSubmissionsForProblem(ctx context.Context, handle string, p domain.Problem) ([]domain.Submission, error) {
	subs, err := f.subs(ctx, handle)
	if err != nil {
		return nil, err
	}
	var out []domain.Submission
	for _, s := range subs {
		if s.Problem.ID() == p.ID() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeCatalog) FetchUserProfile(ctx context.Context, handle string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["profile"]++
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if p, ok := f.profiles[handle]; ok {
		return p, nil
	}
	return nil, &catalog.APIError{Method: "user.info", Comment: "handles: User with handle " + handle + " not found"}
}

func (f *fakeCatalog) submit(handle string, p domain.Problem, verdict string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var at time.Time
	if f.now != nil {
		at = f.now()
	}
	f.submitAt(handle, p, verdict, at)
}

// submitAt records a submission made at at. Callers hold f.mu.
func (f *fakeCatalog) submitAt(handle string, p domain.Problem, verdict string, at time.Time) {
	f.submissions[handle] = append(f.submissions[handle], domain.Submission{Problem: p, Verdict: verdict, CreatedAt: at})
}

func (f *fakeCatalog) solve(handle string, ps ...*domain.Problem) {
	for _, p := range ps {
		if p != nil {
			f.submit(handle, *p, domain.VerdictOK)
		}
	}
}

// ---------- user directory ----------

type fakeUsers struct {
	mu     sync.Mutex
	nextID uint
	rev    int64 // bumped on every mutation
	byH    map[string]*domain.User
	err    error
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byH: map[string]*domain.User{}} }

func (f *fakeUsers) add(handle string, chatID int64, streak int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.rev++
	f.byH[handle] = &domain.User{ID: f.nextID, Handle: handle, ChatID: chatID, Rating: 800, Streak: streak}
}

func (f *fakeUsers) streak(handle string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byH[handle]; ok {
		return u.Streak
	}
	return -1
}

func (f *fakeUsers) CreateUser(ctx context.Context, db *gorm.DB, handle string, chatID int64, rating int, rank string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byH {
		if u.Handle == handle || u.ChatID == chatID {
			return nil, repo.ErrDuplicate
		}
	}
	f.nextID++
	f.rev++
	u := &domain.User{ID: f.nextID, Handle: handle, ChatID: chatID, Rating: rating, Rank: rank}
	f.byH[handle] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetUserByHandle(ctx context.Context, db *gorm.DB, handle string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byH[handle]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetUserByChatID(ctx context.Context, db *gorm.DB, chatID int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byH {
		if u.ChatID == chatID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeUsers) ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.User, 0, len(f.byH))
	for _, u := range f.byH {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) IncrementStreak(ctx context.Context, db *gorm.DB, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byH[handle]
	if !ok {
		return repo.ErrNotFound
	}
	u.Streak++
	f.rev++
	return nil
}

func (f *fakeUsers) ResetStreak(ctx context.Context, db *gorm.DB, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byH[handle]
	if !ok {
		return repo.ErrNotFound
	}
	u.Streak = 0
	f.rev++
	return nil
}

func (f *fakeUsers) Leaderboard(ctx context.Context, db *gorm.DB, limit int) ([]domain.User, error) {
	all, _ := f.ListUsers(ctx, db)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Streak > all[j].Streak })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeUsers) DeleteUser(ctx context.Context, db *gorm.DB, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byH[handle]; !ok {
		return repo.ErrNotFound
	}
	delete(f.byH, handle)
	f.rev++
	return nil
}

func (f *fakeUsers) UsersStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, nil, f.err
	}
	if len(f.byH) == 0 {
		return 0, nil, nil
	}
	at := time.Unix(f.rev, 0).UTC()
	return int64(len(f.byH)), &at, nil
}

// ---------- notifier ----------

type sent struct {
	ChatID int64
	Text   string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sent
	fail map[int64]bool
}

func (f *fakeNotifier) Notify(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[chatID] {
		return fmt.Errorf("chat %d: blocked by user", chatID)
	}
	f.sent = append(f.sent, sent{chatID, text})
	return nil
}

func (f *fakeNotifier) to(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sent {
		if s.ChatID == chatID {
			out = append(out, s.Text)
		}
	}
	return out
}

// ---------- fixtures ----------

var errUpstream = fmt.Errorf("%w: user.status: HTTP 502", catalog.ErrUpstreamUnavailable)

func rated(r int) *int { return &r }

// testCatalog returns 40 problems at each of 800..1400.
func testCatalog() []domain.Problem {
	var out []domain.Problem
	for r := 800; r <= 1400; r += 100 {
		for c := 0; c < 40; c++ {
			out = append(out, domain.Problem{ContestID: 1500 + c, Index: fmt.Sprintf("R%d", r), Rating: rated(r)})
		}
	}
	return out
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	cat      *fakeCatalog
	users    *fakeUsers
	notifier *fakeNotifier
	store    *store.Assignments
	pending  *store.PendingVerifications
	clock    *clock

	assign *AssignmentService
	verify *VerificationService
	userS  *UserService
	jobs   *DailyJobs
}

const urlBase = "https://codeforces.com/problemset/problem"

func newFixture() *fixture {
	f := &fixture{
		cat:      newFakeCatalog(),
		users:    newFakeUsers(),
		notifier: &fakeNotifier{fail: map[int64]bool{}},
		store:    store.NewAssignments(),
		pending:  store.NewPendingVerifications(),
		clock:    &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.cat.problems = testCatalog()
	f.cat.now = f.clock.Now
	sel := selector.New(0, selector.DefaultExcludedTag, rand.New(rand.NewPCG(42, 43)))

	f.assign = NewAssignmentService(nil, f.users, f.cat, sel, f.store, urlBase)
	f.assign.Now = f.clock.Now

	f.verify = NewVerificationService(nil, f.users, f.cat, sel, f.pending, f.assign, urlBase)
	f.verify.Now = f.clock.Now
	f.verify.NewToken = func() string { return "deadbeef" }

	f.userS = NewUserService(nil, f.users, f.store, f.pending)
	f.jobs = NewDailyJobs(nil, f.users, f.cat, f.assign, f.store, f.notifier)
	return f
}
