package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/cptrainer/internal/domain"
	"github.com/tbourn/cptrainer/internal/repo"
	"github.com/tbourn/cptrainer/internal/scheduler"
	"github.com/tbourn/cptrainer/internal/services"
)

type fakeBot struct {
	mu    sync.Mutex
	calls []string
	reply string
	skip  bool
}

func (b *fakeBot) Handle(_ context.Context, chatID int64, text string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, text)
	if b.skip {
		return "", false
	}
	return b.reply, true
}

type fakeDeduper struct {
	seen map[[2]int64]bool
	err  error
}

func (d *fakeDeduper) MarkProcessed(_ context.Context, chatID, updateID int64) error {
	if d.err != nil {
		return d.err
	}
	if d.seen == nil {
		d.seen = map[[2]int64]bool{}
	}
	k := [2]int64{chatID, updateID}
	if d.seen[k] {
		return repo.ErrDuplicate
	}
	d.seen[k] = true
	return nil
}

type fakeUsers struct {
	users   []domain.User
	err     error
	removed []string
	limit   int
	version string
	verErr  error
}

func (f *fakeUsers) Version(context.Context) (string, error) {
	return f.version, f.verErr
}

func (f *fakeUsers) Get(_ context.Context, handle string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.users {
		if f.users[i].Handle == handle {
			u := f.users[i]
			return &u, nil
		}
	}
	return nil, services.ErrNotRegistered
}

func (f *fakeUsers) List(context.Context) ([]domain.User, error) {
	return f.users, f.err
}

func (f *fakeUsers) Leaderboard(_ context.Context, n int) ([]domain.User, error) {
	f.limit = n
	return f.users, f.err
}

func (f *fakeUsers) Remove(_ context.Context, handle string) error {
	if f.err != nil {
		return f.err
	}
	for _, u := range f.users {
		if u.Handle == handle {
			f.removed = append(f.removed, handle)
			return nil
		}
	}
	return services.ErrNotRegistered
}

type fakeJobs struct {
	ran []string
	err error
}

func (j *fakeJobs) RunNow(_ context.Context, name string) error {
	switch name {
	case "reconcile", "rotate", "remind":
	default:
		return scheduler.ErrUnknownJob
	}
	j.ran = append(j.ran, name)
	return j.err
}

func (j *fakeJobs) Upcoming() []scheduler.Entry {
	return []scheduler.Entry{{Job: "rotate", Next: time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)}}
}

var errBoom = errors.New("boom")

func newEngine(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook", h.Webhook)
	r.GET("/leaderboard", h.Leaderboard)
	r.GET("/users/:handle/streak", h.Streak)
	r.GET("/admin/jobs", h.ListJobs)
	r.POST("/admin/jobs/:name", h.RunJob)
	r.GET("/admin/users", h.ListUsers)
	r.DELETE("/admin/users/:handle", h.RemoveUser)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
