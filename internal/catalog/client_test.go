package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/cptrainer/internal/config"
	"github.com/tbourn/cptrainer/internal/domain"
)

const problemsetJSON = `{"status":"OK","result":{"problems":[
 {"contestId":1843,"index":"C","name":"Sum in Binary Tree","rating":800,"tags":["implementation","trees"]},
 {"contestId":1842,"index":"A","name":"Tenzing and Tsondu","tags":[]},
 {"contestId":1841,"index":"B","name":"Special","rating":3500,"tags":["*special"]}
]}}`

const statusJSON = `{"status":"OK","result":[
 {"id":3,"creationTimeSeconds":1700000300,"verdict":"OK","problem":{"contestId":1843,"index":"C"}},
 {"id":2,"creationTimeSeconds":1700000200,"verdict":"COMPILATION_ERROR","problem":{"contestId":1842,"index":"A"}},
 {"id":1,"creationTimeSeconds":1700000100,"verdict":"WRONG_ANSWER","problem":{"contestId":1843,"index":"C"}},
 {"id":0,"creationTimeSeconds":1700000000,"verdict":"WRONG_ANSWER","problem":{"contestId":1841,"index":"B"}}
]}`

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(config.CatalogConfig{BaseURL: srv.URL + "/", Timeout: 5 * time.Second})
}

func TestFetchCatalog_DecodesProblems(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/problemset.problems", r.URL.Path)
		fmt.Fprint(w, problemsetJSON)
	})

	ps, err := c.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, ps, 3)

	assert.Equal(t, "1843_C", ps[0].ID())
	require.NotNil(t, ps[0].Rating)
	assert.Equal(t, 800, *ps[0].Rating)
	assert.Nil(t, ps[1].Rating, "unrated problems keep a nil rating")
	assert.True(t, ps[2].HasTag("*special"))
}

func TestFetchSolvedSet_OnlyAcceptedVerdicts(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user.status", r.URL.Path)
		assert.Equal(t, "alice", r.URL.Query().Get("handle"))
		fmt.Fprint(w, statusJSON)
	})

	solved, err := c.FetchSolvedSet(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, solved, 1)
	assert.True(t, solved.Has("1843_C"))
	assert.False(t, solved.Has("1842_A"))
}

func TestFetchSubmissionsForProblem_FiltersByProblem(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, statusJSON)
	})

	subs, err := c.FetchSubmissionsForProblem(context.Background(), "alice", domain.Problem{ContestID: 1843, Index: "C"})
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, domain.VerdictOK, subs[0].Verdict)
	assert.Equal(t, "WRONG_ANSWER", subs[1].Verdict)
	assert.Equal(t, time.Unix(1700000300, 0).UTC(), subs[0].CreatedAt)

	subs, err = c.FetchSubmissionsForProblem(context.Background(), "alice", domain.Problem{ContestID: 1842, Index: "A"})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, domain.VerdictCompilationError, subs[0].Verdict)
}

func TestFetchUserProfile(t *testing.T) {
	t.Run("rated", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/user.info", r.URL.Path)
			assert.Equal(t, "tourist", r.URL.Query().Get("handles"))
			fmt.Fprint(w, `{"status":"OK","result":[{"handle":"tourist","rating":3800,"rank":"legendary grandmaster"}]}`)
		})
		p, err := c.FetchUserProfile(context.Background(), "tourist")
		require.NoError(t, err)
		require.NotNil(t, p.Rating)
		assert.Equal(t, 3800, *p.Rating)
		assert.Equal(t, "legendary grandmaster", p.Rank)
	})

	t.Run("unrated", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"OK","result":[{"handle":"newbie1"}]}`)
		})
		p, err := c.FetchUserProfile(context.Background(), "newbie1")
		require.NoError(t, err)
		assert.Nil(t, p.Rating)
		assert.Equal(t, "newbie1", p.Handle)
	})

	t.Run("unknown handle is an APIError", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"status":"FAILED","comment":"handles: User with handle ghost not found"}`)
		})
		_, err := c.FetchUserProfile(context.Background(), "ghost")
		require.Error(t, err)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "user.info", apiErr.Method)
		assert.Contains(t, apiErr.Comment, "not found")
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	})

	t.Run("empty result", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"OK","result":[]}`)
		})
		_, err := c.FetchUserProfile(context.Background(), "x")
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	})
}

func TestCall_Failures(t *testing.T) {
	cases := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"http 503", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, "<html>down</html>")
		}},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"OK","result":`)
		}},
		{"unexpected status", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"WAT"}`)
		}},
		{"result shape mismatch", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"OK","result":{"problems":"nope"}}`)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestServer(t, tc.h)
			ps, err := c.FetchCatalog(context.Background())
			assert.Nil(t, ps)
			assert.ErrorIs(t, err, ErrUpstreamUnavailable)
		})
	}
}

func TestCall_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing listens any more

	c := New(config.CatalogConfig{BaseURL: srv.URL, Timeout: time.Second})
	_, err := c.FetchSolvedSet(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestCall_LimiterHonoursContext(t *testing.T) {
	var hits int32
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, problemsetJSON)
	})
	c.Budget = nil
	_, err := c.FetchCatalog(context.Background())
	require.NoError(t, err)

	c2 := New(config.CatalogConfig{BaseURL: c.BaseURL, Timeout: time.Second, RPS: 0.001})
	require.NotNil(t, c2.Budget)
	_, err = c2.FetchCatalog(context.Background()) // consumes the only token
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c2.FetchCatalog(ctx)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestProblemURL(t *testing.T) {
	p := domain.Problem{ContestID: 1843, Index: "C"}
	assert.Equal(t, "https://codeforces.com/problemset/problem/1843/C",
		ProblemURL("https://codeforces.com/problemset/problem/", p))
}
