// Package catalog is the client for the upstream problem catalog: the full
// problemset, per-handle submission history and public profiles.
//
// Every call returns an explicit error. Failures wrap ErrUpstreamUnavailable;
// an upstream "FAILED" envelope is reported as *APIError carrying the
// upstream comment. Callers decide whether to degrade to an empty result or
// to fail the operation.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tbourn/cptrainer/internal/config"
	"github.com/tbourn/cptrainer/internal/domain"
	"github.com/tbourn/cptrainer/internal/observability"
)

// ErrUpstreamUnavailable wraps every failed catalog call.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// maxBody caps how much of a response is read. The full problemset is a few MiB.
const maxBody = 32 << 20

// APIError is an upstream "FAILED" envelope, e.g. an unknown handle.
type APIError struct {
	Method  string
	Comment string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, e.Comment)
}

// Unwrap lets errors.Is(err, ErrUpstreamUnavailable) match API errors too.
func (e *APIError) Unwrap() error { return ErrUpstreamUnavailable }

// Client talks to the catalog HTTP/JSON API.
type Client struct {
	// BaseURL is the API root, e.g. https://codeforces.com/api.
	BaseURL string
	HTTP    *http.Client
	// Budget throttles outbound calls; nil means unlimited.
	Budget *Budget
}

// New builds a Client from configuration.
func New(cfg config.CatalogConfig) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		HTTP:    &http.Client{Timeout: cfg.Timeout},
		Budget:  NewBudget(cfg.RPS),
	}
	return c
}

type envelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

type wireProblem struct {
	ContestID int      `json:"contestId"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    *int     `json:"rating"`
	Tags      []string `json:"tags"`
}

func (p wireProblem) toDomain() domain.Problem {
	return domain.Problem{
		ContestID: p.ContestID,
		Index:     p.Index,
		Name:      p.Name,
		Rating:    p.Rating,
		Tags:      p.Tags,
	}
}

type wireSubmission struct {
	ID                  int64       `json:"id"`
	CreationTimeSeconds int64       `json:"creationTimeSeconds"`
	Verdict             string      `json:"verdict"`
	Problem             wireProblem `json:"problem"`
}

type wireUser struct {
	Handle string `json:"handle"`
	Rating *int   `json:"rating"`
	Rank   string `json:"rank"`
}

// FetchCatalog returns the full problemset.
func (c *Client) FetchCatalog(ctx context.Context) ([]domain.Problem, error) {
	var res struct {
		Problems []wireProblem `json:"problems"`
	}
	if err := c.call(ctx, "problemset.problems", nil, &res); err != nil {
		return nil, err
	}
	out := make([]domain.Problem, 0, len(res.Problems))
	for _, p := range res.Problems {
		out = append(out, p.toDomain())
	}
	return out, nil
}

// FetchSubmissions returns the complete submission history of handle.
func (c *Client) FetchSubmissions(ctx context.Context, handle string) ([]domain.Submission, error) {
	var res []wireSubmission
	if err := c.call(ctx, "user.status", url.Values{"handle": {handle}}, &res); err != nil {
		return nil, err
	}
	out := make([]domain.Submission, 0, len(res))
	for _, s := range res {
		out = append(out, domain.Submission{
			ID:        s.ID,
			Problem:   s.Problem.toDomain(),
			Verdict:   s.Verdict,
			CreatedAt: time.Unix(s.CreationTimeSeconds, 0).UTC(),
		})
	}
	return out, nil
}

// FetchSolvedSet returns the ids of problems handle has at least one OK
// verdict on.
func (c *Client) FetchSolvedSet(ctx context.Context, handle string) (domain.SolvedSet, error) {
	subs, err := c.FetchSubmissions(ctx, handle)
	if err != nil {
		return nil, err
	}
	solved := make(domain.SolvedSet)
	for _, s := range subs {
		if s.Verdict == domain.VerdictOK {
			solved[s.Problem.ID()] = struct{}{}
		}
	}
	return solved, nil
}

// FetchSubmissionsForProblem returns every submission handle made on p.
func (c *Client) FetchSubmissionsForProblem(ctx context.Context, handle string, p domain.Problem) ([]domain.Submission, error) {
	subs, err := c.FetchSubmissions(ctx, handle)
	if err != nil {
		return nil, err
	}
	var out []domain.Submission
	for _, s := range subs {
		if s.Problem.ContestID == p.ContestID && s.Problem.Index == p.Index {
			out = append(out, s)
		}
	}
	return out, nil
}

// FetchUserProfile returns rating and rank of handle. Rating is nil for
// unrated accounts.
func (c *Client) FetchUserProfile(ctx context.Context, handle string) (*domain.Profile, error) {
	var res []wireUser
	if err := c.call(ctx, "user.info", url.Values{"handles": {handle}}, &res); err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("%w: user.info returned no users for %q", ErrUpstreamUnavailable, handle)
	}
	u := res[0]
	if u.Handle == "" {
		u.Handle = handle
	}
	return &domain.Profile{Handle: u.Handle, Rating: u.Rating, Rank: u.Rank}, nil
}

// call performs GET {BaseURL}/{method}?{q} and decodes the "result" field of
// an OK envelope into out.
func (c *Client) call(ctx context.Context, method string, q url.Values, out any) (err error) {
	ctx, span := observability.Tracer("catalog").Start(ctx, "catalog."+method)
	span.SetAttributes(attribute.String("catalog.method", method))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "unavailable"
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				outcome = "failed"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.ObserveUpstream(method, outcome)
		span.End()
	}()

	span.SetAttributes(attribute.Bool("catalog.background", IsBackground(ctx)))
	if err := c.Budget.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, method, err)
	}

	u := c.BaseURL + "/" + method
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, method, err)
	}
	req.Header.Set("Accept", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, method, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %v", ErrUpstreamUnavailable, method, err)
	}

	// The API answers unknown handles with 400 and a FAILED envelope, so
	// try the envelope before judging the status code.
	var env envelope
	decErr := json.Unmarshal(body, &env)
	if decErr == nil && env.Status == "FAILED" {
		return &APIError{Method: method, Comment: env.Comment}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s: HTTP %s", ErrUpstreamUnavailable, method, strconv.Itoa(resp.StatusCode))
	}
	if decErr != nil {
		return fmt.Errorf("%w: %s: decode: %v", ErrUpstreamUnavailable, method, decErr)
	}
	if env.Status != "OK" {
		return fmt.Errorf("%w: %s: status %q", ErrUpstreamUnavailable, method, env.Status)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%w: %s: decode result: %v", ErrUpstreamUnavailable, method, err)
	}
	return nil
}
