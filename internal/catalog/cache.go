package catalog

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tbourn/cptrainer/internal/domain"
)

// Cached decorates a Client so the problemset is fetched at most once per
// TTL. Concurrent misses share a single upstream call. Submission history
// and profiles are always fetched live.
//
// The returned catalog slice is shared between callers and must be treated
// as read-only.
type Cached struct {
	*Client

	TTL time.Duration
	Now func() time.Time

	sf        singleflight.Group
	mu        sync.RWMutex
	problems  []domain.Problem
	fetchedAt time.Time
}

// NewCached wraps c. A zero ttl disables caching.
func NewCached(c *Client, ttl time.Duration) *Cached {
	return &Cached{Client: c, TTL: ttl, Now: time.Now}
}

// FetchCatalog returns the cached problemset while it is fresh. Failed or
// empty fetches are not cached.
func (c *Cached) FetchCatalog(ctx context.Context) ([]domain.Problem, error) {
	if c.TTL <= 0 {
		return c.Client.FetchCatalog(ctx)
	}

	c.mu.RLock()
	if c.problems != nil && c.Now().Sub(c.fetchedAt) < c.TTL {
		out := c.problems
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.sf.Do("catalog", func() (any, error) {
		ps, err := c.Client.FetchCatalog(ctx)
		if err != nil {
			return nil, err
		}
		if len(ps) > 0 {
			c.mu.Lock()
			c.problems = ps
			c.fetchedAt = c.Now()
			c.mu.Unlock()
		}
		return ps, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Problem), nil
}

// Invalidate drops the cached problemset.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	c.problems = nil
	c.mu.Unlock()
}
