// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/pdiddy/evidence-engine/internal/metrics"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// PaperSource fetches a single paper by id. *Client implements it.
type PaperSource interface {
	FetchPaper(ctx context.Context, id string) (*types.Paper, error)
}

// Cache memoizes paper lookups and reference lists for the life of the
// process. Entries are never evicted. Failed fetches are not cached.
// Concurrent misses for the same id share one fetch.
type Cache struct {
	source  PaperSource
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	papers map[string]*types.Paper
	refs   map[string][]types.Reference
	group  singleflight.Group
}

// NewCache wraps source. m may be nil.
func NewCache(source PaperSource, logger zerolog.Logger, m *metrics.Metrics) *Cache {
	return &Cache{
		source:  source,
		logger:  logger,
		metrics: m,
		papers:  make(map[string]*types.Paper),
		refs:    make(map[string][]types.Reference),
	}
}

// FetchPaper satisfies PaperSource so a Cache can stand in for a Client.
func (c *Cache) FetchPaper(ctx context.Context, id string) (*types.Paper, error) {
	return c.getPaper(ctx, id)
}

// GetPaper returns the paper for id, fetching it on a miss. The boolean is
// false when the fetch failed; the failure is logged.
func (c *Cache) GetPaper(ctx context.Context, id string) (*types.Paper, bool) {
	p, err := c.getPaper(ctx, id)
	if err != nil {
		c.logger.Warn().Err(err).Str("paper_id", id).Msg("paper fetch failed")
		return nil, false
	}
	return p, true
}

func (c *Cache) getPaper(ctx context.Context, id string) (*types.Paper, error) {
	c.mu.RLock()
	p, ok := c.papers[id]
	c.mu.RUnlock()
	c.metrics.ObserveCache("paper", ok)
	if ok {
		return p, nil
	}

	// The shared fetch outlives any one caller's cancellation; each caller
	// still stops waiting when its own ctx is done.
	flight := c.group.DoChan(id, func() (any, error) {
		p, err := c.source.FetchPaper(context.WithoutCancel(ctx), id)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.papers[id] = p
		c.mu.Unlock()
		return p, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*types.Paper), nil
	}
}

// GetReferences returns up to limit references of id; limit is floored at
// 1. The first call for an id caches at most limit references, so a later
// call with a larger limit still sees only that prefix.
func (c *Cache) GetReferences(ctx context.Context, id string, limit int) []types.Reference {
	limit = max(1, limit)

	c.mu.RLock()
	cached, ok := c.refs[id]
	c.mu.RUnlock()
	c.metrics.ObserveCache("references", ok)
	if ok {
		return prefix(cached, limit)
	}

	p, found := c.GetPaper(ctx, id)
	if !found {
		return []types.Reference{}
	}

	c.mu.Lock()
	stored, ok := c.refs[id]
	if !ok {
		stored = prefix(p.References, limit)
		c.refs[id] = stored
	}
	c.mu.Unlock()
	return prefix(stored, limit)
}

// Len reports how many papers are cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.papers)
}

func prefix(refs []types.Reference, n int) []types.Reference {
	out := make([]types.Reference, min(n, len(refs)))
	copy(out, refs)
	return out
}
