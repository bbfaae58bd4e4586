// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pdiddy/evidence-engine/internal/index"
)

// DefaultRankK is the number of ranked records returned when k <= 0.
const DefaultRankK = 10

// Querier runs nearest-neighbour queries. *index.Store implements it.
type Querier interface {
	Query(ctx context.Context, text string, k int) (index.QueryResult, error)
}

// Ranker orders indexed evidence by similarity to a claim.
type Ranker struct {
	Index  Querier
	Logger zerolog.Logger
}

// Rank returns the k records nearest to claim across the whole index. The
// result is not restricted to evidenceIDs; the overlap is logged so callers
// can see how much of the ranking came from the expanded set.
func (r *Ranker) Rank(ctx context.Context, claim string, evidenceIDs []string, k int) (index.QueryResult, error) {
	if k <= 0 {
		k = DefaultRankK
	}
	res, err := r.Index.Query(ctx, claim, k)
	if err != nil {
		return index.QueryResult{}, err
	}

	inSet := make(map[string]bool, len(evidenceIDs))
	for _, id := range evidenceIDs {
		inSet[id] = true
	}
	overlap := 0
	for _, h := range res.Hits() {
		if inSet[h.ID] {
			overlap++
		}
	}
	r.Logger.Debug().
		Int("ranked", res.Len()).
		Int("evidence", len(evidenceIDs)).
		Int("overlap", overlap).
		Msg("ranked evidence")
	return res, nil
}
