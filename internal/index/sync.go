// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// RehydrateBatchSize bounds the papers buffered before an upsert during
// rehydration.
const RehydrateBatchSize = 50

// PaperFetcher fetches one paper by id. Both the provider client and the
// memoization cache implement it.
type PaperFetcher interface {
	FetchPaper(ctx context.Context, id string) (*types.Paper, error)
}

// TopicSearcher searches the provider by topic.
type TopicSearcher interface {
	SearchPapers(ctx context.Context, topic string, limit int) ([]types.Paper, error)
}

// RehydrateSummary counts the outcome of a rehydration run.
type RehydrateSummary struct {
	Requested int `json:"requested" yaml:"requested"`
	Fetched   int `json:"fetched" yaml:"fetched"`
	Updated   int `json:"updated" yaml:"updated"`
}

// Syncer moves papers from the provider into the store.
type Syncer struct {
	Store    *Store
	Fetcher  PaperFetcher
	Searcher TopicSearcher
	Logger   zerolog.Logger
}

// Rehydrate refetches ids and upserts the ones that now carry an abstract.
// Requested is len(ids); Fetched counts successful fetches; Updated counts
// records written. Fetch failures are logged and skipped.
func (s *Syncer) Rehydrate(ctx context.Context, ids []string) (RehydrateSummary, error) {
	summary := RehydrateSummary{Requested: len(ids)}
	var batch []types.Paper

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.Store.Upsert(ctx, batch, "")
		summary.Updated += n
		batch = batch[:0]
		return err
	}

	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		p, err := s.Fetcher.FetchPaper(ctx, id)
		if err != nil {
			s.Logger.Warn().Err(err).Str("paper_id", id).Msg("rehydrate fetch failed")
			continue
		}
		summary.Fetched++
		if strings.TrimSpace(p.Abstract) != "" {
			batch = append(batch, *p)
		}
		if len(batch) >= RehydrateBatchSize {
			if err := flush(); err != nil {
				return summary, fmt.Errorf("upserting rehydrated papers: %w", err)
			}
		}
	}
	if err := flush(); err != nil {
		return summary, fmt.Errorf("upserting rehydrated papers: %w", err)
	}
	return summary, nil
}

// RehydrateMissing finds up to maxIDs records without an abstract and
// rehydrates them.
func (s *Syncer) RehydrateMissing(ctx context.Context, maxIDs int) (RehydrateSummary, error) {
	ids, err := s.Store.FindMissingAbstractIDs(ctx, maxIDs)
	if err != nil {
		return RehydrateSummary{}, err
	}
	if len(ids) == 0 {
		return RehydrateSummary{}, nil
	}
	return s.Rehydrate(ctx, ids)
}

// EnsureIndexed fetches and upserts the ids that are not already in the
// store. Present ids cause no fetch. It returns the number of records
// written; fetch failures are logged and skipped.
func (s *Syncer) EnsureIndexed(ctx context.Context, ids []string) (int, error) {
	missing, err := s.Store.Missing(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("checking index membership: %w", err)
	}
	if len(missing) == 0 {
		return 0, nil
	}

	papers := make([]types.Paper, 0, len(missing))
	for _, id := range missing {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		p, err := s.Fetcher.FetchPaper(ctx, id)
		if err != nil {
			s.Logger.Warn().Err(err).Str("paper_id", id).Msg("ensure-indexed fetch failed")
			continue
		}
		papers = append(papers, *p)
	}

	n, err := s.Store.Upsert(ctx, papers, "")
	if err != nil {
		return n, fmt.Errorf("indexing evidence papers: %w", err)
	}
	s.Logger.Debug().Int("requested", len(ids)).Int("missing", len(missing)).Int("indexed", n).Msg("ensured evidence indexed")
	return n, nil
}

// IndexTopic searches the provider for topic and upserts the results
// tagged with topic.
func (s *Syncer) IndexTopic(ctx context.Context, topic string, limit int) (int, error) {
	if s.Searcher == nil {
		return 0, fmt.Errorf("no topic searcher configured")
	}
	papers, err := s.Searcher.SearchPapers(ctx, topic, limit)
	if err != nil {
		return 0, err
	}
	n, err := s.Store.Upsert(ctx, papers, topic)
	if err != nil {
		return n, fmt.Errorf("indexing topic %q: %w", topic, err)
	}
	s.Logger.Info().Str("topic", topic).Int("found", len(papers)).Int("indexed", n).Msg("indexed topic")
	return n, nil
}
