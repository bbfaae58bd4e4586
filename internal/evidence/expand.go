// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evidence assembles evidence sets by walking the citation graph
// outward from seed papers, and ranks indexed evidence against a claim.
package evidence

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/evidence-engine/internal/metrics"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// MaxSeeds is the number of seeds whose references are walked.
const MaxSeeds = 5

// ReferenceSource returns up to limit outgoing references of a paper.
// *scholar.Cache implements it.
type ReferenceSource interface {
	GetReferences(ctx context.Context, id string, limit int) []types.Reference
}

// Indexer makes sure the given papers are present in the index.
// *index.Syncer implements it.
type Indexer interface {
	EnsureIndexed(ctx context.Context, ids []string) (int, error)
}

// Caps holds the traversal bounds derived from maxRefs.
type Caps struct {
	// Hop1 is the references taken per seed.
	Hop1 int `json:"hop1"`
	// Hop2Total is the most ids the second hop may add overall.
	Hop2Total int `json:"hop2_total"`
	// Hop2PerSeed is the references taken per first-hop paper.
	Hop2PerSeed int `json:"hop2_per_seed"`
}

// CapsFor derives the traversal bounds for maxRefs.
func CapsFor(maxRefs int) Caps {
	hop2Total := clamp(maxRefs/2, 5, 20)
	return Caps{
		Hop1:        clamp(maxRefs, 5, 20),
		Hop2Total:   hop2Total,
		Hop2PerSeed: clamp(hop2Total, 3, 10),
	}
}

// MaxSetSize is the largest evidence set the caps allow.
func (c Caps) MaxSetSize() int {
	return MaxSeeds*c.Hop1 + c.Hop2Total
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// Expander walks references two hops out from seed papers.
type Expander struct {
	Refs    ReferenceSource
	Indexer Indexer
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Expand returns the ids reachable from the first MaxSeeds seeds within two
// hops, in discovery order, without duplicates and without the seeds
// themselves. Hop one takes Hop1 references from each seed. Hop two walks
// the first Hop1 ids found by hop one, takes Hop2PerSeed references from
// each, and stops once it has added Hop2Total ids. The result is then
// handed to the Indexer; an indexing failure is logged and not returned.
func (e *Expander) Expand(ctx context.Context, seedIDs []string, maxRefs int) ([]string, error) {
	caps := CapsFor(maxRefs)

	// Blank ids are dropped before the first MaxSeeds are taken; repeats
	// inside that window still use up a slot.
	var window []string
	for _, id := range seedIDs {
		if id = strings.TrimSpace(id); id != "" {
			window = append(window, id)
		}
	}
	window = window[:min(len(window), MaxSeeds)]

	seen := make(map[string]bool)
	var seeds []string
	for _, id := range window {
		if !seen[id] {
			seen[id] = true
			seeds = append(seeds, id)
		}
	}

	evidence := []string{}
	add := func(ref types.Reference) bool {
		id := strings.TrimSpace(ref.ID)
		if id == "" || seen[id] {
			return false
		}
		seen[id] = true
		evidence = append(evidence, id)
		return true
	}

	for _, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		refs := e.Refs.GetReferences(ctx, seed, caps.Hop1)
		for _, r := range refs[:min(len(refs), caps.Hop1)] {
			add(r)
		}
	}
	hop1 := len(evidence)

	frontier := append([]string(nil), evidence[:min(len(evidence), caps.Hop1)]...)
	added := 0
walk:
	for _, id := range frontier {
		if added >= caps.Hop2Total {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		refs := e.Refs.GetReferences(ctx, id, caps.Hop2PerSeed)
		for _, r := range refs[:min(len(refs), caps.Hop2PerSeed)] {
			if added >= caps.Hop2Total {
				break walk
			}
			if add(r) {
				added++
			}
		}
	}

	e.Logger.Debug().
		Strs("seeds", seeds).
		Int("hop1", hop1).
		Int("hop2", added).
		Int("hop1_cap", caps.Hop1).
		Int("hop2_total", caps.Hop2Total).
		Msg("expanded evidence set")
	e.Metrics.ObserveEvidenceSet(len(evidence))

	if e.Indexer != nil && len(evidence) > 0 {
		if _, err := e.Indexer.EnsureIndexed(ctx, evidence); err != nil {
			e.Logger.Warn().Err(err).Int("evidence", len(evidence)).Msg("indexing evidence set failed")
		}
	}
	return evidence, nil
}
