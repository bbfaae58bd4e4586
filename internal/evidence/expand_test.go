// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// graph serves references from an adjacency list and records each call.
type graph struct {
	edges map[string][]string
	calls []string
}

func (g *graph) GetReferences(_ context.Context, id string, limit int) []types.Reference {
	g.calls = append(g.calls, id)
	targets := g.edges[id]
	limit = max(1, limit)
	out := []types.Reference{}
	for _, t := range targets[:min(limit, len(targets))] {
		out = append(out, types.Reference{ID: t})
	}
	return out
}

type recordingIndexer struct {
	ids []string
	err error
}

func (r *recordingIndexer) EnsureIndexed(_ context.Context, ids []string) (int, error) {
	r.ids = append([]string(nil), ids...)
	return len(ids), r.err
}

func chain(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}

func TestCapsFor(t *testing.T) {
	tests := []struct {
		maxRefs int
		want    Caps
	}{
		{0, Caps{Hop1: 5, Hop2Total: 5, Hop2PerSeed: 5}},
		{10, Caps{Hop1: 10, Hop2Total: 5, Hop2PerSeed: 5}},
		{16, Caps{Hop1: 16, Hop2Total: 8, Hop2PerSeed: 8}},
		{100, Caps{Hop1: 20, Hop2Total: 20, Hop2PerSeed: 10}},
		{-3, Caps{Hop1: 5, Hop2Total: 5, Hop2PerSeed: 5}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.maxRefs), func(t *testing.T) {
			assert.Equal(t, tt.want, CapsFor(tt.maxRefs))
		})
	}
	assert.Equal(t, 120, CapsFor(100).MaxSetSize())
}

func TestExpandSingleSeedHopOne(t *testing.T) {
	g := &graph{edges: map[string][]string{"P1": {"R1", "R2", "R3"}}}
	idx := &recordingIndexer{}
	e := &Expander{Refs: g, Indexer: idx, Logger: zerolog.Nop()}

	got, err := e.Expand(context.Background(), []string{"P1"}, 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"R1", "R2", "R3"}, got)
	assert.Equal(t, []string{"P1", "R1", "R2", "R3"}, g.calls)
	assert.Equal(t, got, idx.ids)
}

func TestExpandHopTwoAppendsAfterHopOne(t *testing.T) {
	g := &graph{edges: map[string][]string{
		"P1": {"R1", "R2", "R3"},
		"R1": {"X1", "R2"},
		"R3": {"X2"},
	}}
	e := &Expander{Refs: g, Logger: zerolog.Nop()}

	got, err := e.Expand(context.Background(), []string{"P1"}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1", "R2", "R3", "X1", "X2"}, got)
}

func TestExpandExcludesSeedsAndDedups(t *testing.T) {
	g := &graph{edges: map[string][]string{
		"P1": {"P2", "R1", "", "R1"},
		"P2": {"P1", "R1", "R2"},
		"R1": {"P1"},
	}}
	e := &Expander{Refs: g, Logger: zerolog.Nop()}

	got, err := e.Expand(context.Background(), []string{"P1", "P2", "P1", " "}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1", "R2"}, got)
	assert.NotContains(t, got, "P1")
	assert.NotContains(t, got, "P2")
}

func TestExpandOnlyFirstFiveSeeds(t *testing.T) {
	edges := map[string][]string{}
	seeds := chain("S", 7)
	for _, s := range seeds {
		edges[s] = []string{"from-" + s}
	}
	g := &graph{edges: edges}
	e := &Expander{Refs: g, Logger: zerolog.Nop()}

	got, err := e.Expand(context.Background(), seeds, 10)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.NotContains(t, got, "from-S5")
	assert.NotContains(t, g.calls, "S5")
}

func TestExpandRepeatedSeedsUseUpWindow(t *testing.T) {
	g := &graph{edges: map[string][]string{
		"A": {"RA"},
		"B": {"RB"},
	}}
	e := &Expander{Refs: g, Logger: zerolog.Nop()}

	got, err := e.Expand(context.Background(), []string{"A", "", "A", "A", "A", "A", "B"}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"RA"}, got)
	assert.NotContains(t, g.calls, "B")
	assert.Equal(t, 1, countCalls(g.calls, "A"))
}

func countCalls(calls []string, id string) int {
	n := 0
	for _, c := range calls {
		if c == id {
			n++
		}
	}
	return n
}

func TestExpandRespectsBound(t *testing.T) {
	// Every node cites 50 fresh nodes, so every cap binds.
	edges := map[string][]string{}
	var seeds []string
	for i := range 5 {
		s := fmt.Sprintf("S%d", i)
		seeds = append(seeds, s)
		edges[s] = chain(s+"-r", 50)
		for _, r := range edges[s] {
			edges[r] = chain(r+"-x", 50)
		}
	}
	g := &graph{edges: edges}
	e := &Expander{Refs: g, Logger: zerolog.Nop()}

	for _, maxRefs := range []int{1, 10, 40, 100, 1000} {
		got, err := e.Expand(context.Background(), seeds, maxRefs)
		require.NoError(t, err)
		caps := CapsFor(maxRefs)
		assert.LessOrEqual(t, len(got), caps.MaxSetSize(), "maxRefs=%d", maxRefs)
		assert.Equal(t, 5*caps.Hop1+caps.Hop2Total, len(got), "maxRefs=%d", maxRefs)

		unique := map[string]bool{}
		for _, id := range got {
			assert.False(t, unique[id])
			unique[id] = true
		}
	}
}

func TestExpandHopTwoStopsAtTotal(t *testing.T) {
	// maxRefs 10: hop2Total 5, hop2PerSeed 5. R0 alone supplies all five,
	// so no further hop-one paper is consulted.
	edges := map[string][]string{
		"P": chain("R", 4),
		"R0": chain("X", 9),
		"R1": chain("Y", 9),
	}
	g := &graph{edges: edges}
	e := &Expander{Refs: g, Logger: zerolog.Nop()}

	got, err := e.Expand(context.Background(), []string{"P"}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"R0", "R1", "R2", "R3", "X0", "X1", "X2", "X3", "X4"}, got)
	assert.Equal(t, []string{"P", "R0"}, g.calls)
}

func TestExpandHopTwoWalksOnlyFirstHop1IDs(t *testing.T) {
	// maxRefs 5: hop1 cap 5. Two seeds yield ten hop-one ids, but only the
	// first five are walked.
	edges := map[string][]string{
		"A": chain("a", 5),
		"B": chain("b", 5),
	}
	g := &graph{edges: edges}
	e := &Expander{Refs: g, Logger: zerolog.Nop()}

	_, err := e.Expand(context.Background(), []string{"A", "B"}, 5)
	require.NoError(t, err)
	assert.Equal(t, append([]string{"A", "B"}, chain("a", 5)...), g.calls)
}

func TestExpandNoSeeds(t *testing.T) {
	idx := &recordingIndexer{}
	e := &Expander{Refs: &graph{}, Indexer: idx, Logger: zerolog.Nop()}

	got, err := e.Expand(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Nil(t, idx.ids)
}

func TestExpandIndexingFailureIsNotReturned(t *testing.T) {
	g := &graph{edges: map[string][]string{"P1": {"R1"}}}
	e := &Expander{Refs: g, Indexer: &recordingIndexer{err: errors.New("disk full")}, Logger: zerolog.Nop()}

	got, err := e.Expand(context.Background(), []string{"P1"}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1"}, got)
}

func TestExpandCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := &Expander{Refs: &graph{}, Logger: zerolog.Nop()}

	_, err := e.Expand(ctx, []string{"P1"}, 10)
	assert.ErrorIs(t, err, context.Canceled)
}
