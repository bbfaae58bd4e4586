// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/internal/metrics"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(types.IndexConfig{Dir: t.TempDir()}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func samplePapers() []types.Paper {
	return []types.Paper{
		{ID: "P1", Title: "Sleep deprivation and memory", Abstract: "Sleep loss impairs memory consolidation.", URL: "https://s2/P1", Year: types.IntPtr(2020)},
		{ID: "P2", Title: "Video games and cognition", Abstract: "Gaming improves attention.", URL: "https://s2/P2"},
		{ID: "P3", Title: "Graph neural networks", URL: "https://s2/P3"},
	}
}

func TestOpenCreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "index")
	s, err := Open(types.IndexConfig{Dir: dir})
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, DBFile))
	assert.NoError(t, err)
	assert.Equal(t, dir, s.Dir())
}

func TestReopenKeepsRecords(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(types.IndexConfig{Dir: dir})
	require.NoError(t, err)
	_, err = s.Upsert(context.Background(), samplePapers(), "sleep")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(types.IndexConfig{Dir: dir})
	require.NoError(t, err)
	defer s2.Close()

	n, err := s2.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	res, err := s2.Query(context.Background(), "memory", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, res.IDs[0])
}

func TestUpsertSkipsEmptyIDs(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	s := newTestStore(t, WithMetrics(m))
	ctx := context.Background()

	n, err := s.Upsert(ctx, []types.Paper{{ID: "", Title: "orphan"}, {ID: "  ", Title: "blank"}, {ID: "P1", Title: "kept"}}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.IndexSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexUpserts))
}

func TestUpsertIsIdempotentAndLastWriteWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, samplePapers(), "sleep")
	require.NoError(t, err)
	_, err = s.Upsert(ctx, samplePapers(), "sleep")
	require.NoError(t, err)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = s.Upsert(ctx, []types.Paper{{ID: "P3", Title: "Graph neural networks", Abstract: "Message passing.", URL: "https://s2/P3"}}, "gnn")
	require.NoError(t, err)

	got, err := s.Get(ctx, []string{"P3"})
	require.NoError(t, err)
	require.Len(t, got.IDs, 1)
	assert.Equal(t, "Graph neural networks\n\nMessage passing.\n\nhttps://s2/P3", got.Documents[0])
	assert.Equal(t, "gnn", got.Metadatas[0].String(types.MetaTopic))

	// The FTS index follows the update.
	res, err := s.Query(ctx, "message passing", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"P3"}, res.IDs[0])
}

func TestUpsertBatches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	papers := make([]types.Paper, 250)
	for i := range papers {
		papers[i] = types.Paper{ID: fmt.Sprintf("P%03d", i), Title: fmt.Sprintf("Paper %d", i)}
	}
	n, err := s.Upsert(ctx, papers, "bulk")
	require.NoError(t, err)
	assert.Equal(t, 250, n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 250, count)
}

func TestUpsertEmptyIsNoop(t *testing.T) {
	// An empty provider result leaves the index unchanged.
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Upsert(ctx, samplePapers(), "")
	require.NoError(t, err)

	n, err := s.Upsert(ctx, []types.Paper{}, "graph neural networks")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMetadataRoundTripsNumbers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Upsert(ctx, []types.Paper{{ID: "P1", Title: "T", Year: types.IntPtr(1999), CitationCount: types.IntPtr(7)}}, "")
	require.NoError(t, err)

	got, err := s.Get(ctx, []string{"P1"})
	require.NoError(t, err)
	year, ok := got.Metadatas[0].Int(types.MetaYear)
	require.True(t, ok)
	assert.Equal(t, 1999, year)
	assert.Equal(t, "7", got.Metadatas[0].Display(types.MetaCitationCount))
}

func TestExportYAMLAndJSON(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Upsert(ctx, samplePapers(), "sleep")
	require.NoError(t, err)

	var yb bytes.Buffer
	require.NoError(t, s.WriteYAML(ctx, &yb))
	var fromYAML []types.IndexRecord
	require.NoError(t, yaml.Unmarshal(yb.Bytes(), &fromYAML))
	require.Len(t, fromYAML, 3)
	assert.Equal(t, "P1", fromYAML[0].ID)

	path, err := s.Export(ctx, "json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "export.json"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var fromJSON []types.IndexRecord
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Len(t, fromJSON, 3)

	_, err = s.Export(ctx, "xml")
	assert.Error(t, err)
}
