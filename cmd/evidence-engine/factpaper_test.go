// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/internal/evidence"
	"github.com/pdiddy/evidence-engine/internal/generate"
	"github.com/pdiddy/evidence-engine/internal/index"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// scriptedGenerator answers claim, intent, and verdict prompts differently.
type scriptedGenerator struct {
	claims   string
	verdicts []string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string, _ generate.Options) (string, error) {
	switch {
	case strings.Contains(prompt, "core factual claims"):
		return g.claims, nil
	case strings.Contains(prompt, "ONE sentence"):
		return "Tests whether sleep loss harms memory.", nil
	default:
		g.verdicts = append(g.verdicts, prompt)
		return "Verdict: Supported\nConfidence: 80%\nRationale: The abstract says so.", nil
	}
}

type refMap map[string][]string

func (m refMap) GetReferences(_ context.Context, id string, limit int) []types.Reference {
	out := []types.Reference{}
	for _, r := range m[id][:min(max(1, limit), len(m[id]))] {
		out = append(out, types.Reference{ID: r})
	}
	return out
}

type noopIndexer struct{}

func (noopIndexer) EnsureIndexed(context.Context, []string) (int, error) { return 0, nil }

func newCheckFixture(t *testing.T) (*index.Store, *evidence.Expander, *evidence.Ranker) {
	t.Helper()
	store, err := index.Open(types.IndexConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = store.Upsert(context.Background(), []types.Paper{
		{ID: "P1", Title: "Sleep deprivation and memory", Abstract: "Sleep loss impairs memory consolidation.", URL: "https://s2/P1", Year: types.IntPtr(2020)},
		{ID: "R1", Title: "Sleep and recall", Abstract: "Sleep improves recall.", URL: "https://s2/R1"},
		{ID: "R2", Title: "Memory consolidation during naps", Abstract: "Naps consolidate memory.", URL: "https://s2/R2"},
	}, "sleep")
	require.NoError(t, err)

	exp := &evidence.Expander{Refs: refMap{"P1": {"R1", "R2"}}, Indexer: noopIndexer{}, Logger: zerolog.Nop()}
	rk := &evidence.Ranker{Index: store, Logger: zerolog.Nop()}
	return store, exp, rk
}

func TestCheckPaperJudgesEachClaim(t *testing.T) {
	store, exp, rk := newCheckFixture(t)
	got, err := store.Get(context.Background(), []string{"P1"})
	require.NoError(t, err)
	rec := got.Records()[0]

	gen := &scriptedGenerator{claims: "1. Sleep loss impairs memory.\n2. Naps consolidate memory.\n3. Recall improves.\n4. Extra."}
	report, err := checkPaper(context.Background(), gen, exp, rk, rec, 5, 10)
	require.NoError(t, err)

	assert.Equal(t, "P1", report.PaperID)
	assert.Equal(t, "Sleep deprivation and memory", report.Title)
	assert.Equal(t, "2020", report.Year)
	assert.Equal(t, "Tests whether sleep loss harms memory.", report.Intent)
	assert.Equal(t, []string{"R1", "R2"}, report.Evidence)

	require.Len(t, report.Checks, generate.MaxClaims)
	assert.Len(t, gen.verdicts, generate.MaxClaims)
	assert.Equal(t, "Sleep loss impairs memory.", report.Checks[0].Claim)
	require.NotNil(t, report.Checks[0].Verdict)
	assert.Equal(t, "Supported", report.Checks[0].Verdict.Label)
	assert.NotEmpty(t, report.Checks[1].Ranked)
	assert.Contains(t, gen.verdicts[1], "Claim: Naps consolidate memory.")

	var buf bytes.Buffer
	printPaperReport(&buf, report)
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Paper: Sleep deprivation and memory (2020)\nLink: https://s2/P1\nIntent: "))
	assert.Contains(t, out, "Claims:\n1. Sleep loss impairs memory.\n2. Naps consolidate memory.\n3. Recall improves.\n")
	assert.Equal(t, 3, strings.Count(out, "Verdict: Supported"))
}

func TestCheckPaperWithoutClaimsSkipsExpansion(t *testing.T) {
	store, exp, rk := newCheckFixture(t)
	got, err := store.Get(context.Background(), []string{"P1"})
	require.NoError(t, err)

	gen := &scriptedGenerator{claims: "\n  \n"}
	report, err := checkPaper(context.Background(), gen, exp, rk, got.Records()[0], 5, 10)
	require.NoError(t, err)

	assert.Empty(t, report.Checks)
	assert.Empty(t, report.Evidence)
	assert.Empty(t, report.Intent)
	assert.Empty(t, gen.verdicts)
}
