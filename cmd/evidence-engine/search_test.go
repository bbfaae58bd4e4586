// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

func TestFillSparseKeepsHitsWithoutProviderKey(t *testing.T) {
	saved := appConfig
	t.Cleanup(func() { appConfig = saved })
	appConfig = types.Config{Index: types.IndexConfig{Dir: t.TempDir()}}

	eng, err := openEngine(zerolog.Nop())
	require.NoError(t, err)
	defer eng.Close()

	ctx := context.Background()
	_, err = eng.store.Upsert(ctx, []types.Paper{{ID: "P1", Title: "Sleep and memory", URL: "https://s2/P1"}}, "sleep")
	require.NoError(t, err)

	res, err := eng.store.Query(ctx, "sleep", 10)
	require.NoError(t, err)
	require.Equal(t, 1, res.Len())

	filled, err := fillSparse(ctx, eng, "sleep", 10, res)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, filled.IDs[0])
	assert.Nil(t, eng.client)
}
