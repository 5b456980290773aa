// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMemoryStore(t *testing.T) *MemoryPolicyStore {
	t.Helper()
	store := NewMemoryPolicyStore()
	count, err := store.Ingest(context.Background(), []PolicyChunk{
		{Content: "score policy", Source: "policy.md_part_1", ParentSource: "policy.md", Vector: []float32{1, 0}},
		{Content: "vintage policy", Source: "policy.md_part_2", ParentSource: "policy.md", Vector: []float32{0, 1}},
		{Content: "turnover note", Source: "notes.txt_part_1", ParentSource: "notes.txt", Vector: []float32{0.7, 0.7}},
	})
	require.NoError(t, err)
	require.Equal(t, 3, count)
	return store
}

func TestMemoryPolicyStore_RetrieveRanksByCosine(t *testing.T) {
	store := seedMemoryStore(t)

	snippets, err := store.Retrieve(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, snippets, 2)

	assert.Equal(t, "score policy", snippets[0].Content)
	assert.InDelta(t, 1.0, snippets[0].Certainty, 1e-6)
	assert.Equal(t, "turnover note", snippets[1].Content)
	assert.Greater(t, snippets[0].Certainty, snippets[1].Certainty)
}

func TestMemoryPolicyStore_RetrieveDefaultTopK(t *testing.T) {
	store := seedMemoryStore(t)

	snippets, err := store.Retrieve(context.Background(), []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Len(t, snippets, 3)
}

func TestMemoryPolicyStore_ListSources(t *testing.T) {
	store := seedMemoryStore(t)

	sources, err := store.ListSources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt", "policy.md"}, sources)
}

func TestMemoryPolicyStore_DeleteSource(t *testing.T) {
	store := seedMemoryStore(t)

	require.NoError(t, store.DeleteSource(context.Background(), "policy.md"))

	sources, err := store.ListSources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt"}, sources)

	snippets, err := store.Retrieve(context.Background(), []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, "turnover note", snippets[0].Content)
}

func TestMemoryPolicyStore_EmptyRetrieve(t *testing.T) {
	store := NewMemoryPolicyStore()
	snippets, err := store.Retrieve(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, snippets)
}
