// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rule_engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistry_RoundTrip(t *testing.T) {
	entries := []CanonicalKey{
		{Identifier: "bureau.score", Embedding: []float32{1, 0, 0}},
		{Identifier: "business.vintage_in_years", Embedding: []float32{0, 1, 0}},
		{Identifier: "loan.amount_requested", Embedding: []float32{0, 0, 1}},
	}
	reg, err := LoadRegistry(entries)
	require.NoError(t, err)

	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, 3, reg.Dimension())

	// Every key returned by All() must be retrievable via Lookup and equal.
	for _, key := range reg.All() {
		got, ok := reg.Lookup(key.Identifier)
		require.True(t, ok, "lookup failed for %q", key.Identifier)
		assert.Equal(t, key, got)
	}
}

func TestLoadRegistry_PreservesLoadOrder(t *testing.T) {
	entries := []CanonicalKey{
		{Identifier: "zebra.field", Embedding: []float32{1}},
		{Identifier: "alpha.field", Embedding: []float32{2}},
		{Identifier: "middle.field", Embedding: []float32{3}},
	}
	reg, err := LoadRegistry(entries)
	require.NoError(t, err)

	assert.Equal(t, []string{"zebra.field", "alpha.field", "middle.field"}, reg.Identifiers())
}

func TestLoadRegistry_DuplicateKey(t *testing.T) {
	entries := []CanonicalKey{
		{Identifier: "bureau.score", Embedding: []float32{1, 0}},
		{Identifier: "bureau.score", Embedding: []float32{0, 1}},
	}
	_, err := LoadRegistry(entries)
	require.Error(t, err)

	var dup DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "bureau.score", dup.Identifier)
}

func TestLoadRegistry_ZeroDimensionEmbedding(t *testing.T) {
	_, err := LoadRegistry([]CanonicalKey{{Identifier: "bureau.score"}})
	assert.ErrorContains(t, err, "zero-dimension")
}

func TestLoadRegistry_DimensionMismatch(t *testing.T) {
	entries := []CanonicalKey{
		{Identifier: "bureau.score", Embedding: []float32{1, 0, 0}},
		{Identifier: "applicant.age", Embedding: []float32{1, 0}},
	}
	_, err := LoadRegistry(entries)
	require.Error(t, err)

	var mismatch DimensionMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 3, mismatch.Want)
	assert.Equal(t, 2, mismatch.Got)
}

func TestLoadRegistry_Empty(t *testing.T) {
	reg, err := LoadRegistry(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())
	assert.False(t, reg.Contains("anything.at_all"))
}

func TestLoadIdentifierRegistry(t *testing.T) {
	reg, err := LoadIdentifierRegistry([]string{"bureau.score", "applicant.age"})
	require.NoError(t, err)

	assert.True(t, reg.Contains("bureau.score"))
	assert.Equal(t, 0, reg.Dimension())

	_, err = LoadIdentifierRegistry([]string{"bureau.score", "bureau.score"})
	var dup DuplicateKeyError
	require.True(t, errors.As(err, &dup))
}
