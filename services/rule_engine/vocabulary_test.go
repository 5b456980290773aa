// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rule_engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadVocabulary_Embedded(t *testing.T) {
	entries, err := LoadVocabulary()
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	seen := make(map[string]bool)
	for _, entry := range entries {
		assert.False(t, seen[entry.Key], "duplicate key %q", entry.Key)
		seen[entry.Key] = true
		assert.NotEmpty(t, entry.Description, "key %q has no description", entry.Key)
	}

	// The keys the API documentation and tests lean on must exist.
	assert.True(t, seen["bureau.score"])
	assert.True(t, seen["business.vintage_in_years"])
}

func TestVocabularyEntry_EmbeddingText(t *testing.T) {
	entry := VocabularyEntry{
		Key:         "business.vintage_in_years",
		Description: "number of years the business has been operating",
		Synonyms:    []string{"business age"},
	}
	text := entry.EmbeddingText()
	assert.Contains(t, text, "business vintage in years")
	assert.Contains(t, text, "number of years the business has been operating")
	assert.Contains(t, text, "business age")

	bare := VocabularyEntry{Key: "bureau.score"}
	assert.Equal(t, "bureau score", bare.EmbeddingText())
}

func TestParseVocabulary_Defects(t *testing.T) {
	cases := map[string]string{
		"invalid yaml":   "keys: [",
		"no keys":        "keys: []",
		"bad key format": "keys:\n  - key: NotAKey\n    description: x",
		"duplicate key":  "keys:\n  - key: a.b\n    description: x\n  - key: a.b\n    description: y",
		"single segment": "keys:\n  - key: score\n    description: x",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseVocabulary([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestVocabularyIdentifiers(t *testing.T) {
	ids, err := VocabularyIdentifiers()
	require.NoError(t, err)
	assert.Contains(t, ids, "bureau.score")
}
