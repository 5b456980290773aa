// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rule_engine

import (
	"fmt"
	"math"
	"sort"
)

// MapperConfig configures the similarity mapper. Zero values select
// defaults. Threshold must lie in [-1, 1]; anything else is a startup
// configuration error.
type MapperConfig struct {
	// Threshold is the minimum cosine similarity for an accepted mapping.
	Threshold float64
	// TopK bounds how many registry matches TopMatches returns per phrase.
	TopK int
	// LiteralScore is the similarity assigned to verbatim identifier
	// matches, which bypass scoring.
	LiteralScore float64
}

const (
	DefaultThreshold    = 0.20
	DefaultTopK         = 3
	defaultLiteralScore = 1.0
)

// EmbeddedCandidate is a phrase candidate together with its embedding
// vector. Literal candidates may carry a nil vector.
type EmbeddedCandidate struct {
	PhraseCandidate
	Vector []float32
}

// Match is one registry entry scored against a phrase.
type Match struct {
	Identifier string  `json:"identifier"`
	Similarity float64 `json:"similarity"`
}

// SimilarityMapper scores phrase candidates against every registry entry by
// cosine similarity. Mapping is a pure computation over the immutable
// registry, so one mapper serves any number of concurrent requests.
type SimilarityMapper struct {
	registry     *Registry
	threshold    float64
	topK         int
	literalScore float64
}

// NewSimilarityMapper validates the configuration and builds a mapper.
func NewSimilarityMapper(registry *Registry, cfg MapperConfig) (*SimilarityMapper, error) {
	if registry == nil {
		return nil, fmt.Errorf("similarity mapper requires a registry")
	}
	if registry.Len() > 0 && registry.Dimension() == 0 {
		return nil, fmt.Errorf("similarity mapper requires a registry with embeddings")
	}
	if cfg.Threshold < -1 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("similarity threshold %v is outside [-1, 1]", cfg.Threshold)
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.LiteralScore == 0 {
		cfg.LiteralScore = defaultLiteralScore
	}
	return &SimilarityMapper{
		registry:     registry,
		threshold:    cfg.Threshold,
		topK:         cfg.TopK,
		literalScore: cfg.LiteralScore,
	}, nil
}

// Threshold returns the configured acceptance threshold.
func (m *SimilarityMapper) Threshold() float64 {
	return m.threshold
}

// Map scores each candidate against the whole vocabulary and returns the
// accepted mappings, at most one per distinct phrase (best match wins,
// first occurrence keeps its position). Candidates below the threshold are
// silently dropped; an empty candidate list yields an empty result. The
// only error is a vector dimensionality mismatch, which indicates a
// misconfigured deployment rather than a bad request.
func (m *SimilarityMapper) Map(candidates []EmbeddedCandidate) ([]KeyMapping, error) {
	var mappings []KeyMapping
	seen := make(map[string]int)

	for _, cand := range candidates {
		var mapping KeyMapping
		if cand.Literal {
			if !m.registry.Contains(cand.Text) {
				continue
			}
			mapping = KeyMapping{UserPhrase: cand.Text, MappedTo: cand.Text, Similarity: m.literalScore}
		} else {
			if m.registry.Len() == 0 {
				continue
			}
			if len(cand.Vector) != m.registry.Dimension() {
				return nil, DimensionMismatchError{Want: m.registry.Dimension(), Got: len(cand.Vector)}
			}
			best, ok := m.bestMatch(cand.Vector)
			if !ok || best.Similarity < m.threshold {
				continue
			}
			mapping = KeyMapping{UserPhrase: cand.Text, MappedTo: best.Identifier, Similarity: best.Similarity}
		}

		if i, dup := seen[mapping.UserPhrase]; dup {
			if mapping.Similarity > mappings[i].Similarity {
				mappings[i] = mapping
			}
			continue
		}
		seen[mapping.UserPhrase] = len(mappings)
		mappings = append(mappings, mapping)
	}
	return mappings, nil
}

// bestMatch linearly scans the registry. The vocabulary is at most a few
// hundred keys, so no index structure is warranted. Ties break toward the
// lexicographically smaller identifier for reproducible output.
func (m *SimilarityMapper) bestMatch(vector []float32) (Match, bool) {
	var best Match
	found := false
	for _, key := range m.registry.All() {
		sim := Cosine(vector, key.Embedding)
		switch {
		case !found, sim > best.Similarity:
			best = Match{Identifier: key.Identifier, Similarity: sim}
			found = true
		case sim == best.Similarity && key.Identifier < best.Identifier:
			best.Identifier = key.Identifier
		}
	}
	return best, found
}

// TopMatches returns the k nearest registry entries for a phrase vector,
// sorted by similarity descending with the lexicographic tie-break. A
// non-positive k uses the configured top-k. Used to suggest alternatives
// when a phrase falls below the acceptance threshold.
func (m *SimilarityMapper) TopMatches(vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		k = m.topK
	}
	if m.registry.Len() == 0 {
		return nil, nil
	}
	if len(vector) != m.registry.Dimension() {
		return nil, DimensionMismatchError{Want: m.registry.Dimension(), Got: len(vector)}
	}
	matches := make([]Match, 0, m.registry.Len())
	for _, key := range m.registry.All() {
		matches = append(matches, Match{Identifier: key.Identifier, Similarity: Cosine(vector, key.Embedding)})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Identifier < matches[j].Identifier
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Cosine computes cosine similarity between two vectors, defined as 0 when
// either vector has zero magnitude or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// AggregateConfidence reduces accepted mappings to a single confidence
// score: the arithmetic mean of their similarities, 0.0 for the empty set.
func AggregateConfidence(mappings []KeyMapping) float64 {
	if len(mappings) == 0 {
		return 0.0
	}
	var sum float64
	for _, m := range mappings {
		sum += m.Similarity
	}
	return sum / float64(len(mappings))
}
