// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package rule_engine implements the core of the rule generation service:
// the closed key vocabulary, phrase extraction, embedding-similarity key
// mapping, and static validation of candidate JSON Logic expression trees.
//
// Everything in this package is a pure function over immutable inputs. The
// Registry is built once at startup and never mutated, so any number of
// requests can read it concurrently without locking. Embedding vectors are
// computed by an external collaborator before this package runs and are
// passed in as plain values.
package rule_engine

import "fmt"

// CanonicalKey is one entry of the closed vocabulary: a dot-delimited
// identifier such as "bureau.score" plus its precomputed embedding vector.
type CanonicalKey struct {
	Identifier string
	Embedding  []float32
}

// Registry is the fixed, closed set of canonical keys. Read-only after
// construction; iteration order is load order.
type Registry struct {
	keys  []CanonicalKey
	index map[string]int
	dim   int
}

// LoadRegistry builds a Registry from vocabulary entries. It fails with
// DuplicateKeyError on a repeated identifier, and with a plain error on a
// zero-dimension embedding or on embeddings of differing dimensionality.
// All of these are startup configuration defects.
func LoadRegistry(entries []CanonicalKey) (*Registry, error) {
	r := &Registry{
		keys:  make([]CanonicalKey, 0, len(entries)),
		index: make(map[string]int, len(entries)),
	}
	for _, entry := range entries {
		if entry.Identifier == "" {
			return nil, fmt.Errorf("vocabulary entry has an empty identifier")
		}
		if _, exists := r.index[entry.Identifier]; exists {
			return nil, DuplicateKeyError{Identifier: entry.Identifier}
		}
		if len(entry.Embedding) == 0 {
			return nil, fmt.Errorf("vocabulary key %q has a zero-dimension embedding", entry.Identifier)
		}
		if r.dim == 0 {
			r.dim = len(entry.Embedding)
		} else if len(entry.Embedding) != r.dim {
			return nil, DimensionMismatchError{Want: r.dim, Got: len(entry.Embedding)}
		}
		r.index[entry.Identifier] = len(r.keys)
		r.keys = append(r.keys, entry)
	}
	return r, nil
}

// LoadIdentifierRegistry builds a Registry from bare identifiers, without
// embeddings. Such a registry supports Lookup/Contains/All and expression
// validation but cannot back a SimilarityMapper. It exists for offline
// validation paths (the CLI) where no embedding service is available.
func LoadIdentifierRegistry(identifiers []string) (*Registry, error) {
	r := &Registry{
		keys:  make([]CanonicalKey, 0, len(identifiers)),
		index: make(map[string]int, len(identifiers)),
	}
	for _, id := range identifiers {
		if id == "" {
			return nil, fmt.Errorf("vocabulary entry has an empty identifier")
		}
		if _, exists := r.index[id]; exists {
			return nil, DuplicateKeyError{Identifier: id}
		}
		r.index[id] = len(r.keys)
		r.keys = append(r.keys, CanonicalKey{Identifier: id})
	}
	return r, nil
}

// Lookup returns the canonical key for an identifier.
func (r *Registry) Lookup(identifier string) (CanonicalKey, bool) {
	i, ok := r.index[identifier]
	if !ok {
		return CanonicalKey{}, false
	}
	return r.keys[i], true
}

// Contains reports whether the identifier is part of the vocabulary.
func (r *Registry) Contains(identifier string) bool {
	_, ok := r.index[identifier]
	return ok
}

// All returns every canonical key in load order. The slice is a copy; the
// embedding vectors are shared and must be treated as read-only.
func (r *Registry) All() []CanonicalKey {
	out := make([]CanonicalKey, len(r.keys))
	copy(out, r.keys)
	return out
}

// Identifiers returns the identifiers in load order.
func (r *Registry) Identifiers() []string {
	out := make([]string, len(r.keys))
	for i, k := range r.keys {
		out[i] = k.Identifier
	}
	return out
}

// Len returns the number of keys in the vocabulary.
func (r *Registry) Len() int {
	return len(r.keys)
}

// Dimension returns the embedding dimensionality, or 0 for an
// identifier-only registry.
func (r *Registry) Dimension() int {
	return r.dim
}
