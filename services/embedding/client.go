// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package embedding provides clients for turning text into dense vectors.
//
// The key registry and the phrase mapper both consume this package: the
// registry embeds every vocabulary entry once at startup, and the mapper
// embeds candidate phrases per request. All vectors for a deployment must
// come from the same backend so their dimensions agree.
package embedding

import (
	"context"
	"errors"
)

// ErrInvalidInput indicates invalid input was provided.
var ErrInvalidInput = errors.New("invalid input")

// Embedder is the contract every embedding backend implements.
type Embedder interface {
	// Embed computes a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// BatchEmbed computes vectors for multiple texts in one round trip,
	// one vector per input text in input order.
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
}
