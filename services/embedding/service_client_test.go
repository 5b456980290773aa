// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmbedServer(t *testing.T, handler http.HandlerFunc) *ServiceClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewServiceClient(server.URL)
}

func TestServiceClient_BatchEmbed(t *testing.T) {
	client := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/batch_embed", r.URL.Path)
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []string{"bureau score", "business age"}, req.Texts)

		json.NewEncoder(w).Encode(embeddingResponse{
			Model:   "bge-small",
			Vectors: [][]float32{{1, 0}, {0, 1}},
			Dim:     2,
		})
	})

	vectors, err := client.BatchEmbed(context.Background(), []string{"bureau score", "business age"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1}, vectors[1])
}

func TestServiceClient_Embed_DelegatesToBatch(t *testing.T) {
	client := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embeddingResponse{Vectors: [][]float32{{0.5, 0.5}}, Dim: 2})
	})

	vector, err := client.Embed(context.Background(), "bureau score")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vector)
}

func TestServiceClient_BatchEmbed_CountMismatch(t *testing.T) {
	client := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embeddingResponse{Vectors: [][]float32{{1, 0}}, Dim: 2})
	})

	_, err := client.BatchEmbed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 vectors for 2 texts")
}

func TestServiceClient_InputValidation(t *testing.T) {
	client := NewServiceClient("http://localhost:0")

	_, err := client.Embed(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = client.BatchEmbed(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestServiceClient_ErrorStatus(t *testing.T) {
	client := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	})

	_, err := client.BatchEmbed(context.Background(), []string{"text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestServiceClient_Health(t *testing.T) {
	client := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(healthResponse{Status: "ok", Model: "bge-small"})
	})
	assert.NoError(t, client.Health(context.Background()))

	unhealthy := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(healthResponse{Status: "loading"})
	})
	assert.Error(t, unhealthy.Health(context.Background()))
}
