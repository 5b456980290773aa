// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rulegen/services"
)

// countingEmbedder returns a fixed vector per chunk and records how many
// texts were embedded.
type countingEmbedder struct {
	embedded int
}

func (f *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.embedded++
	return []float32{1, 0}, nil
}

func (f *countingEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		f.embedded++
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func newDocumentsRouter(store services.PolicyStore, embedder *countingEmbedder) *gin.Engine {
	router := gin.New()
	router.POST("/v1/documents", CreateDocument(store, embedder))
	router.GET("/v1/documents", ListDocuments(store))
	router.DELETE("/v1/document", DeleteBySource(store))
	return router
}

func TestCreateDocument_IngestsChunks(t *testing.T) {
	store := services.NewMemoryPolicyStore()
	embedder := &countingEmbedder{}
	router := newDocumentsRouter(store, embedder)

	body, _ := json.Marshal(map[string]string{
		"content":     "Minimum bureau score is 700.\n\nMinimum business vintage is 3 years.",
		"source":      "credit_policy.md",
		"version_tag": "v1",
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/documents", bytes.NewBuffer(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, "credit_policy.md", resp["source"])
	assert.Greater(t, resp["chunks_processed"].(float64), float64(0))
	assert.Greater(t, embedder.embedded, 0)

	sources, err := store.ListSources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"credit_policy.md"}, sources)
}

func TestCreateDocument_Validation(t *testing.T) {
	router := newDocumentsRouter(services.NewMemoryPolicyStore(), &countingEmbedder{})

	cases := map[string]string{
		"malformed json":  `{"content": `,
		"missing content": `{"source": "a.md"}`,
		"missing source":  `{"content": "text"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/v1/documents", strings.NewReader(body))
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestListDocuments_Empty(t *testing.T) {
	router := newDocumentsRouter(services.NewMemoryPolicyStore(), &countingEmbedder{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/documents", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Documents []string `json:"documents"`
		Count     int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Documents)
	assert.Zero(t, resp.Count)
}

func TestDeleteBySource(t *testing.T) {
	store := services.NewMemoryPolicyStore()
	_, err := store.Ingest(context.Background(), []services.PolicyChunk{
		{Content: "x", ParentSource: "policy.md", Vector: []float32{1, 0}},
	})
	require.NoError(t, err)
	router := newDocumentsRouter(store, &countingEmbedder{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/v1/document?source=policy.md", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	sources, err := store.ListSources(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestDeleteBySource_RequiresSource(t *testing.T) {
	router := newDocumentsRouter(services.NewMemoryPolicyStore(), &countingEmbedder{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/v1/document", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
