// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package services holds the business logic of the rule generation API,
// kept out of the gin handlers so it can be tested without HTTP plumbing.
package services

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rule_engine"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rulegen/datatypes"
)

// PolicySnippet is one retrieved piece of policy context.
type PolicySnippet struct {
	Content   string  `json:"content"`
	Source    string  `json:"source"`
	Certainty float64 `json:"certainty"`
}

// PolicyChunk is one embedded chunk ready for storage.
type PolicyChunk struct {
	Content      string
	Source       string
	ParentSource string
	DataSpace    string
	VersionTag   string
	IngestedAt   int64
	Vector       []float32
}

// PolicyRetriever finds policy chunks semantically close to a query vector.
type PolicyRetriever interface {
	Retrieve(ctx context.Context, vector []float32, topK int) ([]PolicySnippet, error)
}

// PolicyStore is a retriever that also supports ingestion and
// administration. The service wires a Weaviate-backed store when a cluster
// is configured and an in-memory store in lightweight mode.
type PolicyStore interface {
	PolicyRetriever
	Ingest(ctx context.Context, chunks []PolicyChunk) (int, error)
	ListSources(ctx context.Context) ([]string, error)
	DeleteSource(ctx context.Context, parentSource string) error
}

// =============================================================================
// Weaviate-backed store
// =============================================================================

type WeaviatePolicyStore struct {
	client *weaviate.Client
}

func NewWeaviatePolicyStore(client *weaviate.Client) *WeaviatePolicyStore {
	return &WeaviatePolicyStore{client: client}
}

// Ingest batch-imports chunks. Chunk IDs are derived from the content hash,
// so re-ingesting the same document overwrites instead of duplicating.
func (s *WeaviatePolicyStore) Ingest(ctx context.Context, chunks []PolicyChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	objects := make([]*models.Object, len(chunks))
	for i, chunk := range chunks {
		hash := sha256.Sum256([]byte(chunk.Content))
		docUUID, _ := uuid.FromBytes(hash[:16])

		objects[i] = &models.Object{
			Class:  datatypes.PolicyDocumentClass,
			ID:     strfmt.UUID(docUUID.String()),
			Vector: chunk.Vector,
			Properties: map[string]interface{}{
				"content":       chunk.Content,
				"source":        chunk.Source,
				"parent_source": chunk.ParentSource,
				"data_space":    chunk.DataSpace,
				"version_tag":   chunk.VersionTag,
				"ingested_at":   chunk.IngestedAt,
			},
		}
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		slog.Error("Failed to perform batch import to Weaviate", "error", err)
		return 0, fmt.Errorf("failed to save policy chunks to Weaviate: %w", err)
	}

	created := 0
	for _, item := range resp {
		if item.Result != nil && item.Result.Status != nil && *item.Result.Status == "SUCCESS" {
			created++
			continue
		}
		if item.Result != nil && item.Result.Errors != nil {
			for _, errItem := range item.Result.Errors.Error {
				slog.Warn("Error in Weaviate batch item", "error", errItem.Message)
			}
		}
	}
	return created, nil
}

// Retrieve runs a nearVector search over the PolicyDocument class. Certainty
// is requested instead of distance because it is always in [0,1] regardless
// of the distance metric.
func (s *WeaviatePolicyStore) Retrieve(ctx context.Context, vector []float32, topK int) ([]PolicySnippet, error) {
	if topK <= 0 {
		topK = 3
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)
	fields := []graphql.Field{
		{Name: "content"},
		{Name: "source"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "certainty"},
		}},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(datatypes.PolicyDocumentClass).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(topK).
		Do(ctx)
	if err != nil {
		slog.Error("Failed to search PolicyDocument class", "error", err)
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}

	return parsePolicySearchResults(result.Data)
}

func parsePolicySearchResults(data map[string]models.JSONObject) ([]PolicySnippet, error) {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	rows, ok := get[datatypes.PolicyDocumentClass].([]interface{})
	if !ok {
		return nil, nil
	}

	snippets := make([]PolicySnippet, 0, len(rows))
	for _, row := range rows {
		obj, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		snippet := PolicySnippet{}
		if content, ok := obj["content"].(string); ok {
			snippet.Content = content
		}
		if source, ok := obj["source"].(string); ok {
			snippet.Source = source
		}
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				snippet.Certainty = certainty
			}
		}
		snippets = append(snippets, snippet)
	}
	return snippets, nil
}

// ListSources returns the distinct parent_source values of ingested chunks.
func (s *WeaviatePolicyStore) ListSources(ctx context.Context) ([]string, error) {
	agg, err := s.client.GraphQL().Aggregate().
		WithClassName(datatypes.PolicyDocumentClass).
		WithGroupBy("parent_source").
		WithFields(graphql.Field{
			Name:   "groupedBy",
			Fields: []graphql.Field{{Name: "value"}},
		}).
		Do(ctx)
	if err != nil {
		slog.Error("Failed to aggregate policy documents from Weaviate", "error", err)
		return nil, fmt.Errorf("failed to query policy documents: %w", err)
	}

	var sources []string
	aggRoot, ok := agg.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return sources, nil
	}
	groups, ok := aggRoot[datatypes.PolicyDocumentClass].([]interface{})
	if !ok {
		return sources, nil
	}
	for _, group := range groups {
		groupMap, ok := group.(map[string]interface{})
		if !ok {
			continue
		}
		groupedBy, ok := groupMap["groupedBy"].(map[string]interface{})
		if !ok {
			continue
		}
		if value, ok := groupedBy["value"].(string); ok && value != "" {
			sources = append(sources, value)
		}
	}
	sort.Strings(sources)
	return sources, nil
}

// DeleteSource removes every chunk whose parent_source matches.
func (s *WeaviatePolicyStore) DeleteSource(ctx context.Context, parentSource string) error {
	whereFilter := filters.Where().
		WithPath([]string{"parent_source"}).
		WithOperator(filters.Equal).
		WithValueString(parentSource)

	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(datatypes.PolicyDocumentClass).
		WithOutput("minimal").
		WithWhere(whereFilter).
		Do(ctx)
	if err != nil {
		slog.Error("Failed to delete policy chunks from Weaviate", "error", err, "parent_source", parentSource)
		return fmt.Errorf("failed to delete policy chunks: %w", err)
	}
	return nil
}

// =============================================================================
// In-memory store (lightweight mode)
// =============================================================================

// MemoryPolicyStore keeps chunks in process memory and ranks them by cosine
// similarity. It backs lightweight deployments without a Weaviate cluster
// and the test suite.
type MemoryPolicyStore struct {
	mu     sync.RWMutex
	chunks []PolicyChunk
}

func NewMemoryPolicyStore() *MemoryPolicyStore {
	return &MemoryPolicyStore{}
}

func (s *MemoryPolicyStore) Ingest(ctx context.Context, chunks []PolicyChunk) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunks...)
	return len(chunks), nil
}

func (s *MemoryPolicyStore) Retrieve(ctx context.Context, vector []float32, topK int) ([]PolicySnippet, error) {
	if topK <= 0 {
		topK = 3
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	snippets := make([]PolicySnippet, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		snippets = append(snippets, PolicySnippet{
			Content:   chunk.Content,
			Source:    chunk.Source,
			Certainty: rule_engine.Cosine(vector, chunk.Vector),
		})
	}
	sort.SliceStable(snippets, func(i, j int) bool {
		return snippets[i].Certainty > snippets[j].Certainty
	})
	if len(snippets) > topK {
		snippets = snippets[:topK]
	}
	return snippets, nil
}

func (s *MemoryPolicyStore) ListSources(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var sources []string
	for _, chunk := range s.chunks {
		if !seen[chunk.ParentSource] {
			seen[chunk.ParentSource] = true
			sources = append(sources, chunk.ParentSource)
		}
	}
	sort.Strings(sources)
	return sources, nil
}

func (s *MemoryPolicyStore) DeleteSource(ctx context.Context, parentSource string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.chunks[:0]
	for _, chunk := range s.chunks {
		if chunk.ParentSource != parentSource {
			kept = append(kept, chunk)
		}
	}
	s.chunks = kept
	return nil
}
