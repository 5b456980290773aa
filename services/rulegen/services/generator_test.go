// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinaykumar649/Crego-AI-ML-Task/services/llm"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rule_engine"
)

// fakeEmbedder returns canned vectors per exact text and a zero vector for
// anything else.
type fakeEmbedder struct {
	vectors map[string][]float32
	dim     int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return make([]float32, f.dim), nil
}

func (f *fakeEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, _ := f.Embed(ctx, text)
		out[i] = v
	}
	return out, nil
}

type mockLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
	params    []llm.GenerationParams
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	m.params = append(m.params, params)
	if m.err != nil {
		return "", m.err
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

func (m *mockLLM) lastParams(t *testing.T) llm.GenerationParams {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.params)
	return m.params[len(m.params)-1]
}

var testVocab = []rule_engine.VocabularyEntry{
	{Key: "bureau.score", Description: "credit bureau score of the applicant"},
	{Key: "business.vintage_in_years", Description: "years the business has existed"},
}

func newGeneratorForTest(t *testing.T, embedder *fakeEmbedder, llmClient llm.LLMClient,
	retriever PolicyRetriever) *RuleGenerationService {
	t.Helper()

	registry, err := rule_engine.LoadRegistry([]rule_engine.CanonicalKey{
		{Identifier: "bureau.score", Embedding: []float32{1, 0}},
		{Identifier: "business.vintage_in_years", Embedding: []float32{0, 1}},
	})
	require.NoError(t, err)

	extractor := rule_engine.NewPhraseExtractor(registry, rule_engine.ExtractorConfig{})
	mapper, err := rule_engine.NewSimilarityMapper(registry, rule_engine.MapperConfig{Threshold: 0.20})
	require.NoError(t, err)
	validator, err := rule_engine.NewValidator(registry, rule_engine.ValidatorConfig{})
	require.NoError(t, err)

	svc, err := NewRuleGenerationService(extractor, mapper, validator, embedder, llmClient,
		retriever, testVocab, nil, GeneratorConfig{})
	require.NoError(t, err)
	return svc
}

const goodDraft = `{"json_logic": {">": [{"var": "bureau.score"}, 700]}, "explanation": "score above 700"}`

func TestGenerate_HappyPath(t *testing.T) {
	embedder := &fakeEmbedder{dim: 2, vectors: map[string][]float32{
		"credit score": {0.9, 0.1},
	}}
	drafting := &mockLLM{responses: []string{goodDraft}}
	svc := newGeneratorForTest(t, embedder, drafting, nil)

	outcome, err := svc.Generate(context.Background(), "credit score above 700")
	require.NoError(t, err)

	require.Len(t, outcome.Mappings, 1)
	assert.Equal(t, "credit score", outcome.Mappings[0].UserPhrase)
	assert.Equal(t, "bureau.score", outcome.Mappings[0].MappedTo)
	assert.InDelta(t, outcome.Mappings[0].Similarity, outcome.Confidence, 1e-9)

	assert.True(t, outcome.Validation.Valid)
	assert.Equal(t, []string{"bureau.score"}, outcome.Validation.UsedKeys)
	assert.JSONEq(t, `{">": [{"var": "bureau.score"}, 700]}`, string(outcome.Draft.JSONLogic))
	assert.Equal(t, "score above 700", outcome.Draft.Explanation)

	// The drafting instructions carry the vocabulary and the mapping.
	params := drafting.lastParams(t)
	assert.Contains(t, params.SystemPrompt, "bureau.score")
	assert.Contains(t, params.SystemPrompt, "business.vintage_in_years")
	assert.Contains(t, params.SystemPrompt, `"credit score" -> bureau.score`)
}

func TestGenerate_LiteralIdentifierBypassesScoring(t *testing.T) {
	embedder := &fakeEmbedder{dim: 2}
	drafting := &mockLLM{responses: []string{goodDraft}}
	svc := newGeneratorForTest(t, embedder, drafting, nil)

	outcome, err := svc.Generate(context.Background(), "flag when bureau.score drops")
	require.NoError(t, err)

	require.NotEmpty(t, outcome.Mappings)
	assert.Equal(t, "bureau.score", outcome.Mappings[0].UserPhrase)
	assert.Equal(t, 1.0, outcome.Mappings[0].Similarity)
}

func TestGenerate_NoMappingReturnsSuggestions(t *testing.T) {
	embedder := &fakeEmbedder{dim: 2}
	drafting := &mockLLM{responses: []string{goodDraft}}
	svc := newGeneratorForTest(t, embedder, drafting, nil)

	_, err := svc.Generate(context.Background(), "weather forecast for tomorrow")
	require.Error(t, err)

	var noMapping NoMappingError
	require.ErrorAs(t, err, &noMapping)
	require.NotEmpty(t, noMapping.Suggestions)
	assert.NotEmpty(t, noMapping.Suggestions[0].Suggestions)

	// Nothing should have been sent to the drafting backend.
	assert.Empty(t, drafting.prompts)
}

func TestGenerate_RetriesMalformedDraft(t *testing.T) {
	embedder := &fakeEmbedder{dim: 2, vectors: map[string][]float32{
		"credit score": {0.9, 0.1},
	}}
	drafting := &mockLLM{responses: []string{"not json at all", goodDraft}}
	svc := newGeneratorForTest(t, embedder, drafting, nil)

	outcome, err := svc.Generate(context.Background(), "credit score above 700")
	require.NoError(t, err)
	assert.True(t, outcome.Validation.Valid)
	assert.Len(t, drafting.prompts, 2)
}

func TestGenerate_GivesUpAfterMaxAttempts(t *testing.T) {
	embedder := &fakeEmbedder{dim: 2, vectors: map[string][]float32{
		"credit score": {0.9, 0.1},
	}}
	drafting := &mockLLM{responses: []string{"still not json"}}
	svc := newGeneratorForTest(t, embedder, drafting, nil)

	_, err := svc.Generate(context.Background(), "credit score above 700")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable draft")
	assert.Len(t, drafting.prompts, defaultMaxDraftAttempts)
}

func TestGenerate_LLMFailureSurfaces(t *testing.T) {
	embedder := &fakeEmbedder{dim: 2, vectors: map[string][]float32{
		"credit score": {0.9, 0.1},
	}}
	drafting := &mockLLM{err: errors.New("backend down")}
	svc := newGeneratorForTest(t, embedder, drafting, nil)

	_, err := svc.Generate(context.Background(), "credit score above 700")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule drafting failed")
}

func TestGenerate_InvalidDraftStillReturned(t *testing.T) {
	embedder := &fakeEmbedder{dim: 2, vectors: map[string][]float32{
		"credit score": {0.9, 0.1},
	}}
	badKeyDraft := `{"json_logic": {">": [{"var": "unknown.field"}, 1]}, "explanation": "x"}`
	drafting := &mockLLM{responses: []string{badKeyDraft}}
	svc := newGeneratorForTest(t, embedder, drafting, nil)

	outcome, err := svc.Generate(context.Background(), "credit score above 700")
	require.NoError(t, err)

	assert.False(t, outcome.Validation.Valid)
	require.Len(t, outcome.Validation.Errors, 1)
	assert.Equal(t, rule_engine.ErrCodeUnknownKey, outcome.Validation.Errors[0].Code)
}

func TestGenerate_PolicyContextFlowsIntoPrompt(t *testing.T) {
	prompt := "credit score above 700"
	embedder := &fakeEmbedder{dim: 2, vectors: map[string][]float32{
		"credit score": {0.9, 0.1},
		prompt:         {1, 0},
	}}
	drafting := &mockLLM{responses: []string{goodDraft}}

	store := NewMemoryPolicyStore()
	_, err := store.Ingest(context.Background(), []PolicyChunk{{
		Content:      "Minimum acceptable bureau score is 700.",
		Source:       "credit_policy.md_part_1",
		ParentSource: "credit_policy.md",
		Vector:       []float32{1, 0},
	}})
	require.NoError(t, err)

	svc := newGeneratorForTest(t, embedder, drafting, store)

	outcome, err := svc.Generate(context.Background(), prompt)
	require.NoError(t, err)
	require.Len(t, outcome.Context, 1)
	assert.Equal(t, "credit_policy.md_part_1", outcome.Context[0].Source)

	params := drafting.lastParams(t)
	assert.Contains(t, params.SystemPrompt, "Minimum acceptable bureau score is 700.")
}

func TestNewRuleGenerationService_RequiresCollaborators(t *testing.T) {
	_, err := NewRuleGenerationService(nil, nil, nil, nil, nil, nil, nil, nil, GeneratorConfig{})
	assert.Error(t, err)
}
