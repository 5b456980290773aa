// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/vinaykumar649/Crego-AI-ML-Task/services/embedding"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/llm"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rule_engine"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rulegen/datatypes"
)

var genTracer = otel.Tracer("rulegen.services.generator")

// GeneratorConfig bounds the generation pipeline. Zero values select
// defaults.
type GeneratorConfig struct {
	// RetrieverTopK is how many policy snippets feed the drafting prompt.
	RetrieverTopK int
	// SuggestionTopK is how many near-miss keys are suggested per phrase
	// when no mapping clears the threshold.
	SuggestionTopK int
	// MaxRuleBytes bounds the serialized size of an accepted draft.
	MaxRuleBytes int
	// MaxDraftAttempts is how often a malformed draft is retried before
	// the request fails.
	MaxDraftAttempts int
	// MaxTokens is passed to the drafting backend.
	MaxTokens int
}

const (
	defaultRetrieverTopK    = 3
	defaultSuggestionTopK   = 3
	defaultMaxDraftAttempts = 2
	defaultMaxTokens        = 2000
)

// NoMappingError reports that no phrase in the prompt cleared the
// similarity threshold. It carries near-miss suggestions so the caller can
// rephrase. Mapped to HTTP 400 at the boundary.
type NoMappingError struct {
	Suggestions []datatypes.PhraseSuggestion
}

func (e NoMappingError) Error() string {
	return "no phrase in the prompt mapped onto a known key"
}

// GenerationOutcome is everything one generation run produced. The
// validation result travels with the draft even when invalid; the client
// decides what to do with a rejected rule.
type GenerationOutcome struct {
	Draft      datatypes.DraftEnvelope
	Mappings   []rule_engine.KeyMapping
	Confidence float64
	Validation rule_engine.ValidationResult
	Context    []PolicySnippet
}

// RuleGenerationService runs the full pipeline: phrase extraction, parallel
// key mapping and policy retrieval, LLM drafting, and static validation.
type RuleGenerationService struct {
	extractor *rule_engine.PhraseExtractor
	mapper    *rule_engine.SimilarityMapper
	validator *rule_engine.Validator
	embedder  embedding.Embedder
	llmClient llm.LLMClient
	retriever PolicyRetriever
	vocab     []rule_engine.VocabularyEntry
	operators []rule_engine.Operator
	cfg       GeneratorConfig
}

func NewRuleGenerationService(
	extractor *rule_engine.PhraseExtractor,
	mapper *rule_engine.SimilarityMapper,
	validator *rule_engine.Validator,
	embedder embedding.Embedder,
	llmClient llm.LLMClient,
	retriever PolicyRetriever,
	vocab []rule_engine.VocabularyEntry,
	operators []rule_engine.Operator,
	cfg GeneratorConfig,
) (*RuleGenerationService, error) {
	if extractor == nil || mapper == nil || validator == nil {
		return nil, fmt.Errorf("rule generation service requires extractor, mapper and validator")
	}
	if embedder == nil {
		return nil, fmt.Errorf("rule generation service requires an embedder")
	}
	if llmClient == nil {
		return nil, fmt.Errorf("rule generation service requires an LLM client")
	}
	if retriever == nil {
		retriever = NewMemoryPolicyStore()
	}
	if len(operators) == 0 {
		operators = rule_engine.DefaultAllowedOperators()
	}
	if cfg.RetrieverTopK <= 0 {
		cfg.RetrieverTopK = defaultRetrieverTopK
	}
	if cfg.SuggestionTopK <= 0 {
		cfg.SuggestionTopK = defaultSuggestionTopK
	}
	if cfg.MaxRuleBytes <= 0 {
		cfg.MaxRuleBytes = datatypes.DefaultMaxRuleBytes
	}
	if cfg.MaxDraftAttempts <= 0 {
		cfg.MaxDraftAttempts = defaultMaxDraftAttempts
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return &RuleGenerationService{
		extractor: extractor,
		mapper:    mapper,
		validator: validator,
		embedder:  embedder,
		llmClient: llmClient,
		retriever: retriever,
		vocab:     vocab,
		operators: operators,
		cfg:       cfg,
	}, nil
}

// Generate converts one natural-language prompt into a validated rule.
func (s *RuleGenerationService) Generate(ctx context.Context, prompt string) (*GenerationOutcome, error) {
	ctx, span := genTracer.Start(ctx, "RuleGenerationService.Generate")
	defer span.End()

	candidates := s.extractor.Extract(prompt)
	span.SetAttributes(attribute.Int("rulegen.candidates", len(candidates)))

	// Key mapping and policy retrieval are independent; run them in
	// parallel. Retrieval failures degrade to an empty context instead of
	// failing the request.
	var (
		mappings []rule_engine.KeyMapping
		embedded []rule_engine.EmbeddedCandidate
		snippets []PolicySnippet
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		embedded, err = s.embedCandidates(gctx, candidates)
		if err != nil {
			return err
		}
		mappings, err = s.mapper.Map(embedded)
		return err
	})
	g.Go(func() error {
		promptVector, err := s.embedder.Embed(gctx, prompt)
		if err != nil {
			slog.Warn("Prompt embedding for retrieval failed, drafting without policy context", "error", err)
			return nil
		}
		snippets, err = s.retriever.Retrieve(gctx, promptVector, s.cfg.RetrieverTopK)
		if err != nil {
			slog.Warn("Policy retrieval failed, drafting without policy context", "error", err)
			snippets = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if len(mappings) == 0 {
		suggestions := s.suggestions(embedded)
		span.SetAttributes(attribute.Int("rulegen.suggestions", len(suggestions)))
		return nil, NoMappingError{Suggestions: suggestions}
	}
	span.SetAttributes(attribute.Int("rulegen.mappings", len(mappings)))

	outcome, err := s.draftAndValidate(ctx, prompt, mappings, snippets)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	outcome.Mappings = mappings
	outcome.Confidence = rule_engine.AggregateConfidence(mappings)
	outcome.Context = snippets
	return outcome, nil
}

// embedCandidates batch-embeds the distinct non-literal candidate texts and
// attaches the vectors. Literal candidates skip embedding entirely.
func (s *RuleGenerationService) embedCandidates(ctx context.Context, candidates []rule_engine.PhraseCandidate) ([]rule_engine.EmbeddedCandidate, error) {
	var texts []string
	index := make(map[string]int)
	for _, cand := range candidates {
		if cand.Literal {
			continue
		}
		if _, ok := index[cand.Text]; !ok {
			index[cand.Text] = len(texts)
			texts = append(texts, cand.Text)
		}
	}

	var vectors [][]float32
	if len(texts) > 0 {
		var err error
		vectors, err = s.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed candidate phrases: %w", err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d phrases", len(vectors), len(texts))
		}
	}

	embedded := make([]rule_engine.EmbeddedCandidate, len(candidates))
	for i, cand := range candidates {
		embedded[i] = rule_engine.EmbeddedCandidate{PhraseCandidate: cand}
		if !cand.Literal {
			embedded[i].Vector = vectors[index[cand.Text]]
		}
	}
	return embedded, nil
}

// suggestions collects near-miss keys for the distinct non-literal phrases
// of a prompt that produced no accepted mapping.
func (s *RuleGenerationService) suggestions(embedded []rule_engine.EmbeddedCandidate) []datatypes.PhraseSuggestion {
	const maxPhrases = 3

	var out []datatypes.PhraseSuggestion
	seen := make(map[string]bool)
	for _, cand := range embedded {
		if cand.Literal || len(cand.Vector) == 0 || seen[cand.Text] {
			continue
		}
		seen[cand.Text] = true
		matches, err := s.mapper.TopMatches(cand.Vector, s.cfg.SuggestionTopK)
		if err != nil || len(matches) == 0 {
			continue
		}
		out = append(out, datatypes.PhraseSuggestion{Phrase: cand.Text, Suggestions: matches})
		if len(out) >= maxPhrases {
			break
		}
	}
	return out
}

// draftAndValidate asks the LLM for a draft and statically validates it,
// retrying when the model returns something that does not even parse.
func (s *RuleGenerationService) draftAndValidate(ctx context.Context, prompt string,
	mappings []rule_engine.KeyMapping, snippets []PolicySnippet) (*GenerationOutcome, error) {

	systemPrompt := s.buildSystemPrompt(mappings, snippets)
	maxTokens := s.cfg.MaxTokens
	params := llm.GenerationParams{
		SystemPrompt: systemPrompt,
		MaxTokens:    &maxTokens,
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxDraftAttempts; attempt++ {
		raw, err := s.llmClient.Generate(ctx, prompt, params)
		if err != nil {
			return nil, fmt.Errorf("rule drafting failed: %w", err)
		}

		draft, err := datatypes.ParseDraftEnvelope(raw)
		if err != nil {
			slog.Warn("Draft envelope did not parse, retrying", "attempt", attempt, "error", err)
			lastErr = err
			continue
		}
		if err := datatypes.CheckRuleSize(draft.JSONLogic, s.cfg.MaxRuleBytes); err != nil {
			slog.Warn("Draft rule over size limit, retrying", "attempt", attempt, "error", err)
			lastErr = err
			continue
		}
		node, err := rule_engine.DecodeRule(draft.JSONLogic)
		if err != nil {
			slog.Warn("Draft rule did not decode, retrying", "attempt", attempt, "error", err)
			lastErr = err
			continue
		}

		return &GenerationOutcome{
			Draft:      draft,
			Validation: s.validator.Validate(node),
		}, nil
	}
	return nil, fmt.Errorf("model produced no usable draft after %d attempts: %w", s.cfg.MaxDraftAttempts, lastErr)
}

// buildSystemPrompt assembles the drafting instructions: the closed key
// vocabulary, the operator whitelist, the accepted phrase mappings, and any
// retrieved policy context.
func (s *RuleGenerationService) buildSystemPrompt(mappings []rule_engine.KeyMapping, snippets []PolicySnippet) string {
	var b strings.Builder
	b.WriteString("You translate business rules into JSON Logic.\n")
	b.WriteString("Respond with a single JSON object: {\"json_logic\": <rule>, \"explanation\": <string>}.\n")
	b.WriteString("No markdown, no prose outside the JSON object.\n\n")

	b.WriteString("Allowed data keys (use no others):\n")
	for _, entry := range s.vocab {
		b.WriteString("- ")
		b.WriteString(entry.Key)
		if entry.Description != "" {
			b.WriteString(": ")
			b.WriteString(entry.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nAllowed operators: ")
	for i, op := range s.operators {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(op))
	}
	b.WriteString("\n")

	if len(mappings) > 0 {
		b.WriteString("\nPhrases from the request map onto these keys:\n")
		for _, m := range mappings {
			fmt.Fprintf(&b, "- %q -> %s (similarity %.2f)\n", m.UserPhrase, m.MappedTo, m.Similarity)
		}
	}

	if len(snippets) > 0 {
		b.WriteString("\nRelevant policy context:\n")
		for _, snippet := range snippets {
			fmt.Fprintf(&b, "[%s] %s\n", snippet.Source, snippet.Content)
		}
	}
	return b.String()
}
