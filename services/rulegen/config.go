// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Config is the env-driven service configuration. Every field is validated
// declaratively; a bad value halts startup instead of surfacing as a wrong
// answer later.
type Config struct {
	Port string `validate:"required"`

	// SimilarityThreshold is the minimum cosine similarity for an accepted
	// phrase-to-key mapping.
	SimilarityThreshold float64 `validate:"gte=-1,lte=1"`
	// TopK bounds the near-miss suggestions returned per rejected phrase.
	TopK int `validate:"gte=1"`
	// MaxDepth bounds expression tree nesting.
	MaxDepth int `validate:"gte=1"`
	// MaxRuleBytes bounds the serialized size of a generated rule.
	MaxRuleBytes int `validate:"gte=1"`

	RetrieverTopK int `validate:"gte=1"`

	RateLimitRPS   float64 `validate:"gt=0"`
	RateLimitBurst int     `validate:"gte=1"`

	// EmbeddingBackend selects "service" (HTTP sidecar) or "openai".
	EmbeddingBackend string `validate:"oneof=service openai"`
	// LLMBackend selects "openai" or "ollama".
	LLMBackend string `validate:"oneof=openai ollama"`
}

// LoadConfig reads the environment, fills defaults with a warning, and
// validates the result.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:                envOr("RULEGEN_PORT", "12300"),
		SimilarityThreshold: envFloatOr("SIMILARITY_THRESHOLD", 0.20),
		TopK:                envIntOr("SUGGESTION_TOP_K", 3),
		MaxDepth:            envIntOr("MAX_RULE_DEPTH", 10),
		MaxRuleBytes:        envIntOr("MAX_RULE_BYTES", 5000),
		RetrieverTopK:       envIntOr("RETRIEVER_TOP_K", 3),
		RateLimitRPS:        envFloatOr("RATE_LIMIT_RPS", 5),
		RateLimitBurst:      envIntOr("RATE_LIMIT_BURST", 10),
		EmbeddingBackend:    envOr("EMBEDDING_BACKEND", "openai"),
		LLMBackend:          envOr("LLM_BACKEND_TYPE", "openai"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Warn("Environment variable not set, using default", "key", key, "default", fallback)
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		slog.Warn("Environment variable not set, using default", "key", key, "default", fallback)
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Environment variable is not an integer, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return parsed
}

func envFloatOr(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		slog.Warn("Environment variable not set, using default", "key", key, "default", fallback)
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("Environment variable is not a number, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return parsed
}
