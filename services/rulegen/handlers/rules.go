// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rule_engine"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rulegen/datatypes"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rulegen/observability"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rulegen/services"
)

var rulesTracer = otel.Tracer("rulegen.handlers")

// RuleGenerator is the slice of RuleGenerationService the handler needs.
type RuleGenerator interface {
	Generate(ctx context.Context, prompt string) (*services.GenerationOutcome, error)
}

// GenerateRule converts a natural-language prompt into a validated JSON
// Logic rule. The validation result is returned with the rule even when the
// draft fails validation; only mapping failures and infrastructure errors
// produce non-200 statuses.
func GenerateRule(generator RuleGenerator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := rulesTracer.Start(c.Request.Context(), "GenerateRule")
		defer span.End()

		start := time.Now()
		if m := observability.DefaultMetrics; m != nil {
			m.InFlight.Inc()
			defer m.InFlight.Dec()
		}

		var req datatypes.GenerateRuleRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			recordGeneration("rejected", start)
			return
		}
		if strings.TrimSpace(req.Prompt) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "prompt must not be empty"})
			recordGeneration("rejected", start)
			return
		}
		span.SetAttributes(attribute.Int("rulegen.prompt_len", len(req.Prompt)))

		outcome, err := generator.Generate(ctx, req.Prompt)
		if err != nil {
			var noMapping services.NoMappingError
			if errors.As(err, &noMapping) {
				slog.Info("Prompt produced no accepted key mapping", "prompt_len", len(req.Prompt))
				c.JSON(http.StatusBadRequest, gin.H{
					"error":       "no phrase in the prompt mapped onto a known key",
					"suggestions": noMapping.Suggestions,
				})
				recordGeneration("rejected", start)
				return
			}

			var dimMismatch rule_engine.DimensionMismatchError
			if errors.As(err, &dimMismatch) {
				slog.Error("Embedding dimension mismatch, deployment is misconfigured", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "embedding configuration error"})
				recordGeneration("error", start)
				return
			}

			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Rule generation failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			recordGeneration("error", start)
			return
		}

		if m := observability.DefaultMetrics; m != nil {
			for _, mapping := range outcome.Mappings {
				m.MappingSimilarity.Observe(mapping.Similarity)
			}
			m.ConfidenceScore.Observe(outcome.Confidence)
			for _, defect := range outcome.Validation.Errors {
				m.ValidationDefectsTotal.WithLabelValues(string(defect.Code)).Inc()
			}
		}
		span.SetAttributes(
			attribute.Bool("rulegen.valid", outcome.Validation.Valid),
			attribute.Float64("rulegen.confidence", outcome.Confidence),
		)

		c.JSON(http.StatusOK, datatypes.GenerateRuleResponse{
			JSONLogic:       outcome.Draft.JSONLogic,
			Explanation:     outcome.Draft.Explanation,
			KeyMappings:     outcome.Mappings,
			ConfidenceScore: outcome.Confidence,
			Validation:      outcome.Validation,
		})
		recordGeneration("success", start)
	}
}

func recordGeneration(status string, start time.Time) {
	m := observability.DefaultMetrics
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues("generate", status).Inc()
	m.GenerationDurationSeconds.WithLabelValues(status).Observe(time.Since(start).Seconds())
}
