// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes holds the request and response types of the rule
// generation API, plus the parsing of LLM draft envelopes.
package datatypes

import (
	"encoding/json"
	"fmt"

	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rule_engine"
)

// DefaultMaxRuleBytes bounds the serialized size of a generated rule.
// Anything larger is almost certainly a runaway draft, not a business rule.
const DefaultMaxRuleBytes = 5000

type GenerateRuleRequest struct {
	Prompt string `json:"prompt"`
}

type GenerateRuleResponse struct {
	JSONLogic       json.RawMessage              `json:"json_logic"`
	Explanation     string                       `json:"explanation"`
	KeyMappings     []rule_engine.KeyMapping     `json:"key_mappings"`
	ConfidenceScore float64                      `json:"confidence_score"`
	Validation      rule_engine.ValidationResult `json:"validation"`
}

// PhraseSuggestion carries the nearest vocabulary keys for a phrase that
// fell below the acceptance threshold. Returned with a 400 when a prompt
// produced no accepted mapping at all.
type PhraseSuggestion struct {
	Phrase      string              `json:"phrase"`
	Suggestions []rule_engine.Match `json:"suggestions"`
}

type KeyInfo struct {
	Key         string   `json:"key"`
	Description string   `json:"description"`
	Synonyms    []string `json:"synonyms,omitempty"`
}

type ListKeysResponse struct {
	Keys  []KeyInfo `json:"keys"`
	Count int       `json:"count"`
}

type IngestDocumentRequest struct {
	Content    string `json:"content"`
	Source     string `json:"source"`
	DataSpace  string `json:"data_space"`
	VersionTag string `json:"version_tag"`
}

// CheckRuleSize rejects serialized rules above the limit. A non-positive
// limit selects the default.
func CheckRuleSize(rule json.RawMessage, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxRuleBytes
	}
	if len(rule) > limit {
		return fmt.Errorf("generated rule is %d bytes, limit is %d", len(rule), limit)
	}
	return nil
}
