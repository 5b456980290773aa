// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DraftEnvelope is the parsed form of one LLM draft: the candidate JSON
// Logic tree plus a human-readable explanation.
type DraftEnvelope struct {
	JSONLogic   json.RawMessage
	Explanation string
}

// rawDraft matches the shape the drafting prompt asks for. Explanation is
// kept raw because models sometimes return it as an array of sentences.
type rawDraft struct {
	JSONLogic   json.RawMessage `json:"json_logic"`
	Explanation json.RawMessage `json:"explanation"`
}

// ParseDraftEnvelope extracts the {json_logic, explanation} envelope from a
// raw LLM response. Markdown code fences are stripped first; models wrap
// JSON in them no matter how firmly the prompt forbids it.
func ParseDraftEnvelope(raw string) (DraftEnvelope, error) {
	body := StripMarkdownFences(raw)
	if strings.TrimSpace(body) == "" {
		return DraftEnvelope{}, fmt.Errorf("draft response is empty")
	}

	var draft rawDraft
	if err := json.Unmarshal([]byte(body), &draft); err != nil {
		return DraftEnvelope{}, fmt.Errorf("draft response is not valid JSON: %w", err)
	}
	if len(draft.JSONLogic) == 0 || string(draft.JSONLogic) == "null" {
		return DraftEnvelope{}, fmt.Errorf("draft response has no json_logic field")
	}

	explanation, err := parseExplanation(draft.Explanation)
	if err != nil {
		return DraftEnvelope{}, err
	}
	return DraftEnvelope{JSONLogic: draft.JSONLogic, Explanation: explanation}, nil
}

// parseExplanation accepts either a string or an array of strings.
func parseExplanation(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single, nil
	}
	var parts []string
	if err := json.Unmarshal(raw, &parts); err == nil {
		return strings.Join(parts, " "), nil
	}
	return "", fmt.Errorf("draft explanation is neither a string nor a string array")
}

// StripMarkdownFences removes a surrounding ``` or ```json fence, if any.
func StripMarkdownFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop the optional language tag on the opening fence line.
	if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
		firstLine := strings.TrimSpace(trimmed[:i])
		if firstLine == "" || !strings.ContainsAny(firstLine, "{[") {
			trimmed = trimmed[i+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
