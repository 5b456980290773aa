// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rule_engine

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vinaykumar649/Crego-AI-ML-Task/pkg/validation"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rule_engine/enforcement"
)

// VocabularyEntry is one key definition from the vocabulary file. The
// description and synonyms feed the embedding model; the identifier is what
// generated rules reference.
type VocabularyEntry struct {
	Key         string   `yaml:"key"`
	Description string   `yaml:"description"`
	Synonyms    []string `yaml:"synonyms"`
}

type vocabularyFile struct {
	Keys []VocabularyEntry `yaml:"keys"`
}

// EmbeddingText returns the text to embed for this key: the description
// plus synonyms, or the humanized identifier when no description exists.
func (e VocabularyEntry) EmbeddingText() string {
	parts := make([]string, 0, 2+len(e.Synonyms))
	parts = append(parts, validation.HumanizeKeyPath(e.Key))
	if e.Description != "" {
		parts = append(parts, e.Description)
	}
	parts = append(parts, e.Synonyms...)
	return strings.Join(parts, ". ")
}

// LoadVocabulary parses and checks the embedded key vocabulary. Identifier
// format defects and duplicates are configuration errors that halt startup.
func LoadVocabulary() ([]VocabularyEntry, error) {
	return ParseVocabulary(enforcement.StoreKeyVocabulary)
}

// ParseVocabulary parses a vocabulary YAML document. Split out from
// LoadVocabulary so tests can feed synthetic vocabularies.
func ParseVocabulary(data []byte) ([]VocabularyEntry, error) {
	var file vocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the vocabulary file: %w", err)
	}
	if len(file.Keys) == 0 {
		return nil, fmt.Errorf("vocabulary file defines no keys")
	}

	seen := make(map[string]bool, len(file.Keys))
	for _, entry := range file.Keys {
		if err := validation.ValidateKeyPath(entry.Key); err != nil {
			return nil, fmt.Errorf("vocabulary entry rejected: %w", err)
		}
		if seen[entry.Key] {
			return nil, DuplicateKeyError{Identifier: entry.Key}
		}
		seen[entry.Key] = true
	}
	return file.Keys, nil
}

// VocabularyIdentifiers returns just the identifiers of the embedded
// vocabulary, for callers that validate without embeddings (the CLI).
func VocabularyIdentifiers() ([]string, error) {
	entries, err := LoadVocabulary()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.Key
	}
	return ids, nil
}
