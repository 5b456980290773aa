// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for identifiers
// that end up in queries, prompts, and generated rules. Validating key
// paths up front keeps malformed or hostile identifiers out of the
// vocabulary and out of LLM prompts.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// keyPathPattern matches canonical data key identifiers.
// Segments are lowercase snake_case, joined by dots: "bureau.score",
// "business.vintage_in_years". Max length 80 characters.
var keyPathPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)

const maxKeyPathLen = 80

// ValidateKeyPath validates a canonical key identifier.
//
// Valid key paths:
//   - two or more dot-delimited segments
//   - each segment starts with a letter, lowercase snake_case
//   - at most 80 characters total
//
// Returns an error describing the defect if the identifier is invalid.
func ValidateKeyPath(key string) error {
	if key == "" {
		return fmt.Errorf("key path cannot be empty")
	}
	if len(key) > maxKeyPathLen {
		return fmt.Errorf("key path %q exceeds %d characters", key, maxKeyPathLen)
	}
	if !keyPathPattern.MatchString(key) {
		return fmt.Errorf("invalid key path format: %q (must be dot-delimited lowercase snake_case segments)", key)
	}
	return nil
}

// ValidateKeyPaths validates multiple identifiers.
// Returns an error listing all invalid key paths if any fail validation.
func ValidateKeyPaths(keys []string) error {
	var invalid []string
	for _, k := range keys {
		if err := ValidateKeyPath(k); err != nil {
			invalid = append(invalid, k)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid key paths: %v", invalid)
	}
	return nil
}

// HumanizeKeyPath turns an identifier into plain words, for use as
// embedding text when a key has no description: "business.vintage_in_years"
// becomes "business vintage in years".
func HumanizeKeyPath(key string) string {
	return strings.NewReplacer(".", " ", "_", " ").Replace(key)
}
