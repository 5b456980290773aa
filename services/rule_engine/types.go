// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rule_engine

import "fmt"

// ErrorCode identifies a class of validation defect found in a candidate
// expression tree. Codes are stable strings so callers and API clients can
// switch on them.
type ErrorCode string

const (
	ErrCodeUnknownKey      ErrorCode = "unknown_key"
	ErrCodeUnknownOperator ErrorCode = "unknown_operator"
	ErrCodeTypeMismatch    ErrorCode = "type_mismatch"
	ErrCodeDepthExceeded   ErrorCode = "depth_exceeded"
)

// ValidationError is a single defect found while validating an expression
// tree. Validation collects every defect it can find in one pass instead of
// stopping at the first one.
type ValidationError struct {
	Code     ErrorCode `json:"code"`
	Message  string    `json:"message"`
	Key      string    `json:"key,omitempty"`
	Operator string    `json:"operator,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ValidationResult is the outcome of validating one expression tree.
// It is constructed fresh per call and never mutated after return.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	UsedKeys []string          `json:"used_keys"`
	Errors   []ValidationError `json:"errors"`
}

// KeyMapping records that a phrase from the user's prompt was mapped onto a
// canonical key with the given cosine similarity. Every accepted mapping
// satisfies similarity >= the mapper's configured threshold.
type KeyMapping struct {
	UserPhrase string  `json:"user_phrase"`
	MappedTo   string  `json:"mapped_to"`
	Similarity float64 `json:"similarity"`
}

// DuplicateKeyError is returned when the vocabulary contains the same
// identifier twice. This is a configuration defect and halts startup.
type DuplicateKeyError struct {
	Identifier string
}

func (e DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate vocabulary key %q", e.Identifier)
}

// DimensionMismatchError is returned when an embedding vector does not match
// the registry's dimensionality. Vectors come from a single embedding model
// per deployment, so a mismatch means the deployment is misconfigured, not
// that one request went wrong.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: registry has %d, got %d", e.Want, e.Got)
}
