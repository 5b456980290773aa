// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rule_engine

import (
	"fmt"
	"sort"
)

// ValidatorConfig configures expression validation. Zero values select
// defaults.
type ValidatorConfig struct {
	// MaxDepth bounds tree nesting; a tree nested exactly at MaxDepth
	// validates, one level deeper fails with depth_exceeded.
	MaxDepth int
	// AllowedOperators whitelists operators. Empty means the default set.
	AllowedOperators []Operator
}

const DefaultMaxDepth = 10

// Validator statically checks candidate expression trees against the
// operator grammar and the closed key vocabulary. It keeps no per-call
// state, so a single Validator serves concurrent requests.
//
// Policy note: used_keys is restricted by registry membership only. A key
// that appears in a drafted rule but was never mapped from the prompt is
// still accepted as long as the vocabulary contains it.
type Validator struct {
	registry *Registry
	allowed  map[Operator]bool
	maxDepth int
}

// NewValidator builds a validator over the given vocabulary.
func NewValidator(registry *Registry, cfg ValidatorConfig) (*Validator, error) {
	if registry == nil {
		return nil, fmt.Errorf("validator requires a registry")
	}
	if cfg.MaxDepth < 0 {
		return nil, fmt.Errorf("max expression depth must be positive, got %d", cfg.MaxDepth)
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	operators := cfg.AllowedOperators
	if len(operators) == 0 {
		operators = DefaultAllowedOperators()
	}
	allowed := make(map[Operator]bool, len(operators))
	for _, op := range operators {
		allowed[op] = true
	}
	return &Validator{registry: registry, allowed: allowed, maxDepth: cfg.MaxDepth}, nil
}

// Validate walks the tree and collects every defect it finds in one pass
// rather than stopping at the first. It never panics or fails; the result's
// Valid flag is true exactly when no errors were collected.
func (v *Validator) Validate(root Node) ValidationResult {
	w := &walker{validator: v, used: make(map[string]bool)}
	if root == nil {
		w.addError(ValidationError{
			Code:    ErrCodeTypeMismatch,
			Message: "expression is empty",
		})
	} else {
		w.walk(root, 1)
	}

	usedKeys := make([]string, 0, len(w.used))
	for key := range w.used {
		usedKeys = append(usedKeys, key)
	}
	sort.Strings(usedKeys)

	return ValidationResult{
		Valid:    len(w.errors) == 0,
		UsedKeys: usedKeys,
		Errors:   w.errors,
	}
}

// walker accumulates defects for a single Validate call.
type walker struct {
	validator *Validator
	used      map[string]bool
	errors    []ValidationError
}

func (w *walker) addError(err ValidationError) {
	w.errors = append(w.errors, err)
}

func (w *walker) walk(n Node, depth int) {
	if depth > w.validator.maxDepth {
		w.addError(ValidationError{
			Code:    ErrCodeDepthExceeded,
			Message: fmt.Sprintf("expression nesting exceeds the maximum depth of %d", w.validator.maxDepth),
		})
		return
	}

	switch node := n.(type) {
	case VarRef:
		if !w.validator.registry.Contains(node.Key) {
			w.addError(ValidationError{
				Code:    ErrCodeUnknownKey,
				Message: fmt.Sprintf("key %q is not in the allowed vocabulary", node.Key),
				Key:     node.Key,
			})
			return
		}
		w.used[node.Key] = true
	case Literal:
		// Always valid on its own; operators constrain operand types.
	case Operation:
		w.walkOperation(node, depth)
	}
}

func (w *walker) walkOperation(op Operation, depth int) {
	if !w.validator.allowed[op.Op] {
		w.addError(ValidationError{
			Code:     ErrCodeUnknownOperator,
			Message:  fmt.Sprintf("operator %q is not allowed", op.Op),
			Operator: string(op.Op),
		})
	} else {
		w.checkGrammar(op)
	}
	for _, operand := range op.Operands {
		w.walk(operand, depth+1)
	}
}

// checkGrammar enforces arity and operand-type rules per operator kind.
// Operand types are checked only where they are statically known (literals);
// variable references and nested operations pass through, since their
// runtime type cannot be inferred here.
func (w *walker) checkGrammar(op Operation) {
	switch op.Op {
	case OpAnd, OpOr:
		if len(op.Operands) < 2 {
			w.arityError(op, "requires at least 2 operands")
		}
	case OpNot:
		if len(op.Operands) != 1 {
			w.arityError(op, "requires exactly 1 operand")
		}
	case OpGT, OpGTE, OpLT, OpLTE:
		if len(op.Operands) != 2 {
			w.arityError(op, "requires exactly 2 operands")
			return
		}
		for _, operand := range op.Operands {
			if lit, ok := operand.(Literal); ok {
				if t := literalType(lit.Value); t != typeNumber {
					w.typeError(op, fmt.Sprintf("ordering comparison requires numeric operands, got %s", t))
				}
			}
		}
	case OpEQ, OpNEQ:
		if len(op.Operands) != 2 {
			w.arityError(op, "requires exactly 2 operands")
			return
		}
		left, leftIsLit := op.Operands[0].(Literal)
		right, rightIsLit := op.Operands[1].(Literal)
		if leftIsLit && rightIsLit {
			lt, rt := literalType(left.Value), literalType(right.Value)
			if lt != rt {
				w.typeError(op, fmt.Sprintf("equality requires matching literal types, got %s and %s", lt, rt))
			}
		}
	case OpIn:
		if len(op.Operands) != 2 {
			w.arityError(op, "requires exactly 2 operands")
			return
		}
		switch needle := op.Operands[0].(type) {
		case VarRef:
		case Literal:
			if literalType(needle.Value) == typeList {
				w.typeError(op, "first operand of \"in\" must be a scalar or variable, got list")
			}
		default:
			w.typeError(op, "first operand of \"in\" must be a scalar or variable")
		}
		if haystack, ok := op.Operands[1].(Literal); !ok || literalType(haystack.Value) != typeList {
			w.typeError(op, "second operand of \"in\" must be a list literal")
		}
	}
}

func (w *walker) arityError(op Operation, msg string) {
	w.addError(ValidationError{
		Code:     ErrCodeTypeMismatch,
		Message:  fmt.Sprintf("operator %q %s, got %d", op.Op, msg, len(op.Operands)),
		Operator: string(op.Op),
	})
}

func (w *walker) typeError(op Operation, msg string) {
	w.addError(ValidationError{
		Code:     ErrCodeTypeMismatch,
		Message:  msg,
		Operator: string(op.Op),
	})
}

const (
	typeBoolean = "boolean"
	typeNumber  = "number"
	typeString  = "string"
	typeList    = "list"
	typeNull    = "null"
)

// literalType infers a literal's type from its decoded JSON shape.
func literalType(v any) string {
	switch v.(type) {
	case bool:
		return typeBoolean
	case float64, int, int64, float32:
		return typeNumber
	case string:
		return typeString
	case []any:
		return typeList
	default:
		return typeNull
	}
}
