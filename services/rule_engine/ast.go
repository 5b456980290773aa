// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rule_engine

import (
	"encoding/json"
	"fmt"
)

// Operator is a JSON Logic operator name.
type Operator string

const (
	OpAnd Operator = "and"
	OpOr  Operator = "or"
	OpNot Operator = "not"
	OpGT  Operator = ">"
	OpGTE Operator = ">="
	OpLT  Operator = "<"
	OpLTE Operator = "<="
	OpEQ  Operator = "=="
	OpNEQ Operator = "!="
	OpIn  Operator = "in"
)

// DefaultAllowedOperators is the operator whitelist applied when the
// validator is not configured with an explicit set.
func DefaultAllowedOperators() []Operator {
	return []Operator{OpAnd, OpOr, OpNot, OpGT, OpGTE, OpLT, OpLTE, OpEQ, OpNEQ, OpIn}
}

// Node is one node of a candidate expression tree. The concrete types are
// VarRef, Literal, and Operation; validation switches exhaustively over
// them, so adding a node kind is a compile-checked, localized change.
type Node interface {
	node()
}

// VarRef references a canonical data key, e.g. {"var": "bureau.score"}.
type VarRef struct {
	Key string
}

// Literal is a constant: bool, number, string, null, or a list of raw
// JSON-decoded values.
type Literal struct {
	Value any
}

// Operation applies an operator to an ordered sequence of operands.
type Operation struct {
	Op       Operator
	Operands []Node
}

func (VarRef) node()    {}
func (Literal) node()   {}
func (Operation) node() {}

// MalformedExpressionError reports JSON that does not decode into a
// well-formed expression tree. This is distinct from a validation defect:
// a malformed tree cannot even be walked.
type MalformedExpressionError struct {
	Reason string
}

func (e MalformedExpressionError) Error() string {
	return fmt.Sprintf("malformed expression: %s", e.Reason)
}

// DecodeRule parses a JSON Logic document into an expression tree.
//
// The shape follows JSON Logic conventions: {"var": "key"} is a variable
// reference, a single-key object {"op": [...]} is an operation, and
// everything else is a literal. "!" is accepted as an alias for "not".
// Arrays nested inside an operand list decode as list literals, not as
// operand sequences.
func DecodeRule(data []byte) (Node, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, MalformedExpressionError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return decodeNode(raw)
}

func decodeNode(raw any) (Node, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		// Scalars and arrays are literals.
		return Literal{Value: raw}, nil
	}
	if len(obj) != 1 {
		return nil, MalformedExpressionError{
			Reason: fmt.Sprintf("operator object must have exactly one key, found %d", len(obj)),
		}
	}

	var name string
	var value any
	for k, v := range obj {
		name, value = k, v
	}

	if name == "var" {
		key, ok := value.(string)
		if !ok {
			return nil, MalformedExpressionError{Reason: "var reference must name a key as a string"}
		}
		return VarRef{Key: key}, nil
	}

	op := Operator(name)
	if op == "!" {
		op = OpNot
	}

	rawOperands, ok := value.([]any)
	if !ok {
		// JSON Logic permits a bare operand for unary operators.
		rawOperands = []any{value}
	}
	operands := make([]Node, 0, len(rawOperands))
	for _, rawOperand := range rawOperands {
		child, err := decodeNode(rawOperand)
		if err != nil {
			return nil, err
		}
		operands = append(operands, child)
	}
	return Operation{Op: op, Operands: operands}, nil
}
