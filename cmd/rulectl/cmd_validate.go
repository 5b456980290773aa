// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rule_engine"
	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rulegen/datatypes"
)

var (
	validateFile     string
	validateMaxDepth int
)

// validateCmd checks a rule file offline: no service, no embeddings, just
// the embedded vocabulary identifiers and the expression grammar.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a JSON Logic rule file against the embedded vocabulary",
	Run: func(cmd *cobra.Command, args []string) {
		if validateFile == "" {
			fmt.Fprintln(os.Stderr, "error: --file is required")
			os.Exit(1)
		}

		data, err := os.ReadFile(validateFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		result, err := validateRuleBytes(data, validateMaxDepth)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		if !result.Valid {
			os.Exit(1)
		}
	},
}

// validateRuleBytes is the offline validation pipeline, split out for
// testing.
func validateRuleBytes(data []byte, maxDepth int) (rule_engine.ValidationResult, error) {
	var zero rule_engine.ValidationResult

	if err := datatypes.CheckRuleSize(data, 0); err != nil {
		return zero, err
	}

	identifiers, err := rule_engine.VocabularyIdentifiers()
	if err != nil {
		return zero, fmt.Errorf("failed to load the embedded vocabulary: %w", err)
	}
	registry, err := rule_engine.LoadIdentifierRegistry(identifiers)
	if err != nil {
		return zero, err
	}
	validator, err := rule_engine.NewValidator(registry, rule_engine.ValidatorConfig{MaxDepth: maxDepth})
	if err != nil {
		return zero, err
	}

	node, err := rule_engine.DecodeRule(data)
	if err != nil {
		return zero, fmt.Errorf("rule does not parse as JSON Logic: %w", err)
	}
	return validator.Validate(node), nil
}

func init() {
	validateCmd.Flags().StringVar(&validateFile, "file", "", "Path to a JSON Logic rule file")
	validateCmd.Flags().IntVar(&validateMaxDepth, "max-depth", 0,
		"Maximum expression nesting depth (0 uses the default)")
}
