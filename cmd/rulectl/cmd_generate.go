// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vinaykumar649/Crego-AI-ML-Task/services/rulegen/datatypes"
)

var generatePrompt string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a validated JSON Logic rule from a natural-language prompt",
	Run: func(cmd *cobra.Command, args []string) {
		if generatePrompt == "" {
			fmt.Fprintln(os.Stderr, "error: --prompt is required")
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		status, body, err := newAPIClient(serverURL).GenerateRule(ctx, generatePrompt)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		// Non-TTY consumers get the raw response body either way.
		if !isatty.IsTerminal(os.Stdout.Fd()) {
			var pretty bytes.Buffer
			if json.Indent(&pretty, body, "", "  ") == nil {
				fmt.Println(pretty.String())
			} else {
				fmt.Println(string(body))
			}
			if status != http.StatusOK {
				os.Exit(1)
			}
			return
		}

		if status != http.StatusOK {
			fmt.Fprintf(os.Stderr, "request failed with status %d:\n%s\n", status, string(body))
			os.Exit(1)
		}

		var resp datatypes.GenerateRuleResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to decode response: %v\n", err)
			os.Exit(1)
		}

		rule, _ := json.MarshalIndent(resp.JSONLogic, "", "  ")
		fmt.Println(string(rule))
		if resp.Explanation != "" {
			fmt.Printf("\nExplanation: %s\n", resp.Explanation)
		}
		fmt.Printf("Confidence:  %.2f\n", resp.ConfidenceScore)
		for _, mapping := range resp.KeyMappings {
			fmt.Printf("  %q -> %s (%.2f)\n", mapping.UserPhrase, mapping.MappedTo, mapping.Similarity)
		}
		if !resp.Validation.Valid {
			fmt.Println("\nValidation FAILED:")
			for _, defect := range resp.Validation.Errors {
				fmt.Printf("  [%s] %s\n", defect.Code, defect.Message)
			}
			os.Exit(1)
		}
	},
}

func init() {
	generateCmd.Flags().StringVar(&generatePrompt, "prompt", "", "Natural-language business rule")
}
