// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// rulectl is the operator CLI for the rule generation service: health and
// vocabulary inspection, rule generation over HTTP, and offline validation
// of rule files against the embedded key vocabulary.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "rulectl",
	Short: "Operator CLI for the rule generation service",
	Long: `rulectl talks to a running rulegen service and also validates
JSON Logic rule files offline against the embedded key vocabulary.

Examples:
  rulectl health
  rulectl keys
  rulectl generate --prompt "credit score above 700 and vintage over 3 years"
  rulectl validate --file rule.json`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	defaultServer := os.Getenv("RULEGEN_SERVER_URL")
	if defaultServer == "" {
		defaultServer = "http://localhost:12300"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer,
		"Base URL of the rulegen service")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(validateCmd)
}
