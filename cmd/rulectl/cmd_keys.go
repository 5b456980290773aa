// Copyright (C) 2026 Vinay Kumar
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var keysJSONOutput bool

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the key vocabulary generated rules may reference",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		resp, err := newAPIClient(serverURL).Keys(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		if keysJSONOutput || !isatty.IsTerminal(os.Stdout.Fd()) {
			out, _ := json.MarshalIndent(resp, "", "  ")
			fmt.Println(string(out))
			return
		}

		fmt.Printf("%d keys:\n", resp.Count)
		for _, key := range resp.Keys {
			if key.Description != "" {
				fmt.Printf("  %-40s %s\n", key.Key, key.Description)
			} else {
				fmt.Printf("  %s\n", key.Key)
			}
		}
	},
}

func init() {
	keysCmd.Flags().BoolVar(&keysJSONOutput, "json", false, "Output as JSON")
}
