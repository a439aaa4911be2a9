// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/invisorlabs/invisor/services/insight/datatypes"
)

var askCustomerID string

func runAsk(cmd *cobra.Command, args []string) {
	client := newClient(config)
	req := datatypes.ChatRequest{
		Query:              strings.Join(args, " "),
		CustomerSelected:   askCustomerID != "",
		SelectedCustomerID: askCustomerID,
	}
	resp, err := client.Chat(context.Background(), req)
	if err != nil {
		OutputError("question failed", err)
	}
	if jsonOutput {
		OutputJSON(resp)
		return
	}
	fmt.Println(resp.Response)
}

// runChat loops reading questions from stdin. With a terminal it shows a
// prompt and exit hints; piped input just answers line by line.
func runChat(cmd *cobra.Command, args []string) {
	client := newClient(config)
	interactive := stdinIsTerminal()

	if interactive {
		fmt.Println("Connected to the insight assistant. Type 'exit' to quit.")
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if interactive && (query == "exit" || query == "quit") {
			break
		}

		resp, err := client.Chat(context.Background(), datatypes.ChatRequest{Query: query})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		fmt.Println(resp.Response)
		if interactive {
			fmt.Println()
		}
	}
}
