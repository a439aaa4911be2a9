// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func runExplain(cmd *cobra.Command, args []string) {
	client := newClient(config)

	if len(args) == 0 {
		resp, err := client.ExplainGlobal(context.Background())
		if err != nil {
			OutputError("global explanation failed", err)
		}
		if jsonOutput {
			OutputJSON(resp)
			return
		}
		fmt.Printf("Global churn drivers (%s):\n", resp.ExplanationType)
		for _, e := range resp.GlobalFeatureImportance {
			fmt.Printf("%3d. %-28s %.3f\n", e.Rank, e.Feature, e.Importance)
		}
		return
	}

	resp, err := client.ExplainCustomer(context.Background(), args[0])
	if err != nil {
		OutputError("customer explanation failed", err)
	}
	if jsonOutput {
		OutputJSON(resp)
		return
	}
	fmt.Printf("Churn drivers for %s (%s):\n", resp.CustomerID, resp.ExplanationType)
	for _, e := range resp.Explanations {
		fmt.Printf("  %-28s %+.3f  (%s, value %s)\n",
			e.Feature, e.Contribution, e.Impact, e.FeatureValue)
	}
}

func runInsights(cmd *cobra.Command, args []string) {
	client := newClient(config)
	resp, err := client.Insights(context.Background())
	if err != nil {
		OutputError("insight feed failed", err)
	}
	if jsonOutput {
		OutputJSON(resp)
		return
	}

	fmt.Println(resp.DatasetSummary)
	fmt.Printf("\nRisk: %d high, %d medium, %d low\n",
		resp.Summary.HighRiskCount, resp.Summary.MediumRiskCount, resp.Summary.LowRiskCount)

	names := make([]string, 0, len(resp.SegmentCounts))
	for name := range resp.SegmentCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nSegments:")
	for _, name := range names {
		fmt.Printf("  %-24s %4d customers, %.1f%% churn\n",
			name, resp.SegmentCounts[name], resp.SegmentChurnRate[name]*100)
	}
}
