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

func runPredictChurn(cmd *cobra.Command, args []string) {
	client := newClient(config)
	resp, err := client.PredictChurn(context.Background())
	if err != nil {
		OutputError("churn prediction failed", err)
	}
	if jsonOutput {
		OutputJSON(resp)
		return
	}

	fmt.Printf("Scored %d customers: %d high risk, %d medium, %d low\n\n",
		resp.Summary.TotalCustomers, resp.Summary.HighRiskCount,
		resp.Summary.MediumRiskCount, resp.Summary.LowRiskCount)
	for _, p := range resp.Predictions {
		fmt.Printf("%-16s %.3f  %s\n", p.CustomerID, p.ChurnProbability, p.RiskLevel)
	}
}

func runPredictSegments(cmd *cobra.Command, args []string) {
	client := newClient(config)
	resp, err := client.PredictSegments(context.Background())
	if err != nil {
		OutputError("segmentation failed", err)
	}
	if jsonOutput {
		OutputJSON(resp)
		return
	}

	names := make([]string, 0, len(resp.SegmentSummary))
	for name := range resp.SegmentSummary {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		share := resp.SegmentSummary[name]
		fmt.Printf("%-24s %4d customers  %5.1f%%\n", name, share.Count, share.Percentage)
	}
}
