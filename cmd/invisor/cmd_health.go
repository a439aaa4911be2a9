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

	"github.com/spf13/cobra"
)

func runHealth(cmd *cobra.Command, args []string) {
	client := newClient(config)
	if err := client.Health(context.Background()); err != nil {
		OutputError("insight service is not healthy", err)
	}
	if jsonOutput {
		OutputJSON(map[string]string{"status": "ok", "server": config.ServerURL})
		return
	}
	fmt.Printf("Insight service at %s is healthy.\n", config.ServerURL)
}

func runStatus(cmd *cobra.Command, args []string) {
	client := newClient(config)
	status, err := client.ModelStatus(context.Background())
	if err != nil {
		OutputError("failed to fetch model status", err)
	}
	if jsonOutput {
		OutputJSON(status)
		return
	}

	fmt.Printf("Dataset loaded:          %v\n", status.DatasetLoaded)
	fmt.Printf("Precomputed importance:  %v\n", status.Precomputed)
	if status.ChurnModelLoaded {
		fmt.Printf("Churn model:             %s (%s)\n", status.ChurnModelName, status.ChurnModelCapability)
	} else {
		fmt.Println("Churn model:             not loaded")
	}
	if status.SegmentationModelLoaded {
		fmt.Printf("Segmentation model:      %s\n", status.SegmentationModelName)
	} else {
		fmt.Println("Segmentation model:      not loaded")
	}
}
