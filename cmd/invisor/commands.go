// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configFile string
	serverFlag string
	jsonOutput bool

	rootCmd = &cobra.Command{
		Use:   "invisor",
		Short: "A cli for the Invisor churn insight service",
		Long: `Invisor is a tool for working with the churn insight service:
				upload customer datasets, run predictions, inspect churn
				drivers, and chat with the insight assistant.`,
	}

	// --- Data ---
	dataCmd = &cobra.Command{
		Use:   "data",
		Short: "Manage customer datasets on the insight service",
	}
	uploadCmd = &cobra.Command{
		Use:   "upload [csv file]",
		Short: "Upload a customer CSV and make it the active dataset",
		Args:  cobra.ExactArgs(1),
		Run:   runUpload, // Defined in cmd_data.go
	}
	uploadsCmd = &cobra.Command{
		Use:   "uploads",
		Short: "List past dataset uploads, newest first",
		Run:   runUploads, // Defined in cmd_data.go
	}

	// --- Predictions ---
	predictCmd = &cobra.Command{
		Use:   "predict",
		Short: "Run model predictions over the active dataset",
	}
	predictChurnCmd = &cobra.Command{
		Use:   "churn",
		Short: "Predict churn probability for every customer",
		Run:   runPredictChurn, // Defined in cmd_predict.go
	}
	predictSegmentsCmd = &cobra.Command{
		Use:   "segments",
		Short: "Assign every customer to a behavioral segment",
		Run:   runPredictSegments, // Defined in cmd_predict.go
	}

	// --- Explanations ---
	explainCmd = &cobra.Command{
		Use:   "explain [customer_id]",
		Short: "Show churn drivers, dataset-wide or for one customer",
		Args:  cobra.MaximumNArgs(1),
		Run:   runExplain, // Defined in cmd_explain.go
	}

	// --- Insights / Chat ---
	insightsCmd = &cobra.Command{
		Use:   "insights",
		Short: "Show the aggregated insight feed for the active dataset",
		Run:   runInsights, // Defined in cmd_explain.go
	}
	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the insight assistant a single question",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAsk, // Defined in cmd_chat.go
	}
	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session with the insight assistant",
		Run:   runChat, // Defined in cmd_chat.go
	}

	// --- Service ---
	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Check that the insight service is reachable",
		Run:   runHealth, // Defined in cmd_health.go
	}
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show which models and artifacts the service has loaded",
		Run:   runStatus, // Defined in cmd_health.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to the CLI config file (default invisor.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "",
		"Insight service base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output as JSON for scripting")

	askCmd.Flags().StringVar(&askCustomerID, "customer", "",
		"Scope the question to a selected customer")

	dataCmd.AddCommand(uploadCmd, uploadsCmd)
	predictCmd.AddCommand(predictChurnCmd, predictSegmentsCmd)
	rootCmd.AddCommand(dataCmd, predictCmd, explainCmd, insightsCmd,
		askCmd, chatCmd, healthCmd, statusCmd)
}
