// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config holds the CLI configuration loaded from invisor.yaml.
type Config struct {
	ServerURL      string `yaml:"server_url"`
	AuthToken      string `yaml:"auth_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

var config = Config{
	ServerURL:      "http://localhost:12310",
	TimeoutSeconds: 60,
}

func main() {
	// Execute the root command. Cobra handles parsing the arguments.
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		configPath := configFile
		if configPath == "" {
			configPath = "invisor.yaml"
		}
		yamlFile, err := os.ReadFile(configPath)
		if err != nil {
			// The defaults cover local development. An explicit --config
			// that cannot be read is an error.
			if configFile != "" {
				log.Fatalf("Error reading %s: %v", configPath, err)
			}
		} else if err := yaml.Unmarshal(yamlFile, &config); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}

		if v := os.Getenv("INVISOR_SERVER_URL"); v != "" {
			config.ServerURL = v
		}
		if v := os.Getenv("INVISOR_AUTH_TOKEN"); v != "" {
			config.AuthToken = v
		}
		if serverFlag != "" {
			config.ServerURL = serverFlag
		}
	}
}
