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

func runUpload(cmd *cobra.Command, args []string) {
	client := newClient(config)
	resp, err := client.Upload(context.Background(), args[0])
	if err != nil {
		OutputError("upload failed", err)
	}
	if jsonOutput {
		OutputJSON(resp)
		return
	}
	fmt.Printf("Uploaded %s: %d rows, %d columns (version %s)\n",
		resp.Filename, resp.Rows, resp.Columns, resp.Version)
}

func runUploads(cmd *cobra.Command, args []string) {
	client := newClient(config)
	records, err := client.Uploads(context.Background())
	if err != nil {
		OutputError("failed to list uploads", err)
	}
	if jsonOutput {
		OutputJSON(records)
		return
	}
	if len(records) == 0 {
		fmt.Println("No uploads recorded yet.")
		return
	}
	for _, rec := range records {
		fmt.Printf("%s  %-30s %6d rows  %s\n",
			rec.UploadedAt.Format("2006-01-02 15:04:05"), rec.Filename, rec.Rows, rec.Version)
	}
}
