// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/invisorlabs/invisor/services/insight/dataset"
	"github.com/invisorlabs/invisor/services/insight/datatypes"
	"github.com/invisorlabs/invisor/services/insight/history"
	"github.com/invisorlabs/invisor/services/insight/observability"
)

// HandleUpload ingests a churn CSV as the new active dataset. Accepts a
// multipart form with a "file" part or a raw CSV body.
func HandleUpload(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		reader, filename, err := uploadReader(c)
		if err != nil {
			observability.DatasetUploads.WithLabelValues("invalid").Inc()
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		defer reader.Close()

		table, err := dataset.ParseCSV(io.LimitReader(reader, datatypes.MaxUploadBytes))
		if err != nil {
			observability.DatasetUploads.WithLabelValues("invalid").Inc()
			writeError(c, err)
			return
		}
		table, err = dataset.Normalize(table)
		if err != nil {
			observability.DatasetUploads.WithLabelValues("invalid").Inc()
			writeError(c, err)
			return
		}
		if err := dataset.ValidateSchema(table); err != nil {
			observability.DatasetUploads.WithLabelValues("invalid").Inc()
			writeError(c, err)
			return
		}

		snap := deps.Store.Replace(table, filename)
		observability.DatasetUploads.WithLabelValues("ok").Inc()
		observability.DatasetRows.Set(float64(table.NumRows()))

		if deps.History != nil {
			err := deps.History.Append(history.Record{
				Version:    snap.Version,
				Filename:   snap.Filename,
				Rows:       table.NumRows(),
				Columns:    table.NumColumns(),
				UploadedAt: snap.UploadedAt,
			})
			if err != nil {
				// The dataset is already live; history is best-effort.
				slog.Warn("failed to record upload history", "error", err)
			}
		}

		slog.Info("dataset uploaded",
			"version", snap.Version, "filename", filename,
			"rows", table.NumRows(), "columns", table.NumColumns())
		c.JSON(http.StatusCreated, datatypes.UploadResponse{
			Version:    snap.Version,
			Filename:   snap.Filename,
			Rows:       table.NumRows(),
			Columns:    table.NumColumns(),
			UploadedAt: snap.UploadedAt,
		})
	}
}

// uploadReader resolves the CSV payload from a multipart "file" part or
// the raw request body.
func uploadReader(c *gin.Context) (io.ReadCloser, string, error) {
	if file, header, err := c.Request.FormFile("file"); err == nil {
		return file, header.Filename, nil
	}
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil, "", errors.New("no file provided")
	}
	return c.Request.Body, "upload.csv", nil
}

// HandleUploadHistory lists past uploads, newest first.
func HandleUploadHistory(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.History == nil {
			c.JSON(http.StatusOK, gin.H{"uploads": []history.Record{}})
			return
		}
		records, err := deps.History.List(50)
		if err != nil {
			writeError(c, err)
			return
		}
		if records == nil {
			records = []history.Record{}
		}
		c.JSON(http.StatusOK, gin.H{"uploads": records})
	}
}
