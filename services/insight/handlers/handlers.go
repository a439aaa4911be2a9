// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the insight service HTTP endpoints.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/invisorlabs/invisor/services/insight/attribution"
	"github.com/invisorlabs/invisor/services/insight/chat"
	"github.com/invisorlabs/invisor/services/insight/dataset"
	"github.com/invisorlabs/invisor/services/insight/datatypes"
	"github.com/invisorlabs/invisor/services/insight/history"
	"github.com/invisorlabs/invisor/services/insight/middleware"
	"github.com/invisorlabs/invisor/services/insight/model"
)

// Deps bundles the shared service state the handlers close over.
type Deps struct {
	Store       *dataset.Store
	Registry    *model.Registry
	Attribution *attribution.Engine
	Chatbot     *chat.Chatbot
	History     *history.Store
	Precomputed *attribution.PrecomputedTable
}

// HealthCheck reports process liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps the service error taxonomy onto HTTP statuses with a
// uniform body.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	var (
		notFound   *dataset.NotFoundError
		validation *dataset.ValidationError
		timeout    *attribution.TimeoutError
	)
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &validation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, dataset.ErrNoDataset):
		status = http.StatusConflict
		message = "no dataset uploaded yet"
	case errors.Is(err, dataset.ErrEmptyCSV):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrChurnModelNotLoaded),
		errors.Is(err, model.ErrSegmentModelNotLoaded):
		status = http.StatusServiceUnavailable
	case errors.Is(err, attribution.ErrAttributionUnavailable):
		status = http.StatusServiceUnavailable
	case errors.As(err, &timeout):
		status = http.StatusGatewayTimeout
	}

	c.JSON(status, datatypes.ErrorResponse{
		Error:     message,
		RequestID: middleware.GetRequestID(c),
	})
}
