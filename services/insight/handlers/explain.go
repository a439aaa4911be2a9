// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/invisorlabs/invisor/pkg/validation"
	"github.com/invisorlabs/invisor/services/insight/datatypes"
	"github.com/invisorlabs/invisor/services/insight/observability"
)

var explainTracer = otel.Tracer("invisor.insight.handlers")

// HandleExplainGlobal returns ranked dataset-wide feature importance.
func HandleExplainGlobal(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := explainTracer.Start(c.Request.Context(), "HandleExplainGlobal")
		defer span.End()

		snap, err := deps.Store.Current()
		if err != nil {
			writeError(c, err)
			return
		}
		// A missing churn model is not fatal here: the engine can still
		// answer from the precomputed table.
		churn, _ := deps.Registry.Churn()

		start := time.Now()
		result, err := deps.Attribution.ExplainGlobal(ctx, snap, churn)
		observability.AttributionDuration.WithLabelValues("global").Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			observability.AttributionRequests.WithLabelValues("global", "", "error").Inc()
			writeError(c, err)
			return
		}
		observability.AttributionRequests.WithLabelValues("global", string(result.Source), "ok").Inc()

		c.JSON(http.StatusOK, datatypes.GlobalExplainResponse{
			GlobalFeatureImportance: result.Entries,
			ExplanationType:         result.Source,
		})
	}
}

// HandleExplainCustomer returns the top feature contributions for one
// customer.
func HandleExplainCustomer(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := explainTracer.Start(c.Request.Context(), "HandleExplainCustomer")
		defer span.End()

		customerID := c.Param("id")
		if err := validation.ValidateCustomerID(customerID); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		snap, err := deps.Store.Current()
		if err != nil {
			writeError(c, err)
			return
		}
		churn, _ := deps.Registry.Churn()

		start := time.Now()
		result, err := deps.Attribution.ExplainLocal(ctx, snap, churn, customerID)
		observability.AttributionDuration.WithLabelValues("local").Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			observability.AttributionRequests.WithLabelValues("local", "", "error").Inc()
			writeError(c, err)
			return
		}
		observability.AttributionRequests.WithLabelValues("local", string(result.Source), "ok").Inc()

		c.JSON(http.StatusOK, datatypes.LocalExplainResponse{
			CustomerID:      result.CustomerID,
			Explanations:    result.Entries,
			ExplanationType: result.Source,
		})
	}
}
