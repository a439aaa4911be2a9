// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/invisorlabs/invisor/services/insight/dataset"
	"github.com/invisorlabs/invisor/services/insight/datatypes"
	"github.com/invisorlabs/invisor/services/insight/insights"
	"github.com/invisorlabs/invisor/services/insight/model"
	"github.com/invisorlabs/invisor/services/insight/observability"
)

// HandleInsights returns the full joined insight feed for the active
// dataset: per-customer predictions with segments, plus segment-level
// aggregates.
func HandleInsights(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := deps.Store.Current()
		if err != nil {
			writeError(c, err)
			return
		}
		churn, _ := deps.Registry.Churn()
		segment, _ := deps.Registry.Segment()

		start := time.Now()
		cache, err := insights.Build(c.Request.Context(), snap, insights.Options{
			Churn:   churn,
			Segment: segment,
		})
		observability.CacheBuildDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, datatypes.InsightsResponse{
			DatasetVersion:   cache.Version,
			DatasetSummary:   cache.DatasetSummary,
			Highlights:       datasetHighlights(snap),
			Customers:        cache.Customers,
			SegmentCounts:    cache.SegmentCounts,
			SegmentChurnRate: cache.SegmentChurnRate,
			Summary:          model.Summarize(cache.Predictions),
		})
	}
}

// datasetHighlights returns the fixed insight blurbs shown alongside the
// aggregates, headed by a line sized to the active dataset.
func datasetHighlights(snap *dataset.Snapshot) []string {
	return []string{
		fmt.Sprintf("Dataset contains %d customers with %d features.",
			snap.Table.NumRows(), snap.Table.NumColumns()),
		"High-risk customers show patterns in usage frequency and support tickets.",
		"Customer segments reveal distinct behavioral patterns for targeted marketing.",
		"Feature importance analysis shows top factors influencing churn decisions.",
		"Explainable AI provides transparency in model predictions for business users.",
	}
}
