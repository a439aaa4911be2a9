// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/invisorlabs/invisor/services/insight/dataset"
	"github.com/invisorlabs/invisor/services/insight/datatypes"
	"github.com/invisorlabs/invisor/services/insight/model"
)

// HandlePredictChurn scores every customer in the active dataset.
func HandlePredictChurn(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := deps.Store.Current()
		if err != nil {
			writeError(c, err)
			return
		}
		churn, err := deps.Registry.Churn()
		if err != nil {
			writeError(c, err)
			return
		}
		predictions, err := model.PredictChurn(snap, churn)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, datatypes.PredictionResponse{
			Predictions: predictions,
			Summary:     model.Summarize(predictions),
		})
	}
}

// HandlePredictSegments assigns every customer to a segment.
func HandlePredictSegments(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := deps.Store.Current()
		if err != nil {
			writeError(c, err)
			return
		}
		segment, err := deps.Registry.Segment()
		if err != nil {
			writeError(c, err)
			return
		}
		segments, err := model.PredictSegments(snap, segment)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, datatypes.SegmentResponse{
			Segments:       segments,
			SegmentSummary: summarizeSegments(segments),
		})
	}
}

// summarizeSegments buckets assignments by segment name with counts and
// one-decimal percentages of the customer base.
func summarizeSegments(segments []model.SegmentRecord) map[string]datatypes.SegmentShare {
	summary := make(map[string]datatypes.SegmentShare, len(segments))
	if len(segments) == 0 {
		return summary
	}
	counts := make(map[string]int, len(segments))
	for _, s := range segments {
		counts[s.SegmentName]++
	}
	total := float64(len(segments))
	for name, count := range counts {
		summary[name] = datatypes.SegmentShare{
			Count:      count,
			Percentage: math.Round(float64(count)/total*1000) / 10,
		}
	}
	return summary
}

// HandleLoadModels loads model artifacts from the given paths and swaps
// them into the registry. Each requested artifact reports "loaded" or
// "failed" independently; a bad churn path does not block the segmenter.
func HandleLoadModels(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ModelLoadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, &dataset.ValidationError{Reason: "invalid request body"})
			return
		}

		results := make(map[string]string)
		if req.ChurnModelPath != "" {
			if churn, err := model.LoadTreeEnsemble(req.ChurnModelPath); err != nil {
				slog.Warn("churn model load failed", "path", req.ChurnModelPath, "error", err)
				results["churn_model"] = "failed"
			} else {
				deps.Registry.RegisterChurn(churn)
				results["churn_model"] = "loaded"
			}
		}
		if req.SegmentModelPath != "" {
			if segment, err := model.LoadCentroidSegmenter(req.SegmentModelPath); err != nil {
				slog.Warn("segmentation model load failed", "path", req.SegmentModelPath, "error", err)
				results["segmentation_model"] = "failed"
			} else {
				deps.Registry.RegisterSegment(segment)
				results["segmentation_model"] = "loaded"
			}
		}
		c.JSON(http.StatusOK, datatypes.ModelLoadResponse{Results: results})
	}
}

// HandleModelStatus reports which models and fallbacks are available.
func HandleModelStatus(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := datatypes.ModelStatusResponse{
			Status:        deps.Registry.Status(),
			DatasetLoaded: deps.Store.Loaded(),
		}
		if deps.Precomputed != nil && len(deps.Precomputed.Entries()) > 0 {
			resp.Precomputed = true
		}
		c.JSON(http.StatusOK, resp)
	}
}
