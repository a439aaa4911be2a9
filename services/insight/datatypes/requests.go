// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides request and response types for the insight
// service HTTP API.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/invisorlabs/invisor/services/insight/attribution"
	"github.com/invisorlabs/invisor/services/insight/insights"
	"github.com/invisorlabs/invisor/services/insight/model"
)

const (
	// MaxQueryBytes bounds a single chat query. Queries beyond this are
	// noise or abuse, not questions.
	MaxQueryBytes = 4 * 1024

	// MaxUploadBytes bounds an uploaded CSV.
	MaxUploadBytes = 50 * 1024 * 1024
)

// validate is the shared validator instance for request types.
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxQueryBytes
	})
}

// ChatRequest is the body of POST /v1/chat/query.
type ChatRequest struct {
	// Query is the free-text question.
	Query string `json:"query" validate:"required,maxbytes"`

	// CustomerSelected marks that the client has a customer focused in
	// its UI, enabling customer-specific intents.
	CustomerSelected bool `json:"customer_selected"`

	// SelectedCustomerID names the focused customer. Required by the
	// customer-specific intent, ignored otherwise.
	SelectedCustomerID string `json:"selected_customer_id,omitempty"`
}

// Validate checks the request against its constraints.
func (r *ChatRequest) Validate() error {
	return validate.Struct(r)
}

// ChatResponse is the body returned by POST /v1/chat/query.
type ChatResponse struct {
	Intent    string `json:"intent"`
	Response  string `json:"response"`
	RequestID string `json:"request_id,omitempty"`
}

// UploadResponse describes an accepted dataset upload.
type UploadResponse struct {
	Version    string    `json:"version"`
	Filename   string    `json:"filename"`
	Rows       int       `json:"rows"`
	Columns    int       `json:"columns"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// PredictionResponse is the body of GET /v1/predict/churn.
type PredictionResponse struct {
	Predictions []model.PredictionRecord `json:"predictions"`
	Summary     model.PredictionSummary  `json:"summary"`
}

// SegmentShare is one segment's slice of the customer base. Percentage is
// rounded to one decimal; the shares of a response sum to 100 within
// rounding error.
type SegmentShare struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// SegmentResponse is the body of GET /v1/predict/segments.
type SegmentResponse struct {
	Segments       []model.SegmentRecord   `json:"segments"`
	SegmentSummary map[string]SegmentShare `json:"segment_summary"`
}

// GlobalExplainResponse is the body of GET /v1/explain/global.
type GlobalExplainResponse struct {
	GlobalFeatureImportance []attribution.GlobalEntry `json:"global_feature_importance"`
	ExplanationType         attribution.Source        `json:"explanation_type"`
}

// LocalExplainResponse is the body of GET /v1/explain/customer/:id.
type LocalExplainResponse struct {
	CustomerID      string                   `json:"customer_id"`
	Explanations    []attribution.LocalEntry `json:"explanations"`
	ExplanationType attribution.Source       `json:"explanation_type"`
}

// InsightsResponse is the body of GET /v1/insights.
type InsightsResponse struct {
	DatasetVersion   string                     `json:"dataset_version"`
	DatasetSummary   string                     `json:"dataset_summary"`
	Highlights       []string                   `json:"highlights"`
	Customers        []insights.CustomerInsight `json:"customers"`
	SegmentCounts    map[string]int             `json:"segment_counts"`
	SegmentChurnRate map[string]float64         `json:"segment_churn_rate"`
	Summary          model.PredictionSummary    `json:"summary"`
}

// ModelLoadRequest is the body of POST /v1/models/load. Each path is
// optional; only the artifacts named are (re)loaded.
type ModelLoadRequest struct {
	ChurnModelPath   string `json:"churn_model,omitempty"`
	SegmentModelPath string `json:"segmentation_model,omitempty"`
}

// ModelLoadResponse reports the outcome per requested artifact, keyed by
// the request field name with "loaded" or "failed" values.
type ModelLoadResponse struct {
	Results map[string]string `json:"results"`
}

// ModelStatusResponse is the body of GET /v1/models/status.
type ModelStatusResponse struct {
	model.Status
	DatasetLoaded bool `json:"dataset_loaded"`
	Precomputed   bool `json:"precomputed_importance"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}
