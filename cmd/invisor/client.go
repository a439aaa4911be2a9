// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/invisorlabs/invisor/services/insight/datatypes"
	"github.com/invisorlabs/invisor/services/insight/history"
)

// insightClient talks to the insight service HTTP API.
type insightClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient(cfg Config) *insightClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &insightClient{
		baseURL: strings.TrimRight(cfg.ServerURL, "/"),
		token:   cfg.AuthToken,
		http:    &http.Client{Timeout: timeout},
	}
}

// apiError carries the server's error body alongside the HTTP status.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (c *insightClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody datatypes.ErrorResponse
		message := resp.Status
		if json.NewDecoder(resp.Body).Decode(&errBody) == nil && errBody.Error != "" {
			message = errBody.Error
		}
		return &apiError{Status: resp.StatusCode, Message: message}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *insightClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, "", nil)
}

func (c *insightClient) ModelStatus(ctx context.Context) (datatypes.ModelStatusResponse, error) {
	var out datatypes.ModelStatusResponse
	err := c.do(ctx, http.MethodGet, "/v1/models/status", nil, "", &out)
	return out, err
}

// Upload streams a local CSV to the service as a multipart form.
func (c *insightClient) Upload(ctx context.Context, path string) (datatypes.UploadResponse, error) {
	var out datatypes.UploadResponse

	f, err := os.Open(path)
	if err != nil {
		return out, err
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return out, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return out, err
	}
	if err := writer.Close(); err != nil {
		return out, err
	}

	err = c.do(ctx, http.MethodPost, "/v1/data/upload", &buf, writer.FormDataContentType(), &out)
	return out, err
}

func (c *insightClient) Uploads(ctx context.Context) ([]history.Record, error) {
	var out struct {
		Uploads []history.Record `json:"uploads"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/data/uploads", nil, "", &out)
	return out.Uploads, err
}

func (c *insightClient) PredictChurn(ctx context.Context) (datatypes.PredictionResponse, error) {
	var out datatypes.PredictionResponse
	err := c.do(ctx, http.MethodGet, "/v1/predict/churn", nil, "", &out)
	return out, err
}

func (c *insightClient) PredictSegments(ctx context.Context) (datatypes.SegmentResponse, error) {
	var out datatypes.SegmentResponse
	err := c.do(ctx, http.MethodGet, "/v1/predict/segments", nil, "", &out)
	return out, err
}

func (c *insightClient) ExplainGlobal(ctx context.Context) (datatypes.GlobalExplainResponse, error) {
	var out datatypes.GlobalExplainResponse
	err := c.do(ctx, http.MethodGet, "/v1/explain/global", nil, "", &out)
	return out, err
}

func (c *insightClient) ExplainCustomer(ctx context.Context, customerID string) (datatypes.LocalExplainResponse, error) {
	var out datatypes.LocalExplainResponse
	path := "/v1/explain/customer/" + url.PathEscape(customerID)
	err := c.do(ctx, http.MethodGet, path, nil, "", &out)
	return out, err
}

func (c *insightClient) Insights(ctx context.Context) (datatypes.InsightsResponse, error) {
	var out datatypes.InsightsResponse
	err := c.do(ctx, http.MethodGet, "/v1/insights", nil, "", &out)
	return out, err
}

func (c *insightClient) Chat(ctx context.Context, req datatypes.ChatRequest) (datatypes.ChatResponse, error) {
	var out datatypes.ChatResponse
	payload, err := json.Marshal(req)
	if err != nil {
		return out, err
	}
	err = c.do(ctx, http.MethodPost, "/v1/chat/query", bytes.NewReader(payload), "application/json", &out)
	return out, err
}
