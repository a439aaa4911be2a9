// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invisorlabs/invisor/services/insight/attribution"
	"github.com/invisorlabs/invisor/services/insight/chat"
	"github.com/invisorlabs/invisor/services/insight/dataset"
	"github.com/invisorlabs/invisor/services/insight/datatypes"
	"github.com/invisorlabs/invisor/services/insight/history"
	"github.com/invisorlabs/invisor/services/insight/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const uploadCSV = `customer_id,gender,tenure,contract,monthly_charges,total_charges,churn
C001,Female,3,Month-to-month,85.0,255.0,1
C002,Male,48,Two year,20.0,960.0,0
C003,Female,24,One year,50.0,1200.0,0
`

// testDeps builds a fully wired dependency set with the upload CSV already
// active and models matched to its encoded width.
func testDeps(t *testing.T) Deps {
	t.Helper()

	table, err := dataset.ParseCSV(strings.NewReader(uploadCSV))
	require.NoError(t, err)
	table, err = dataset.Normalize(table)
	require.NoError(t, err)
	require.NoError(t, dataset.ValidateSchema(table))

	store := dataset.NewStore()
	store.Replace(table, "seed.csv")

	features := table.FeatureColumns()
	tree := &model.Tree{Nodes: []model.Node{
		{Feature: 1, Threshold: 12, Left: 1, Right: 2, Value: 0.55},
		{Feature: -1, Value: 0.8},
		{Feature: -1, Value: 0.3},
	}}
	registry := model.NewRegistry()
	registry.RegisterChurn(model.NewTreeEnsemble("churn_rf_v1", features, []*model.Tree{tree}))

	// Two centroids over the leading encoded features; trailing default
	// columns are constant and contribute nothing to the distance.
	centroids := [][]float64{
		make([]float64, len(features)),
		make([]float64, len(features)),
	}
	centroids[0][1] = 3
	centroids[0][3] = 85
	centroids[0][4] = 255
	centroids[1][1] = 36
	centroids[1][3] = 35
	centroids[1][4] = 1080
	registry.RegisterSegment(model.NewCentroidSegmenter("kmeans_v1", centroids))

	hist, err := history.Open(history.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = hist.Close() })

	return Deps{
		Store:       store,
		Registry:    registry,
		Attribution: attribution.NewEngine(nil, nil),
		Chatbot:     chat.NewChatbot(nil),
		History:     hist,
	}
}

func testRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.GET("/health", HealthCheck)
	r.POST("/v1/data/upload", HandleUpload(deps))
	r.GET("/v1/data/uploads", HandleUploadHistory(deps))
	r.GET("/v1/predict/churn", HandlePredictChurn(deps))
	r.GET("/v1/predict/segments", HandlePredictSegments(deps))
	r.GET("/v1/explain/global", HandleExplainGlobal(deps))
	r.GET("/v1/explain/customer/:id", HandleExplainCustomer(deps))
	r.POST("/v1/chat/query", HandleChatQuery(deps))
	r.GET("/v1/insights", HandleInsights(deps))
	r.GET("/v1/models/status", HandleModelStatus(deps))
	r.POST("/v1/models/load", HandleLoadModels(deps))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	r := testRouter(testDeps(t))
	w := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUploadMultipart(t *testing.T) {
	r := testRouter(testDeps(t))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "churn.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(uploadCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/data/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp datatypes.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "churn.csv", resp.Filename)
	assert.Equal(t, 3, resp.Rows)
	assert.NotEmpty(t, resp.Version)

	// The upload lands in history.
	w = doJSON(t, r, http.MethodGet, "/v1/data/uploads", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "churn.csv")
}

func TestUploadRejectsMissingColumns(t *testing.T) {
	r := testRouter(testDeps(t))
	req := httptest.NewRequest(http.MethodPost, "/v1/data/upload",
		strings.NewReader("customer_id,gender\nC001,Female\n"))
	req.Header.Set("Content-Type", "text/csv")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "tenure_months")
}

func TestPredictChurn(t *testing.T) {
	r := testRouter(testDeps(t))
	w := doJSON(t, r, http.MethodGet, "/v1/predict/churn", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp datatypes.PredictionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Predictions, 3)
	assert.Equal(t, 1, resp.Summary.HighRiskCount)
	assert.Equal(t, 2, resp.Summary.LowRiskCount)
	assert.Equal(t, model.RiskHigh, resp.Predictions[0].RiskLevel)
}

func TestPredictSegments(t *testing.T) {
	r := testRouter(testDeps(t))
	w := doJSON(t, r, http.MethodGet, "/v1/predict/segments", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp datatypes.SegmentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Segments, 3)
	assert.Equal(t, 1, resp.SegmentSummary["High Value"].Count)
	assert.Equal(t, 2, resp.SegmentSummary["At Risk"].Count)
	assert.InDelta(t, 33.3, resp.SegmentSummary["High Value"].Percentage, 0.01)
	assert.InDelta(t, 66.7, resp.SegmentSummary["At Risk"].Percentage, 0.01)

	var total float64
	for _, share := range resp.SegmentSummary {
		total += share.Percentage
	}
	assert.InDelta(t, 100, total, 0.1)
}

func TestExplainGlobal(t *testing.T) {
	r := testRouter(testDeps(t))
	w := doJSON(t, r, http.MethodGet, "/v1/explain/global", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp datatypes.GlobalExplainResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, attribution.SourceLive, resp.ExplanationType)
	require.NotEmpty(t, resp.GlobalFeatureImportance)
	assert.Equal(t, "tenure_months", resp.GlobalFeatureImportance[0].Feature)
	assert.Equal(t, 1, resp.GlobalFeatureImportance[0].Rank)
}

func TestExplainCustomer(t *testing.T) {
	r := testRouter(testDeps(t))
	w := doJSON(t, r, http.MethodGet, "/v1/explain/customer/C001", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp datatypes.LocalExplainResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "C001", resp.CustomerID)
	require.NotEmpty(t, resp.Explanations)
	assert.Equal(t, "tenure_months", resp.Explanations[0].Feature)
}

func TestExplainCustomerNotFound(t *testing.T) {
	r := testRouter(testDeps(t))
	w := doJSON(t, r, http.MethodGet, "/v1/explain/customer/C999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExplainCustomerBadID(t *testing.T) {
	r := testRouter(testDeps(t))
	w := doJSON(t, r, http.MethodGet, "/v1/explain/customer/bad*id", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatQuery(t *testing.T) {
	r := testRouter(testDeps(t))
	w := doJSON(t, r, http.MethodPost, "/v1/chat/query", datatypes.ChatRequest{
		Query: "How many customers are likely to churn?",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp datatypes.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(chat.IntentChurnOverview), resp.Intent)
	assert.Contains(t, resp.Response, "Out of 3 customers")
}

func TestChatQueryWithoutDataset(t *testing.T) {
	deps := testDeps(t)
	deps.Store = dataset.NewStore()
	r := testRouter(deps)

	w := doJSON(t, r, http.MethodPost, "/v1/chat/query", datatypes.ChatRequest{Query: "churn overview"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Please upload data to begin analysis.")
}

func TestChatQueryRejectsEmptyBody(t *testing.T) {
	r := testRouter(testDeps(t))
	w := doJSON(t, r, http.MethodPost, "/v1/chat/query", datatypes.ChatRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredictWithoutDataset(t *testing.T) {
	deps := testDeps(t)
	deps.Store = dataset.NewStore()
	r := testRouter(deps)

	w := doJSON(t, r, http.MethodGet, "/v1/predict/churn", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPredictWithoutModel(t *testing.T) {
	deps := testDeps(t)
	deps.Registry = model.NewRegistry()
	r := testRouter(deps)

	w := doJSON(t, r, http.MethodGet, "/v1/predict/churn", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestInsightsFeed(t *testing.T) {
	r := testRouter(testDeps(t))
	w := doJSON(t, r, http.MethodGet, "/v1/insights", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp datatypes.InsightsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Customers, 3)
	assert.Equal(t, 1.0, resp.SegmentChurnRate["High Value"])
	assert.NotEmpty(t, resp.DatasetVersion)
	require.NotEmpty(t, resp.Highlights)
	assert.Contains(t, resp.Highlights[0], "3 customers")
}

func TestLoadModels(t *testing.T) {
	deps := testDeps(t)
	deps.Registry = model.NewRegistry()
	r := testRouter(deps)

	dir := t.TempDir()
	churnPath := filepath.Join(dir, "churn.json")
	segmentPath := filepath.Join(dir, "segments.json")
	churnArtifact := `{"name":"churn_v2","features":["tenure_months","monthly_charges"],` +
		`"trees":[{"nodes":[{"feature":-1,"threshold":0,"left":0,"right":0,"value":0.5}]}]}`
	segmentArtifact := `{"name":"kmeans_v2","centroids":[[0,0],[1,1]]}`
	require.NoError(t, os.WriteFile(churnPath, []byte(churnArtifact), 0o600))
	require.NoError(t, os.WriteFile(segmentPath, []byte(segmentArtifact), 0o600))

	w := doJSON(t, r, http.MethodPost, "/v1/models/load", datatypes.ModelLoadRequest{
		ChurnModelPath:   churnPath,
		SegmentModelPath: segmentPath,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp datatypes.ModelLoadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "loaded", resp.Results["churn_model"])
	assert.Equal(t, "loaded", resp.Results["segmentation_model"])

	w = doJSON(t, r, http.MethodGet, "/v1/models/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status datatypes.ModelStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.ChurnModelLoaded)
	assert.Equal(t, "churn_v2", status.ChurnModelName)
	assert.True(t, status.SegmentationModelLoaded)
}

func TestLoadModelsReportsFailures(t *testing.T) {
	deps := testDeps(t)
	r := testRouter(deps)

	w := doJSON(t, r, http.MethodPost, "/v1/models/load", datatypes.ModelLoadRequest{
		ChurnModelPath: filepath.Join(t.TempDir(), "absent.json"),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp datatypes.ModelLoadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "failed", resp.Results["churn_model"])
	assert.NotContains(t, resp.Results, "segmentation_model")

	// A failed load never unregisters the model already serving.
	churn, err := deps.Registry.Churn()
	require.NoError(t, err)
	assert.Equal(t, "churn_rf_v1", churn.Name())
}

func TestModelStatus(t *testing.T) {
	r := testRouter(testDeps(t))
	w := doJSON(t, r, http.MethodGet, "/v1/models/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.ModelStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.ChurnModelLoaded)
	assert.Equal(t, model.CapabilityTree, resp.ChurnModelCapability)
	assert.True(t, resp.SegmentationModelLoaded)
	assert.True(t, resp.DatasetLoaded)
	assert.False(t, resp.Precomputed)
}
