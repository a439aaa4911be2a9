// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invisorlabs/invisor/services/insight/datatypes"
)

func testClient(t *testing.T, handler http.HandlerFunc) *insightClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return newClient(Config{ServerURL: server.URL, AuthToken: "secret", TimeoutSeconds: 5})
}

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	})

	err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestClientDecodesServerError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(datatypes.ErrorResponse{Error: "no dataset uploaded yet"})
	})

	_, err := client.PredictChurn(context.Background())
	require.Error(t, err)

	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Contains(t, apiErr.Message, "no dataset uploaded yet")
}

func TestClientUploadSendsMultipart(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "customers.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("customer_id\nC001\n"), 0o600))

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/data/upload", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "customers.csv", header.Filename)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(datatypes.UploadResponse{Filename: header.Filename, Rows: 1})
	})

	resp, err := client.Upload(context.Background(), csvPath)
	require.NoError(t, err)
	assert.Equal(t, "customers.csv", resp.Filename)
	assert.Equal(t, 1, resp.Rows)
}

func TestClientUploadsUnwrapsEnvelope(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"uploads":[{"version":"v1","filename":"a.csv","rows":10,"columns":3}]}`))
	})

	records, err := client.Uploads(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a.csv", records[0].Filename)
	assert.Equal(t, 10, records[0].Rows)
}

func TestClientChatRoundTrip(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req datatypes.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "which segment has the highest churn rate?", req.Query)

		json.NewEncoder(w).Encode(datatypes.ChatResponse{
			Intent:   "SEGMENT_CHURN",
			Response: "At Risk: 60.0%",
		})
	})

	resp, err := client.Chat(context.Background(), datatypes.ChatRequest{
		Query: "which segment has the highest churn rate?",
	})
	require.NoError(t, err)
	assert.Equal(t, "SEGMENT_CHURN", resp.Intent)
	assert.Contains(t, resp.Response, "60.0%")
}
