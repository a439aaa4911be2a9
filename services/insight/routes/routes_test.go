// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/invisorlabs/invisor/services/insight/attribution"
	"github.com/invisorlabs/invisor/services/insight/chat"
	"github.com/invisorlabs/invisor/services/insight/dataset"
	"github.com/invisorlabs/invisor/services/insight/handlers"
	"github.com/invisorlabs/invisor/services/insight/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(opts Options) *gin.Engine {
	router := gin.New()
	deps := handlers.Deps{
		Store:       dataset.NewStore(),
		Registry:    model.NewRegistry(),
		Attribution: attribution.NewEngine(nil, nil),
		Chatbot:     chat.NewChatbot(nil),
	}
	SetupRoutes(router, deps, opts)
	return router
}

func TestHealthAndMetricsAreOpen(t *testing.T) {
	router := newTestRouter(Options{AuthToken: "secret"})

	for _, path := range []string{"/health", "/metrics"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestV1RequiresAuthWhenConfigured(t *testing.T) {
	router := newTestRouter(Options{AuthToken: "secret"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/models/status", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/models/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestV1OpenWithoutToken(t *testing.T) {
	router := newTestRouter(Options{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/models/status", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDHeaderOnEveryResponse(t *testing.T) {
	router := newTestRouter(Options{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
