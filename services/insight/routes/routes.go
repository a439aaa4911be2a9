// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package routes wires the insight service endpoints onto a gin router.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/invisorlabs/invisor/services/insight/handlers"
	"github.com/invisorlabs/invisor/services/insight/middleware"
)

// Options tunes the route-level middleware.
type Options struct {
	// AuthToken protects the v1 API when non-empty.
	AuthToken string

	// RateLimitRPS caps request throughput; zero disables limiting.
	RateLimitRPS float64

	// RateLimitBurst is the limiter's burst allowance.
	RateLimitBurst int
}

// SetupRoutes registers all endpoints.
func SetupRoutes(router *gin.Engine, deps handlers.Deps, opts Options) {
	router.Use(middleware.RequestID(), middleware.Metrics())

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	v1.Use(middleware.Auth(opts.AuthToken))
	if opts.RateLimitRPS > 0 {
		v1.Use(middleware.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	}
	{
		v1.POST("/data/upload", handlers.HandleUpload(deps))
		v1.GET("/data/uploads", handlers.HandleUploadHistory(deps))

		v1.GET("/predict/churn", handlers.HandlePredictChurn(deps))
		v1.GET("/predict/segments", handlers.HandlePredictSegments(deps))

		v1.GET("/explain/global", handlers.HandleExplainGlobal(deps))
		v1.GET("/explain/customer/:id", handlers.HandleExplainCustomer(deps))

		v1.POST("/chat/query", handlers.HandleChatQuery(deps))
		v1.GET("/chat/ws", handlers.HandleChatWebSocket(deps))

		v1.GET("/insights", handlers.HandleInsights(deps))
		v1.GET("/models/status", handlers.HandleModelStatus(deps))
		v1.POST("/models/load", handlers.HandleLoadModels(deps))
	}
}
