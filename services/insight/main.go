// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/invisorlabs/invisor/pkg/logging"
	"github.com/invisorlabs/invisor/services/insight/attribution"
	"github.com/invisorlabs/invisor/services/insight/chat"
	"github.com/invisorlabs/invisor/services/insight/config"
	"github.com/invisorlabs/invisor/services/insight/dataset"
	"github.com/invisorlabs/invisor/services/insight/handlers"
	"github.com/invisorlabs/invisor/services/insight/history"
	"github.com/invisorlabs/invisor/services/insight/model"
	"github.com/invisorlabs/invisor/services/insight/routes"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("insight-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	cfg, err := config.Load(os.Getenv("INVISOR_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLogger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.Dir,
		Service: "insight",
		JSON:    true,
	})
	defer appLogger.Close()
	logger := appLogger.Slog()
	slog.SetDefault(logger)

	if cfg.Telemetry.Enabled {
		cleanup, err := initTracer(cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			log.Fatalf("failed to setup the OTLP tracer: %v", err)
		}
		defer cleanup(context.Background())
	}

	registry := model.NewRegistry()
	if churn, err := model.LoadTreeEnsemble(cfg.Models.ChurnModelPath); err != nil {
		slog.Warn("churn model not loaded, predictions disabled",
			"path", cfg.Models.ChurnModelPath, "error", err)
	} else {
		registry.RegisterChurn(churn)
		slog.Info("churn model loaded", "name", churn.Name())
	}
	if segment, err := model.LoadCentroidSegmenter(cfg.Models.SegmentModelPath); err != nil {
		slog.Warn("segmentation model not loaded, segmentation disabled",
			"path", cfg.Models.SegmentModelPath, "error", err)
	} else {
		registry.RegisterSegment(segment)
		slog.Info("segmentation model loaded", "name", segment.Name())
	}

	precomputed, err := attribution.LoadPrecomputed(cfg.Attribution.PrecomputedPath)
	if err != nil {
		slog.Warn("precomputed importance not loaded, explanation fallback disabled",
			"path", cfg.Attribution.PrecomputedPath, "error", err)
	} else if cfg.Attribution.WatchPrecomputed {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			if err := precomputed.Watch(stop); err != nil {
				slog.Warn("importance file watcher stopped", "error", err)
			}
		}()
	}

	var uploads *history.Store
	if cfg.Storage.HistoryPath != "" {
		uploads, err = history.Open(history.Config{Path: cfg.Storage.HistoryPath})
		if err != nil {
			log.Fatalf("failed to open upload history at %s: %v", cfg.Storage.HistoryPath, err)
		}
		defer uploads.Close()
	}

	pool := attribution.NewPool(cfg.Attribution.PoolSize, cfg.Attribution.Timeout)
	deps := handlers.Deps{
		Store:       dataset.NewStore(),
		Registry:    registry,
		Attribution: attribution.NewEngine(pool, precomputed),
		Chatbot:     chat.NewChatbot(logger),
		History:     uploads,
		Precomputed: precomputed,
	}

	router := gin.Default()
	if cfg.Telemetry.Enabled {
		router.Use(otelgin.Middleware("insight-service"))
	}
	routes.SetupRoutes(router, deps, routes.Options{
		AuthToken:      cfg.Server.AuthToken,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
	})

	slog.Info("insight service listening", "port", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
