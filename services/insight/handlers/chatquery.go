// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/invisorlabs/invisor/services/insight/chat"
	"github.com/invisorlabs/invisor/services/insight/dataset"
	"github.com/invisorlabs/invisor/services/insight/datatypes"
	"github.com/invisorlabs/invisor/services/insight/insights"
	"github.com/invisorlabs/invisor/services/insight/middleware"
	"github.com/invisorlabs/invisor/services/insight/observability"
)

var chatTracer = otel.Tracer("invisor.insight.handlers")

// buildInsightCache assembles a fresh cache from the current snapshot, or
// returns nil when no dataset is loaded (the chatbot prompts for an
// upload in that case).
func buildInsightCache(ctx context.Context, deps Deps, selectedCustomerID string) (*insights.Cache, error) {
	snap, err := deps.Store.Current()
	if errors.Is(err, dataset.ErrNoDataset) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	churn, _ := deps.Registry.Churn()
	segment, _ := deps.Registry.Segment()

	start := time.Now()
	cache, err := insights.Build(ctx, snap, insights.Options{
		Churn:              churn,
		Segment:            segment,
		Attribution:        deps.Attribution,
		SelectedCustomerID: selectedCustomerID,
	})
	observability.CacheBuildDuration.Observe(time.Since(start).Seconds())
	return cache, err
}

// HandleChatQuery answers one analytics question.
func HandleChatQuery(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChatQuery")
		defer span.End()

		var req datatypes.ChatRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		selected := ""
		if req.CustomerSelected {
			selected = req.SelectedCustomerID
		}
		cache, err := buildInsightCache(ctx, deps, selected)
		if err != nil {
			// Chat never raises to the end user: an internal failure
			// reads as an apology, not a 5xx.
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Warn("insight cache build failed for chat query", "error", err)
			c.JSON(http.StatusOK, datatypes.ChatResponse{
				Intent:    string(chat.IntentUnsupported),
				Response:  chat.ApologyMessage,
				RequestID: middleware.GetRequestID(c),
			})
			return
		}

		resp := deps.Chatbot.Answer(chat.Request{
			Query:              req.Query,
			CustomerSelected:   req.CustomerSelected,
			SelectedCustomerID: req.SelectedCustomerID,
		}, cache)
		observability.ChatQueries.WithLabelValues(string(resp.Intent)).Inc()

		c.JSON(http.StatusOK, datatypes.ChatResponse{
			Intent:    string(resp.Intent),
			Response:  resp.Answer,
			RequestID: middleware.GetRequestID(c),
		})
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

// wsChatMessage is one chat turn over the websocket.
type wsChatMessage struct {
	Query              string `json:"query"`
	CustomerSelected   bool   `json:"customer_selected"`
	SelectedCustomerID string `json:"selected_customer_id"`
}

// HandleChatWebSocket serves an interactive chat session: one JSON message
// per question, one per answer, until the client disconnects.
func HandleChatWebSocket(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade chat websocket", "error", err)
			return
		}
		defer ws.Close()
		slog.Info("chat websocket connected")

		for {
			var msg wsChatMessage
			if err := ws.ReadJSON(&msg); err != nil {
				slog.Info("chat websocket disconnected", "reason", err.Error())
				return
			}

			selected := ""
			if msg.CustomerSelected {
				selected = msg.SelectedCustomerID
			}
			cache, err := buildInsightCache(c.Request.Context(), deps, selected)
			if err != nil {
				slog.Warn("insight cache build failed for websocket query", "error", err)
				if err := ws.WriteJSON(datatypes.ChatResponse{
					Intent:   string(chat.IntentUnsupported),
					Response: chat.ApologyMessage,
				}); err != nil {
					return
				}
				continue
			}

			resp := deps.Chatbot.Answer(chat.Request{
				Query:              msg.Query,
				CustomerSelected:   msg.CustomerSelected,
				SelectedCustomerID: msg.SelectedCustomerID,
			}, cache)
			observability.ChatQueries.WithLabelValues(string(resp.Intent)).Inc()

			if err := ws.WriteJSON(datatypes.ChatResponse{
				Intent:   string(resp.Intent),
				Response: resp.Answer,
			}); err != nil {
				slog.Warn("failed to write chat websocket response", "error", err)
				return
			}
		}
	}
}
