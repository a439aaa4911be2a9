// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chat

import (
	"log/slog"
	"strings"

	"github.com/invisorlabs/invisor/services/insight/insights"
)

// Request carries one chat turn's inputs.
type Request struct {
	Query              string
	CustomerSelected   bool
	SelectedCustomerID string
}

// Response is the rendered answer plus the intent it resolved to.
type Response struct {
	Intent Intent `json:"intent"`
	Answer string `json:"response"`
}

// Chatbot turns a query plus the insight cache into a response. It never
// returns an error to the caller: every internal failure renders as an
// apologetic message, because a chat surface has no useful way to show a
// stack of typed errors.
type Chatbot struct {
	logger *slog.Logger
}

// NewChatbot builds a chatbot. A nil logger falls back to slog.Default.
func NewChatbot(logger *slog.Logger) *Chatbot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chatbot{logger: logger.With("component", "chat")}
}

const (
	noDataMessage        = "Please upload data to begin analysis."
	emptyQueryMessage    = "Please ask a question about the data."
	selectCustomerPrompt = "Please select a customer to get a customer-specific explanation."
	noLocalExplain       = "Customer-level explanation could not be generated for this customer."
	noDriversMessage     = "Churn drivers are not available yet."
	whichSegmentPrompt   = "Please specify which segment you want explained (e.g., segment 1)."
)

// ApologyMessage is the user-facing text for any internal failure. Chat
// surfaces never raise errors to the end user.
const ApologyMessage = "Sorry, something went wrong while answering that. Please try rephrasing your question."

// Answer resolves the query's intent and renders the reply from the cache.
func (c *Chatbot) Answer(req Request, cache *insights.Cache) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("chat answer panicked", "query", req.Query, "panic", r)
			resp = Response{Intent: IntentUnsupported, Answer: ApologyMessage}
		}
	}()

	if cache == nil {
		return Response{Intent: IntentUnsupported, Answer: noDataMessage}
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return Response{Intent: IntentUnsupported, Answer: emptyQueryMessage}
	}

	intent := Classify(query, req.CustomerSelected)
	resp = Response{Intent: intent, Answer: c.render(intent, query, req, cache)}
	return resp
}

func (c *Chatbot) render(intent Intent, query string, req Request, cache *insights.Cache) string {
	switch intent {
	case IntentChurnOverview:
		return churnOverviewTemplate(cache.Predictions)

	case IntentChurnDrivers:
		if cache.Global == nil || len(cache.Global.Entries) == 0 {
			return noDriversMessage
		}
		return churnDriversTemplate(cache.Global)

	case IntentChurnCustomer:
		if !req.CustomerSelected || req.SelectedCustomerID == "" {
			return selectCustomerPrompt
		}
		if cache.Local == nil || len(cache.Local.Entries) == 0 {
			return noLocalExplain
		}
		return customerChurnTemplate(cache.Local)

	case IntentSegmentExplain:
		id, ok := ExtractSegmentID(query)
		if !ok {
			return whichSegmentPrompt
		}
		return segmentExplainTemplate(id, cache.SegmentDescriptions)

	case IntentSegmentDistribution, IntentSegmentOverview:
		return segmentDistributionTemplate(cache.SegmentCounts)

	case IntentSegmentChurn:
		return segmentChurnTemplate(cache.SegmentChurnRate)

	case IntentDatasetSummary:
		return datasetSummaryTemplate(cache.DatasetSummary)

	default:
		return helpMessage
	}
}
