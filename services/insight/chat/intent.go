// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package chat resolves free-text analytics questions to a closed intent
// set and renders deterministic answers from the insight cache. No
// language model is involved; classification is keyword rules and
// responses are templates.
package chat

import (
	"strconv"
	"strings"
)

// Intent is one of the question categories the chatbot can answer.
type Intent string

const (
	IntentChurnOverview       Intent = "CHURN_OVERVIEW"
	IntentChurnDrivers        Intent = "CHURN_DRIVERS"
	IntentChurnCustomer       Intent = "CHURN_CUSTOMER"
	IntentSegmentExplain      Intent = "SEGMENT_EXPLAIN"
	IntentSegmentDistribution Intent = "SEGMENT_DISTRIBUTION"
	IntentSegmentOverview     Intent = "SEGMENT_OVERVIEW"
	IntentSegmentChurn        Intent = "SEGMENT_CHURN"
	IntentDatasetSummary      Intent = "DATASET_SUMMARY"
	IntentUnsupported         Intent = "UNSUPPORTED"
)

// rule pairs a predicate with the intent it resolves to. Rules are
// evaluated strictly in slice order: keyword sets overlap ("segment"
// appears in four of them), so priority lives in the ordering, not in the
// predicates.
type rule struct {
	intent    Intent
	selection bool // predicate only fires when a customer is selected
	keywords  []string
}

var rules = []rule{
	{IntentChurnCustomer, true, []string{"this customer", "why is this customer", "explain churn"}},
	{IntentSegmentChurn, false, []string{"segment churn", "churn by segment", "highest churn"}},
	{IntentChurnDrivers, false, []string{"drivers of churn", "why churn", "influence churn"}},
	{IntentSegmentExplain, false, []string{"explain segment"}},
	{IntentSegmentDistribution, false, []string{"segment distribution", "how many in each segment", "largest segment"}},
	{IntentSegmentOverview, false, []string{"segments", "customer segments", "groups"}},
	{IntentDatasetSummary, false, []string{"dataset", "how many customers", "data size"}},
	{IntentChurnOverview, false, []string{"churn", "at risk", "likely to churn"}},
}

// Classify resolves a query to an intent. customerSelected gates the
// customer-specific rule so "explain churn" without a selection falls
// through to the general churn rules.
func Classify(query string, customerSelected bool) Intent {
	q := strings.ToLower(query)
	for _, r := range rules {
		if r.selection && !customerSelected {
			continue
		}
		for _, k := range r.keywords {
			if strings.Contains(q, k) {
				return r.intent
			}
		}
	}
	return IntentUnsupported
}

// ExtractSegmentID returns the first whole-number token in the query, or
// false when none exists.
func ExtractSegmentID(query string) (int, bool) {
	for _, token := range strings.Fields(query) {
		if id, err := strconv.Atoi(token); err == nil && id >= 0 {
			return id, true
		}
	}
	return 0, false
}
