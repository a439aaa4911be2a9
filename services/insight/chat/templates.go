// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/invisorlabs/invisor/services/insight/attribution"
	"github.com/invisorlabs/invisor/services/insight/model"
)

// genericSegmentDescription fills in when no description exists for a
// segment id.
const genericSegmentDescription = "a distinct group of customers with shared behavioral patterns"

func churnOverviewTemplate(predictions []model.PredictionRecord) string {
	total := len(predictions)
	highRisk := 0
	for _, p := range predictions {
		if p.ChurnLabel == 1 {
			highRisk++
		}
	}
	pct := 0.0
	if total > 0 {
		pct = float64(highRisk) / float64(total) * 100
	}
	return fmt.Sprintf(
		"Here is an overview of churn risk in the dataset.\n\n"+
			"Out of %d customers, %d (%.1f%%) are currently classified as higher churn risk.",
		total, highRisk, pct)
}

func churnDriversTemplate(global *attribution.GlobalResult) string {
	top := make([]string, 0, 3)
	for _, e := range global.Entries {
		top = append(top, e.Feature)
		if len(top) == 3 {
			break
		}
	}
	return fmt.Sprintf(
		"Several factors strongly influence churn risk.\n\n"+
			"The most influential factors include %s.",
		strings.Join(top, ", "))
}

func customerChurnTemplate(local *attribution.LocalResult) string {
	entries := make([]attribution.LocalEntry, len(local.Entries))
	copy(entries, local.Entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Contribution > entries[j].Contribution
	})
	top := make([]string, 0, 2)
	for _, e := range entries {
		top = append(top, e.Feature)
		if len(top) == 2 {
			break
		}
	}
	return fmt.Sprintf(
		"This customer shows elevated churn risk.\n\n"+
			"The most important contributing factors are %s.",
		strings.Join(top, " and "))
}

func segmentExplainTemplate(segmentID int, descriptions map[int]string) string {
	desc, ok := descriptions[segmentID]
	if !ok {
		desc = genericSegmentDescription
	}
	return fmt.Sprintf(
		"Segment %d represents a specific customer group.\n\n"+
			"These customers typically show patterns such as %s.",
		segmentID, desc)
}

func segmentDistributionTemplate(counts map[string]int) string {
	total := 0
	for _, n := range counts {
		total += n
	}
	names := sortedKeys(counts)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		pct := 0.0
		if total > 0 {
			pct = float64(counts[name]) / float64(total) * 100
		}
		parts = append(parts, fmt.Sprintf("%s: %d (%.1f%%)", name, counts[name], pct))
	}
	return fmt.Sprintf(
		"Customers are distributed across multiple segments.\n\n"+
			"Segment sizes: %s.",
		strings.Join(parts, ", "))
}

func segmentChurnTemplate(rates map[string]float64) string {
	// Highest churn first so the leading segment is named up front.
	names := make([]string, 0, len(rates))
	for name := range rates {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if rates[names[i]] != rates[names[j]] {
			return rates[names[i]] > rates[names[j]]
		}
		return names[i] < names[j]
	})
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %.1f%%", name, rates[name]*100))
	}
	return fmt.Sprintf(
		"Churn varies across customer segments.\n\n"+
			"Segment-level churn rates: %s.",
		strings.Join(parts, ", "))
}

func datasetSummaryTemplate(summary string) string {
	return fmt.Sprintf("Here is a summary of the uploaded dataset.\n\n%s", summary)
}

const helpMessage = "I can answer questions about churn risk, churn drivers, " +
	"customer segments, and the uploaded dataset. Try asking: " +
	"\"How many customers are at risk?\", \"What are the main drivers of churn?\", " +
	"or \"How many in each segment?\""

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
