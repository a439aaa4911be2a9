// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package insights assembles the per-request analysis cache the chat layer
// answers from: churn predictions and segment assignments joined per
// customer, segment aggregates, and optional attribution results.
package insights

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/invisorlabs/invisor/services/insight/attribution"
	"github.com/invisorlabs/invisor/services/insight/dataset"
	"github.com/invisorlabs/invisor/services/insight/model"
)

// Options selects which models and explanations feed a cache build.
type Options struct {
	// Churn scores every customer. Required; its absence fails the build.
	Churn model.ChurnModel

	// Segment assigns every customer to a cluster. Required.
	Segment model.SegmentModel

	// Attribution, when set, adds global drivers to the cache. Failures
	// leave the field nil; the chat layer degrades gracefully.
	Attribution *attribution.Engine

	// SelectedCustomerID, when non-empty, additionally computes a local
	// explanation for that customer.
	SelectedCustomerID string
}

// CustomerInsight is the inner join of a prediction and a segment
// assignment for one customer.
type CustomerInsight struct {
	CustomerID       string          `json:"customer_id"`
	ChurnProbability float64         `json:"churn_probability"`
	ChurnLabel       int             `json:"churn_label"`
	RiskLevel        model.RiskLevel `json:"risk_level"`
	SegmentID        int             `json:"segment_id"`
	SegmentName      string          `json:"segment_name"`
	Confidence       float64         `json:"confidence"`
}

// Cache holds one snapshot's worth of derived insights. It is rebuilt per
// request from the current dataset snapshot and never persisted.
type Cache struct {
	Version     string `json:"dataset_version"`
	Predictions []model.PredictionRecord
	Segments    []model.SegmentRecord
	Customers   []CustomerInsight

	// SegmentCounts maps segment name to member count.
	SegmentCounts map[string]int

	// SegmentChurnRate maps segment name to its mean churn label,
	// rounded to two decimals.
	SegmentChurnRate map[string]float64

	// SegmentDescriptions maps segment id to a behavioral summary
	// derived from the segment's dominant traits.
	SegmentDescriptions map[int]string

	DatasetSummary string

	Global *attribution.GlobalResult
	Local  *attribution.LocalResult
}

// Build runs prediction and segmentation concurrently over the snapshot
// and assembles the cache. Either model failing fails the whole build;
// attribution failures only leave their fields empty.
func Build(ctx context.Context, snap *dataset.Snapshot, opts Options) (*Cache, error) {
	var (
		predictions []model.PredictionRecord
		segments    []model.SegmentRecord
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		predictions, err = model.PredictChurn(snap, opts.Churn)
		if err != nil {
			return fmt.Errorf("churn prediction: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		segments, err = model.PredictSegments(snap, opts.Segment)
		if err != nil {
			return fmt.Errorf("segmentation: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cache := &Cache{
		Version:             snap.Version,
		Predictions:         predictions,
		Segments:            segments,
		Customers:           join(predictions, segments),
		SegmentCounts:       countSegments(segments),
		SegmentDescriptions: describeSegments(snap.Table, segments),
		DatasetSummary:      snap.Table.Summary(),
	}
	cache.SegmentChurnRate = churnBySegment(cache.Customers)

	if opts.Attribution != nil {
		global, err := opts.Attribution.ExplainGlobal(ctx, snap, opts.Churn)
		if err != nil {
			slog.Warn("global attribution unavailable for insight cache", "error", err)
		} else {
			cache.Global = global
		}

		if opts.SelectedCustomerID != "" {
			local, err := opts.Attribution.ExplainLocal(ctx, snap, opts.Churn, opts.SelectedCustomerID)
			if err != nil {
				slog.Warn("local attribution unavailable for insight cache",
					"customer_id", opts.SelectedCustomerID, "error", err)
			} else {
				cache.Local = local
			}
		}
	}

	return cache, nil
}

// join inner-joins predictions and segments by customer id, preserving
// prediction order. Customers present on only one side are dropped.
func join(predictions []model.PredictionRecord, segments []model.SegmentRecord) []CustomerInsight {
	byID := make(map[string]model.SegmentRecord, len(segments))
	for _, s := range segments {
		byID[s.CustomerID] = s
	}

	out := make([]CustomerInsight, 0, len(predictions))
	for _, p := range predictions {
		s, ok := byID[p.CustomerID]
		if !ok {
			continue
		}
		out = append(out, CustomerInsight{
			CustomerID:       p.CustomerID,
			ChurnProbability: p.ChurnProbability,
			ChurnLabel:       p.ChurnLabel,
			RiskLevel:        p.RiskLevel,
			SegmentID:        s.SegmentID,
			SegmentName:      s.SegmentName,
			Confidence:       s.Confidence,
		})
	}
	return out
}

func countSegments(segments []model.SegmentRecord) map[string]int {
	counts := make(map[string]int)
	for _, s := range segments {
		counts[s.SegmentName]++
	}
	return counts
}

func churnBySegment(customers []CustomerInsight) map[string]float64 {
	sums := make(map[string]int)
	counts := make(map[string]int)
	for _, c := range customers {
		sums[c.SegmentName] += c.ChurnLabel
		counts[c.SegmentName]++
	}
	rates := make(map[string]float64, len(counts))
	for name, n := range counts {
		rates[name] = round2(float64(sums[name]) / float64(n))
	}
	return rates
}

// Columns summarized into segment descriptions, when present.
const (
	tenureColumn   = "tenure_months"
	chargesColumn  = "monthly_charges"
	contractColumn = "contract_type"
)

// describeSegments derives a short behavioral summary per segment from its
// numeric averages and dominant contract type.
func describeSegments(table *dataset.Table, segments []model.SegmentRecord) map[int]string {
	members := make(map[int][]int)
	for _, s := range segments {
		if idx, err := table.RowIndex(s.CustomerID); err == nil {
			members[s.SegmentID] = append(members[s.SegmentID], idx)
		}
	}

	tenure := table.Column(tenureColumn)
	charges := table.Column(chargesColumn)
	contract := table.Column(contractColumn)

	descriptions := make(map[int]string, len(members))
	for id, rows := range members {
		var parts []string
		if tenure != nil && tenure.Numeric {
			if avg, ok := meanAt(tenure, rows); ok {
				parts = append(parts, fmt.Sprintf("average tenure of %.1f months", avg))
			}
		}
		if charges != nil && charges.Numeric {
			if avg, ok := meanAt(charges, rows); ok {
				parts = append(parts, fmt.Sprintf("average monthly charges of %.2f", avg))
			}
		}
		if contract != nil && !contract.Numeric {
			if top, ok := dominantValue(contract, rows); ok {
				parts = append(parts, fmt.Sprintf("mostly %s contracts", top))
			}
		}
		if len(parts) == 0 {
			continue
		}
		descriptions[id] = strings.Join(parts, ", ")
	}
	return descriptions
}

func meanAt(col *dataset.Column, rows []int) (float64, bool) {
	var sum float64
	n := 0
	for _, i := range rows {
		v := col.Floats[i]
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func dominantValue(col *dataset.Column, rows []int) (string, bool) {
	counts := make(map[string]int)
	for _, i := range rows {
		if v := col.Strings[i]; v != "" {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}
	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	// Deterministic tie-break on the value itself.
	sort.Slice(values, func(i, j int) bool {
		if counts[values[i]] != counts[values[j]] {
			return counts[values[i]] > counts[values[j]]
		}
		return values[i] < values[j]
	})
	return values[0], true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
