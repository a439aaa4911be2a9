// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package model

import (
	"math"

	"github.com/invisorlabs/invisor/services/insight/dataset"
)

// RiskLevel buckets a churn probability via fixed thresholds.
type RiskLevel string

const (
	// RiskLow covers probabilities below 0.4.
	RiskLow RiskLevel = "Low"

	// RiskMedium covers probabilities in [0.4, 0.7).
	RiskMedium RiskLevel = "Medium"

	// RiskHigh covers probabilities of 0.7 and above.
	RiskHigh RiskLevel = "High"
)

// RiskLevelFor maps a churn probability to its risk bucket.
func RiskLevelFor(p float64) RiskLevel {
	switch {
	case p >= 0.7:
		return RiskHigh
	case p >= 0.4:
		return RiskMedium
	default:
		return RiskLow
	}
}

// PredictionRecord is one customer's churn prediction.
type PredictionRecord struct {
	CustomerID       string    `json:"customer_id"`
	ChurnProbability float64   `json:"churn_probability"`
	ChurnLabel       int       `json:"churn_label"`
	RiskLevel        RiskLevel `json:"risk_level"`
}

// SegmentRecord is one customer's segment assignment.
type SegmentRecord struct {
	CustomerID  string  `json:"customer_id"`
	SegmentID   int     `json:"segment_id"`
	SegmentName string  `json:"segment_name"`
	Confidence  float64 `json:"confidence"`
}

// PredictionSummary aggregates risk-bucket counts over a prediction run.
type PredictionSummary struct {
	TotalCustomers  int `json:"total_customers"`
	HighRiskCount   int `json:"high_risk_count"`
	MediumRiskCount int `json:"medium_risk_count"`
	LowRiskCount    int `json:"low_risk_count"`
}

// PredictChurn scores every row of the snapshot with the churn model and
// returns per-customer records. The churn label is 1 when probability is
// at least 0.5.
func PredictChurn(snap *dataset.Snapshot, m ChurnModel) ([]PredictionRecord, error) {
	if m == nil {
		return nil, ErrChurnModelNotLoaded
	}
	matrix := dataset.Encode(snap.Table)
	probs, err := m.PredictProba(matrix.Rows)
	if err != nil {
		return nil, err
	}

	records := make([]PredictionRecord, len(probs))
	for i, p := range probs {
		label := 0
		if p >= 0.5 {
			label = 1
		}
		records[i] = PredictionRecord{
			CustomerID:       snap.Table.CustomerID(i),
			ChurnProbability: round3(p),
			ChurnLabel:       label,
			RiskLevel:        RiskLevelFor(p),
		}
	}
	return records, nil
}

// Summarize counts risk buckets over prediction records.
func Summarize(records []PredictionRecord) PredictionSummary {
	s := PredictionSummary{TotalCustomers: len(records)}
	for _, r := range records {
		switch r.RiskLevel {
		case RiskHigh:
			s.HighRiskCount++
		case RiskMedium:
			s.MediumRiskCount++
		default:
			s.LowRiskCount++
		}
	}
	return s
}

// PredictSegments assigns every row of the snapshot to a segment.
// Confidence comes from cluster distance when the segmenter reports it,
// otherwise a fixed 0.85.
func PredictSegments(snap *dataset.Snapshot, m SegmentModel) ([]SegmentRecord, error) {
	if m == nil {
		return nil, ErrSegmentModelNotLoaded
	}
	matrix := dataset.Encode(snap.Table)
	labels, err := m.Predict(matrix.Rows)
	if err != nil {
		return nil, err
	}

	reporter, hasDistances := m.(DistanceReporter)
	records := make([]SegmentRecord, len(labels))
	for i, id := range labels {
		confidence := 0.85
		if hasDistances {
			dists := reporter.Distances(matrix.Rows[i])
			min := math.Inf(1)
			for _, d := range dists {
				if d < min {
					min = d
				}
			}
			confidence = 1.0 - min/10
			if confidence < 0.6 {
				confidence = 0.6
			}
		}
		records[i] = SegmentRecord{
			CustomerID:  snap.Table.CustomerID(i),
			SegmentID:   id,
			SegmentName: SegmentName(id),
			Confidence:  round3(confidence),
		}
	}
	return records, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
