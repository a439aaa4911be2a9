// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package attribution

import (
	"context"
	"fmt"

	"github.com/invisorlabs/invisor/services/insight/model"
)

// Background sample caps. These bound attribution cost on large datasets;
// both are deterministic (the first N rows, no random sampling).
const (
	// probabilityBackgroundCap bounds the background sample for models
	// exposing a probability interface.
	probabilityBackgroundCap = 100

	// predictBackgroundCap bounds the background sample for the raw
	// prediction fallback.
	predictBackgroundCap = 50
)

// liveStrategy computes raw attribution values for a set of encoded rows.
// Each implementation is independently unit-testable; the engine walks
// them via selectStrategy and PositiveClass.
type liveStrategy interface {
	// Name identifies the strategy in logs and errors.
	Name() string

	// Values returns raw attribution output for the given rows.
	Values(ctx context.Context, rows [][]float64) (RawValues, error)
}

// selectStrategy picks the live strategy for a model by its capability tag.
// The background matrix anchors the sampling explainers' baselines.
func selectStrategy(m model.ChurnModel, background [][]float64) (liveStrategy, error) {
	switch m.Capability() {
	case model.CapabilityTree:
		tm, ok := m.(model.TreeModel)
		if !ok {
			return nil, &InitError{
				Strategy: "tree",
				Err:      fmt.Errorf("model %s is tagged tree-capable but exposes no trees", m.Name()),
			}
		}
		return &treeStrategy{model: tm}, nil

	case model.CapabilityProbability:
		return newSamplingStrategy("sampling", background, probabilityBackgroundCap, m.PredictProba), nil

	case model.CapabilityPredictOnly:
		score := func(rows [][]float64) ([]float64, error) {
			labels, err := m.Predict(rows)
			if err != nil {
				return nil, err
			}
			out := make([]float64, len(labels))
			for i, l := range labels {
				out[i] = float64(l)
			}
			return out, nil
		}
		return newSamplingStrategy("predict_fallback", background, predictBackgroundCap, score), nil

	default:
		return nil, &InitError{
			Strategy: string(m.Capability()),
			Err:      fmt.Errorf("model %s has unknown capability", m.Name()),
		}
	}
}

// treeStrategy decomposes tree-ensemble predictions along decision paths:
// every split a row takes shifts the running node value, and that shift is
// credited to the split feature. Contributions sum to the leaf value minus
// the root value, averaged over trees.
type treeStrategy struct {
	model model.TreeModel
}

func (s *treeStrategy) Name() string { return "tree" }

func (s *treeStrategy) Values(ctx context.Context, rows [][]float64) (RawValues, error) {
	trees := s.model.Trees()
	if len(trees) == 0 {
		return RawValues{}, &InitError{Strategy: s.Name(), Err: fmt.Errorf("ensemble has no trees")}
	}

	positive := make([][]float64, len(rows))
	negative := make([][]float64, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return RawValues{}, err
		}
		contrib := make([]float64, len(row))
		for _, tree := range trees {
			pathContributions(tree, row, contrib)
		}
		n := float64(len(trees))
		neg := make([]float64, len(row))
		for j := range contrib {
			contrib[j] /= n
			neg[j] = -contrib[j]
		}
		positive[i] = contrib
		negative[i] = neg
	}

	// Tree explainers emit one matrix per class; the positive class is
	// recovered downstream by PositiveClass.
	return RawValues{PerClass: [][][]float64{negative, positive}}, nil
}

// pathContributions walks one tree for one row, accumulating the value
// delta of every split into contrib (indexed by feature).
func pathContributions(tree *model.Tree, row []float64, contrib []float64) {
	i := 0
	for {
		n := &tree.Nodes[i]
		if n.IsLeaf() {
			return
		}
		next := n.Right
		if row[n.Feature] <= n.Threshold {
			next = n.Left
		}
		contrib[n.Feature] += tree.Nodes[next].Value - n.Value
		i = next
	}
}

// samplingStrategy is a model-agnostic occlusion explainer: a feature's
// contribution for a row is the mean score drop when that feature is
// replaced by background values. Deterministic for a fixed background.
type samplingStrategy struct {
	name       string
	background [][]float64
	score      func(rows [][]float64) ([]float64, error)
}

func newSamplingStrategy(name string, background [][]float64, limit int, score func([][]float64) ([]float64, error)) *samplingStrategy {
	if len(background) > limit {
		background = background[:limit]
	}
	return &samplingStrategy{name: name, background: background, score: score}
}

func (s *samplingStrategy) Name() string { return s.name }

func (s *samplingStrategy) Values(ctx context.Context, rows [][]float64) (RawValues, error) {
	if len(s.background) == 0 {
		return RawValues{}, &InitError{Strategy: s.name, Err: fmt.Errorf("empty background sample")}
	}

	base, err := s.score(rows)
	if err != nil {
		return RawValues{}, &InitError{Strategy: s.name, Err: err}
	}

	cube := make([][][]float64, len(rows))
	for i := range cube {
		cube[i] = make([][]float64, len(rows[i]))
	}

	numFeatures := 0
	if len(rows) > 0 {
		numFeatures = len(rows[0])
	}
	for j := 0; j < numFeatures; j++ {
		if err := ctx.Err(); err != nil {
			return RawValues{}, err
		}
		// Batch all perturbations of feature j into one score call.
		perturbed := make([][]float64, 0, len(rows)*len(s.background))
		for _, row := range rows {
			for _, bg := range s.background {
				p := make([]float64, len(row))
				copy(p, row)
				p[j] = bg[j]
				perturbed = append(perturbed, p)
			}
		}
		scores, err := s.score(perturbed)
		if err != nil {
			return RawValues{}, &InitError{Strategy: s.name, Err: err}
		}

		k := 0
		for i := range rows {
			var sum float64
			for range s.background {
				sum += base[i] - scores[k]
				k++
			}
			c := sum / float64(len(s.background))
			// samples × features × classes, positive class last
			cube[i][j] = []float64{-c, c}
		}
	}

	return RawValues{Cube: cube}, nil
}
