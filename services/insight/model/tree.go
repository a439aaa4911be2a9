// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Node is one node of a decision tree. Feature == -1 marks a leaf. Value is
// the mean positive-class probability of the training samples that reached
// the node; path attribution reads the value deltas along a decision path.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// IsLeaf reports whether the node is a leaf.
func (n *Node) IsLeaf() bool { return n.Feature < 0 }

// Tree is one decision tree stored as a node array rooted at index 0.
// Rows descend left when row[feature] <= threshold.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Score walks the tree for one row and returns the leaf value.
func (t *Tree) Score(row []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// TreeEnsemble is a deterministic tree-ensemble churn classifier. The
// ensemble probability is the mean of the per-tree leaf values.
type TreeEnsemble struct {
	name     string
	features []string
	trees    []*Tree
}

// treeArtifact is the JSON layout of a persisted ensemble.
type treeArtifact struct {
	Name     string   `json:"name"`
	Features []string `json:"features"`
	Trees    []*Tree  `json:"trees"`
}

// NewTreeEnsemble builds an ensemble from in-memory trees. Used by tests;
// production artifacts go through LoadTreeEnsemble.
func NewTreeEnsemble(name string, features []string, trees []*Tree) *TreeEnsemble {
	return &TreeEnsemble{name: name, features: features, trees: trees}
}

// LoadTreeEnsemble reads an ensemble artifact from a JSON file.
func LoadTreeEnsemble(path string) (*TreeEnsemble, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var artifact treeArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parse model artifact %s: %w", path, err)
	}
	if len(artifact.Trees) == 0 {
		return nil, fmt.Errorf("model artifact %s has no trees", path)
	}
	return &TreeEnsemble{
		name:     artifact.Name,
		features: artifact.Features,
		trees:    artifact.Trees,
	}, nil
}

// Name implements ChurnModel.
func (e *TreeEnsemble) Name() string { return e.name }

// Capability implements ChurnModel. Tree ensembles are always tree-capable.
func (e *TreeEnsemble) Capability() Capability { return CapabilityTree }

// Features returns the feature names the ensemble was trained on.
func (e *TreeEnsemble) Features() []string { return e.features }

// NumFeatures returns the expected input row width.
func (e *TreeEnsemble) NumFeatures() int { return len(e.features) }

// Trees implements TreeModel.
func (e *TreeEnsemble) Trees() []*Tree { return e.trees }

// PredictProba implements ChurnModel.
func (e *TreeEnsemble) PredictProba(rows [][]float64) ([]float64, error) {
	probs := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(e.features) {
			return nil, fmt.Errorf("%w: got %d features, model expects %d",
				ErrFeatureMismatch, len(row), len(e.features))
		}
		var sum float64
		for _, tree := range e.trees {
			sum += tree.Score(row)
		}
		p := sum / float64(len(e.trees))
		if p < 0 {
			p = 0
		}
		if p > 1 {
			p = 1
		}
		probs[i] = p
	}
	return probs, nil
}

// Predict implements ChurnModel with a 0.5 decision threshold.
func (e *TreeEnsemble) Predict(rows [][]float64) ([]int, error) {
	probs, err := e.PredictProba(rows)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(probs))
	for i, p := range probs {
		if p >= 0.5 {
			labels[i] = 1
		}
	}
	return labels, nil
}

var _ TreeModel = (*TreeEnsemble)(nil)
