// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package model

import (
	"log/slog"
	"sync"
)

// Registry holds the process-wide registered models. Models are registered
// at startup (or via the load endpoint) with their capability tag already
// assigned; nothing downstream inspects runtime types.
type Registry struct {
	mu      sync.RWMutex
	churn   ChurnModel
	segment SegmentModel
}

// Status describes which models are currently loaded.
type Status struct {
	ChurnModelLoaded        bool       `json:"churn_model_loaded"`
	ChurnModelName          string     `json:"churn_model_name,omitempty"`
	ChurnModelCapability    Capability `json:"churn_model_capability,omitempty"`
	SegmentationModelLoaded bool       `json:"segmentation_model_loaded"`
	SegmentationModelName   string     `json:"segmentation_model_name,omitempty"`
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// RegisterChurn installs the churn classifier, replacing any previous one.
func (r *Registry) RegisterChurn(m ChurnModel) {
	r.mu.Lock()
	r.churn = m
	r.mu.Unlock()
	slog.Info("churn model registered", "model", m.Name(), "capability", string(m.Capability()))
}

// RegisterSegment installs the segmentation model, replacing any previous
// one.
func (r *Registry) RegisterSegment(m SegmentModel) {
	r.mu.Lock()
	r.segment = m
	r.mu.Unlock()
	slog.Info("segmentation model registered", "model", m.Name())
}

// Churn returns the registered churn model, or ErrChurnModelNotLoaded.
func (r *Registry) Churn() (ChurnModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.churn == nil {
		return nil, ErrChurnModelNotLoaded
	}
	return r.churn, nil
}

// Segment returns the registered segmentation model, or
// ErrSegmentModelNotLoaded.
func (r *Registry) Segment() (SegmentModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.segment == nil {
		return nil, ErrSegmentModelNotLoaded
	}
	return r.segment, nil
}

// Status reports which models are loaded.
func (r *Registry) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Status{}
	if r.churn != nil {
		s.ChurnModelLoaded = true
		s.ChurnModelName = r.churn.Name()
		s.ChurnModelCapability = r.churn.Capability()
	}
	if r.segment != nil {
		s.SegmentationModelLoaded = true
		s.SegmentationModelName = r.segment.Name()
	}
	return s
}
