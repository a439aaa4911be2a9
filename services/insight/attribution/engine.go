// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package attribution

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"

	"github.com/invisorlabs/invisor/services/insight/dataset"
	"github.com/invisorlabs/invisor/services/insight/model"
	"github.com/invisorlabs/invisor/services/insight/reconcile"
)

const (
	// liveGlobalSampleCap bounds how many dataset rows feed a live
	// global explanation.
	liveGlobalSampleCap = 20

	// topLocalEntries is how many per-feature entries a local
	// explanation carries.
	topLocalEntries = 5

	// zEpsilon guards the z-score denominator for constant columns.
	zEpsilon = 1e-8

	// Damping factors for synthesized local values. Synthesized
	// contributions are heuristic and must read weaker than live ones.
	numericDamping     = 0.1
	categoricalDamping = 0.5
)

// Engine produces global and per-customer feature attributions. It walks a
// two-rung chain: a live explanation from the registered model first, the
// precomputed importance table second. Exhausting both is an explicit
// error; a response is never silently empty.
//
// # Thread Safety
//
// Engine is safe for concurrent use. Live work runs through the bounded
// Pool; the precomputed table guards its own state.
type Engine struct {
	pool        *Pool
	precomputed *PrecomputedTable
	logger      *slog.Logger
}

// NewEngine builds an engine. precomputed may be nil when no importance
// table was exported; the live rung then has no fallback.
func NewEngine(pool *Pool, precomputed *PrecomputedTable) *Engine {
	if pool == nil {
		pool = NewPool(0, 0)
	}
	return &Engine{
		pool:        pool,
		precomputed: precomputed,
		logger:      slog.Default().With("component", "attribution"),
	}
}

// ExplainGlobal returns dataset-wide feature importance, ranked and
// labelled with the source that produced it.
func (e *Engine) ExplainGlobal(ctx context.Context, snap *dataset.Snapshot, m model.ChurnModel) (*GlobalResult, error) {
	matrix := dataset.Encode(snap.Table)

	if m != nil {
		entries, err := e.liveGlobal(ctx, matrix, m)
		if err == nil {
			return &GlobalResult{Entries: entries, Source: SourceLive}, nil
		}
		if fatal(err) {
			return nil, err
		}
		e.logger.Warn("live global attribution failed, falling back",
			"model", m.Name(), "error", err)
	}

	entries := e.precomputedGlobal(snap.Table.ColumnNames())
	if len(entries) == 0 {
		return nil, ErrAttributionUnavailable
	}
	return &GlobalResult{Entries: entries, Source: SourcePrecomputed}, nil
}

// ExplainLocal returns the top per-feature contributions for one customer.
// An unknown customer ID surfaces as a dataset.NotFoundError.
func (e *Engine) ExplainLocal(ctx context.Context, snap *dataset.Snapshot, m model.ChurnModel, customerID string) (*LocalResult, error) {
	rowIdx, err := snap.Table.RowIndex(customerID)
	if err != nil {
		return nil, err
	}
	matrix := dataset.Encode(snap.Table)

	if m != nil {
		entries, err := e.liveLocal(ctx, snap.Table, matrix, m, customerID, rowIdx)
		if err == nil {
			return &LocalResult{CustomerID: customerID, Entries: entries, Source: SourceLive}, nil
		}
		if fatal(err) {
			return nil, err
		}
		e.logger.Warn("live local attribution failed, falling back",
			"model", m.Name(), "customer_id", customerID, "error", err)
	}

	entries := e.synthesizeLocal(snap.Table, customerID, rowIdx)
	if len(entries) == 0 {
		return nil, ErrAttributionUnavailable
	}
	return &LocalResult{CustomerID: customerID, Entries: entries, Source: SourcePrecomputed}, nil
}

// Ready reports whether at least one rung of the chain can answer.
func (e *Engine) Ready(m model.ChurnModel) bool {
	if m != nil {
		return true
	}
	return e.precomputed != nil && len(e.precomputed.Entries()) > 0
}

// fatal reports errors that must not trigger the precomputed fallback. A
// feature-count mismatch means the model and dataset disagree about the
// world; a synthesized answer would be confidently wrong.
func fatal(err error) bool {
	var mismatch *MismatchError
	return errors.As(err, &mismatch) || errors.Is(err, model.ErrFeatureMismatch)
}

// featureCounter is optionally implemented by models that know their
// expected input width.
type featureCounter interface {
	NumFeatures() int
}

// checkWidth compares the model's expected feature count against the
// encoded matrix. Tree attribution walks node structure directly and
// would otherwise index out of range or, worse, credit the wrong feature.
func checkWidth(m model.ChurnModel, matrix *dataset.Matrix) error {
	fc, ok := m.(featureCounter)
	if !ok {
		return nil
	}
	if want := fc.NumFeatures(); want != matrix.NumFeatures() {
		return &MismatchError{Want: want, Got: matrix.NumFeatures()}
	}
	return nil
}

func (e *Engine) liveGlobal(ctx context.Context, matrix *dataset.Matrix, m model.ChurnModel) ([]GlobalEntry, error) {
	if err := checkWidth(m, matrix); err != nil {
		return nil, err
	}
	strategy, err := selectStrategy(m, matrix.Rows)
	if err != nil {
		return nil, err
	}

	sample := matrix.Rows
	if len(sample) > liveGlobalSampleCap {
		sample = sample[:liveGlobalSampleCap]
	}

	var values [][]float64
	err = e.pool.Run(ctx, "explain_global", func(ctx context.Context) error {
		raw, err := strategy.Values(ctx, sample)
		if err != nil {
			return err
		}
		values, err = PositiveClass(raw, matrix.NumFeatures())
		return err
	})
	if err != nil {
		return nil, err
	}

	importance := meanAbs(values)
	entries := make([]GlobalEntry, len(importance))
	for j, v := range importance {
		entries[j] = GlobalEntry{Feature: matrix.Features[j], Importance: round3(v)}
	}
	rankEntries(entries)
	e.logger.Info("live global attribution",
		"strategy", strategy.Name(), "rows", len(sample), "features", len(entries))
	return entries, nil
}

func (e *Engine) liveLocal(ctx context.Context, table *dataset.Table, matrix *dataset.Matrix, m model.ChurnModel, customerID string, rowIdx int) ([]LocalEntry, error) {
	if err := checkWidth(m, matrix); err != nil {
		return nil, err
	}
	strategy, err := selectStrategy(m, matrix.Rows)
	if err != nil {
		return nil, err
	}

	var values [][]float64
	err = e.pool.Run(ctx, "explain_local", func(ctx context.Context) error {
		raw, err := strategy.Values(ctx, [][]float64{matrix.Rows[rowIdx]})
		if err != nil {
			return err
		}
		values, err = PositiveClass(raw, matrix.NumFeatures())
		return err
	})
	if err != nil {
		return nil, err
	}

	contributions := values[0]
	entries := make([]LocalEntry, len(contributions))
	for j, c := range contributions {
		entries[j] = LocalEntry{
			CustomerID:   customerID,
			Feature:      matrix.Features[j],
			Contribution: round3(c),
			FeatureValue: dataset.FormatCell(table.Column(matrix.Features[j]), rowIdx),
			Impact:       ImpactOf(c),
		}
	}
	return topByMagnitude(entries, topLocalEntries), nil
}

// precomputedGlobal maps the importance table onto the dataset's raw
// column names. Pipeline artifacts carry transformer-mangled names
// (cat__contract_type_Month-to-month); entries resolving to the same raw
// column are merged by summing importance.
func (e *Engine) precomputedGlobal(rawColumns []string) []GlobalEntry {
	if e.precomputed == nil {
		return nil
	}
	stored := e.precomputed.Entries()
	if len(stored) == 0 {
		return nil
	}

	merged := make(map[string]float64, len(stored))
	order := make([]string, 0, len(stored))
	for _, entry := range stored {
		name := reconcile.Reconcile(entry.Feature, rawColumns)
		if _, seen := merged[name]; !seen {
			order = append(order, name)
		}
		merged[name] += entry.Importance
	}

	entries := make([]GlobalEntry, 0, len(order))
	for _, name := range order {
		entries = append(entries, GlobalEntry{Feature: name, Importance: round3(merged[name])})
	}
	rankEntries(entries)
	return entries
}

// synthesizeLocal fabricates per-customer contributions from global
// importance. A numeric feature is scaled by its damped z-score, so an
// unusually high monthly charge reads as a stronger driver than an average
// one; categorical features get a flat damped share since no per-value
// weight survives in the table.
func (e *Engine) synthesizeLocal(table *dataset.Table, customerID string, rowIdx int) []LocalEntry {
	global := e.precomputedGlobal(table.ColumnNames())
	if len(global) == 0 {
		return nil
	}
	if len(global) > topLocalEntries {
		global = global[:topLocalEntries]
	}

	entries := make([]LocalEntry, 0, len(global))
	for _, g := range global {
		col := table.Column(g.Feature)
		contribution := g.Importance * categoricalDamping
		if col != nil && col.Numeric {
			v := col.Floats[rowIdx]
			if math.IsNaN(v) {
				v = 0
			}
			z := (v - col.Mean()) / (col.Std() + zEpsilon)
			contribution = g.Importance * z * numericDamping
		}
		entries = append(entries, LocalEntry{
			CustomerID:   customerID,
			Feature:      g.Feature,
			Contribution: round3(contribution),
			FeatureValue: dataset.FormatCell(col, rowIdx),
			Impact:       ImpactOf(contribution),
		})
	}
	sortByMagnitude(entries)
	return entries
}

// rankEntries sorts by importance descending and assigns dense 1-based
// ranks. Ties keep input order.
func rankEntries(entries []GlobalEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Importance > entries[j].Importance
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

func sortByMagnitude(entries []LocalEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return math.Abs(entries[i].Contribution) > math.Abs(entries[j].Contribution)
	})
}

func topByMagnitude(entries []LocalEntry, n int) []LocalEntry {
	sortByMagnitude(entries)
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
