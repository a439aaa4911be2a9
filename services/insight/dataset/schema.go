// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dataset

import (
	"math"
	"sort"
	"strconv"
)

// RequiredColumns is the raw CSV schema expected by the churn models,
// in canonical declaration order.
var RequiredColumns = []string{
	IDColumn,
	"gender",
	"senior_citizen",
	"partner",
	"dependents",
	"tenure_months",
	"contract_type",
	"payment_method",
	"monthly_charges",
	"total_charges",
	"internet_service",
	"online_security",
	"tech_support",
	"paperless_billing",
	"streaming_tv",
	"streaming_movies",
	"multiple_lines",
	"avg_monthly_usage_gb",
	"support_tickets_last_6m",
	"late_payments_last_year",
	"autopay_enabled",
	"billing_cycle",
	"region",
}

// columnAliases maps common upload column names to the canonical schema.
var columnAliases = map[string]string{
	"tenure":   "tenure_months",
	"contract": "contract_type",
	"location": "region",
	"area":     "region",
	"city":     "region",
}

// columnDefaults supplies values for optional columns absent from an upload.
// Columns without a default here (customer_id, gender, tenure_months,
// contract_type, monthly_charges, total_charges) must be present.
var columnDefaults = map[string]any{
	"senior_citizen":          0.0,
	"partner":                 "No",
	"dependents":              "No",
	"payment_method":          "Electronic check",
	"internet_service":        "DSL",
	"online_security":         "No",
	"tech_support":            "No",
	"paperless_billing":       "Yes",
	"streaming_tv":            "No",
	"streaming_movies":        "No",
	"multiple_lines":          "No",
	"avg_monthly_usage_gb":    100.0,
	"support_tickets_last_6m": 0.0,
	"late_payments_last_year": 0.0,
	"autopay_enabled":         "No",
	"billing_cycle":           "Monthly",
	"region":                  "Urban",
}

// Normalize maps aliased column names to the canonical schema and fills
// missing defaultable columns, returning a new Table. The input table is
// not modified.
func Normalize(t *Table) (*Table, error) {
	columns := make([]*Column, 0, len(t.columns))
	seen := make(map[string]bool, len(t.columns))
	for _, col := range t.columns {
		name := col.Name
		if canonical, ok := columnAliases[name]; ok && !t.HasColumn(canonical) {
			renamed := *col
			renamed.Name = canonical
			columns = append(columns, &renamed)
			seen[canonical] = true
			continue
		}
		columns = append(columns, col)
		seen[name] = true
	}

	for _, name := range RequiredColumns {
		if seen[name] {
			continue
		}
		def, ok := columnDefaults[name]
		if !ok {
			continue // truly required; ValidateSchema reports it
		}
		col := &Column{Name: name}
		switch v := def.(type) {
		case float64:
			col.Numeric = true
			col.Floats = make([]float64, t.rows)
			for i := range col.Floats {
				col.Floats[i] = v
			}
		case string:
			col.Strings = make([]string, t.rows)
			for i := range col.Strings {
				col.Strings[i] = v
			}
		}
		columns = append(columns, col)
	}

	return NewTable(columns)
}

// ValidateSchema checks that every required column is present. Returns a
// ValidationError naming all missing columns, sorted for stable output.
func ValidateSchema(t *Table) error {
	var missing []string
	for _, name := range RequiredColumns {
		if !t.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &ValidationError{MissingColumns: missing}
	}
	return nil
}

// Matrix is a fully numeric encoding of a Table's feature columns, ready
// for model scoring and attribution. Categorical columns are label-encoded
// in order of first appearance; NaNs are filled with 0 after encoding.
type Matrix struct {
	// Features holds the feature names, one per column, in table order.
	Features []string

	// Rows holds one encoded feature vector per dataset row.
	Rows [][]float64

	// Categorical flags which features were label-encoded from text.
	Categorical []bool
}

// NumFeatures returns the width of the matrix.
func (m *Matrix) NumFeatures() int { return len(m.Features) }

// Encode label-encodes all feature columns of the table into a Matrix.
// The identifier and churn columns are excluded.
func Encode(t *Table) *Matrix {
	features := t.FeatureColumns()
	m := &Matrix{
		Features:    features,
		Rows:        make([][]float64, t.rows),
		Categorical: make([]bool, len(features)),
	}
	encoded := make([][]float64, len(features))
	for j, name := range features {
		col := t.Column(name)
		values := make([]float64, t.rows)
		if col.Numeric {
			for i, v := range col.Floats {
				if math.IsNaN(v) {
					v = 0
				}
				values[i] = v
			}
		} else {
			m.Categorical[j] = true
			codes := make(map[string]float64)
			for i, s := range col.Strings {
				code, ok := codes[s]
				if !ok {
					code = float64(len(codes))
					codes[s] = code
				}
				values[i] = code
			}
		}
		encoded[j] = values
	}
	for i := 0; i < t.rows; i++ {
		row := make([]float64, len(features))
		for j := range features {
			row[j] = encoded[j][i]
		}
		m.Rows[i] = row
	}
	return m
}

// FeatureIndex returns the matrix column index of a feature name, -1 when
// absent.
func (m *Matrix) FeatureIndex(name string) int {
	for j, f := range m.Features {
		if f == name {
			return j
		}
	}
	return -1
}

// FormatCell formats a raw cell value for inclusion in an explanation.
func FormatCell(col *Column, i int) string {
	if col == nil {
		return ""
	}
	if col.Numeric {
		v := col.Floats[i]
		if math.IsNaN(v) {
			return "n/a"
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return col.Strings[i]
}
