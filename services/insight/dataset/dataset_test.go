// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dataset

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `customer_id,gender,tenure_months,contract_type,monthly_charges,total_charges,churn
C001,Female,12,Month-to-month,70.5,846.0,1
C002,Male,48,Two year,20.0,960.0,0
C003,Female,3,Month-to-month,85.25,255.75,1
C004,Male,60,One year,,5400.0,0
`

func parseSample(t *testing.T) *Table {
	t.Helper()
	table, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	return table
}

func TestParseCSV_TypesAndShape(t *testing.T) {
	table := parseSample(t)

	assert.Equal(t, 4, table.NumRows())
	assert.Equal(t, 7, table.NumColumns())

	// customer_id stays textual even if ids were numeric-looking
	assert.False(t, table.Column("customer_id").Numeric)
	assert.True(t, table.Column("tenure_months").Numeric)
	assert.True(t, table.Column("monthly_charges").Numeric)
	assert.False(t, table.Column("contract_type").Numeric)
}

func TestParseCSV_Empty(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyCSV)

	_, err = ParseCSV(strings.NewReader("customer_id,gender\n"))
	assert.ErrorIs(t, err, ErrEmptyCSV)
}

func TestRowIndex(t *testing.T) {
	table := parseSample(t)

	i, err := table.RowIndex("C003")
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	_, err = table.RowIndex("C999")
	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "C999", notFound.CustomerID)
}

func TestFeatureColumnsExcludesIDAndChurn(t *testing.T) {
	table := parseSample(t)
	features := table.FeatureColumns()
	assert.NotContains(t, features, "customer_id")
	assert.NotContains(t, features, "churn")
	assert.Contains(t, features, "tenure_months")
}

func TestChurnLabels(t *testing.T) {
	table := parseSample(t)
	labels, ok := table.ChurnLabels()
	require.True(t, ok)
	assert.Equal(t, []int{1, 0, 1, 0}, labels)
}

func TestNormalizeAliasesAndDefaults(t *testing.T) {
	csv := `customer_id,gender,tenure,contract,monthly_charges,total_charges,location
C001,Female,12,Month-to-month,70.5,846.0,Urban
`
	table, err := ParseCSV(strings.NewReader(csv))
	require.NoError(t, err)

	normalized, err := Normalize(table)
	require.NoError(t, err)

	assert.True(t, normalized.HasColumn("tenure_months"))
	assert.True(t, normalized.HasColumn("contract_type"))
	assert.True(t, normalized.HasColumn("region"))
	// defaulted optional columns
	assert.True(t, normalized.HasColumn("payment_method"))
	assert.Equal(t, "Electronic check", normalized.Column("payment_method").Strings[0])
	assert.NoError(t, ValidateSchema(normalized))
}

func TestValidateSchemaReportsMissing(t *testing.T) {
	csv := "customer_id,gender\nC001,Female\n"
	table, err := ParseCSV(strings.NewReader(csv))
	require.NoError(t, err)

	err = ValidateSchema(table)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.MissingColumns, "tenure_months")
	assert.Contains(t, verr.MissingColumns, "contract_type")
}

func TestEncode(t *testing.T) {
	table := parseSample(t)
	m := Encode(table)

	require.Equal(t, []string{"gender", "tenure_months", "contract_type", "monthly_charges", "total_charges"}, m.Features)
	require.Len(t, m.Rows, 4)

	// gender label-encoded in order of first appearance: Female=0, Male=1
	assert.Equal(t, 0.0, m.Rows[0][0])
	assert.Equal(t, 1.0, m.Rows[1][0])
	assert.True(t, m.Categorical[0])
	assert.False(t, m.Categorical[1])

	// missing monthly_charges filled with 0 post-encoding
	assert.Equal(t, 0.0, m.Rows[3][3])
}

func TestColumnStats(t *testing.T) {
	table := parseSample(t)
	tenure := table.Column("tenure_months")
	assert.InDelta(t, 30.75, tenure.Mean(), 1e-9)
	assert.Greater(t, tenure.Std(), 0.0)

	// mean skips missing cells
	charges := table.Column("monthly_charges")
	assert.InDelta(t, (70.5+20.0+85.25)/3, charges.Mean(), 1e-9)
}

func TestStoreSwapAndCurrent(t *testing.T) {
	store := NewStore()
	_, err := store.Current()
	assert.ErrorIs(t, err, ErrNoDataset)
	assert.False(t, store.Loaded())

	first := store.Replace(parseSample(t), "first.csv")
	snap, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, first.Version, snap.Version)

	second := store.Replace(parseSample(t), "second.csv")
	assert.NotEqual(t, first.Version, second.Version)

	snap, err = store.Current()
	require.NoError(t, err)
	assert.Equal(t, "second.csv", snap.Filename)
	// the first snapshot is still readable by requests that hold it
	assert.Equal(t, "first.csv", first.Filename)
}
