// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCustomerID_Valid(t *testing.T) {
	valid := []string{"C007", "cust-42", "A.B_c-1", "0001", "CUST_2024.01"}
	for _, id := range valid {
		assert.NoError(t, ValidateCustomerID(id), "id %q should be valid", id)
	}
}

func TestValidateCustomerID_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"-leading-dash",
		".leading-dot",
		"has space",
		"semi;colon",
		strings.Repeat("x", 65),
		"drop table;--",
	}
	for _, id := range invalid {
		assert.Error(t, ValidateCustomerID(id), "id %q should be invalid", id)
	}
}

func TestValidateColumnName(t *testing.T) {
	assert.NoError(t, ValidateColumnName("tenure_months"))
	assert.NoError(t, ValidateColumnName("contract_type"))
	assert.Error(t, ValidateColumnName(""))
	assert.Error(t, ValidateColumnName("1starts_with_digit"))
	assert.Error(t, ValidateColumnName("has-dash"))
}

func TestValidateColumnNames_ReportsAllInvalid(t *testing.T) {
	err := ValidateColumnNames([]string{"ok", "not ok", "also bad!"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ok")
	assert.Contains(t, err.Error(), "also bad!")
}

func TestSanitizeCustomerID(t *testing.T) {
	got, err := SanitizeCustomerID("  C007  ")
	require.NoError(t, err)
	assert.Equal(t, "C007", got)

	_, err = SanitizeCustomerID("   ")
	assert.Error(t, err)
}
