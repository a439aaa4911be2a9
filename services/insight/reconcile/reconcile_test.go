// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var rawColumns = []string{
	"customer_id", "gender", "tenure_months", "contract_type",
	"payment_method", "monthly_charges", "total_charges", "region",
}

func TestReconcileOneHotEncoded(t *testing.T) {
	got := Reconcile("cat__contract_type_Month-to-month", rawColumns)
	assert.Equal(t, "contract_type", got)
}

func TestReconcileNumericPrefix(t *testing.T) {
	assert.Equal(t, "tenure_months", Reconcile("num__tenure_months", rawColumns))
	assert.Equal(t, "monthly_charges", Reconcile("scaler__monthly_charges", rawColumns))
}

func TestReconcileCaseInsensitive(t *testing.T) {
	assert.Equal(t, "region", Reconcile("cat__Region_Urban", rawColumns))
}

func TestReconcileFirstMatchWinsTies(t *testing.T) {
	// "monthly" is contained in both monthly_charges and, reversed, in
	// nothing else; base "total" matches total_charges only.
	assert.Equal(t, "monthly_charges", Reconcile("num__monthly_charges", rawColumns))
	assert.Equal(t, "total_charges", Reconcile("num__total_charges", rawColumns))
}

func TestReconcileNoMatchReturnsEncodedName(t *testing.T) {
	got := Reconcile("cat__nonexistent_thing_Yes", rawColumns)
	assert.Equal(t, "cat__nonexistent_thing_Yes", got)
}

func TestReconcileBareName(t *testing.T) {
	// no prefix, no underscore suffix games
	assert.Equal(t, "gender", Reconcile("gender", rawColumns))
}

func TestStripPrefix(t *testing.T) {
	assert.Equal(t, "contract_type_Month-to-month", StripPrefix("cat__contract_type_Month-to-month"))
	assert.Equal(t, "plain", StripPrefix("plain"))
}

func TestReconcileAll(t *testing.T) {
	got := ReconcileAll([]string{"cat__gender_Female", "num__tenure_months"}, rawColumns)
	assert.Equal(t, []string{"gender", "tenure_months"}, got)
}
