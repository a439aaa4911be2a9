// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package reconcile maps transformed feature identifiers back to the raw
// dataset columns they were derived from.
//
// Training pipelines emit encoded names like "cat__contract_type_Month-to-month"
// (transformer-group prefix plus one-hot category suffix). Explanations must
// speak in raw column names, so attribution results are reconciled before
// rendering.
package reconcile

import "strings"

// transformerPrefixes are the known encoder group prefixes, as emitted by
// column-transformer pipelines.
var transformerPrefixes = []string{
	"cat__",
	"num__",
	"remainder__",
	"onehot__",
	"scaler__",
}

// Reconcile maps an encoded feature name to the best-matching raw column.
//
// The encoded name is stripped of known transformer prefixes, the substring
// before the first underscore becomes the candidate base name, and raw
// columns are matched by case-insensitive substring containment in either
// direction. The first matching column in declaration order wins. When
// nothing qualifies the encoded name is returned unchanged.
func Reconcile(encoded string, rawColumns []string) string {
	stripped := StripPrefix(encoded)

	candidate := stripped
	if i := strings.Index(stripped, "_"); i > 0 {
		candidate = stripped[:i]
	}
	candidateLower := strings.ToLower(candidate)

	for _, col := range rawColumns {
		colLower := strings.ToLower(col)
		if strings.Contains(colLower, candidateLower) || strings.Contains(candidateLower, colLower) {
			return col
		}
	}
	return encoded
}

// ReconcileAll maps a list of encoded feature names, preserving order.
func ReconcileAll(encoded []string, rawColumns []string) []string {
	result := make([]string, len(encoded))
	for i, name := range encoded {
		result[i] = Reconcile(name, rawColumns)
	}
	return result
}

// StripPrefix removes a known transformer-group prefix from an encoded
// feature name, if present.
func StripPrefix(encoded string) string {
	for _, prefix := range transformerPrefixes {
		if strings.HasPrefix(encoded, prefix) {
			return encoded[len(prefix):]
		}
	}
	return encoded
}
