// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation for user-supplied identifiers.
//
// This package contains validators for inputs that end up in storage keys,
// log lines, or response text. Using these validators keeps malformed or
// hostile identifiers out of the rest of the system.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// customerIDPattern matches customer identifiers as they appear in uploaded
// datasets: alphanumeric with optional dots, hyphens, and underscores.
// Max length: 64 characters.
var customerIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,63}$`)

// columnNamePattern matches raw dataset column names: snake_case
// alphanumeric, starting with a letter. Max length: 64 characters.
var columnNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{0,63}$`)

// ValidateCustomerID validates a customer identifier before it is used as a
// lookup key or echoed back in a response.
//
// Valid identifiers:
//   - 1-64 characters
//   - letters, digits, dots, hyphens, underscores
//   - must start with a letter or digit
//
// Example:
//
//	if err := validation.ValidateCustomerID(id); err != nil {
//	    return nil, fmt.Errorf("invalid customer id: %w", err)
//	}
func ValidateCustomerID(id string) error {
	if id == "" {
		return fmt.Errorf("customer id cannot be empty")
	}
	if !customerIDPattern.MatchString(id) {
		return fmt.Errorf("invalid customer id format: %q (must be 1-64 alphanumeric chars, dots, hyphens, or underscores)", id)
	}
	return nil
}

// ValidateColumnName validates a dataset column name.
func ValidateColumnName(name string) error {
	if name == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if !columnNamePattern.MatchString(name) {
		return fmt.Errorf("invalid column name: %q", name)
	}
	return nil
}

// ValidateColumnNames validates multiple column names. Returns an error
// listing all invalid names if any fail validation.
func ValidateColumnNames(names []string) error {
	var invalid []string
	for _, n := range names {
		if err := ValidateColumnName(n); err != nil {
			invalid = append(invalid, n)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid column names: %v", invalid)
	}
	return nil
}

// SanitizeCustomerID trims whitespace and validates the identifier.
// Returns the trimmed id if valid, or an error if invalid.
func SanitizeCustomerID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if err := ValidateCustomerID(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}
