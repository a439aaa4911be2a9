// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// IDColumn is the identifier column every dataset must carry.
const IDColumn = "customer_id"

// ChurnColumn is the optional ground-truth label column.
const ChurnColumn = "churn"

// Column is one typed column of a Table. A column is numeric when every
// non-empty cell parses as a float; otherwise it is categorical text.
// Missing numeric cells are stored as NaN, missing text cells as "".
type Column struct {
	// Name is the raw column name from the CSV header.
	Name string

	// Numeric reports whether the column holds float values.
	Numeric bool

	// Floats holds the values of a numeric column (NaN where missing).
	Floats []float64

	// Strings holds the values of a categorical column ("" where missing).
	Strings []string
}

// Value returns the cell at row i as a string for display purposes.
func (c *Column) Value(i int) string {
	if c.Numeric {
		v := c.Floats[i]
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return c.Strings[i]
}

// Mean returns the mean of a numeric column over non-missing cells.
// Returns 0 for non-numeric or all-missing columns.
func (c *Column) Mean() float64 {
	if !c.Numeric {
		return 0
	}
	var sum float64
	var n int
	for _, v := range c.Floats {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Std returns the population standard deviation of a numeric column over
// non-missing cells. Returns 0 for non-numeric or all-missing columns.
func (c *Column) Std() float64 {
	if !c.Numeric {
		return 0
	}
	mean := c.Mean()
	var sum float64
	var n int
	for _, v := range c.Floats {
		if math.IsNaN(v) {
			continue
		}
		d := v - mean
		sum += d * d
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

// Table is an immutable column-ordered customer dataset. Build one via
// ParseCSV or NewTable; do not mutate it after publishing a Snapshot.
type Table struct {
	columns []*Column
	byName  map[string]*Column
	rows    int
	idIndex map[string]int
}

// NewTable builds a Table from pre-typed columns. All columns must have the
// same length. Used by tests and artifact loaders; uploads go through
// ParseCSV.
func NewTable(columns []*Column) (*Table, error) {
	if len(columns) == 0 {
		return nil, ErrEmptyCSV
	}
	rows := -1
	byName := make(map[string]*Column, len(columns))
	for _, col := range columns {
		n := len(col.Strings)
		if col.Numeric {
			n = len(col.Floats)
		}
		if rows == -1 {
			rows = n
		} else if n != rows {
			return nil, &ValidationError{Reason: fmt.Sprintf("column %s has %d rows, want %d", col.Name, n, rows)}
		}
		if _, dup := byName[col.Name]; dup {
			return nil, &ValidationError{Reason: fmt.Sprintf("duplicate column %s", col.Name)}
		}
		byName[col.Name] = col
	}
	t := &Table{columns: columns, byName: byName, rows: rows}
	t.buildIDIndex()
	return t, nil
}

// ParseCSV reads a raw customer CSV into a Table. Column types are inferred
// per column: numeric when every non-empty cell parses as a float.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(records)+2, err)
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return nil, ErrEmptyCSV
	}

	columns := make([]*Column, len(header))
	for j, name := range header {
		raw := make([]string, len(records))
		numeric := false
		sawValue := false
		allParse := true
		for i, record := range records {
			cell := strings.TrimSpace(record[j])
			raw[i] = cell
			if cell == "" {
				continue
			}
			sawValue = true
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				allParse = false
			}
		}
		// customer_id stays textual even when ids look numeric.
		numeric = sawValue && allParse && name != IDColumn

		col := &Column{Name: name, Numeric: numeric}
		if numeric {
			col.Floats = make([]float64, len(raw))
			for i, cell := range raw {
				if cell == "" {
					col.Floats[i] = math.NaN()
					continue
				}
				v, _ := strconv.ParseFloat(cell, 64)
				col.Floats[i] = v
			}
		} else {
			col.Strings = raw
		}
		columns[j] = col
	}

	return NewTable(columns)
}

func (t *Table) buildIDIndex() {
	id, ok := t.byName[IDColumn]
	if !ok || id.Numeric {
		return
	}
	t.idIndex = make(map[string]int, t.rows)
	for i := t.rows - 1; i >= 0; i-- {
		// first occurrence wins on duplicate ids
		t.idIndex[id.Strings[i]] = i
	}
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int { return t.rows }

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.columns) }

// ColumnNames returns column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

// Column returns the named column, or nil when absent.
func (t *Table) Column(name string) *Column {
	return t.byName[name]
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// RowIndex returns the row index for a customer id.
func (t *Table) RowIndex(customerID string) (int, error) {
	if t.idIndex == nil {
		return 0, &ValidationError{Reason: "dataset has no customer_id column"}
	}
	i, ok := t.idIndex[customerID]
	if !ok {
		return 0, &NotFoundError{CustomerID: customerID}
	}
	return i, nil
}

// CustomerID returns the identifier of row i, or the row number when the
// dataset carries no id column.
func (t *Table) CustomerID(i int) string {
	if id := t.byName[IDColumn]; id != nil && !id.Numeric {
		return id.Strings[i]
	}
	return strconv.Itoa(i)
}

// FeatureColumns returns column names in declaration order excluding the
// identifier, the churn label, and any additional exclusions.
func (t *Table) FeatureColumns(exclude ...string) []string {
	skip := map[string]bool{IDColumn: true, ChurnColumn: true}
	for _, name := range exclude {
		skip[name] = true
	}
	var names []string
	for _, col := range t.columns {
		if !skip[col.Name] {
			names = append(names, col.Name)
		}
	}
	return names
}

// ChurnLabels returns the ground-truth churn labels when the dataset has a
// churn column, interpreting 1/"1"/"yes"/"true" as churned. The second
// return reports whether labels are present.
func (t *Table) ChurnLabels() ([]int, bool) {
	col := t.byName[ChurnColumn]
	if col == nil {
		return nil, false
	}
	labels := make([]int, t.rows)
	for i := 0; i < t.rows; i++ {
		if col.Numeric {
			if col.Floats[i] >= 0.5 {
				labels[i] = 1
			}
			continue
		}
		switch strings.ToLower(strings.TrimSpace(col.Strings[i])) {
		case "1", "yes", "true", "high":
			labels[i] = 1
		}
	}
	return labels, true
}

// Summary renders a one-line description of the dataset.
func (t *Table) Summary() string {
	return fmt.Sprintf("The dataset contains %d customers with %d columns.", t.rows, len(t.columns))
}
