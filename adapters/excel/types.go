package excel

import (
	"fmt"
	"strconv"
	"strings"
)

// RawRowData represents a row of raw data as header to cell pairs
type RawRowData map[string]string

// ExcelData represents a complete table read from a file
type ExcelData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}

// HasColumn reports whether the header row contains name
func (d *ExcelData) HasColumn(name string) bool {
	for _, h := range d.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// FindColumn returns the first header matching one of candidates, ignoring
// case, or "" when none matches
func (d *ExcelData) FindColumn(candidates ...string) string {
	for _, c := range candidates {
		for _, h := range d.Headers {
			if strings.EqualFold(h, c) {
				return h
			}
		}
	}
	return ""
}

// Column returns the cells of one column in row order
func (d *ExcelData) Column(name string) []string {
	out := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row[name]
	}
	return out
}

// Float parses the cell of column name in row i. Blank, "NA" and "NaN" cells
// report ok=false.
func (d *ExcelData) Float(i int, name string) (v float64, ok bool, err error) {
	cell := strings.TrimSpace(d.Rows[i][name])
	switch strings.ToLower(cell) {
	case "", "na", "nan", "null":
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false, fmt.Errorf("row %d column %s: %w", i+2, name, err)
	}
	return v, true, nil
}
