// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iamafool/opensas-sub001/internal/dataset"
	"github.com/iamafool/opensas-sub001/internal/value"
)

// ReadCSV reads a CSV file with a header line. A column is numeric when
// every non-empty cell parses as a number; empty cells are Missing.
func ReadCSV(r io.Reader, name string) (*dataset.Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("missing header line")
	}

	header := records[0]
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, fmt.Errorf("column %d has no name", i+1)
		}
		if seen[h] {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		seen[h] = true
		header[i] = h
	}
	body := records[1:]

	numeric := make([]bool, len(header))
	for j := range header {
		numeric[j] = true
		for _, rec := range body {
			cell := strings.TrimSpace(rec[j])
			if cell == "" || cell == "." {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				numeric[j] = false
				break
			}
		}
	}

	d := dataset.New(name, header)
	for _, rec := range body {
		row := dataset.NewRow()
		for j, h := range header {
			row.Set(h, cellValue(rec[j], numeric[j]))
		}
		d.Append(row)
	}
	return d, nil
}

func cellValue(raw string, numeric bool) value.Value {
	if numeric {
		return value.Parse(raw)
	}
	if raw == "" {
		return value.Missing()
	}
	return value.Str(raw)
}

// WriteCSV writes d with a header line. Missing cells are empty.
func WriteCSV(w io.Writer, d *dataset.Dataset) error {
	cw := csv.NewWriter(w)
	schema := d.Schema()
	if err := cw.Write(schema); err != nil {
		return err
	}
	rec := make([]string, len(schema))
	for i := 0; i < d.Len(); i++ {
		for j, n := range schema {
			v := d.Value(i, n)
			if v.IsMissing() {
				rec[j] = ""
			} else {
				rec[j] = v.String()
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
