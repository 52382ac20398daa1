// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package dataset holds rows and datasets, the unit a DATA step reads and
// writes.
package dataset

import (
	"errors"

	"github.com/iamafool/opensas-sub001/internal/value"
)

// ErrNotFound reports a dataset name with no dataset behind it. Catalogs and
// the evaluator wrap this one value.
var ErrNotFound = errors.New("not found")

// Row is an ordered name to value mapping. Names keep first-seen order.
type Row struct {
	names  []string
	values map[string]value.Value
}

// NewRow creates an empty row.
func NewRow() *Row {
	return &Row{values: make(map[string]value.Value)}
}

// Get returns the value of name and whether the row has it.
func (r *Row) Get(name string) (value.Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Set stores v under name, appending name if it is new.
func (r *Row) Set(name string, v value.Value) {
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = v
}

// Names returns the row's variable names in order.
func (r *Row) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of variables in the row.
func (r *Row) Len() int { return len(r.names) }

// Clone returns an independent copy of the row.
func (r *Row) Clone() *Row {
	c := &Row{
		names:  make([]string, len(r.names)),
		values: make(map[string]value.Value, len(r.values)),
	}
	copy(c.names, r.names)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Dataset is a named, ordered collection of rows sharing one schema.
// Stored rows are immutable: Append copies, and Row builds a fresh Row.
type Dataset struct {
	name   string
	schema []string
	index  map[string]int
	rows   [][]value.Value
}

// New creates an empty dataset with the given initial schema.
func New(name string, schema []string) *Dataset {
	d := &Dataset{name: name, index: make(map[string]int)}
	for _, v := range schema {
		d.addVar(v)
	}
	return d
}

func (d *Dataset) addVar(name string) int {
	if i, ok := d.index[name]; ok {
		return i
	}
	d.index[name] = len(d.schema)
	d.schema = append(d.schema, name)
	return len(d.schema) - 1
}

// Name returns the dataset name.
func (d *Dataset) Name() string { return d.name }

// Schema returns the variable names in column order.
func (d *Dataset) Schema() []string {
	out := make([]string, len(d.schema))
	copy(out, d.schema)
	return out
}

// Has reports whether the schema contains name.
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Append stores a copy of r laid out in schema order. Variables not yet in
// the schema are added at the end.
func (d *Dataset) Append(r *Row) {
	for _, n := range r.names {
		d.addVar(n)
	}
	cells := make([]value.Value, len(d.schema))
	for _, n := range r.names {
		cells[d.index[n]] = r.values[n]
	}
	d.rows = append(d.rows, cells)
}

// Row returns row i with every schema variable set; variables the row never
// had are Missing.
func (d *Dataset) Row(i int) *Row {
	cells := d.rows[i]
	r := &Row{
		names:  make([]string, len(d.schema)),
		values: make(map[string]value.Value, len(d.schema)),
	}
	copy(r.names, d.schema)
	for j, n := range d.schema {
		if j < len(cells) {
			r.values[n] = cells[j]
		} else {
			r.values[n] = value.Missing()
		}
	}
	return r
}

// Rows returns every row in insertion order.
func (d *Dataset) Rows() []*Row {
	out := make([]*Row, len(d.rows))
	for i := range d.rows {
		out[i] = d.Row(i)
	}
	return out
}

// Value returns the cell at row i, column name.
func (d *Dataset) Value(i int, name string) value.Value {
	j, ok := d.index[name]
	if !ok || j >= len(d.rows[i]) {
		return value.Missing()
	}
	return d.rows[i][j]
}

// Clone returns a snapshot that later appends to d do not affect.
func (d *Dataset) Clone() *Dataset {
	c := New(d.name, d.schema)
	c.rows = make([][]value.Value, len(d.rows))
	copy(c.rows, d.rows)
	return c
}

// Rename returns a snapshot of d under a new name.
func (d *Dataset) Rename(name string) *Dataset {
	c := d.Clone()
	c.name = name
	return c
}
