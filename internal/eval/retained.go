// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"github.com/iamafool/opensas-sub001/internal/ast"
	"github.com/iamafool/opensas-sub001/internal/dataset"
	"github.com/iamafool/opensas-sub001/internal/value"
)

// Retained holds the values that carry over from one row to the next.
// It lives for a single run.
type Retained struct {
	names  []string
	values map[string]value.Value
}

// NewRetained seeds a store from retain items. The first initial value given
// for a name wins; a name without one starts Missing.
func NewRetained(items []ast.RetainItem) *Retained {
	r := &Retained{values: make(map[string]value.Value)}
	for _, it := range items {
		cur, seen := r.values[it.Name]
		switch {
		case !seen:
			r.names = append(r.names, it.Name)
			r.values[it.Name] = it.Initial
		case cur.IsMissing() && it.HasInitial:
			r.values[it.Name] = it.Initial
		}
	}
	return r
}

// Get returns the current value of name, Missing if it is not retained.
func (r *Retained) Get(name string) value.Value {
	return r.values[name]
}

// Names returns retained names in declaration order.
func (r *Retained) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Overlay writes every retained value into row.
func (r *Retained) Overlay(row *dataset.Row) {
	for _, n := range r.names {
		row.Set(n, r.values[n])
	}
}

// Capture copies the row's current value of every retained name back into
// the store.
func (r *Retained) Capture(row *dataset.Row) {
	for _, n := range r.names {
		if v, ok := row.Get(n); ok {
			r.values[n] = v
		}
	}
}

// ArrayBinding aliases a name to an ordered list of variables. Subscripts
// are 1-based.
type ArrayBinding struct {
	Name string
	Vars []string
}

// Len returns the number of elements.
func (a *ArrayBinding) Len() int { return len(a.Vars) }

// Var returns the variable at subscript i, or false if i is outside 1..Len.
func (a *ArrayBinding) Var(i int) (string, bool) {
	if i < 1 || i > len(a.Vars) {
		return "", false
	}
	return a.Vars[i-1], true
}
