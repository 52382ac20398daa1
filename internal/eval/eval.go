// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package eval runs compiled DATA steps against a catalog.
//
// A run reads its input dataset as a snapshot, executes the program once per
// input row (or once when there is no input), and writes the output dataset
// when every row has been processed. Nothing is written if the run fails or
// its context is cancelled.
package eval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iamafool/opensas-sub001/internal/ast"
	"github.com/iamafool/opensas-sub001/internal/dataset"
	"github.com/iamafool/opensas-sub001/internal/diag"
	"github.com/iamafool/opensas-sub001/internal/value"
)

// Catalog is the named collection of datasets a run reads from and writes
// to. Names are case-insensitive.
type Catalog interface {
	// Lookup returns a snapshot of the named dataset, or nil if it does not exist.
	Lookup(name string) (*dataset.Dataset, error)
	// GetOrCreate returns the named dataset, creating it empty if needed.
	GetOrCreate(name string) (*dataset.Dataset, error)
	// Create replaces the named dataset with an empty one.
	Create(name string, schema []string) error
	// Replace atomically makes d the contents of the named dataset.
	Replace(name string, d *dataset.Dataset) error
	// AppendRow appends a copy of row to the named dataset.
	AppendRow(name string, row *dataset.Row) error
	// ReadRows returns the rows of the named dataset in insertion order.
	ReadRows(name string) ([]*dataset.Row, error)
	// Schema returns the variable names of the named dataset.
	Schema(name string) ([]string, error)
	// Names returns every dataset name, sorted.
	Names() ([]string, error)
	// Drop removes the named dataset.
	Drop(name string) error
	// Close releases resources.
	Close() error
}

// ErrorMode controls what happens after a runtime error in a row.
type ErrorMode int

const (
	// SkipRow abandons the rest of the row. The row is still output under
	// the implicit output policy.
	SkipRow ErrorMode = iota
	// SkipStatement resumes at the next top-level statement.
	SkipStatement
	// Abort fails the run.
	Abort
)

// String returns the configuration spelling of m.
func (m ErrorMode) String() string {
	switch m {
	case SkipRow:
		return "skip_row"
	case SkipStatement:
		return "skip_statement"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// ParseErrorMode parses a string into an ErrorMode.
func ParseErrorMode(s string) (ErrorMode, bool) {
	switch strings.ReplaceAll(strings.ToLower(s), "-", "_") {
	case "skip_row", "":
		return SkipRow, true
	case "skip_statement":
		return SkipStatement, true
	case "abort":
		return Abort, true
	default:
		return SkipRow, false
	}
}

// Evaluator runs programs. It holds no per-run state and may be shared.
type Evaluator struct {
	sink  diag.Sink
	mode  ErrorMode
	newID func() string
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithSink sets where diagnostics go.
func WithSink(s diag.Sink) Option {
	return func(e *Evaluator) { e.sink = s }
}

// WithErrorMode sets the runtime error policy.
func WithErrorMode(m ErrorMode) Option {
	return func(e *Evaluator) { e.mode = m }
}

// New creates a new Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		sink:  diag.Discard,
		mode:  SkipRow,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ErrorMode returns the configured error policy.
func (e *Evaluator) ErrorMode() ErrorMode { return e.mode }

// Run executes prog once per row of its input and stores the result in cat.
// input overrides the program's set statement when non-empty. Run returns
// the name of the dataset written; a step without a data statement writes
// to the first free name data1, data2, ... and a _null_ step writes nothing.
func (e *Evaluator) Run(ctx context.Context, prog *ast.Program, input string, cat Catalog) (string, error) {
	if input == "" {
		input = prog.Input
	}

	var in *dataset.Dataset
	if input != "" {
		ds, err := cat.Lookup(input)
		if err != nil {
			return "", &DatasetError{Name: input, Err: err}
		}
		if ds == nil {
			return "", &DatasetError{Name: input, Err: ErrNotFound}
		}
		in = ds
	}

	name := prog.Output
	if name == "" {
		n, err := defaultName(cat)
		if err != nil {
			return "", err
		}
		name = n
	}

	r, err := e.newRun(prog, in, name)
	if err != nil {
		return "", err
	}
	r.emit(diag.Info, "step started", map[string]any{"input": input})
	r.checkReferences()

	if in == nil {
		if err := r.row(ctx, nil); err != nil {
			return "", err
		}
	} else {
		for i := 0; i < in.Len(); i++ {
			if err := r.row(ctx, in.Row(i)); err != nil {
				return "", err
			}
		}
	}

	if prog.IsNull() {
		r.emit(diag.Info, "step finished", map[string]any{"rows": 0})
		return prog.Output, nil
	}
	if err := write(cat, name, r.out); err != nil {
		return "", err
	}
	r.emit(diag.Info, "step finished", map[string]any{"rows": r.out.Len()})
	return name, nil
}

// write replaces the named dataset with out.
func write(cat Catalog, name string, out *dataset.Dataset) error {
	if err := cat.Replace(name, out); err != nil {
		return &DatasetError{Name: name, Err: err}
	}
	return nil
}

func defaultName(cat Catalog) (string, error) {
	for i := 1; ; i++ {
		name := fmt.Sprintf("data%d", i)
		ds, err := cat.Lookup(name)
		if err != nil {
			return "", &DatasetError{Name: name, Err: err}
		}
		if ds == nil {
			return name, nil
		}
	}
}

// run is the state of one execution of a program.
type run struct {
	ev       *Evaluator
	prog     *ast.Program
	id       string
	output   string
	pdv      []string
	retained *Retained
	arrays   map[string]*ArrayBinding
	kinds    map[string]value.Kind
	explicit bool
	out      *dataset.Dataset

	cur    *dataset.Row
	rowNum int
}

func (e *Evaluator) newRun(prog *ast.Program, in *dataset.Dataset, output string) (*run, error) {
	r := &run{
		ev:       e,
		prog:     prog,
		id:       e.newID(),
		output:   output,
		retained: NewRetained(prog.Retained()),
		arrays:   make(map[string]*ArrayBinding),
		kinds:    make(map[string]value.Kind),
		explicit: prog.HasOutput(),
	}

	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			r.pdv = append(r.pdv, name)
		}
	}
	if in != nil {
		for _, n := range in.Schema() {
			add(n)
		}
	}
	for _, n := range prog.Variables() {
		add(n)
	}
	r.out = dataset.New(output, r.pdv)

	for _, d := range prog.Arrays() {
		if _, dup := r.arrays[d.Name]; dup {
			return nil, &NameError{Pos: d.Pos, Name: d.Name, Msg: "array declared more than once"}
		}
		r.arrays[d.Name] = &ArrayBinding{Name: d.Name, Vars: d.Vars}
	}
	for _, n := range r.retained.Names() {
		r.noteKind(n, r.retained.Get(n))
	}
	return r, nil
}

// checkReferences warns once for every variable the program reads but
// neither the input nor the program ever sets.
func (r *run) checkReferences() {
	for _, n := range r.prog.References() {
		if !r.out.Has(n) {
			r.emit(diag.Warn, fmt.Sprintf("variable %s is uninitialized", n), nil)
		}
	}
}

// row executes the program once. in is nil for a step without input.
func (r *run) row(ctx context.Context, in *dataset.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.rowNum++
	row := dataset.NewRow()
	for _, n := range r.pdv {
		row.Set(n, value.Missing())
	}
	r.retained.Overlay(row)
	if in != nil {
		for _, n := range in.Names() {
			v, _ := in.Get(n)
			row.Set(n, v)
			// Input overwrites retained values, so it also decides the kind.
			if !v.IsMissing() {
				r.kinds[n] = v.Kind()
			}
		}
	}
	r.cur = row

	deleted := false
	for _, stmt := range r.prog.Stmts {
		err := r.exec(ctx, stmt)
		if err == nil {
			continue
		}
		if errors.Is(err, errDelete) {
			deleted = true
			break
		}
		if !runtimeError(err) {
			return err
		}
		r.report(err, stmt)
		if r.ev.mode == Abort {
			return err
		}
		if r.ev.mode == SkipRow {
			break
		}
	}

	r.retained.Capture(row)
	if !deleted && !r.explicit {
		r.out.Append(row)
	}
	return nil
}

// noteKind fixes the kind of name on its first non-Missing value.
func (r *run) noteKind(name string, v value.Value) {
	if v.IsMissing() {
		return
	}
	if _, ok := r.kinds[name]; !ok {
		r.kinds[name] = v.Kind()
	}
}

func (r *run) context(extra map[string]any) map[string]any {
	c := map[string]any{"run": r.id, "step": r.output}
	if r.rowNum > 0 {
		c["row"] = r.rowNum
	}
	for k, v := range extra {
		c[k] = v
	}
	return c
}

func (r *run) emit(level diag.Level, msg string, extra map[string]any) {
	r.ev.sink.Emit(diag.Event{Level: level, Message: msg, Context: r.context(extra)})
}

func (r *run) report(err error, stmt ast.Stmt) {
	r.emit(diag.Error, err.Error(), map[string]any{"pos": stmt.Position().String()})
}
