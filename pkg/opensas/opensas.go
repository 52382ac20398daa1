// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package opensas provides the public API for the DATA step interpreter.
package opensas

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/iamafool/opensas-sub001/internal/ast"
	"github.com/iamafool/opensas-sub001/internal/dataset"
	"github.com/iamafool/opensas-sub001/internal/diag"
	"github.com/iamafool/opensas-sub001/internal/eval"
	"github.com/iamafool/opensas-sub001/internal/loader"
	"github.com/iamafool/opensas-sub001/internal/parser"
	"github.com/iamafool/opensas-sub001/internal/scanner"
)

// Session runs DATA steps against one catalog.
type Session struct {
	evaluator   *eval.Evaluator
	catalog     eval.Catalog
	sinks       []diag.Sink
	sink        diag.Sink
	mode        eval.ErrorMode
	stepTimeout time.Duration
	err         error
}

// New creates a session with the given options.
func New(opts ...Option) (*Session, error) {
	s := &Session{}
	for _, opt := range opts {
		opt(s)
	}
	if s.err != nil {
		if s.catalog != nil {
			s.catalog.Close()
		}
		return nil, s.err
	}
	if s.catalog == nil {
		WithMemoryCatalog()(s)
	}

	switch len(s.sinks) {
	case 0:
		s.sink = diag.Discard
	case 1:
		s.sink = s.sinks[0]
	default:
		s.sink = diag.Multi(s.sinks...)
	}
	s.evaluator = eval.New(eval.WithErrorMode(s.mode), eval.WithSink(s.sink))
	return s, nil
}

// Submit parses src and runs its steps in order. It returns the names of the
// datasets written; _null_ steps are not listed. A failing step stops the
// submission, leaving earlier steps' output in place.
func (s *Session) Submit(ctx context.Context, src string) ([]string, error) {
	progs, err := parser.ParseAll(src)
	if err != nil {
		s.reportSyntax(err)
		return nil, err
	}
	var names []string
	for _, prog := range progs {
		name, err := s.runStep(ctx, prog)
		if err != nil {
			return names, err
		}
		if !prog.IsNull() {
			names = append(names, name)
		}
	}
	return names, nil
}

// reportSyntax sends a lex or parse error to the sink.
func (s *Session) reportSyntax(err error) {
	ctx := map[string]any{}
	var (
		le *scanner.LexError
		pe *parser.ParseError
	)
	switch {
	case errors.As(err, &pe):
		ctx["pos"] = pe.Pos.String()
		ctx["expected"] = pe.Expected
		ctx["found"] = pe.Found
	case errors.As(err, &le):
		ctx["pos"] = le.Pos.String()
	}
	s.sink.Emit(diag.Event{Level: diag.Error, Message: err.Error(), Context: ctx})
}

func (s *Session) runStep(ctx context.Context, prog *ast.Program) (string, error) {
	if s.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.stepTimeout)
		defer cancel()
	}
	return s.evaluator.Run(ctx, prog, "", s.catalog)
}

// SubmitFile submits the program in path.
func (s *Session) SubmitFile(ctx context.Context, path string) ([]string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	names, err := s.Submit(ctx, string(src))
	if err != nil {
		return names, fmt.Errorf("%s: %w", path, err)
	}
	return names, nil
}

// Catalog returns the session's catalog.
func (s *Session) Catalog() Catalog { return s.catalog }

// Dataset returns a snapshot of the named dataset, or nil if there is none.
func (s *Session) Dataset(name string) (*dataset.Dataset, error) {
	return s.catalog.Lookup(name)
}

// Import loads a CSV or YAML file into the catalog under name.
func (s *Session) Import(name, path string) (int, error) {
	return loader.Import(s.catalog, name, path)
}

// Export writes the named dataset to a CSV or YAML file.
func (s *Session) Export(name, path string) (int, error) {
	return loader.Export(s.catalog, name, path)
}

// ErrorMode returns the session's runtime error policy.
func (s *Session) ErrorMode() ErrorMode { return s.evaluator.ErrorMode() }

// Close releases the catalog.
func (s *Session) Close() error {
	return s.catalog.Close()
}
