// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package opensas

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/iamafool/opensas-sub001/internal/diag"
	"github.com/iamafool/opensas-sub001/internal/eval"
	"github.com/iamafool/opensas-sub001/internal/store"
)

// Option configures a Session.
type Option func(*Session)

// WithSQLiteCatalog keeps datasets in a SQLite database at path.
func WithSQLiteCatalog(path string) Option {
	return func(s *Session) {
		c, err := store.NewSQLite(path)
		if err != nil {
			s.err = err
			return
		}
		s.catalog = c
	}
}

// WithMemoryCatalog keeps datasets in memory. This is the default.
func WithMemoryCatalog() Option {
	return func(s *Session) {
		s.catalog = store.NewMemory()
	}
}

// WithCatalog uses an existing catalog. The session closes it on Close.
func WithCatalog(c Catalog) Option {
	return func(s *Session) {
		s.catalog = c
	}
}

// WithSink sends diagnostics to sink. Multiple sinks are combined.
func WithSink(sink Sink) Option {
	return func(s *Session) {
		s.sinks = append(s.sinks, sink)
	}
}

// WithLogger sends diagnostics to a zerolog logger.
func WithLogger(log zerolog.Logger) Option {
	return WithSink(diag.NewZerolog(log))
}

// WithErrorMode sets the runtime error policy.
func WithErrorMode(m ErrorMode) Option {
	return func(s *Session) {
		s.mode = m
	}
}

// WithStepTimeout bounds how long one DATA step may run. Zero means no limit.
func WithStepTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.stepTimeout = d
	}
}

// Catalog is the dataset store a session reads and writes.
type Catalog = eval.Catalog

// Sink receives diagnostics.
type Sink = diag.Sink

// ErrorMode controls what happens after a runtime error in a row.
type ErrorMode = eval.ErrorMode

// Error mode constants.
const (
	SkipRow       = eval.SkipRow
	SkipStatement = eval.SkipStatement
	Abort         = eval.Abort
)

// ParseErrorMode parses a string into an ErrorMode.
func ParseErrorMode(s string) (ErrorMode, bool) {
	return eval.ParseErrorMode(s)
}
