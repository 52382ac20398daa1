// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"errors"
	"fmt"

	"github.com/iamafool/opensas-sub001/internal/dataset"
	"github.com/iamafool/opensas-sub001/internal/token"
)

// errDelete ends the current row without output. It never leaves Run.
var errDelete = errors.New("delete")

// NameError reports a reference to an undeclared array.
type NameError struct {
	Pos  token.Pos
	Name string
	Msg  string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Name, e.Msg)
}

// TypeError reports an operator or assignment applied to the wrong kind.
type TypeError struct {
	Pos token.Pos
	Msg string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: type error: %s", e.Pos, e.Msg)
}

// CallError reports an unknown function, a wrong argument count or an
// argument outside the function's domain.
type CallError struct {
	Pos  token.Pos
	Name string
	Msg  string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Name, e.Msg)
}

// IndexError reports an array subscript outside 1..N.
type IndexError struct {
	Pos   token.Pos
	Array string
	Index string
	Size  int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: array subscript %s[%s] out of range 1..%d", e.Pos, e.Array, e.Index, e.Size)
}

// DatasetError reports a dataset that could not be read or written.
type DatasetError struct {
	Name string
	Err  error
}

func (e *DatasetError) Error() string {
	return fmt.Sprintf("dataset %s: %v", e.Name, e.Err)
}

func (e *DatasetError) Unwrap() error { return e.Err }

// ErrNotFound is wrapped by DatasetError when the input dataset does not exist.
var ErrNotFound = dataset.ErrNotFound

// runtimeError reports whether err is a row-level failure that the error
// mode decides about, as opposed to cancellation or a catalog failure.
func runtimeError(err error) bool {
	var (
		ne *NameError
		te *TypeError
		ce *CallError
		ie *IndexError
	)
	return errors.As(err, &ne) || errors.As(err, &te) || errors.As(err, &ce) || errors.As(err, &ie)
}
