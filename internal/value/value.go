// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package value defines the scalar cell type shared by the interpreter and
// every dataset: a number, a text, or missing.
package value

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies which case of Value is populated.
type Kind int

const (
	KindMissing Kind = iota
	KindNumber
	KindText
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	}
	return "unknown"
}

// Value is a single dataset cell. The zero value is Missing.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Missing returns the missing value.
func Missing() Value { return Value{} }

// Num returns a Number value. NaN and infinities are stored as Missing.
func Num(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// Str returns a Text value.
func Str(s string) Value { return Value{kind: KindText, text: s} }

// Bool returns Number 1 for true and Number 0 for false.
func Bool(b bool) Value {
	if b {
		return Num(1)
	}
	return Num(0)
}

// Kind returns the case held by v.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether v is Missing.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// AsNumber returns the number held by v. ok is false for Text and Missing.
func (v Value) AsNumber() (f float64, ok bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// AsText returns the text held by v. ok is false for Number and Missing.
func (v Value) AsText() (s string, ok bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// Truthy reports whether v counts as true in a condition: a nonzero
// Number or a non-empty Text. Missing is false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNumber:
		return v.num != 0
	case KindText:
		return v.text != ""
	}
	return false
}

// String renders v for display. Missing renders as ".".
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindText:
		return v.text
	}
	return "."
}

// Equal reports whether a and b are the same kind holding the same data.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNumber:
		return a.num == b.num
	case KindText:
		return a.text == b.text
	}
	return true
}

// FormatNumber renders a float without a trailing ".0" for whole numbers.
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', 12, 64)
}

// Parse interprets raw text the way a loader does: "" and "." become
// Missing, anything that parses as a float becomes a Number, everything
// else is Text.
func Parse(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" || s == "." {
		return Missing()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Num(f)
	}
	return Str(raw)
}
