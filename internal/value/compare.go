// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package value

import "strings"

// Compare orders a and b, returning -1, 0 or 1. Missing is lower than any
// Number and equal to Missing; against Text, Missing behaves as "".
// ok is false when a Number is compared with a Text.
func Compare(a, b Value) (c int, ok bool) {
	switch {
	case a.kind == KindMissing && b.kind == KindMissing:
		return 0, true
	case a.kind == KindNumber && b.kind == KindNumber:
		return cmpFloat(a.num, b.num), true
	case a.kind == KindText && b.kind == KindText:
		return strings.Compare(a.text, b.text), true
	case a.kind == KindMissing && b.kind == KindNumber:
		return -1, true
	case a.kind == KindNumber && b.kind == KindMissing:
		return 1, true
	case a.kind == KindMissing && b.kind == KindText:
		return strings.Compare("", b.text), true
	case a.kind == KindText && b.kind == KindMissing:
		return strings.Compare(a.text, ""), true
	}
	return 0, false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Concat joins two texts. Missing counts as the empty text; a Number
// operand is not allowed and ok is false.
func Concat(a, b Value) (v Value, ok bool) {
	l, lok := textOrEmpty(a)
	r, rok := textOrEmpty(b)
	if !lok || !rok {
		return Missing(), false
	}
	return Str(l + r), true
}

func textOrEmpty(v Value) (string, bool) {
	switch v.kind {
	case KindText:
		return v.text, true
	case KindMissing:
		return "", true
	}
	return "", false
}
