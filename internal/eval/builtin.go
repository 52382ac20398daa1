// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/iamafool/opensas-sub001/internal/value"
)

// BuiltinFunc is the signature for builtin functions. Arguments are already
// evaluated and the arity has been checked.
type BuiltinFunc func(args []value.Value) (value.Value, error)

// Builtin is one entry of the function table. MaxArgs < 0 means variadic.
type Builtin struct {
	Name    string
	MinArgs int
	MaxArgs int
	Fn      BuiltinFunc
}

// builtins is keyed by lower-case name.
var builtins = map[string]Builtin{}

func init() {
	for _, b := range []Builtin{
		{"substr", 2, 3, builtinSubstr},
		{"trim", 1, 1, textFunc(func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) })},
		{"left", 1, 1, textFunc(func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) })},
		{"strip", 1, 1, textFunc(strings.TrimSpace)},
		{"upcase", 1, 1, textFunc(strings.ToUpper)},
		{"lowcase", 1, 1, textFunc(strings.ToLower)},
		{"length", 1, 1, builtinLength},
		{"index", 2, 2, builtinIndex},
		{"cats", 1, -1, builtinCats},

		{"abs", 1, 1, numFunc(math.Abs)},
		{"ceil", 1, 1, numFunc(math.Ceil)},
		{"floor", 1, 1, numFunc(math.Floor)},
		{"int", 1, 1, numFunc(math.Trunc)},
		{"exp", 1, 1, numFunc(math.Exp)},
		{"round", 1, 2, builtinRound},
		{"log10", 1, 1, domainFunc(math.Log10, func(x float64) bool { return x > 0 }, "argument must be positive")},
		{"log", 1, 1, domainFunc(math.Log, func(x float64) bool { return x > 0 }, "argument must be positive")},
		{"sqrt", 1, 1, domainFunc(math.Sqrt, func(x float64) bool { return x >= 0 }, "argument must not be negative")},
		{"mod", 2, 2, builtinMod},

		{"sum", 1, -1, aggregate(func(xs []float64) float64 {
			t := 0.0
			for _, x := range xs {
				t += x
			}
			return t
		})},
		{"min", 1, -1, aggregate(func(xs []float64) float64 { return xs[0] })},
		{"max", 1, -1, aggregate(func(xs []float64) float64 { return xs[len(xs)-1] })},
		{"mean", 1, -1, aggregate(func(xs []float64) float64 {
			t := 0.0
			for _, x := range xs {
				t += x
			}
			return t / float64(len(xs))
		})},
		{"n", 1, -1, builtinN},
		{"nmiss", 1, -1, builtinNmiss},
		{"missing", 1, 1, builtinMissing},
	} {
		builtins[b.Name] = b
	}
}

// LookupBuiltin finds a builtin by name, ignoring case.
func LookupBuiltin(name string) (Builtin, bool) {
	b, ok := builtins[strings.ToLower(name)]
	return b, ok
}

// BuiltinNames returns the names of all builtins, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// checkArity returns a message when n arguments do not fit b.
func (b Builtin) checkArity(n int) string {
	switch {
	case b.MaxArgs < 0 && n < b.MinArgs:
		return fmt.Sprintf("expects at least %d arguments, got %d", b.MinArgs, n)
	case b.MaxArgs >= 0 && (n < b.MinArgs || n > b.MaxArgs):
		if b.MinArgs == b.MaxArgs {
			return fmt.Sprintf("expects %d arguments, got %d", b.MinArgs, n)
		}
		return fmt.Sprintf("expects %d to %d arguments, got %d", b.MinArgs, b.MaxArgs, n)
	}
	return ""
}

func textArg(args []value.Value, i int) (string, error) {
	v := args[i]
	switch v.Kind() {
	case value.KindMissing:
		return "", nil
	case value.KindText:
		s, _ := v.AsText()
		return s, nil
	}
	return "", fmt.Errorf("argument %d must be text", i+1)
}

// numArg returns the number at args[i]. ok is false for Missing.
func numArg(args []value.Value, i int) (f float64, ok bool, err error) {
	v := args[i]
	switch v.Kind() {
	case value.KindMissing:
		return 0, false, nil
	case value.KindNumber:
		f, _ := v.AsNumber()
		return f, true, nil
	}
	return 0, false, fmt.Errorf("argument %d must be numeric", i+1)
}

func textFunc(fn func(string) string) BuiltinFunc {
	return func(args []value.Value) (value.Value, error) {
		if args[0].IsMissing() {
			return value.Missing(), nil
		}
		s, err := textArg(args, 0)
		if err != nil {
			return value.Missing(), err
		}
		return value.Str(fn(s)), nil
	}
}

func numFunc(fn func(float64) float64) BuiltinFunc {
	return func(args []value.Value) (value.Value, error) {
		x, ok, err := numArg(args, 0)
		if err != nil || !ok {
			return value.Missing(), err
		}
		return value.Num(fn(x)), nil
	}
}

func domainFunc(fn func(float64) float64, valid func(float64) bool, msg string) BuiltinFunc {
	return func(args []value.Value) (value.Value, error) {
		x, ok, err := numArg(args, 0)
		if err != nil || !ok {
			return value.Missing(), err
		}
		if !valid(x) {
			return value.Missing(), errors.New(msg)
		}
		return value.Num(fn(x)), nil
	}
}

// builtinSubstr extracts length runes starting at the 1-based start. Without
// a length it runs to the end of the text.
func builtinSubstr(args []value.Value) (value.Value, error) {
	s, err := textArg(args, 0)
	if err != nil {
		return value.Missing(), err
	}
	start, ok, err := numArg(args, 1)
	if err != nil {
		return value.Missing(), err
	}
	if !ok || start != math.Trunc(start) || start < 1 {
		return value.Missing(), errors.New("start must be a positive integer")
	}
	runes := []rune(s)
	if start > float64(len(runes)) {
		return value.Str(""), nil
	}
	from := int(start) - 1
	to := len(runes)
	if len(args) == 3 {
		n, ok, err := numArg(args, 2)
		if err != nil {
			return value.Missing(), err
		}
		if !ok || n != math.Trunc(n) || n < 0 {
			return value.Missing(), errors.New("length must be a non-negative integer")
		}
		// Compared as floats so huge lengths cannot overflow int.
		if float64(from)+n < float64(to) {
			to = from + int(n)
		}
	}
	return value.Str(string(runes[from:to])), nil
}

// builtinLength counts runes, ignoring trailing blanks.
func builtinLength(args []value.Value) (value.Value, error) {
	s, err := textArg(args, 0)
	if err != nil {
		return value.Missing(), err
	}
	return value.Num(float64(utf8.RuneCountInString(strings.TrimRightFunc(s, unicode.IsSpace)))), nil
}

// builtinIndex returns the 1-based rune position of sub in s, or 0.
func builtinIndex(args []value.Value) (value.Value, error) {
	s, err := textArg(args, 0)
	if err != nil {
		return value.Missing(), err
	}
	sub, err := textArg(args, 1)
	if err != nil {
		return value.Missing(), err
	}
	i := strings.Index(s, sub)
	if i < 0 || sub == "" {
		return value.Num(0), nil
	}
	return value.Num(float64(utf8.RuneCountInString(s[:i]) + 1)), nil
}

// builtinCats strips and joins its arguments. Numbers are formatted and
// Missing values are skipped.
func builtinCats(args []value.Value) (value.Value, error) {
	var b strings.Builder
	for _, a := range args {
		if a.IsMissing() {
			continue
		}
		b.WriteString(strings.TrimSpace(a.String()))
	}
	return value.Str(b.String()), nil
}

// builtinRound rounds half away from zero to the given number of decimal
// places (default 0).
func builtinRound(args []value.Value) (value.Value, error) {
	x, ok, err := numArg(args, 0)
	if err != nil || !ok {
		return value.Missing(), err
	}
	places := 0.0
	if len(args) == 2 {
		p, ok, err := numArg(args, 1)
		if err != nil {
			return value.Missing(), err
		}
		if !ok || p != math.Trunc(p) || p < 0 || p > 15 {
			return value.Missing(), errors.New("decimals must be an integer between 0 and 15")
		}
		places = p
	}
	scale := math.Pow(10, places)
	if math.IsInf(x*scale, 0) {
		return value.Num(x), nil
	}
	return value.Num(math.Round(x*scale) / scale), nil
}

func builtinMod(args []value.Value) (value.Value, error) {
	x, xok, err := numArg(args, 0)
	if err != nil {
		return value.Missing(), err
	}
	y, yok, err := numArg(args, 1)
	if err != nil {
		return value.Missing(), err
	}
	if !xok || !yok {
		return value.Missing(), nil
	}
	if y == 0 {
		return value.Missing(), errors.New("divisor must not be zero")
	}
	return value.Num(math.Mod(x, y)), nil
}

// numbers returns the non-Missing arguments, sorted ascending.
func numbers(args []value.Value) ([]float64, error) {
	var xs []float64
	for i := range args {
		x, ok, err := numArg(args, i)
		if err != nil {
			return nil, err
		}
		if ok {
			xs = append(xs, x)
		}
	}
	sort.Float64s(xs)
	return xs, nil
}

// aggregate builds a function over the non-Missing arguments. The result
// is Missing when every argument is Missing.
func aggregate(fn func([]float64) float64) BuiltinFunc {
	return func(args []value.Value) (value.Value, error) {
		xs, err := numbers(args)
		if err != nil || len(xs) == 0 {
			return value.Missing(), err
		}
		return value.Num(fn(xs)), nil
	}
}

func builtinN(args []value.Value) (value.Value, error) {
	n := 0
	for _, a := range args {
		if !a.IsMissing() {
			n++
		}
	}
	return value.Num(float64(n)), nil
}

func builtinNmiss(args []value.Value) (value.Value, error) {
	n := 0
	for _, a := range args {
		if a.IsMissing() {
			n++
		}
	}
	return value.Num(float64(n)), nil
}

// builtinMissing is true for Missing and for blank text.
func builtinMissing(args []value.Value) (value.Value, error) {
	a := args[0]
	if s, ok := a.AsText(); ok {
		return value.Bool(strings.TrimSpace(s) == ""), nil
	}
	return value.Bool(a.IsMissing()), nil
}
