// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/iamafool/opensas-sub001/internal/ast"
	"github.com/iamafool/opensas-sub001/internal/diag"
	"github.com/iamafool/opensas-sub001/internal/token"
	"github.com/iamafool/opensas-sub001/internal/value"
)

// exec runs one statement against the current row.
func (r *run) exec(ctx context.Context, s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.Assign:
		v, err := r.eval(n.Value)
		if err != nil {
			return err
		}
		name := n.Name
		if n.Index != nil {
			name, err = r.element(n.Name, n.Index, n.Pos)
			if err != nil {
				return err
			}
		}
		return r.assign(name, v, n.Pos)

	case *ast.If:
		cond, err := r.eval(n.Cond)
		if err != nil {
			return err
		}
		if cond.Truthy() {
			return r.execOpt(ctx, n.Then)
		}
		return r.execOpt(ctx, n.Else)

	case *ast.DoLoop:
		return r.loop(ctx, n)

	case *ast.Block:
		return r.execAll(ctx, n.Body)

	case *ast.ArrayDecl, *ast.RetainDecl:
		// Bound when the run starts.
		return nil

	case *ast.Subset:
		cond, err := r.eval(n.Cond)
		if err != nil {
			return err
		}
		if !cond.Truthy() {
			return errDelete
		}
		return nil

	case *ast.Output:
		r.out.Append(r.cur)
		return nil

	case *ast.Delete:
		return errDelete

	case *ast.Put:
		r.put(n)
		return nil

	case *ast.Sum:
		v, err := r.eval(n.Value)
		if err != nil {
			return err
		}
		if v.Kind() == value.KindText {
			return &TypeError{Pos: n.Pos, Msg: fmt.Sprintf("sum statement on %s needs a numeric value", n.Name)}
		}
		cur, _ := r.cur.Get(n.Name)
		total, ok := cur.AsNumber()
		if !ok && !cur.IsMissing() {
			return &TypeError{Pos: n.Pos, Msg: fmt.Sprintf("sum statement on text variable %s", n.Name)}
		}
		if x, ok := v.AsNumber(); ok {
			total += x
		}
		return r.assign(n.Name, value.Num(total), n.Pos)
	}
	panic(fmt.Sprintf("eval: unhandled statement %T", s))
}

func (r *run) execOpt(ctx context.Context, s ast.Stmt) error {
	if s == nil {
		return nil
	}
	return r.exec(ctx, s)
}

func (r *run) execAll(ctx context.Context, stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := r.exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// loop runs a DO loop. The bounds are evaluated once and fix the number of
// passes; the loop variable is set to start+k before pass k, so assignments
// to it in the body do not change the count. It ends at stop+1.
func (r *run) loop(ctx context.Context, n *ast.DoLoop) error {
	start, err := r.bound(n.Start, "start")
	if err != nil {
		return err
	}
	stop, err := r.bound(n.Stop, "stop")
	if err != nil {
		return err
	}
	if start.IsMissing() || stop.IsMissing() {
		return &TypeError{Pos: n.Pos, Msg: "loop bounds must not be missing"}
	}
	lo, _ := start.AsNumber()
	hi, _ := stop.AsNumber()
	if lo+1 == lo {
		return &TypeError{Pos: n.Pos, Msg: fmt.Sprintf("loop start %s is too large to step by 1", start)}
	}

	var passes int64
	if hi >= lo {
		c := math.Floor(hi-lo) + 1
		if c > math.MaxInt64 {
			return &TypeError{Pos: n.Pos, Msg: "loop has too many passes"}
		}
		passes = int64(c)
	}
	for k := int64(0); k < passes; k++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.assign(n.Var, value.Num(lo+float64(k)), n.Pos); err != nil {
			return err
		}
		if err := r.execAll(ctx, n.Body); err != nil {
			return err
		}
	}
	return r.assign(n.Var, value.Num(lo+float64(passes)), n.Pos)
}

func (r *run) bound(e ast.Expr, which string) (value.Value, error) {
	v, err := r.eval(e)
	if err != nil {
		return v, err
	}
	if v.Kind() == value.KindText {
		return v, &TypeError{Pos: e.Position(), Msg: fmt.Sprintf("loop %s must be numeric", which)}
	}
	return v, nil
}

// assign writes v to name, enforcing that a variable keeps one kind.
func (r *run) assign(name string, v value.Value, pos token.Pos) error {
	if !v.IsMissing() {
		if k, ok := r.kinds[name]; ok && k != v.Kind() {
			return &TypeError{Pos: pos, Msg: fmt.Sprintf("cannot assign %s to %s variable %s", v.Kind(), k, name)}
		}
		r.kinds[name] = v.Kind()
	}
	r.cur.Set(name, v)
	return nil
}

// element resolves array[index] to the aliased variable name.
func (r *run) element(array string, index ast.Expr, pos token.Pos) (string, error) {
	b, ok := r.arrays[array]
	if !ok {
		return "", &NameError{Pos: pos, Name: array, Msg: "undeclared array"}
	}
	iv, err := r.eval(index)
	if err != nil {
		return "", err
	}
	f, ok := iv.AsNumber()
	if !ok || f != math.Trunc(f) {
		return "", &IndexError{Pos: pos, Array: array, Index: iv.String(), Size: b.Len()}
	}
	name, ok := b.Var(int(f))
	if !ok {
		return "", &IndexError{Pos: pos, Array: array, Index: iv.String(), Size: b.Len()}
	}
	return name, nil
}

// put emits its items as one info diagnostic.
func (r *run) put(n *ast.Put) {
	parts := make([]string, 0, len(n.Items))
	for _, it := range n.Items {
		switch {
		case it.Var == "":
			parts = append(parts, it.Text)
		case it.Named:
			parts = append(parts, it.Var+"="+r.read(it.Var).String())
		default:
			parts = append(parts, r.read(it.Var).String())
		}
	}
	r.emit(diag.Info, strings.Join(parts, " "), map[string]any{"pos": n.Pos.String(), "source": "put"})
}

// read returns a variable's value. An unknown variable reads as Missing;
// it was reported when the run started.
func (r *run) read(name string) value.Value {
	if v, ok := r.cur.Get(name); ok {
		return v
	}
	return value.Missing()
}

// eval computes an expression against the current row.
func (r *run) eval(e ast.Expr) (value.Value, error) {
	switch n := e.(type) {
	case *ast.Literal:
		return n.Value, nil

	case *ast.VarRef:
		return r.read(n.Name), nil

	case *ast.ArrayElementRef:
		name, err := r.element(n.Array, n.Index, n.Pos)
		if err != nil {
			return value.Missing(), err
		}
		return r.read(name), nil

	case *ast.UnaryOp:
		x, err := r.eval(n.X)
		if err != nil {
			return value.Missing(), err
		}
		if n.Op == token.NOT {
			return value.Bool(!x.Truthy()), nil
		}
		switch x.Kind() {
		case value.KindMissing:
			return x, nil
		case value.KindText:
			return value.Missing(), &TypeError{Pos: n.Pos, Msg: "cannot negate text"}
		}
		f, _ := x.AsNumber()
		return value.Num(-f), nil

	case *ast.BinaryOp:
		return r.binary(n)

	case *ast.Call:
		return r.call(n)
	}
	panic(fmt.Sprintf("eval: unhandled expression %T", e))
}

func (r *run) binary(n *ast.BinaryOp) (value.Value, error) {
	l, err := r.eval(n.Left)
	if err != nil {
		return value.Missing(), err
	}

	switch n.Op {
	case token.AND:
		if !l.Truthy() {
			return value.Bool(false), nil
		}
		rv, err := r.eval(n.Right)
		if err != nil {
			return value.Missing(), err
		}
		return value.Bool(rv.Truthy()), nil
	case token.OR:
		if l.Truthy() {
			return value.Bool(true), nil
		}
		rv, err := r.eval(n.Right)
		if err != nil {
			return value.Missing(), err
		}
		return value.Bool(rv.Truthy()), nil
	}

	rv, err := r.eval(n.Right)
	if err != nil {
		return value.Missing(), err
	}

	switch n.Op {
	case token.EQ, token.NE, token.LT, token.LE, token.GT, token.GE:
		c, ok := value.Compare(l, rv)
		if !ok {
			return value.Missing(), &TypeError{Pos: n.Pos, Msg: fmt.Sprintf("cannot compare %s with %s", l.Kind(), rv.Kind())}
		}
		switch n.Op {
		case token.EQ:
			return value.Bool(c == 0), nil
		case token.NE:
			return value.Bool(c != 0), nil
		case token.LT:
			return value.Bool(c < 0), nil
		case token.LE:
			return value.Bool(c <= 0), nil
		case token.GT:
			return value.Bool(c > 0), nil
		}
		return value.Bool(c >= 0), nil

	case token.CONCAT:
		v, ok := value.Concat(l, rv)
		if !ok {
			return value.Missing(), &TypeError{Pos: n.Pos, Msg: "|| needs text operands"}
		}
		return v, nil

	case token.PLUS, token.MINUS, token.STAR, token.SLASH:
		return r.arith(n, l, rv)
	}
	return value.Missing(), &TypeError{Pos: n.Pos, Msg: "unknown operator " + n.Op.String()}
}

// arith applies + - * /. Two texts joined by + concatenate; any other text
// operand is an error. A Missing operand makes the result Missing.
func (r *run) arith(n *ast.BinaryOp, l, rv value.Value) (value.Value, error) {
	if n.Op == token.PLUS && l.Kind() == value.KindText && rv.Kind() == value.KindText {
		v, _ := value.Concat(l, rv)
		return v, nil
	}
	if l.Kind() == value.KindText || rv.Kind() == value.KindText {
		return value.Missing(), &TypeError{
			Pos: n.Pos,
			Msg: fmt.Sprintf("operator %s needs numeric operands, got %s and %s", n.Op, l.Kind(), rv.Kind()),
		}
	}
	if l.IsMissing() || rv.IsMissing() {
		return value.Missing(), nil
	}
	a, _ := l.AsNumber()
	b, _ := rv.AsNumber()
	switch n.Op {
	case token.PLUS:
		return value.Num(a + b), nil
	case token.MINUS:
		return value.Num(a - b), nil
	case token.STAR:
		return value.Num(a * b), nil
	}
	if b == 0 {
		r.emit(diag.Warn, "division by zero", map[string]any{"pos": n.Pos.String()})
		return value.Missing(), nil
	}
	return value.Num(a / b), nil
}

func (r *run) call(n *ast.Call) (value.Value, error) {
	b, ok := LookupBuiltin(n.Name)
	if !ok {
		return value.Missing(), &CallError{Pos: n.Pos, Name: n.Name, Msg: "unknown function"}
	}
	if msg := b.checkArity(len(n.Args)); msg != "" {
		return value.Missing(), &CallError{Pos: n.Pos, Name: n.Name, Msg: msg}
	}
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := r.eval(a)
		if err != nil {
			return value.Missing(), err
		}
		args[i] = v
	}
	v, err := b.Fn(args)
	if err != nil {
		return value.Missing(), &CallError{Pos: n.Pos, Name: n.Name, Msg: err.Error()}
	}
	return v, nil
}
