// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package ast

import (
	"strings"

	"github.com/iamafool/opensas-sub001/internal/value"
)

var zero = value.Num(0)

// Walk calls fn for every statement in stmts, depth first, including the
// branches of If and the bodies of DoLoop and Block. Returning false from
// fn skips that statement's children.
func Walk(stmts []Stmt, fn func(Stmt) bool) {
	for _, s := range stmts {
		walkStmt(s, fn)
	}
}

func walkStmt(s Stmt, fn func(Stmt) bool) {
	if s == nil || !fn(s) {
		return
	}
	switch n := s.(type) {
	case *If:
		walkStmt(n.Then, fn)
		walkStmt(n.Else, fn)
	case *DoLoop:
		Walk(n.Body, fn)
	case *Block:
		Walk(n.Body, fn)
	case *Assign, *ArrayDecl, *RetainDecl, *Subset, *Output, *Delete, *Put, *Sum:
	}
}

// Variables returns the names the program assigns or declares, in order of
// first appearance. Array element assignments are covered by the array's
// declaration.
func (p *Program) Variables() []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	Walk(p.Stmts, func(s Stmt) bool {
		switch n := s.(type) {
		case *Assign:
			if n.Index == nil {
				add(n.Name)
			}
		case *DoLoop:
			add(n.Var)
		case *ArrayDecl:
			for _, v := range n.Vars {
				add(v)
			}
		case *RetainDecl:
			for _, it := range n.Items {
				add(it.Name)
			}
		case *Sum:
			add(n.Name)
		}
		return true
	})
	return names
}

// References returns every variable name read by an expression in the
// program, in order of first appearance.
func (p *Program) References() []string {
	var names []string
	seen := make(map[string]bool)
	var visit func(e Expr)
	visit = func(e Expr) {
		switch n := e.(type) {
		case *VarRef:
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		case *ArrayElementRef:
			visit(n.Index)
		case *UnaryOp:
			visit(n.X)
		case *BinaryOp:
			visit(n.Left)
			visit(n.Right)
		case *Call:
			for _, a := range n.Args {
				visit(a)
			}
		case *Literal:
		}
	}
	Walk(p.Stmts, func(s Stmt) bool {
		switch n := s.(type) {
		case *Assign:
			if n.Index != nil {
				visit(n.Index)
			}
			visit(n.Value)
		case *If:
			visit(n.Cond)
		case *DoLoop:
			visit(n.Start)
			visit(n.Stop)
		case *Subset:
			visit(n.Cond)
		case *Sum:
			visit(n.Value)
		case *Put:
			for _, it := range n.Items {
				if it.Var != "" && !seen[it.Var] {
					seen[it.Var] = true
					names = append(names, it.Var)
				}
			}
		}
		return true
	})
	return names
}

// HasOutput reports whether the program contains an output statement.
func (p *Program) HasOutput() bool {
	found := false
	Walk(p.Stmts, func(s Stmt) bool {
		if _, ok := s.(*Output); ok {
			found = true
		}
		return !found
	})
	return found
}

// Arrays returns every array declaration in the program.
func (p *Program) Arrays() []*ArrayDecl {
	var decls []*ArrayDecl
	Walk(p.Stmts, func(s Stmt) bool {
		if d, ok := s.(*ArrayDecl); ok {
			decls = append(decls, d)
		}
		return true
	})
	return decls
}

// Retained returns the retain items of the program in order, followed by
// the targets of sum statements with an initial value of zero.
func (p *Program) Retained() []RetainItem {
	var items, sums []RetainItem
	Walk(p.Stmts, func(s Stmt) bool {
		switch n := s.(type) {
		case *RetainDecl:
			items = append(items, n.Items...)
		case *Sum:
			sums = append(sums, RetainItem{Name: n.Name, Initial: zero, HasInitial: true})
		}
		return true
	})
	return append(items, sums...)
}

// IsNull reports whether the program discards its output.
func (p *Program) IsNull() bool {
	return strings.EqualFold(p.Output, NullOutput)
}
