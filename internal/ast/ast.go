// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package ast defines the DATA step syntax tree.
//
// The node set is closed: Expr and Stmt carry unexported marker methods, so
// only this package can add variants and every consumer handles them with an
// exhaustive type switch.
package ast

import (
	"github.com/iamafool/opensas-sub001/internal/token"
	"github.com/iamafool/opensas-sub001/internal/value"
)

// Node is implemented by every syntax tree node.
type Node interface {
	Position() token.Pos
}

// Expr is an expression node.
type Expr interface {
	Node
	String() string
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Literal is a constant number, text or missing value.
type Literal struct {
	Value value.Value
	Pos   token.Pos
}

// VarRef reads a variable from the current row.
type VarRef struct {
	Name string
	Pos  token.Pos
}

// ArrayElementRef reads the variable aliased by Array[Index].
type ArrayElementRef struct {
	Array string
	Index Expr
	Pos   token.Pos
}

// UnaryOp is '-' or 'not' applied to X.
type UnaryOp struct {
	Op  token.Token
	X   Expr
	Pos token.Pos
}

// BinaryOp applies Op to Left and Right.
type BinaryOp struct {
	Op          token.Token
	Left, Right Expr
	Pos         token.Pos
}

// Call invokes a builtin function.
type Call struct {
	Name string
	Args []Expr
	Pos  token.Pos
}

func (*Literal) exprNode()         {}
func (*VarRef) exprNode()          {}
func (*ArrayElementRef) exprNode() {}
func (*UnaryOp) exprNode()         {}
func (*BinaryOp) exprNode()        {}
func (*Call) exprNode()            {}

func (n *Literal) Position() token.Pos         { return n.Pos }
func (n *VarRef) Position() token.Pos          { return n.Pos }
func (n *ArrayElementRef) Position() token.Pos { return n.Pos }
func (n *UnaryOp) Position() token.Pos         { return n.Pos }
func (n *BinaryOp) Position() token.Pos        { return n.Pos }
func (n *Call) Position() token.Pos            { return n.Pos }

// Assign stores Value in Name, or in Name[Index] when Index is set.
type Assign struct {
	Name  string
	Index Expr // nil for a plain variable
	Value Expr
	Pos   token.Pos
}

// If runs Then when Cond is true, otherwise Else (which may be nil).
// An "else if" is an If in the Else slot.
type If struct {
	Cond Expr
	Then Stmt
	Else Stmt
	Pos  token.Pos
}

// DoLoop runs Body once per integer step from Start to Stop inclusive.
type DoLoop struct {
	Var         string
	Start, Stop Expr
	Body        []Stmt
	Pos         token.Pos
}

// Block is a do; ... end; group.
type Block struct {
	Body []Stmt
	Pos  token.Pos
}

// ArrayDecl binds Name to an ordered list of variables.
type ArrayDecl struct {
	Name string
	Vars []string
	Pos  token.Pos
}

// RetainItem is one retained variable and its optional initial value.
type RetainItem struct {
	Name       string
	Initial    value.Value
	HasInitial bool
}

// RetainDecl marks variables whose values carry over between rows.
type RetainDecl struct {
	Items []RetainItem
	Pos   token.Pos
}

// Subset ends the row without output when Cond is false (if expr;).
type Subset struct {
	Cond Expr
	Pos  token.Pos
}

// Output writes the current row to the output dataset.
type Output struct {
	Pos token.Pos
}

// Delete ends the row without output.
type Delete struct {
	Pos token.Pos
}

// PutItem is a quoted text, a variable value, or a name=value pair.
type PutItem struct {
	Text  string
	Var   string
	Named bool
}

// Put writes its items to the diagnostics sink.
type Put struct {
	Items []PutItem
	Pos   token.Pos
}

// Sum is the accumulator statement "name + expr;". Name is implicitly
// retained and starts at zero.
type Sum struct {
	Name  string
	Value Expr
	Pos   token.Pos
}

func (*Assign) stmtNode()     {}
func (*If) stmtNode()         {}
func (*DoLoop) stmtNode()     {}
func (*Block) stmtNode()      {}
func (*ArrayDecl) stmtNode()  {}
func (*RetainDecl) stmtNode() {}
func (*Subset) stmtNode()     {}
func (*Output) stmtNode()     {}
func (*Delete) stmtNode()     {}
func (*Put) stmtNode()        {}
func (*Sum) stmtNode()        {}

func (n *Assign) Position() token.Pos     { return n.Pos }
func (n *If) Position() token.Pos         { return n.Pos }
func (n *DoLoop) Position() token.Pos     { return n.Pos }
func (n *Block) Position() token.Pos      { return n.Pos }
func (n *ArrayDecl) Position() token.Pos  { return n.Pos }
func (n *RetainDecl) Position() token.Pos { return n.Pos }
func (n *Subset) Position() token.Pos     { return n.Pos }
func (n *Output) Position() token.Pos     { return n.Pos }
func (n *Delete) Position() token.Pos     { return n.Pos }
func (n *Put) Position() token.Pos        { return n.Pos }
func (n *Sum) Position() token.Pos        { return n.Pos }

// NullOutput is the output name that discards every row.
const NullOutput = "_null_"

// Program is one compiled DATA step.
type Program struct {
	Output string // dataset written; NullOutput or "" for none
	Input  string // dataset named by the set statement, "" if none
	Stmts  []Stmt
	Pos    token.Pos
}
