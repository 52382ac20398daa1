// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package ast

import (
	"strconv"
	"strings"

	"github.com/iamafool/opensas-sub001/internal/token"
	"github.com/iamafool/opensas-sub001/internal/value"
)

// String renders the literal as source text.
func (n *Literal) String() string {
	switch n.Value.Kind() {
	case value.KindText:
		s, _ := n.Value.AsText()
		return strconv.Quote(s)
	case value.KindMissing:
		return "."
	}
	return n.Value.String()
}

func (n *VarRef) String() string { return n.Name }

func (n *ArrayElementRef) String() string {
	return n.Array + "[" + n.Index.String() + "]"
}

func (n *UnaryOp) String() string {
	if n.Op == token.NOT {
		return "not " + n.X.String()
	}
	return n.Op.String() + n.X.String()
}

// String renders the operation fully parenthesised so precedence is visible.
func (n *BinaryOp) String() string {
	return "(" + n.Left.String() + " " + n.Op.String() + " " + n.Right.String() + ")"
}

func (n *Call) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return n.Name + "(" + strings.Join(args, ", ") + ")"
}
