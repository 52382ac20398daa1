// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package parser turns DATA step source into ast.Program values.
//
// Statements are parsed by recursive descent. Expressions use precedence
// climbing over these levels, lowest first:
//
//	or
//	and
//	==  !=  =
//	>  <  >=  <=
//	+  -  ||
//	*  /
//	unary -  not
//
// An identifier directly followed by '(' is a function call; anything else
// named by an identifier is a variable reference.
package parser

import (
	"fmt"
	"strconv"

	"github.com/iamafool/opensas-sub001/internal/ast"
	"github.com/iamafool/opensas-sub001/internal/scanner"
	"github.com/iamafool/opensas-sub001/internal/token"
	"github.com/iamafool/opensas-sub001/internal/value"
)

// ParseError reports malformed grammar.
type ParseError struct {
	Pos      token.Pos
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: expected %s, found %s", e.Pos, e.Expected, e.Found)
}

// Parser holds the token stream of one submission.
type Parser struct {
	items []scanner.Item
	pos   int
	prog  *ast.Program // step being parsed, for the set marker
}

// Parse parses source holding a single DATA step. The data and run
// statements are optional.
func Parse(src string) (*ast.Program, error) {
	progs, err := ParseAll(src)
	if err != nil {
		return nil, err
	}
	switch len(progs) {
	case 0:
		return &ast.Program{Pos: token.Pos{Line: 1, Col: 1}}, nil
	case 1:
		return progs[0], nil
	}
	return nil, &ParseError{Pos: progs[1].Pos, Expected: "end of input", Found: `keyword "data"`}
}

// ParseAll parses a submission of zero or more DATA steps.
func ParseAll(src string) ([]*ast.Program, error) {
	items, err := scanner.All(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{items: items}
	var progs []*ast.Program
	for p.cur().Token != token.EOF {
		prog, err := p.parseStep()
		if err != nil {
			return nil, err
		}
		if prog != nil {
			progs = append(progs, prog)
		}
	}
	return progs, nil
}

func (p *Parser) cur() scanner.Item {
	return p.items[p.pos]
}

func (p *Parser) peek() scanner.Item {
	if p.pos+1 < len(p.items) {
		return p.items[p.pos+1]
	}
	return p.items[len(p.items)-1]
}

func (p *Parser) advance() scanner.Item {
	it := p.items[p.pos]
	if p.pos < len(p.items)-1 {
		p.pos++
	}
	return it
}

func (p *Parser) expect(t token.Token) (scanner.Item, error) {
	it := p.cur()
	if it.Token != t {
		return it, p.errorf(fmt.Sprintf("%q", t.String()))
	}
	return p.advance(), nil
}

func (p *Parser) expectIdent(what string) (scanner.Item, error) {
	it := p.cur()
	if it.Token != token.IDENT {
		return it, p.errorf(what)
	}
	return p.advance(), nil
}

func (p *Parser) errorf(expected string) error {
	it := p.cur()
	return &ParseError{Pos: it.Pos, Expected: expected, Found: it.String()}
}

// parseStep parses "data name; stmts run;". A step also ends at the next
// data statement or at end of input.
func (p *Parser) parseStep() (*ast.Program, error) {
	start := p.cur()
	prog := &ast.Program{Pos: start.Pos}
	p.prog = prog
	defer func() { p.prog = nil }()

	if start.Token == token.DATA && p.peek().Token != token.ASSIGN {
		p.advance()
		if p.cur().Token == token.IDENT {
			prog.Output = p.advance().Value
		}
		if _, err := p.expect(token.SEMICOLON); err != nil {
			return nil, err
		}
	}

	for {
		switch it := p.cur(); {
		case it.Token == token.EOF:
			return prog, nil
		case it.Token == token.RUN && p.peek().Token != token.ASSIGN:
			p.advance()
			if _, err := p.expect(token.SEMICOLON); err != nil {
				return nil, err
			}
			return prog, nil
		case it.Token == token.DATA && p.peek().Token != token.ASSIGN:
			if len(prog.Stmts) == 0 && prog.Output == "" && prog.Input == "" {
				// Nothing before this data statement belongs to a step.
				return nil, nil
			}
			return prog, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			prog.Stmts = append(prog.Stmts, stmt)
		}
	}
}

// parseStatement parses one statement. Empty statements and the set marker
// return a nil Stmt.
func (p *Parser) parseStatement() (ast.Stmt, error) {
	it := p.cur()

	// A soft keyword followed by '=' is an assignment to a variable of that name.
	if it.Token.IsSoftKeyword() && p.peek().Token == token.ASSIGN {
		return p.parseAssign()
	}

	switch it.Token {
	case token.SEMICOLON:
		p.advance()
		return nil, nil
	case token.IDENT:
		switch p.peek().Token {
		case token.ASSIGN, token.LBRACK:
			return p.parseAssign()
		case token.PLUS:
			return p.parseSum()
		}
		p.advance()
		return nil, p.errorf(`"=" after variable name`)
	case token.IF:
		return p.parseIf()
	case token.DO:
		return p.parseDo()
	case token.ARRAY:
		return p.parseArray()
	case token.RETAIN:
		return p.parseRetain()
	case token.OUTPUT:
		p.advance()
		if _, err := p.expect(token.SEMICOLON); err != nil {
			return nil, err
		}
		return &ast.Output{Pos: it.Pos}, nil
	case token.DELETE:
		p.advance()
		if _, err := p.expect(token.SEMICOLON); err != nil {
			return nil, err
		}
		return &ast.Delete{Pos: it.Pos}, nil
	case token.PUT:
		return p.parsePut()
	case token.SET:
		return nil, p.parseSet()
	}
	return nil, p.errorf("statement")
}

// parseAssign parses "name = expr;" and "name[index] = expr;".
func (p *Parser) parseAssign() (ast.Stmt, error) {
	name := p.advance()
	stmt := &ast.Assign{Name: name.Value, Pos: name.Pos}
	if p.cur().Token == token.LBRACK {
		p.advance()
		idx, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBRACK); err != nil {
			return nil, err
		}
		stmt.Index = idx
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	v, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	stmt.Value = v
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseSum parses the accumulator statement "name + expr;".
func (p *Parser) parseSum() (ast.Stmt, error) {
	name := p.advance()
	p.advance() // '+'
	v, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.Sum{Name: name.Value, Value: v, Pos: name.Pos}, nil
}

// parseIf parses "if expr then stmt [else stmt]" and the subsetting form
// "if expr;". An else-if chain falls out of the recursion: the else branch
// is itself parsed as a statement.
func (p *Parser) parseIf() (ast.Stmt, error) {
	kw := p.advance()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().Token == token.SEMICOLON {
		p.advance()
		return &ast.Subset{Cond: cond, Pos: kw.Pos}, nil
	}
	if _, err := p.expect(token.THEN); err != nil {
		return nil, err
	}
	then, err := p.parseBranch()
	if err != nil {
		return nil, err
	}
	stmt := &ast.If{Cond: cond, Then: then, Pos: kw.Pos}
	if p.cur().Token == token.ELSE {
		p.advance()
		els, err := p.parseBranch()
		if err != nil {
			return nil, err
		}
		stmt.Else = els
	}
	return stmt, nil
}

// parseBranch parses the single statement after then/else.
func (p *Parser) parseBranch() (ast.Stmt, error) {
	switch p.cur().Token {
	case token.EOF, token.END, token.RUN, token.ELSE:
		return nil, p.errorf("statement")
	}
	return p.parseStatement()
}

// parseDo parses "do; ... end;" and "do var = start to stop; ... end;".
func (p *Parser) parseDo() (ast.Stmt, error) {
	kw := p.advance()
	if p.cur().Token == token.SEMICOLON {
		p.advance()
		body, err := p.parseBody()
		if err != nil {
			return nil, err
		}
		return &ast.Block{Body: body, Pos: kw.Pos}, nil
	}

	v, err := p.expectIdent(`";" or loop variable`)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	start, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.TO); err != nil {
		return nil, err
	}
	stop, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	return &ast.DoLoop{Var: v.Value, Start: start, Stop: stop, Body: body, Pos: kw.Pos}, nil
}

// parseBody parses statements up to and including "end;".
func (p *Parser) parseBody() ([]ast.Stmt, error) {
	var body []ast.Stmt
	for {
		switch p.cur().Token {
		case token.END:
			p.advance()
			if _, err := p.expect(token.SEMICOLON); err != nil {
				return nil, err
			}
			return body, nil
		case token.EOF, token.RUN:
			return nil, p.errorf(`"end"`)
		case token.DATA:
			if p.peek().Token != token.ASSIGN {
				return nil, p.errorf(`"end"`)
			}
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			body = append(body, stmt)
		}
	}
}

// parseArray parses "array name[N] v1 ... vN;", "array name[*] v1 ...;" and
// "array name[N];", which declares name1 through nameN.
func (p *Parser) parseArray() (ast.Stmt, error) {
	kw := p.advance()
	name, err := p.expectIdent("array name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBRACK); err != nil {
		return nil, err
	}

	size := -1
	switch it := p.cur(); it.Token {
	case token.STAR:
		p.advance()
	case token.NUMBER:
		n, err := strconv.Atoi(it.Value)
		if err != nil || n < 1 {
			return nil, p.errorf("positive integer array size")
		}
		size = n
		p.advance()
	default:
		return nil, p.errorf(`array size or "*"`)
	}
	if _, err := p.expect(token.RBRACK); err != nil {
		return nil, err
	}

	var vars []string
	for p.cur().Token != token.SEMICOLON {
		v, err := p.expectIdent("variable name")
		if err != nil {
			return nil, err
		}
		vars = append(vars, v.Value)
	}
	end := p.advance()

	switch {
	case size < 0 && len(vars) == 0:
		return nil, &ParseError{Pos: end.Pos, Expected: "variable name", Found: end.String()}
	case size > 0 && len(vars) == 0:
		for i := 1; i <= size; i++ {
			vars = append(vars, name.Value+strconv.Itoa(i))
		}
	case size > 0 && len(vars) != size:
		return nil, &ParseError{
			Pos:      name.Pos,
			Expected: fmt.Sprintf("%d variable names", size),
			Found:    strconv.Itoa(len(vars)),
		}
	}
	return &ast.ArrayDecl{Name: name.Value, Vars: vars, Pos: kw.Pos}, nil
}

// parseRetain parses "retain a b init c init2 ...;". Each initial value
// applies to the names listed since the previous one.
func (p *Parser) parseRetain() (ast.Stmt, error) {
	kw := p.advance()
	stmt := &ast.RetainDecl{Pos: kw.Pos}
	pending := 0
	for p.cur().Token != token.SEMICOLON {
		if p.cur().Token == token.IDENT {
			stmt.Items = append(stmt.Items, ast.RetainItem{Name: p.advance().Value})
			pending++
			continue
		}
		if pending == 0 {
			return nil, p.errorf("variable name")
		}
		init, err := p.parseConstant()
		if err != nil {
			return nil, err
		}
		for i := len(stmt.Items) - pending; i < len(stmt.Items); i++ {
			stmt.Items[i].Initial = init
			stmt.Items[i].HasInitial = true
		}
		pending = 0
	}
	if len(stmt.Items) == 0 {
		return nil, p.errorf("variable name")
	}
	p.advance()
	return stmt, nil
}

// parseConstant parses a literal with an optional leading minus.
func (p *Parser) parseConstant() (value.Value, error) {
	neg := false
	if p.cur().Token == token.MINUS {
		neg = true
		p.advance()
	}
	it := p.cur()
	switch {
	case it.Token == token.NUMBER:
		p.advance()
		f, err := strconv.ParseFloat(it.Value, 64)
		if err != nil {
			return value.Missing(), &ParseError{Pos: it.Pos, Expected: "number", Found: it.String()}
		}
		if neg {
			f = -f
		}
		return value.Num(f), nil
	case it.Token == token.STRING && !neg:
		p.advance()
		return value.Str(it.Value), nil
	case it.Token == token.MISSING && !neg:
		p.advance()
		return value.Missing(), nil
	}
	return value.Missing(), p.errorf("constant")
}

// parsePut parses "put item ...;" where an item is a quoted text, a
// variable name, or "name=".
func (p *Parser) parsePut() (ast.Stmt, error) {
	kw := p.advance()
	stmt := &ast.Put{Pos: kw.Pos}
	for p.cur().Token != token.SEMICOLON {
		it := p.cur()
		switch it.Token {
		case token.STRING:
			p.advance()
			stmt.Items = append(stmt.Items, ast.PutItem{Text: it.Value})
		case token.IDENT:
			p.advance()
			item := ast.PutItem{Var: it.Value}
			if p.cur().Token == token.ASSIGN {
				p.advance()
				item.Named = true
			}
			stmt.Items = append(stmt.Items, item)
		default:
			return nil, p.errorf(`quoted text, variable name or ";"`)
		}
	}
	p.advance()
	return stmt, nil
}

// parseSet records the input dataset of the current step.
func (p *Parser) parseSet() error {
	kw := p.advance()
	name, err := p.expectIdent("dataset name")
	if err != nil {
		return err
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return err
	}
	if p.prog.Input != "" {
		return &ParseError{Pos: kw.Pos, Expected: "a single set statement", Found: `second keyword "set"`}
	}
	p.prog.Input = name.Value
	return nil
}

// binaryPrec returns the binding power of a binary operator, or 0 when t
// does not continue an expression.
func binaryPrec(t token.Token) int {
	switch t {
	case token.OR:
		return 1
	case token.AND:
		return 2
	case token.EQ, token.NE, token.ASSIGN:
		return 3
	case token.GT, token.LT, token.GE, token.LE:
		return 4
	case token.PLUS, token.MINUS, token.CONCAT:
		return 5
	case token.STAR, token.SLASH:
		return 6
	}
	return 0
}

func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseBinary(1)
}

// parseBinary parses operators binding at least as tightly as minPrec.
// All binary operators are left-associative.
func (p *Parser) parseBinary(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.cur()
		prec := binaryPrec(op.Token)
		if prec == 0 || prec < minPrec {
			return left, nil
		}
		p.advance()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		t := op.Token
		if t == token.ASSIGN {
			// '=' inside an expression compares.
			t = token.EQ
		}
		left = &ast.BinaryOp{Op: t, Left: left, Right: right, Pos: op.Pos}
	}
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	switch op := p.cur(); op.Token {
	case token.MINUS, token.NOT:
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Op: op.Token, X: x, Pos: op.Pos}, nil
	case token.PLUS:
		p.advance()
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	it := p.cur()
	switch {
	case it.Token == token.NUMBER:
		p.advance()
		f, err := strconv.ParseFloat(it.Value, 64)
		if err != nil {
			return nil, &ParseError{Pos: it.Pos, Expected: "number", Found: it.String()}
		}
		return &ast.Literal{Value: value.Num(f), Pos: it.Pos}, nil
	case it.Token == token.STRING:
		p.advance()
		return &ast.Literal{Value: value.Str(it.Value), Pos: it.Pos}, nil
	case it.Token == token.MISSING:
		p.advance()
		return &ast.Literal{Value: value.Missing(), Pos: it.Pos}, nil
	case it.Token == token.LPAREN:
		p.advance()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return x, nil
	case it.Token == token.IDENT || it.Token.IsSoftKeyword():
		p.advance()
		switch p.cur().Token {
		case token.LPAREN:
			return p.parseCall(it)
		case token.LBRACK:
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACK); err != nil {
				return nil, err
			}
			return &ast.ArrayElementRef{Array: it.Value, Index: idx, Pos: it.Pos}, nil
		}
		return &ast.VarRef{Name: it.Value, Pos: it.Pos}, nil
	}
	return nil, p.errorf("expression")
}

// parseCall parses the argument list after a function name.
func (p *Parser) parseCall(name scanner.Item) (ast.Expr, error) {
	p.advance() // '('
	call := &ast.Call{Name: name.Value, Pos: name.Pos}
	if p.cur().Token == token.RPAREN {
		p.advance()
		return call, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		switch p.cur().Token {
		case token.COMMA:
			p.advance()
		case token.RPAREN:
			p.advance()
			return call, nil
		default:
			return nil, p.errorf(`"," or ")"`)
		}
	}
}
