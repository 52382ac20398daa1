// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package token defines DATA step token types, keywords and source positions.
package token

import (
	"fmt"
	"strings"
)

// Token represents a DATA step token type.
type Token int

const (
	EOF Token = iota
	IDENT
	NUMBER
	STRING
	MISSING // a lone '.'

	// Operators and punctuation
	PLUS      // +
	MINUS     // -
	STAR      // *
	SLASH     // /
	GT        // >
	LT        // <
	GE        // >=
	LE        // <=
	EQ        // ==
	NE        // !=
	CONCAT    // ||
	ASSIGN    // =
	LPAREN    // (
	RPAREN    // )
	LBRACK    // [
	RBRACK    // ]
	COMMA     // ,
	SEMICOLON // ;

	keywordBeg
	DATA
	SET
	RUN
	IF
	THEN
	ELSE
	DO
	TO
	END
	ARRAY
	RETAIN
	OUTPUT
	DELETE
	PUT
	AND
	OR
	NOT
	keywordEnd
)

var names = map[Token]string{
	EOF:       "EOF",
	IDENT:     "IDENT",
	NUMBER:    "NUMBER",
	STRING:    "STRING",
	MISSING:   ".",
	PLUS:      "+",
	MINUS:     "-",
	STAR:      "*",
	SLASH:     "/",
	GT:        ">",
	LT:        "<",
	GE:        ">=",
	LE:        "<=",
	EQ:        "==",
	NE:        "!=",
	CONCAT:    "||",
	ASSIGN:    "=",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACK:    "[",
	RBRACK:    "]",
	COMMA:     ",",
	SEMICOLON: ";",
	DATA:      "data",
	SET:       "set",
	RUN:       "run",
	IF:        "if",
	THEN:      "then",
	ELSE:      "else",
	DO:        "do",
	TO:        "to",
	END:       "end",
	ARRAY:     "array",
	RETAIN:    "retain",
	OUTPUT:    "output",
	DELETE:    "delete",
	PUT:       "put",
	AND:       "and",
	OR:        "or",
	NOT:       "not",
}

var keywords map[string]Token

func init() {
	keywords = make(map[string]Token, keywordEnd-keywordBeg)
	for t := keywordBeg + 1; t < keywordEnd; t++ {
		keywords[names[t]] = t
	}
}

// String returns the string representation of a token.
func (t Token) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// IsKeyword returns true if the token is a reserved word.
func (t Token) IsKeyword() bool {
	return t > keywordBeg && t < keywordEnd
}

// IsSoftKeyword returns true for keywords that may also name a variable
// when they appear where an expression operand is expected.
func (t Token) IsSoftKeyword() bool {
	switch t {
	case DATA, SET, RUN, ARRAY, RETAIN, OUTPUT, DELETE, PUT:
		return true
	}
	return false
}

// Lookup maps an identifier to its keyword token, ignoring case.
// Non-keywords return IDENT.
func Lookup(ident string) Token {
	if t, ok := keywords[strings.ToLower(ident)]; ok {
		return t
	}
	return IDENT
}

// Pos is a location in source text.
type Pos struct {
	Offset int // byte offset, 0-based
	Line   int // 1-based
	Col    int // 1-based, in runes
}

// String returns "line:col".
func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}
