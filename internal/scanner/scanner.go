// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package scanner provides a streaming Unicode-aware lexer for DATA step source.
package scanner

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/iamafool/opensas-sub001/internal/token"
)

// LexError reports an invalid token.
type LexError struct {
	Pos     token.Pos
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at %s: %s", e.Pos, e.Message)
}

// Item represents a scanned token with its value.
type Item struct {
	Token token.Token
	Value string    // source text; unquoted contents for STRING
	Pos   token.Pos // where this token started
}

// String returns a short description of the item for error messages.
func (i Item) String() string {
	switch i.Token {
	case token.EOF:
		return "end of input"
	case token.IDENT, token.NUMBER:
		return fmt.Sprintf("%q", i.Value)
	case token.STRING:
		return fmt.Sprintf("string %q", i.Value)
	}
	if i.Token.IsKeyword() {
		return fmt.Sprintf("keyword %q", i.Token.String())
	}
	return fmt.Sprintf("%q", i.Token.String())
}

var singles = map[rune]token.Token{
	'+': token.PLUS, '-': token.MINUS, '*': token.STAR, '/': token.SLASH,
	'(': token.LPAREN, ')': token.RPAREN, '[': token.LBRACK, ']': token.RBRACK,
	',': token.COMMA, ';': token.SEMICOLON,
}

// Scanner tokenizes DATA step input rune-by-rune.
type Scanner struct {
	reader *bufio.Reader
	pos    token.Pos // position of the next rune
	prev   token.Pos // position before the last ReadRune, for unread
	peeked *Item
}

// New creates a new Scanner from an io.Reader.
func New(r io.Reader) *Scanner {
	return &Scanner{
		reader: bufio.NewReader(r),
		pos:    token.Pos{Line: 1, Col: 1},
	}
}

// NewFromString creates a new Scanner from a string.
func NewFromString(s string) *Scanner {
	return New(strings.NewReader(s))
}

// All scans src to the end and returns every token including the final EOF.
func All(src string) ([]Item, error) {
	s := NewFromString(src)
	var items []Item
	for {
		item, err := s.Next()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if item.Token == token.EOF {
			return items, nil
		}
	}
}

// Peek returns the next item without consuming it.
func (s *Scanner) Peek() (Item, error) {
	if s.peeked != nil {
		return *s.peeked, nil
	}
	item, err := s.Next()
	if err != nil {
		return Item{}, err
	}
	s.peeked = &item
	return item, nil
}

// Next returns the next token from the input.
func (s *Scanner) Next() (Item, error) {
	if s.peeked != nil {
		item := *s.peeked
		s.peeked = nil
		return item, nil
	}

	slash, err := s.skipSpaceAndComments()
	if err != nil || slash != nil {
		if slash != nil {
			return *slash, nil
		}
		return Item{}, err
	}

	start := s.pos
	r, ok, err := s.read()
	if err != nil {
		return Item{}, err
	}
	if !ok {
		return Item{Token: token.EOF, Pos: start}, nil
	}

	switch {
	case isIdentStart(r):
		return s.scanIdent(r, start)
	case isDigit(r):
		return s.scanNumber(r, start)
	case r == '.':
		next, ok, err := s.read()
		if err != nil {
			return Item{}, err
		}
		if ok && isDigit(next) {
			s.unread()
			return s.scanNumber(r, start)
		}
		if ok {
			s.unread()
		}
		return Item{Token: token.MISSING, Value: ".", Pos: start}, nil
	case r == '\'' || r == '"':
		return s.scanString(r, start)
	}

	if t, ok := singles[r]; ok {
		return Item{Token: t, Value: string(r), Pos: start}, nil
	}

	// Operators that may take a second rune.
	switch r {
	case '>':
		return s.pair(r, '=', token.GT, token.GE, start)
	case '<':
		return s.pair(r, '=', token.LT, token.LE, start)
	case '=':
		return s.pair(r, '=', token.ASSIGN, token.EQ, start)
	case '!':
		if item, matched, err := s.must(r, '=', token.NE, start); err != nil || matched {
			return item, err
		}
	case '|':
		if item, matched, err := s.must(r, '|', token.CONCAT, start); err != nil || matched {
			return item, err
		}
	}

	return Item{}, &LexError{Pos: start, Message: fmt.Sprintf("invalid character %q", r)}
}

// pair scans a one- or two-rune operator.
func (s *Scanner) pair(first, second rune, one, two token.Token, start token.Pos) (Item, error) {
	next, ok, err := s.read()
	if err != nil {
		return Item{}, err
	}
	if ok && next == second {
		return Item{Token: two, Value: string(first) + string(second), Pos: start}, nil
	}
	if ok {
		s.unread()
	}
	return Item{Token: one, Value: string(first), Pos: start}, nil
}

// must scans a two-rune operator whose first rune is invalid on its own.
func (s *Scanner) must(first, second rune, tok token.Token, start token.Pos) (Item, bool, error) {
	next, ok, err := s.read()
	if err != nil {
		return Item{}, false, err
	}
	if ok && next == second {
		return Item{Token: tok, Value: string(first) + string(second), Pos: start}, true, nil
	}
	if ok {
		s.unread()
	}
	return Item{}, false, nil
}

func (s *Scanner) scanIdent(first rune, start token.Pos) (Item, error) {
	var buf strings.Builder
	buf.WriteRune(first)
	for {
		r, ok, err := s.read()
		if err != nil {
			return Item{}, err
		}
		if !ok {
			break
		}
		if !isIdentChar(r) {
			s.unread()
			break
		}
		buf.WriteRune(r)
	}
	word := buf.String()
	return Item{Token: token.Lookup(word), Value: word, Pos: start}, nil
}

func (s *Scanner) scanNumber(first rune, start token.Pos) (Item, error) {
	var buf strings.Builder
	buf.WriteRune(first)
	seenDot := first == '.'
	seenExp := false

	for {
		r, ok, err := s.read()
		if err != nil {
			return Item{}, err
		}
		if !ok {
			break
		}
		switch {
		case isDigit(r):
			buf.WriteRune(r)
			continue
		case r == '.' && !seenDot && !seenExp:
			seenDot = true
			buf.WriteRune(r)
			continue
		case (r == 'e' || r == 'E') && !seenExp:
			seenExp = true
			buf.WriteRune(r)
			sign, ok, err := s.read()
			if err != nil {
				return Item{}, err
			}
			if ok && (sign == '+' || sign == '-') {
				buf.WriteRune(sign)
				sign, ok, err = s.read()
				if err != nil {
					return Item{}, err
				}
			}
			if !ok || !isDigit(sign) {
				return Item{}, &LexError{Pos: start, Message: fmt.Sprintf("malformed number %q", buf.String())}
			}
			buf.WriteRune(sign)
			continue
		}
		s.unread()
		break
	}
	return Item{Token: token.NUMBER, Value: buf.String(), Pos: start}, nil
}

// scanString reads a quoted literal. A doubled quote inside the literal
// stands for one quote character.
func (s *Scanner) scanString(quote rune, start token.Pos) (Item, error) {
	var buf strings.Builder
	for {
		r, ok, err := s.read()
		if err != nil {
			return Item{}, err
		}
		if !ok {
			return Item{}, &LexError{Pos: start, Message: "unterminated string"}
		}
		if r != quote {
			buf.WriteRune(r)
			continue
		}
		next, ok, err := s.read()
		if err != nil {
			return Item{}, err
		}
		if ok && next == quote {
			buf.WriteRune(quote)
			continue
		}
		if ok {
			s.unread()
		}
		return Item{Token: token.STRING, Value: buf.String(), Pos: start}, nil
	}
}

// skipSpaceAndComments consumes whitespace and /* ... */ comments.
// A slash that does not open a comment has already been read, so it is
// returned as a token.
func (s *Scanner) skipSpaceAndComments() (*Item, error) {
	for {
		start := s.pos
		r, ok, err := s.read()
		if err != nil || !ok {
			return nil, err
		}
		if unicode.IsSpace(r) {
			continue
		}
		if r != '/' {
			s.unread()
			return nil, nil
		}
		next, ok, err := s.read()
		if err != nil {
			return nil, err
		}
		if ok && next == '*' {
			if err := s.skipComment(start); err != nil {
				return nil, err
			}
			continue
		}
		if ok {
			s.unread()
		}
		return &Item{Token: token.SLASH, Value: "/", Pos: start}, nil
	}
}

func (s *Scanner) skipComment(start token.Pos) error {
	star := false
	for {
		r, ok, err := s.read()
		if err != nil {
			return err
		}
		if !ok {
			return &LexError{Pos: start, Message: "unterminated comment"}
		}
		if star && r == '/' {
			return nil
		}
		star = r == '*'
	}
}

// read returns the next rune; ok is false at end of input.
func (s *Scanner) read() (rune, bool, error) {
	r, size, err := s.reader.ReadRune()
	if err == io.EOF {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	s.prev = s.pos
	s.pos.Offset += size
	if r == '\n' {
		s.pos.Line++
		s.pos.Col = 1
	} else {
		s.pos.Col++
	}
	return r, true, nil
}

// unread pushes back the rune returned by the last read.
func (s *Scanner) unread() {
	s.reader.UnreadRune()
	s.pos = s.prev
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

// isIdentChar returns true if the rune is valid in an identifier (letter, digit, underscore).
func isIdentChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
