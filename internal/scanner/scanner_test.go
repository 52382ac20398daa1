package scanner

import (
	"errors"
	"testing"

	"github.com/iamafool/opensas-sub001/internal/token"
)

func kinds(t *testing.T, src string) []token.Token {
	t.Helper()
	items, err := All(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out []token.Token
	for _, it := range items {
		out = append(out, it.Token)
	}
	return out
}

func TestOperators(t *testing.T) {
	got := kinds(t, "+ - * / > < >= <= == != || ( ) , ; = [ ]")
	want := []token.Token{
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.GT, token.LT,
		token.GE, token.LE, token.EQ, token.NE, token.CONCAT, token.LPAREN,
		token.RPAREN, token.COMMA, token.SEMICOLON, token.ASSIGN, token.LBRACK,
		token.RBRACK, token.EOF,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestKeywordsCaseInsensitive(t *testing.T) {
	items, err := All("IF x Then y ELSE z; Retain total;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []token.Token{token.IF, token.IDENT, token.THEN, token.IDENT, token.ELSE,
		token.IDENT, token.SEMICOLON, token.RETAIN, token.IDENT, token.SEMICOLON, token.EOF}
	for i, w := range want {
		if items[i].Token != w {
			t.Errorf("token %d: expected %s, got %s", i, w, items[i].Token)
		}
	}
	// Original spelling is preserved.
	if items[2].Value != "Then" {
		t.Errorf("expected value 'Then', got '%s'", items[2].Value)
	}
}

func TestNumbers(t *testing.T) {
	items, err := All("12 3.5 .25 1e3 2.5E-2 .")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	values := []string{"12", "3.5", ".25", "1e3", "2.5E-2"}
	for i, v := range values {
		if items[i].Token != token.NUMBER || items[i].Value != v {
			t.Errorf("item %d: expected NUMBER %s, got %s %s", i, v, items[i].Token, items[i].Value)
		}
	}
	if items[5].Token != token.MISSING {
		t.Errorf("expected MISSING for lone '.', got %s", items[5].Token)
	}
}

func TestStrings(t *testing.T) {
	items, err := All(`"Alice" 'it''s' ""`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Alice", "it's", ""}
	for i, w := range want {
		if items[i].Token != token.STRING || items[i].Value != w {
			t.Errorf("item %d: expected STRING %q, got %s %q", i, w, items[i].Token, items[i].Value)
		}
	}
}

func TestCommentsAndSlash(t *testing.T) {
	got := kinds(t, "a /* note */ / b /* x * y */")
	want := []token.Token{token.IDENT, token.SLASH, token.IDENT, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestPositions(t *testing.T) {
	items, err := All("x = 1;\n  y = 2;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	y := items[4]
	if y.Value != "y" || y.Pos.Line != 2 || y.Pos.Col != 3 {
		t.Errorf("expected y at 2:3, got %s at %s", y.Value, y.Pos)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []string{
		`x = "open`,
		`x = 1 @ 2`,
		`x = a | b`,
		`x = !a`,
		`/* never closed`,
		`x = 1e+`,
	}
	for _, src := range tests {
		_, err := All(src)
		var lexErr *LexError
		if !errors.As(err, &lexErr) {
			t.Errorf("%q: expected LexError, got %v", src, err)
		}
	}
}

func TestPeek(t *testing.T) {
	s := NewFromString("a b")
	p, err := s.Peek()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, _ := s.Next()
	if p.Value != "a" || n.Value != "a" {
		t.Errorf("expected peek and next to both return 'a', got '%s' and '%s'", p.Value, n.Value)
	}
	n, _ = s.Next()
	if n.Value != "b" {
		t.Errorf("expected 'b', got '%s'", n.Value)
	}
}

func TestItemString(t *testing.T) {
	items, err := All(`if x 'a' ; 1`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{`keyword "if"`, `"x"`, `string "a"`, `";"`, `"1"`, "end of input"}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(items))
	}
	for i, w := range want {
		if got := items[i].String(); got != w {
			t.Errorf("item %d: expected %s, got %s", i, w, got)
		}
	}
}
