package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/iamafool/opensas-sub001/pkg/opensas"
)

func TestPendingWaitsForRun(t *testing.T) {
	var p pending
	if p.add("data a;") {
		t.Error("expected step to stay pending")
	}
	if !p.add("  x = 1; RUN; ") {
		t.Error("expected run; to complete the step")
	}
	if got := p.take(); got != "data a;\n  x = 1; RUN; \n" {
		t.Errorf("unexpected buffer %q", got)
	}
	if !p.empty() {
		t.Error("expected buffer to be empty after take")
	}
}

func TestBasicREPL(t *testing.T) {
	s, err := opensas.New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Close()

	in := strings.NewReader(`data people;
  name = 'Ann'; output;
run;
:datasets
:print people
:bogus
data b; x = ; run;
`)
	var out bytes.Buffer
	if err := runBasicREPL(context.Background(), s, in, &out); err != nil {
		t.Fatalf("runBasicREPL: %v", err)
	}
	got := out.String()
	for _, want := range []string{"people: 1 rows, 1 variables", "Ann", "unknown command :bogus", "Error: parse error"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, got)
		}
	}
}

func TestRenderDatasetLimit(t *testing.T) {
	s, _ := opensas.New()
	defer s.Close()
	if _, err := s.Submit(context.Background(), "data t; do i = 1 to 5; output; end; run;"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	d, _ := s.Dataset("t")
	out := renderDataset(d, 2)
	if !strings.Contains(out, "2 of 5 rows") {
		t.Errorf("expected truncation footer, got:\n%s", out)
	}
	if !strings.Contains(out, "Obs") {
		t.Errorf("expected Obs header, got:\n%s", out)
	}
}

func TestLineEditor(t *testing.T) {
	tests := []struct {
		name    string
		history []string
		input   string
		want    string
		eof     bool
	}{
		{"plain", nil, "x = 1;\r", "x = 1;", false},
		{"backspace", nil, "ab\x7fc\r", "ac", false},
		{"insert after left", nil, "ac\x1b[Db\r", "abc", false},
		{"right at end", nil, "a\x1b[C\x1b[Cb\r", "ab", false},
		{"history up", []string{"one", "two"}, "\x1b[A\x1b[A\r", "one", false},
		{"history down to blank", []string{"one"}, "\x1b[A\x1b[B\r", "", false},
		{"utf8", nil, "é\x7fü\r", "ü", false},
		{"ctrl-d on empty", nil, "\x04", "", true},
		{"ctrl-d mid line", nil, "a\x04b\r", "ab", false},
		{"ctrl-c", nil, "abc\x03", "", false},
		{"input ends", nil, "ab", "ab", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ed := &lineEditor{
				in:      bufio.NewReader(strings.NewReader(tt.input)),
				out:     io.Discard,
				history: append([]string(nil), tt.history...),
			}
			got, eof := ed.readLine()
			if got != tt.want || eof != tt.eof {
				t.Errorf("expected %q eof=%v, got %q eof=%v", tt.want, tt.eof, got, eof)
			}
		})
	}
}

func TestLineEditorRecordsHistory(t *testing.T) {
	ed := &lineEditor{in: bufio.NewReader(strings.NewReader("a;\r  \rb;\r\x1b[A\x1b[A\r")), out: io.Discard}
	for i := 0; i < 3; i++ {
		ed.readLine()
	}
	if len(ed.history) != 2 {
		t.Fatalf("expected 2 history entries, got %v", ed.history)
	}
	if got, _ := ed.readLine(); got != "a;" {
		t.Errorf("expected recalled line %q, got %q", "a;", got)
	}
}
