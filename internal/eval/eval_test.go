package eval

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iamafool/opensas-sub001/internal/ast"
	"github.com/iamafool/opensas-sub001/internal/dataset"
	"github.com/iamafool/opensas-sub001/internal/diag"
	"github.com/iamafool/opensas-sub001/internal/parser"
	"github.com/iamafool/opensas-sub001/internal/store"
	"github.com/iamafool/opensas-sub001/internal/value"
)

// seed stores rows under name. Each row is a list of name, value pairs.
func seed(t *testing.T, cat Catalog, name string, rows ...[]any) {
	t.Helper()
	if err := cat.Create(name, nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for _, pairs := range rows {
		r := dataset.NewRow()
		for i := 0; i < len(pairs); i += 2 {
			var v value.Value
			switch x := pairs[i+1].(type) {
			case int:
				v = value.Num(float64(x))
			case float64:
				v = value.Num(x)
			case string:
				v = value.Str(x)
			case value.Value:
				v = x
			}
			r.Set(pairs[i].(string), v)
		}
		if err := cat.AppendRow(name, r); err != nil {
			t.Fatalf("AppendRow failed: %v", err)
		}
	}
}

var ctxBG = context.Background()

func mustParseProg(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return prog
}

// runProg parses src and runs it against cat, returning the output dataset.
func runProg(t *testing.T, e *Evaluator, cat Catalog, src string) *dataset.Dataset {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	name, err := e.Run(context.Background(), prog, "", cat)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	out, err := cat.Lookup(name)
	if err != nil || out == nil {
		t.Fatalf("output %s not found: %v", name, err)
	}
	return out
}

func num(t *testing.T, d *dataset.Dataset, row int, name string) float64 {
	t.Helper()
	f, ok := d.Value(row, name).AsNumber()
	if !ok {
		t.Fatalf("row %d: expected %s to be a number, got %v", row, name, d.Value(row, name))
	}
	return f
}

func TestPrecedenceEvaluation(t *testing.T) {
	cat := store.NewMemory()
	out := runProg(t, New(), cat, `data out; a = 2 + 3 * 4; b = (2 + 3) * 4; c = -2 * 3; d = 10 - 4 - 3; run;`)
	want := map[string]float64{"a": 14, "b": 20, "c": -6, "d": 3}
	for k, w := range want {
		if got := num(t, out, 0, k); got != w {
			t.Errorf("%s: expected %v, got %v", k, w, got)
		}
	}
}

func TestMissingPropagation(t *testing.T) {
	cat := store.NewMemory()
	out := runProg(t, New(), cat, `data out;
		m = .;
		a = m + 1; b = 1 - m; c = m * 2; d = 2 / m; e = -m;
		f = m < 0; g = m = .;
	run;`)
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		if v := out.Value(0, k); !v.IsMissing() {
			t.Errorf("%s: expected missing, got %v", k, v)
		}
	}
	if got := num(t, out, 0, "f"); got != 1 {
		t.Errorf("expected missing to compare below 0, got %v", got)
	}
	if got := num(t, out, 0, "g"); got != 1 {
		t.Errorf("expected missing to equal missing, got %v", got)
	}
}

func TestDivisionByZeroWarns(t *testing.T) {
	cat := store.NewMemory()
	var c diag.Collector
	out := runProg(t, New(WithSink(&c)), cat, `data out; x = 1 / 0; y = 2; run;`)
	if v := out.Value(0, "x"); !v.IsMissing() {
		t.Errorf("expected missing, got %v", v)
	}
	if got := num(t, out, 0, "y"); got != 2 {
		t.Errorf("expected the row to continue, got y=%v", got)
	}
	if w := c.Messages(diag.Warn); len(w) != 1 || w[0] != "division by zero" {
		t.Errorf("expected one division warning, got %v", w)
	}
}

func TestRetainAccumulates(t *testing.T) {
	cat := store.NewMemory()
	seed(t, cat, "in", []any{"x", 5}, []any{"x", 3})
	out := runProg(t, New(), cat, `data out; set in; retain total 0; total = total + x; run;`)
	if out.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", out.Len())
	}
	if a, b := num(t, out, 0, "total"), num(t, out, 1, "total"); a != 5 || b != 8 {
		t.Errorf("expected total 5 then 8, got %v then %v", a, b)
	}
}

func TestNonRetainedReset(t *testing.T) {
	cat := store.NewMemory()
	seed(t, cat, "in", []any{"x", 1}, []any{"x", 2})
	out := runProg(t, New(), cat, `data out; set in;
		before = seen;
		if x = 1 then seen = 99;
	run;`)
	if v := out.Value(1, "seen"); !v.IsMissing() {
		t.Errorf("expected seen to reset on row 2, got %v", v)
	}
	if v := out.Value(1, "before"); !v.IsMissing() {
		t.Errorf("expected before to read missing on row 2, got %v", v)
	}
	if got := num(t, out, 0, "seen"); got != 99 {
		t.Errorf("expected seen=99 on row 1, got %v", got)
	}
}

func TestArrayAliasing(t *testing.T) {
	cat := store.NewMemory()
	out := runProg(t, New(), cat, `data out;
		a1 = 1; a3 = 3;
		array a[3] a1 a2 a3;
		a[2] = 5;
		first = a[1];
	run;`)
	if got := num(t, out, 0, "a2"); got != 5 {
		t.Errorf("expected a2=5, got %v", got)
	}
	if got := num(t, out, 0, "a1"); got != 1 {
		t.Errorf("expected a1 untouched, got %v", got)
	}
	if got := num(t, out, 0, "a3"); got != 3 {
		t.Errorf("expected a3 untouched, got %v", got)
	}
	if got := num(t, out, 0, "first"); got != 1 {
		t.Errorf("expected a[1] to read a1, got %v", got)
	}
	for _, n := range out.Schema() {
		if n == "a" {
			t.Error("array name must not become a variable")
		}
	}
}

func TestArrayLoop(t *testing.T) {
	cat := store.NewMemory()
	out := runProg(t, New(), cat, `data out;
		array q[3];
		do i = 1 to 3;
			q[i] = i * 10;
		end;
	run;`)
	for i, n := range []string{"q1", "q2", "q3"} {
		if got := num(t, out, 0, n); got != float64((i+1)*10) {
			t.Errorf("%s: expected %d, got %v", n, (i+1)*10, got)
		}
	}
}

func TestIndexError(t *testing.T) {
	cat := store.NewMemory()
	var c diag.Collector
	out := runProg(t, New(WithSink(&c)), cat, `data out; array a[2] x y; a[3] = 1; z = 1; run;`)
	if v := out.Value(0, "z"); !v.IsMissing() {
		t.Errorf("expected rest of row skipped, got z=%v", v)
	}
	errs := c.Messages(diag.Error)
	if len(errs) != 1 || !strings.Contains(errs[0], "out of range") {
		t.Errorf("expected one index error, got %v", errs)
	}
}

func TestUnknownFunctionSkipsRowNotRun(t *testing.T) {
	cat := store.NewMemory()
	seed(t, cat, "in", []any{"x", 1}, []any{"x", 2})
	var c diag.Collector
	out := runProg(t, New(WithSink(&c)), cat, `data out; set in;
		a = 1;
		b = foo(x);
		d = 2;
	run;`)
	if out.Len() != 2 {
		t.Fatalf("expected both rows, got %d", out.Len())
	}
	for i := 0; i < 2; i++ {
		if got := num(t, out, i, "a"); got != 1 {
			t.Errorf("row %d: expected a=1, got %v", i, got)
		}
		if v := out.Value(i, "d"); !v.IsMissing() {
			t.Errorf("row %d: expected d skipped, got %v", i, v)
		}
	}
	events := c.Events()
	var callErrs int
	for _, e := range events {
		if e.Level == diag.Error {
			callErrs++
			if e.Context["row"] == nil || e.Context["run"] == nil || e.Context["pos"] == nil {
				t.Errorf("expected run, row and pos in context, got %v", e.Context)
			}
		}
	}
	if callErrs != 2 {
		t.Errorf("expected 2 errors, got %d", callErrs)
	}
}

func TestErrorModes(t *testing.T) {
	src := `data out; a = 1; b = foo(1); d = 2; run;`
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	cat := store.NewMemory()
	out := runProg(t, New(WithErrorMode(SkipStatement)), cat, src)
	if got := num(t, out, 0, "d"); got != 2 {
		t.Errorf("skip_statement: expected d=2, got %v", got)
	}

	cat = store.NewMemory()
	_, err = New(WithErrorMode(Abort)).Run(context.Background(), prog, "", cat)
	var ce *CallError
	if !errors.As(err, &ce) || ce.Name != "foo" {
		t.Fatalf("abort: expected CallError for foo, got %v", err)
	}
	if d, _ := cat.Lookup("out"); d != nil {
		t.Error("abort: expected no output dataset")
	}
}

func TestParseErrorMode(t *testing.T) {
	for _, m := range []ErrorMode{SkipRow, SkipStatement, Abort} {
		got, ok := ParseErrorMode(m.String())
		if !ok || got != m {
			t.Errorf("expected %s to round trip, got %s", m, got)
		}
	}
	if m, ok := ParseErrorMode("Skip-Statement"); !ok || m != SkipStatement {
		t.Errorf("expected dashed spelling to parse, got %s", m)
	}
	if _, ok := ParseErrorMode("explode"); ok {
		t.Error("expected unknown mode to fail")
	}
}

func TestLoop(t *testing.T) {
	cat := store.NewMemory()
	out := runProg(t, New(), cat, `data out;
		total = 0;
		passes = 0;
		do i = 1 to 3;
			total = total + i;
			passes = passes + 1;
		end;
	run;`)
	if got := num(t, out, 0, "total"); got != 6 {
		t.Errorf("expected total=6, got %v", got)
	}
	if got := num(t, out, 0, "passes"); got != 3 {
		t.Errorf("expected 3 passes, got %v", got)
	}
	if got := num(t, out, 0, "i"); got != 4 {
		t.Errorf("expected i to end at 4, got %v", got)
	}
}

func TestLoopBoundsEvaluatedOnce(t *testing.T) {
	cat := store.NewMemory()
	out := runProg(t, New(), cat, `data out;
		n = 3;
		passes = 0;
		do i = 1 to n;
			n = 10;
			i = 100;
			passes = passes + 1;
		end;
	run;`)
	if got := num(t, out, 0, "passes"); got != 3 {
		t.Errorf("expected 3 passes, got %v", got)
	}
}

func TestLoopEmptyRange(t *testing.T) {
	cat := store.NewMemory()
	out := runProg(t, New(), cat, `data out; passes = 0; do i = 5 to 1; passes = passes + 1; end; run;`)
	if got := num(t, out, 0, "passes"); got != 0 {
		t.Errorf("expected no passes, got %v", got)
	}
	if got := num(t, out, 0, "i"); got != 5 {
		t.Errorf("expected i=5, got %v", got)
	}
}

func TestLoopLargeBounds(t *testing.T) {
	cat := store.NewMemory()
	out := runProg(t, New(), cat, `data out;
		passes = 0;
		do i = 4503599627370496 to 4503599627370500;
			passes = passes + 1;
		end;
	run;`)
	if got := num(t, out, 0, "passes"); got != 5 {
		t.Errorf("expected 5 passes, got %v", got)
	}
	if got := num(t, out, 0, "i"); got != 4503599627370501 {
		t.Errorf("expected i to end at stop+1, got %v", got)
	}

	prog := mustParseProg(t, `data out2; do i = 1e16 to 1e16 + 4; x = i; end; run;`)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := New(WithErrorMode(Abort)).Run(ctx, prog, "", cat)
	var te *TypeError
	if !errors.As(err, &te) {
		t.Fatalf("expected TypeError for bounds beyond integer precision, got %v", err)
	}
}

func TestLoopCancellation(t *testing.T) {
	cat := store.NewMemory()
	prog, err := parser.Parse(`data out; do i = 1 to 1000000000; x = i; end; run;`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New().Run(ctx, prog, "", cat)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if d, _ := cat.Lookup("out"); d != nil {
		t.Error("expected cancelled run to leave the catalog untouched")
	}
}

func TestTypeInvariant(t *testing.T) {
	cat := store.NewMemory()
	seed(t, cat, "in", []any{"name", "Alice"})
	var c diag.Collector
	out := runProg(t, New(WithSink(&c), WithErrorMode(SkipStatement)), cat, `data out; set in;
		x = 1;
		x = 'one';
		name = 5;
		x = .;
	run;`)
	if len(c.Messages(diag.Error)) != 2 {
		t.Errorf("expected 2 type errors, got %v", c.Messages(diag.Error))
	}
	if v := out.Value(0, "name"); !value.Equal(v, value.Str("Alice")) {
		t.Errorf("expected name unchanged, got %v", v)
	}
	if v := out.Value(0, "x"); !v.IsMissing() {
		t.Errorf("expected missing assignment to be allowed, got %v", v)
	}
}

func TestTextOperators(t *testing.T) {
	cat := store.NewMemory()
	out := runProg(t, New(), cat, `data out;
		first = 'Ada'; last = 'Lovelace';
		full = first || ' ' || last;
		plus = first + last;
		gap = first || .;
		lt = first < last;
	run;`)
	checks := map[string]string{"full": "Ada Lovelace", "plus": "AdaLovelace", "gap": "Ada"}
	for k, w := range checks {
		if v := out.Value(0, k); !value.Equal(v, value.Str(w)) {
			t.Errorf("%s: expected %q, got %v", k, w, v)
		}
	}
	if got := num(t, out, 0, "lt"); got != 1 {
		t.Errorf("expected 'Ada' < 'Lovelace', got %v", got)
	}
}

func TestTypeErrors(t *testing.T) {
	tests := []string{
		`x = 'a' * 2;`,
		`x = 'a' + 1;`,
		`x = 1 || 'a';`,
		`x = 1 < 'a';`,
		`x = -'a';`,
		`do i = 'a' to 3; end;`,
	}
	for _, src := range tests {
		prog, err := parser.Parse(src)
		if err != nil {
			t.Fatalf("%s: parse error: %v", src, err)
		}
		_, err = New(WithErrorMode(Abort)).Run(context.Background(), prog, "", store.NewMemory())
		var te *TypeError
		if !errors.As(err, &te) {
			t.Errorf("%s: expected TypeError, got %v", src, err)
		}
	}
}

func TestLogicalOperators(t *testing.T) {
	cat := store.NewMemory()
	out := runProg(t, New(), cat, `data out;
		a = 1 and 0;
		b = 0 or 'x';
		c = not .;
		d = 0 and foo(1);
		e = 1 or foo(1);
	run;`)
	want := map[string]float64{"a": 0, "b": 1, "c": 1, "d": 0, "e": 1}
	for k, w := range want {
		if got := num(t, out, 0, k); got != w {
			t.Errorf("%s: expected %v, got %v", k, w, got)
		}
	}
}

func TestOutputPolicy(t *testing.T) {
	cat := store.NewMemory()
	seed(t, cat, "in", []any{"x", 1}, []any{"x", 2})

	out := runProg(t, New(), cat, `data out; set in; y = x; output; y = x * 10; output; run;`)
	if out.Len() != 4 {
		t.Fatalf("expected 4 explicit rows, got %d", out.Len())
	}
	if got := num(t, out, 1, "y"); got != 10 {
		t.Errorf("expected second output y=10, got %v", got)
	}

	out = runProg(t, New(), cat, `data out2; set in; if x = 2 then output; run;`)
	if out.Len() != 1 || num(t, out, 0, "x") != 2 {
		t.Errorf("expected only the explicit row, got %d rows", out.Len())
	}
}

func TestDeleteAndSubset(t *testing.T) {
	cat := store.NewMemory()
	seed(t, cat, "in", []any{"x", 1}, []any{"x", 2}, []any{"x", 3})
	out := runProg(t, New(), cat, `data odd; set in; if mod(x, 2) = 0 then delete; run;`)
	if out.Len() != 2 {
		t.Errorf("expected 2 rows after delete, got %d", out.Len())
	}
	out = runProg(t, New(), cat, `data big; set in; if x >= 2; run;`)
	if out.Len() != 2 || num(t, out, 0, "x") != 2 {
		t.Errorf("expected rows 2 and 3 after subset, got %d rows", out.Len())
	}
}

func TestSumStatement(t *testing.T) {
	cat := store.NewMemory()
	seed(t, cat, "in", []any{"x", 4}, []any{"x", value.Missing()}, []any{"x", 6})
	out := runProg(t, New(), cat, `data out; set in; total + x; n + 1; run;`)
	want := []float64{4, 4, 10}
	for i, w := range want {
		if got := num(t, out, i, "total"); got != w {
			t.Errorf("row %d: expected total=%v, got %v", i, w, got)
		}
	}
	if got := num(t, out, 2, "n"); got != 3 {
		t.Errorf("expected n=3, got %v", got)
	}
}

func TestRetainInitialWinsOverSum(t *testing.T) {
	cat := store.NewMemory()
	out := runProg(t, New(), cat, `data out; total + 1; retain total 10; run;`)
	if got := num(t, out, 0, "total"); got != 11 {
		t.Errorf("expected total=11, got %v", got)
	}
}

func TestUnknownVariableWarnsOnce(t *testing.T) {
	cat := store.NewMemory()
	seed(t, cat, "in", []any{"x", 1}, []any{"x", 2})
	var c diag.Collector
	out := runProg(t, New(WithSink(&c)), cat, `data out; set in; y = ghost + x; run;`)
	if v := out.Value(0, "y"); !v.IsMissing() {
		t.Errorf("expected missing, got %v", v)
	}
	warns := c.Messages(diag.Warn)
	if len(warns) != 1 || warns[0] != "variable ghost is uninitialized" {
		t.Errorf("expected one warning, got %v", warns)
	}
	for _, n := range out.Schema() {
		if n == "ghost" {
			t.Error("unknown variable must not join the schema")
		}
	}
}

func TestUnknownVariableWarnsAtStart(t *testing.T) {
	cat := store.NewMemory()
	cat.Create("empty", []string{"x"})
	var c diag.Collector
	out := runProg(t, New(WithSink(&c)), cat, `data out; set empty; if x > 1 then y = ghost; run;`)
	if out.Len() != 0 {
		t.Fatalf("expected no rows, got %d", out.Len())
	}
	warns := c.Messages(diag.Warn)
	if len(warns) != 1 || warns[0] != "variable ghost is uninitialized" {
		t.Errorf("expected warning for a read that never runs, got %v", warns)
	}
}

func TestInputKindOverridesRetainedInitial(t *testing.T) {
	cat := store.NewMemory()
	seed(t, cat, "in", []any{"c", 1}, []any{"c", 2})
	var c diag.Collector
	out := runProg(t, New(WithSink(&c)), cat, `data out; set in; retain c 'x'; c = c + 5; run;`)
	if errs := c.Messages(diag.Error); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if got := num(t, out, 1, "c"); got != 7 {
		t.Errorf("expected c=7, got %v", got)
	}
}

func TestNoInputRunsOnce(t *testing.T) {
	cat := store.NewMemory()
	out := runProg(t, New(), cat, `data once; x = 1; run;`)
	if out.Len() != 1 {
		t.Errorf("expected 1 row, got %d", out.Len())
	}
}

func TestDefaultOutputName(t *testing.T) {
	cat := store.NewMemory()
	prog, _ := parser.Parse(`x = 1;`)
	e := New()
	first, err := e.Run(context.Background(), prog, "", cat)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	second, err := e.Run(context.Background(), prog, "", cat)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if first != "data1" || second != "data2" {
		t.Errorf("expected data1 then data2, got %s then %s", first, second)
	}
}

func TestNullStepAndPut(t *testing.T) {
	cat := store.NewMemory()
	seed(t, cat, "in", []any{"name", "Alice", "age", 30})
	var c diag.Collector
	prog, _ := parser.Parse(`data _null_; set in; put 'hello' name age=; run;`)
	name, err := New(WithSink(&c)).Run(context.Background(), prog, "", cat)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if name != "_null_" {
		t.Errorf("expected _null_, got %s", name)
	}
	if d, _ := cat.Lookup("_null_"); d != nil {
		t.Error("expected _null_ to write nothing")
	}
	var found bool
	for _, m := range c.Messages(diag.Info) {
		if m == "hello Alice age=30" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected put line, got %v", c.Messages(diag.Info))
	}
}

func TestMissingInput(t *testing.T) {
	prog, _ := parser.Parse(`data out; set nowhere; run;`)
	_, err := New().Run(context.Background(), prog, "", store.NewMemory())
	var de *DatasetError
	if !errors.As(err, &de) || !errors.Is(err, ErrNotFound) {
		t.Errorf("expected DatasetError wrapping ErrNotFound, got %v", err)
	}
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected the catalog's ErrNotFound to match too, got %v", err)
	}
}

func TestInputOverrideAndCaseInsensitiveNames(t *testing.T) {
	cat := store.NewMemory()
	seed(t, cat, "Alpha", []any{"x", 1})
	prog, _ := parser.Parse(`data out; y = x + 1; run;`)
	name, err := New().Run(context.Background(), prog, "ALPHA", cat)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	out, _ := cat.Lookup(name)
	if got := num(t, out, 0, "y"); got != 2 {
		t.Errorf("expected y=2, got %v", got)
	}
	if s := out.Schema(); s[0] != "x" || s[1] != "y" {
		t.Errorf("expected input variables first, got %v", s)
	}
}

func TestProgramReusable(t *testing.T) {
	cat := store.NewMemory()
	seed(t, cat, "in", []any{"x", 2})
	prog, _ := parser.Parse(`data out; set in; retain t 0; t = t + x; run;`)
	e := New()
	for i := 0; i < 2; i++ {
		if _, err := e.Run(context.Background(), prog, "", cat); err != nil {
			t.Fatalf("run error: %v", err)
		}
	}
	out, _ := cat.Lookup("out")
	if got := num(t, out, 0, "t"); got != 2 {
		t.Errorf("expected retained state not to leak across runs, got %v", got)
	}
}

func TestDuplicateArray(t *testing.T) {
	prog, _ := parser.Parse(`array a[1] x; array a[1] y;`)
	_, err := New().Run(context.Background(), prog, "", store.NewMemory())
	var ne *NameError
	if !errors.As(err, &ne) {
		t.Errorf("expected NameError, got %v", err)
	}
}

// brokenCatalog fails every write of a whole dataset.
type brokenCatalog struct {
	*store.Memory
}

func (brokenCatalog) Replace(string, *dataset.Dataset) error {
	return errors.New("disk full")
}

func TestFailedWriteKeepsPreviousOutput(t *testing.T) {
	cat := brokenCatalog{store.NewMemory()}
	seed(t, cat, "out", []any{"x", 1}, []any{"x", 2}, []any{"x", 3})

	prog := mustParseProg(t, `data out; x = 1; y = 2; run;`)
	_, err := New().Run(ctxBG, prog, "", cat)
	var de *DatasetError
	if !errors.As(err, &de) || de.Name != "out" {
		t.Fatalf("expected DatasetError for out, got %v", err)
	}
	d, _ := cat.Lookup("out")
	if d == nil || d.Len() != 3 {
		t.Fatalf("expected previous 3 rows to survive, got %v", d)
	}
	if s := d.Schema(); len(s) != 1 || s[0] != "x" {
		t.Errorf("expected previous schema [x], got %v", s)
	}
}
