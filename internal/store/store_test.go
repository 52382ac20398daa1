package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/iamafool/opensas-sub001/internal/dataset"
	"github.com/iamafool/opensas-sub001/internal/eval"
	"github.com/iamafool/opensas-sub001/internal/value"
)

// Both catalogs must satisfy the evaluator's contract.
var (
	_ eval.Catalog = (*Memory)(nil)
	_ eval.Catalog = (*SQLite)(nil)
)

func newSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Failed to create SQLite catalog: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func catalogs(t *testing.T) map[string]eval.Catalog {
	return map[string]eval.Catalog{
		"memory": NewMemory(),
		"sqlite": newSQLite(t),
	}
}

func row(pairs ...any) *dataset.Row {
	r := dataset.NewRow()
	for i := 0; i < len(pairs); i += 2 {
		r.Set(pairs[i].(string), pairs[i+1].(value.Value))
	}
	return r
}

func TestCatalogRoundTrip(t *testing.T) {
	for name, c := range catalogs(t) {
		t.Run(name, func(t *testing.T) {
			if err := c.Create("People", []string{"name", "age"}); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			if err := c.AppendRow("people", row("name", value.Str("Alice"), "age", value.Num(30))); err != nil {
				t.Fatalf("AppendRow failed: %v", err)
			}
			if err := c.AppendRow("PEOPLE", row("name", value.Str("Bob"), "city", value.Str("Oslo"))); err != nil {
				t.Fatalf("AppendRow failed: %v", err)
			}

			d, err := c.Lookup("people")
			if err != nil || d == nil {
				t.Fatalf("Lookup failed: %v %v", d, err)
			}
			if d.Name() != "People" {
				t.Errorf("expected stored name 'People', got '%s'", d.Name())
			}
			if d.Len() != 2 {
				t.Fatalf("expected 2 rows, got %d", d.Len())
			}
			schema := d.Schema()
			if len(schema) != 3 || schema[2] != "city" {
				t.Errorf("expected schema [name age city], got %v", schema)
			}
			if v := d.Value(0, "age"); !value.Equal(v, value.Num(30)) {
				t.Errorf("expected age 30, got %v", v)
			}
			if v := d.Value(1, "age"); !v.IsMissing() {
				t.Errorf("expected missing age for Bob, got %v", v)
			}
			if v := d.Value(1, "city"); !value.Equal(v, value.Str("Oslo")) {
				t.Errorf("expected city Oslo, got %v", v)
			}

			rows, err := c.ReadRows("people")
			if err != nil || len(rows) != 2 {
				t.Fatalf("ReadRows: %d rows, %v", len(rows), err)
			}
			if v, _ := rows[1].Get("name"); !value.Equal(v, value.Str("Bob")) {
				t.Errorf("expected insertion order, got %v", v)
			}
		})
	}
}

func TestCatalogMissing(t *testing.T) {
	for name, c := range catalogs(t) {
		t.Run(name, func(t *testing.T) {
			d, err := c.Lookup("nope")
			if err != nil || d != nil {
				t.Errorf("expected nil, nil for missing dataset, got %v, %v", d, err)
			}
			if _, err := c.ReadRows("nope"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound from ReadRows, got %v", err)
			}
			if _, err := c.Schema("nope"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound from Schema, got %v", err)
			}
		})
	}
}

func TestCatalogCreateReplacesAndDrop(t *testing.T) {
	for name, c := range catalogs(t) {
		t.Run(name, func(t *testing.T) {
			c.AppendRow("t", row("x", value.Num(1)))
			if err := c.Create("t", []string{"y"}); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			d, _ := c.Lookup("t")
			if d.Len() != 0 {
				t.Errorf("expected Create to empty the dataset, got %d rows", d.Len())
			}
			if s := d.Schema(); len(s) != 1 || s[0] != "y" {
				t.Errorf("expected schema [y], got %v", s)
			}

			c.Create("a", nil)
			names, err := c.Names()
			if err != nil || len(names) != 2 || names[0] != "a" || names[1] != "t" {
				t.Errorf("expected [a t], got %v (%v)", names, err)
			}

			if err := c.Drop("T"); err != nil {
				t.Fatalf("Drop failed: %v", err)
			}
			if d, _ := c.Lookup("t"); d != nil {
				t.Error("expected dataset to be gone after Drop")
			}
		})
	}
}

func TestCatalogReplace(t *testing.T) {
	for name, c := range catalogs(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				c.AppendRow("out", row("x", value.Num(float64(i))))
			}
			next := dataset.New("ignored", []string{"y", "z"})
			next.Append(row("y", value.Str("a"), "z", value.Num(1)))
			next.Append(row("y", value.Str("b")))

			if err := c.Replace("Out", next); err != nil {
				t.Fatalf("Replace failed: %v", err)
			}
			next.Append(row("y", value.Str("late")))

			d, err := c.Lookup("out")
			if err != nil || d == nil {
				t.Fatalf("Lookup failed: %v", err)
			}
			if d.Name() != "Out" {
				t.Errorf("expected name 'Out', got '%s'", d.Name())
			}
			if d.Len() != 2 {
				t.Fatalf("expected 2 rows, got %d", d.Len())
			}
			if s := d.Schema(); len(s) != 2 || s[0] != "y" || s[1] != "z" {
				t.Errorf("expected schema [y z], got %v", s)
			}
			if v := d.Value(1, "z"); !v.IsMissing() {
				t.Errorf("expected missing z, got %v", v)
			}
		})
	}
}

func TestCatalogGetOrCreate(t *testing.T) {
	for name, c := range catalogs(t) {
		t.Run(name, func(t *testing.T) {
			d, err := c.GetOrCreate("fresh")
			if err != nil || d == nil || d.Len() != 0 {
				t.Fatalf("expected empty dataset, got %v, %v", d, err)
			}
			c.AppendRow("fresh", row("x", value.Num(1)))
			d, _ = c.GetOrCreate("fresh")
			if d.Len() != 1 {
				t.Errorf("expected existing dataset to be kept, got %d rows", d.Len())
			}
		})
	}
}

func TestMemorySnapshots(t *testing.T) {
	m := NewMemory()
	m.AppendRow("t", row("x", value.Num(1)))
	snap, _ := m.Lookup("t")
	m.AppendRow("t", row("x", value.Num(2)))
	if snap.Len() != 1 {
		t.Errorf("expected snapshot to keep 1 row, got %d", snap.Len())
	}
}

func TestMemoryConcurrentWriters(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.AppendRow("shared", row("i", value.Num(float64(i))))
				m.Lookup("shared")
			}
		}(i)
	}
	wg.Wait()
	d, _ := m.Lookup("shared")
	if d.Len() != 400 {
		t.Errorf("expected 400 rows, got %d", d.Len())
	}
}

func TestSQLitePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	s.Create("scores", []string{"name", "score"})
	s.AppendRow("scores", row("name", value.Str("it's"), "score", value.Num(2.5)))
	s.Close()

	s, err = NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	d, err := s.Lookup("scores")
	if err != nil || d == nil {
		t.Fatalf("Lookup after reopen: %v", err)
	}
	if v := d.Value(0, "name"); !value.Equal(v, value.Str("it's")) {
		t.Errorf("expected text to survive reopen, got %v", v)
	}
	if v := d.Value(0, "score"); !value.Equal(v, value.Num(2.5)) {
		t.Errorf("expected 2.5 to survive reopen, got %v", v)
	}
	if v, err := s.GetMetadata("schema_version"); err != nil || v != SchemaVersion {
		t.Errorf("expected schema version %s, got %q (%v)", SchemaVersion, v, err)
	}
}

func TestSQLiteRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")
	db, err := sql.Open(driverName, path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	_, err = db.Exec(`
		CREATE TABLE metadata (key TEXT PRIMARY KEY, value TEXT NOT NULL);
		INSERT INTO metadata (key, value) VALUES ('schema_version', '99');
	`)
	db.Close()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := NewSQLite(path); err == nil {
		t.Error("expected error for unsupported schema version")
	}
}
