// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package store

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/iamafool/opensas-sub001/internal/dataset"
	"github.com/iamafool/opensas-sub001/internal/value"
)

// Current schema version
const SchemaVersion = "1"

// Cell kinds as stored in the cells table. Missing cells are not stored.
const (
	cellNumber = 1
	cellText   = 2
)

// SQLite is a catalog persisted in a SQLite database. Each dataset is a
// row in datasets, its schema lives in variables and its values in cells.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLite opens or creates a catalog at the given path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open(driverName, dsn(path))
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS datasets (
			key TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			row_count INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS variables (
			dataset TEXT NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			PRIMARY KEY (dataset, position)
		);
		CREATE TABLE IF NOT EXISTS cells (
			dataset TEXT NOT NULL,
			row_index INTEGER NOT NULL,
			position INTEGER NOT NULL,
			kind INTEGER NOT NULL,
			num REAL,
			text TEXT,
			PRIMARY KEY (dataset, row_index, position)
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLite{db: db}

	version, err := s.getMetadataUnlocked("schema_version")
	if err != nil {
		db.Close()
		return nil, err
	}
	switch version {
	case "":
		if err := s.setMetadataUnlocked("schema_version", SchemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	case SchemaVersion:
	default:
		db.Close()
		return nil, fmt.Errorf("unsupported schema version: %s (expected %s)", version, SchemaVersion)
	}

	return s, nil
}

// Lookup loads the named dataset, or returns nil if not found.
func (s *SQLite) Lookup(name string) (*dataset.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadUnlocked(name)
}

// GetOrCreate loads the named dataset, creating it empty first if needed.
func (s *SQLite) GetOrCreate(name string) (*dataset.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT OR IGNORE INTO datasets (key, name, row_count) VALUES (?, ?, 0)`, key(name), name)
	if err != nil {
		return nil, err
	}
	return s.loadUnlocked(name)
}

// Create replaces the named dataset with an empty one.
func (s *SQLite) Create(name string, schema []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	k := key(name)
	if err := dropTx(tx, k); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO datasets (key, name, row_count) VALUES (?, ?, 0)`, k, name); err != nil {
		return err
	}
	for i, v := range schema {
		if _, err := tx.Exec(`INSERT INTO variables (dataset, position, name) VALUES (?, ?, ?)`, k, i, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Replace writes d as the named dataset in a single transaction. Readers
// see either the old dataset or the whole new one.
func (s *SQLite) Replace(name string, d *dataset.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	k := key(name)
	if err := dropTx(tx, k); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO datasets (key, name, row_count) VALUES (?, ?, ?)`, k, name, d.Len()); err != nil {
		return err
	}
	schema := d.Schema()
	for p, v := range schema {
		if _, err := tx.Exec(`INSERT INTO variables (dataset, position, name) VALUES (?, ?, ?)`, k, p, v); err != nil {
			return err
		}
	}
	for i := 0; i < d.Len(); i++ {
		for p, v := range schema {
			if err := insertCell(tx, k, i, p, d.Value(i, v)); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// AppendRow appends row, creating the dataset and any new variables as
// needed.
func (s *SQLite) AppendRow(name string, row *dataset.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	k := key(name)
	if _, err := tx.Exec(`INSERT OR IGNORE INTO datasets (key, name, row_count) VALUES (?, ?, 0)`, k, name); err != nil {
		return err
	}
	var n int
	if err := tx.QueryRow(`SELECT row_count FROM datasets WHERE key = ?`, k).Scan(&n); err != nil {
		return err
	}
	schema, err := schemaTx(tx, k)
	if err != nil {
		return err
	}
	pos := make(map[string]int, len(schema))
	for i, v := range schema {
		pos[v] = i
	}

	for _, v := range row.Names() {
		p, ok := pos[v]
		if !ok {
			p = len(pos)
			pos[v] = p
			if _, err := tx.Exec(`INSERT INTO variables (dataset, position, name) VALUES (?, ?, ?)`, k, p, v); err != nil {
				return err
			}
		}
		val, _ := row.Get(v)
		if err := insertCell(tx, k, n, p, val); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`UPDATE datasets SET row_count = row_count + 1 WHERE key = ?`, k); err != nil {
		return err
	}
	return tx.Commit()
}

func insertCell(tx *sql.Tx, k string, row, pos int, v value.Value) error {
	var err error
	switch v.Kind() {
	case value.KindNumber:
		f, _ := v.AsNumber()
		_, err = tx.Exec(`INSERT INTO cells (dataset, row_index, position, kind, num) VALUES (?, ?, ?, ?, ?)`,
			k, row, pos, cellNumber, f)
	case value.KindText:
		t, _ := v.AsText()
		_, err = tx.Exec(`INSERT INTO cells (dataset, row_index, position, kind, text) VALUES (?, ?, ?, ?, ?)`,
			k, row, pos, cellText, t)
	}
	return err
}

// ReadRows returns the rows of the named dataset in insertion order.
func (s *SQLite) ReadRows(name string) ([]*dataset.Row, error) {
	d, err := s.Lookup(name)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return d.Rows(), nil
}

// Schema returns the variable names of the named dataset.
func (s *SQLite) Schema(name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.existsUnlocked(key(name))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return schemaTx(s.db, key(name))
}

// Names returns every dataset name, sorted.
func (s *SQLite) Names() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT name FROM datasets ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Drop removes the named dataset.
func (s *SQLite) Drop(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := dropTx(tx, key(name)); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetMetadata retrieves a metadata value by key.
func (s *SQLite) GetMetadata(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getMetadataUnlocked(key)
}

// getMetadataUnlocked retrieves metadata without locking (caller must hold lock).
func (s *SQLite) getMetadataUnlocked(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// setMetadataUnlocked stores metadata without locking (caller must hold lock).
func (s *SQLite) setMetadataUnlocked(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func (s *SQLite) existsUnlocked(k string) (bool, error) {
	var n string
	err := s.db.QueryRow(`SELECT name FROM datasets WHERE key = ?`, k).Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// loadUnlocked reads a whole dataset (caller must hold lock).
func (s *SQLite) loadUnlocked(name string) (*dataset.Dataset, error) {
	k := key(name)
	var stored string
	var n int
	err := s.db.QueryRow(`SELECT name, row_count FROM datasets WHERE key = ?`, k).Scan(&stored, &n)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	schema, err := schemaTx(s.db, k)
	if err != nil {
		return nil, err
	}

	grid := make([][]value.Value, n)
	for i := range grid {
		grid[i] = make([]value.Value, len(schema))
	}
	rows, err := s.db.Query(`SELECT row_index, position, kind, num, text FROM cells WHERE dataset = ?`, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			r, p, kind int
			num        sql.NullFloat64
			text       sql.NullString
		)
		if err := rows.Scan(&r, &p, &kind, &num, &text); err != nil {
			return nil, err
		}
		if r >= n || p >= len(schema) {
			return nil, fmt.Errorf("dataset %s: cell (%d, %d) outside %dx%d", stored, r, p, n, len(schema))
		}
		switch kind {
		case cellNumber:
			grid[r][p] = value.Num(num.Float64)
		case cellText:
			grid[r][p] = value.Str(text.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	d := dataset.New(stored, schema)
	for _, cells := range grid {
		row := dataset.NewRow()
		for j, v := range schema {
			row.Set(v, cells[j])
		}
		d.Append(row)
	}
	return d, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func schemaTx(q querier, k string) ([]string, error) {
	rows, err := q.Query(`SELECT name FROM variables WHERE dataset = ? ORDER BY position`, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var schema []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		schema = append(schema, v)
	}
	return schema, rows.Err()
}

func dropTx(tx *sql.Tx, k string) error {
	for _, q := range []string{
		`DELETE FROM cells WHERE dataset = ?`,
		`DELETE FROM variables WHERE dataset = ?`,
		`DELETE FROM datasets WHERE key = ?`,
	} {
		if _, err := tx.Exec(q, k); err != nil {
			return err
		}
	}
	return nil
}
