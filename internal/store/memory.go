// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/iamafool/opensas-sub001/internal/dataset"
)

// Memory is an in-process catalog. Readers get snapshots, so a dataset
// handed out is never changed by a later write.
type Memory struct {
	mu   sync.RWMutex
	data map[string]*dataset.Dataset
}

// NewMemory creates an empty catalog.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]*dataset.Dataset)}
}

// Lookup returns a snapshot of the named dataset, or nil if not found.
func (m *Memory) Lookup(name string) (*dataset.Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.data[key(name)]; ok {
		return d.Clone(), nil
	}
	return nil, nil
}

// GetOrCreate returns a snapshot of the named dataset, creating it empty
// first if needed.
func (m *Memory) GetOrCreate(name string) (*dataset.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[key(name)]
	if !ok {
		d = dataset.New(name, nil)
		m.data[key(name)] = d
	}
	return d.Clone(), nil
}

// Create replaces the named dataset with an empty one.
func (m *Memory) Create(name string, schema []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key(name)] = dataset.New(name, schema)
	return nil
}

// Replace swaps in a snapshot of d as the named dataset in one step.
func (m *Memory) Replace(name string, d *dataset.Dataset) error {
	snap := d.Rename(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key(name)] = snap
	return nil
}

// AppendRow appends a copy of row, creating the dataset if needed.
func (m *Memory) AppendRow(name string, row *dataset.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[key(name)]
	if !ok {
		d = dataset.New(name, nil)
		m.data[key(name)] = d
	}
	d.Append(row)
	return nil
}

// ReadRows returns the rows of the named dataset in insertion order.
func (m *Memory) ReadRows(name string) ([]*dataset.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.data[key(name)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return d.Rows(), nil
}

// Schema returns the variable names of the named dataset.
func (m *Memory) Schema(name string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.data[key(name)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return d.Schema(), nil
}

// Names returns every dataset name as first written, sorted.
func (m *Memory) Names() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.data))
	for _, d := range m.data {
		names = append(names, d.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Drop removes the named dataset. Dropping a missing dataset is not an error.
func (m *Memory) Drop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key(name))
	return nil
}

// Close is a no-op for the memory catalog.
func (m *Memory) Close() error {
	return nil
}
