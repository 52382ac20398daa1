// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package loader moves datasets between files and a catalog. CSV and YAML
// are supported; the format is chosen by file extension.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iamafool/opensas-sub001/internal/dataset"
	"github.com/iamafool/opensas-sub001/internal/eval"
)

// Format is a file format understood by Import and Export.
type Format int

const (
	CSV Format = iota
	YAML
)

func (f Format) String() string {
	switch f {
	case CSV:
		return "csv"
	case YAML:
		return "yaml"
	}
	return "unknown"
}

// FormatOf picks the format from a file name.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return CSV, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return 0, fmt.Errorf("%s: unsupported file type (want .csv, .yaml or .yml)", path)
}

// Import reads path into the catalog under name, replacing any dataset of
// that name. It returns the number of rows read.
func Import(cat eval.Catalog, name, path string) (int, error) {
	format, err := FormatOf(path)
	if err != nil {
		return 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var d *dataset.Dataset
	switch format {
	case CSV:
		d, err = ReadCSV(f, name)
	case YAML:
		d, err = ReadYAML(f, name)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	if err := Store(cat, d); err != nil {
		return 0, err
	}
	return d.Len(), nil
}

// Export writes the named dataset to path. It returns the number of rows
// written.
func Export(cat eval.Catalog, name, path string) (int, error) {
	format, err := FormatOf(path)
	if err != nil {
		return 0, err
	}
	d, err := cat.Lookup(name)
	if err != nil {
		return 0, err
	}
	if d == nil {
		return 0, &eval.DatasetError{Name: name, Err: eval.ErrNotFound}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	switch format {
	case CSV:
		err = WriteCSV(f, d)
	case YAML:
		err = WriteYAML(f, d)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return d.Len(), nil
}

// Store replaces the catalog entry for d with d's contents.
func Store(cat eval.Catalog, d *dataset.Dataset) error {
	return cat.Replace(d.Name(), d)
}
