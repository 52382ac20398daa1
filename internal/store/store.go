// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package store provides catalogs: the named dataset collections a session
// reads from and writes to. Memory keeps datasets in process; SQLite
// persists them across sessions.
package store

import (
	"strings"

	"github.com/iamafool/opensas-sub001/internal/dataset"
)

// ErrNotFound is returned when a named dataset does not exist.
var ErrNotFound = dataset.ErrNotFound

// key normalises a dataset name. Dataset names are case-insensitive.
func key(name string) string {
	return strings.ToLower(name)
}
