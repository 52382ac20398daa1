// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package store

import _ "modernc.org/sqlite"

const driverName = "sqlite"

// dsn turns a catalog path into a connection string. Writers from other
// sessions sharing the file wait instead of failing with SQLITE_BUSY.
func dsn(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)"
}
