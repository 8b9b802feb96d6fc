//go:build !sqlite_vec

package storage

import (
	_ "modernc.org/sqlite"
)

// The default build needs no C toolchain. Filters still run in SQL; the
// cosine ranking of the surviving points happens in Go.
const (
	// DriverName is the database/sql driver opened for SQLite DSNs
	DriverName = "sqlite"

	// CosineInSQL is false: modernc has no vector functions
	CosineInSQL = false

	// BuildMode is printed by the version command
	BuildMode = "purego"
)
