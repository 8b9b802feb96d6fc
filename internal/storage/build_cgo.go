//go:build sqlite_vec

package storage

import (
	_ "github.com/mattn/go-sqlite3"
)

// With the sqlite_vec tag (CGO_ENABLED=1) the article corpus and the vector
// store share the mattn driver, and article similarity is ranked in SQL with
// vec_distance_cosine so filtered candidates never leave the database.
const (
	// DriverName is the database/sql driver opened for SQLite DSNs
	DriverName = "sqlite3"

	// CosineInSQL reports whether queries can order points by
	// vec_distance_cosine
	CosineInSQL = true

	// BuildMode is printed by the version command
	BuildMode = "cgo+sqlite_vec"
)
