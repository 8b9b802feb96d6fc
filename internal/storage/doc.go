// Package storage holds the SQLite plumbing shared by the corpus loader and
// the vector store: driver selection, connection setup, semver-ordered
// migrations and the little-endian float32 vector encoding.
//
// # Build Modes
//
// The driver is chosen at compile time:
//
//	go build ./...                       # modernc.org/sqlite, pure Go
//	CGO_ENABLED=1 go build -tags sqlite_vec ./...   # mattn/go-sqlite3 + vec_distance_cosine
//
// CosineInSQL tells the vector store whether cosine ranking can be
// pushed into SQL.
//
// # Migrations
//
// Each schema owns a Migrator with its own version table:
//
//	m := &storage.Migrator{Table: "vector_schema_version", Migrations: migrations}
//	if err := m.Apply(ctx, db); err != nil {
//	    return err
//	}
package storage
