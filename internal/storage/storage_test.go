package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var testMigrations = []Migration{
	{
		Version: "1.1.0",
		Up:      `ALTER TABLE widgets ADD COLUMN color TEXT`,
		Down:    `ALTER TABLE widgets DROP COLUMN color`,
	},
	{
		Version: "1.0.0",
		Up:      `CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		Down:    `DROP TABLE widgets`,
	},
}

func TestMigratorApply(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	m := &Migrator{Table: "widget_schema_version", Migrations: testMigrations}

	require.NoError(t, m.Apply(ctx, db))

	v, err := m.CurrentVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", v.String())

	_, err = db.ExecContext(ctx, "INSERT INTO widgets (name, color) VALUES ('a', 'red')")
	require.NoError(t, err)

	// Idempotent
	require.NoError(t, m.Apply(ctx, db))
}

func TestMigratorRollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	m := &Migrator{Table: "widget_schema_version", Migrations: testMigrations}
	require.NoError(t, m.Apply(ctx, db))

	require.NoError(t, m.Rollback(ctx, db))
	v, err := m.CurrentVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v.String())

	require.NoError(t, m.Rollback(ctx, db))
	assert.Error(t, m.Rollback(ctx, db))
}

func TestMigratorInvalidVersion(t *testing.T) {
	db := openTestDB(t)
	m := &Migrator{Table: "bad_version", Migrations: []Migration{{Version: "not-a-version", Up: "SELECT 1"}}}
	assert.Error(t, m.Apply(context.Background(), db))
}

func TestMigratorFailureLeavesVersionUnchanged(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	m := &Migrator{Table: "broken_version", Migrations: []Migration{
		{Version: "1.0.0", Up: `CREATE TABLE ok_table (id INTEGER)`},
		{Version: "2.0.0", Up: `CREATE TABLE nope (`},
	}}

	assert.Error(t, m.Apply(ctx, db))
	v, err := m.CurrentVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v.String())
}

func TestWithTx(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := db.ExecContext(ctx, "CREATE TABLE t (v INTEGER)")
	require.NoError(t, err)

	err = WithTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO t VALUES (1)")
		require.NoError(t, err)
		return errors.New("abort")
	})
	assert.EqualError(t, err, "abort")

	var n int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&n))
	assert.Equal(t, 0, n)

	require.NoError(t, WithTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO t VALUES (1)")
		return err
	}))
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestVectorSerialization(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.4028235e38}
	assert.Equal(t, in, DeserializeVector(SerializeVector(in)))
	assert.Len(t, SerializeVector(in), 16)
	assert.Empty(t, DeserializeVector(nil))
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 0}, b: []float32{1, 0}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "scaled", a: []float32{2, 0}, b: []float32{0.9, 0.1}, want: 0.993884},
		{name: "zero", a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
		{name: "mismatch", a: []float32{1}, b: []float32{1, 0}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-5)
		})
	}
}

func TestBuildSelection(t *testing.T) {
	// only the mattn driver ranks by cosine in SQL
	assert.Equal(t, DriverName == "sqlite3", CosineInSQL)
	assert.NotEmpty(t, BuildMode)

	var version string
	require.NoError(t, openTestDB(t).QueryRow("SELECT sqlite_version()").Scan(&version))
	assert.NotEmpty(t, version)
}
