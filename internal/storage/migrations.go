package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// Migrator applies an ordered set of migrations and records them in its own
// version table, so several schemas can share one database.
type Migrator struct {
	Table      string
	Migrations []Migration

	// Rebind converts "?" placeholders for drivers that need another style.
	Rebind func(string) string
}

func (m *Migrator) rebind(q string) string {
	if m.Rebind == nil {
		return q
	}
	return m.Rebind(q)
}

func (m *Migrator) ensureTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`, m.Table))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", m.Table, err)
	}
	return nil
}

// CurrentVersion returns the highest applied version, or 0.0.0.
func (m *Migrator) CurrentVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	if err := m.ensureTable(ctx, db); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT version FROM %s", m.Table))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", m.Table, err)
	}
	defer func() { _ = rows.Close() }()

	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		v, err := semver.NewVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %s: %w", raw, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}

// Apply runs all pending migrations in semver order
func (m *Migrator) Apply(ctx context.Context, db *sql.DB) error {
	current, err := m.CurrentVersion(ctx, db)
	if err != nil {
		return err
	}

	pending, err := m.sorted()
	if err != nil {
		return err
	}

	for _, mig := range pending {
		if !current.LessThan(mig.version) {
			continue // Already applied
		}

		err := WithTx(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, mig.Up); err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", mig.Version, err)
			}
			_, err := tx.ExecContext(ctx, m.rebind(fmt.Sprintf("INSERT INTO %s (version) VALUES (?)", m.Table)), mig.Version)
			if err != nil {
				return fmt.Errorf("failed to record migration %s: %w", mig.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		current = mig.version
	}

	return nil
}

// Rollback reverts the most recent migration
func (m *Migrator) Rollback(ctx context.Context, db *sql.DB) error {
	current, err := m.CurrentVersion(ctx, db)
	if err != nil {
		return err
	}
	if current.Equal(semver.MustParse("0.0.0")) {
		return fmt.Errorf("no migrations to rollback in %s", m.Table)
	}

	var target *Migration
	for i := range m.Migrations {
		v, err := semver.NewVersion(m.Migrations[i].Version)
		if err == nil && v.Equal(current) {
			target = &m.Migrations[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration %s not found", current)
	}

	return WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, target.Down); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", target.Version, err)
		}
		_, err := tx.ExecContext(ctx, m.rebind(fmt.Sprintf("DELETE FROM %s WHERE version = ?", m.Table)), target.Version)
		if err != nil {
			return fmt.Errorf("failed to remove migration record %s: %w", target.Version, err)
		}
		return nil
	})
}

type versionedMigration struct {
	Migration
	version *semver.Version
}

func (m *Migrator) sorted() ([]versionedMigration, error) {
	out := make([]versionedMigration, 0, len(m.Migrations))
	for _, mig := range m.Migrations {
		v, err := semver.NewVersion(mig.Version)
		if err != nil {
			return nil, fmt.Errorf("invalid migration version %s: %w", mig.Version, err)
		}
		out = append(out, versionedMigration{Migration: mig, version: v})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].version.LessThan(out[j].version)
	})
	return out, nil
}
