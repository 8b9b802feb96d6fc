package corpus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/argnews/newsrag/internal/storage"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	// Let sqlx rebind for the pure Go driver name too
	sqlx.BindDriver(storage.DriverName, sqlx.QUESTION)
}

// Options configures the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB is a handle to the article store.
type DB struct {
	*sqlx.DB
}

// Open connects to the article store. driver is "postgres" or "sqlite".
func Open(ctx context.Context, driver, dsn string, opts Options) (*DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}

	switch strings.ToLower(driver) {
	case DriverPostgres, "postgresql":
		db, err := sqlx.Open(DriverPostgres, dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			db.SetMaxIdleConns(opts.MaxIdleConns)
		}
		if opts.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(opts.ConnMaxLifetime)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		return &DB{DB: db}, nil
	case DriverSQLite, "sqlite3":
		raw, err := storage.Open(dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &DB{DB: sqlx.NewDb(raw, storage.DriverName)}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// IsPostgres reports whether the handle talks to PostgreSQL.
func (d *DB) IsPostgres() bool {
	return d.DriverName() == DriverPostgres
}
