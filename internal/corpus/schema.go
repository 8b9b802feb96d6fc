package corpus

import (
	"context"

	"github.com/argnews/newsrag/internal/storage"
)

const schemaTable = "corpus_schema_version"

var sqliteMigrations = []storage.Migration{
	{
		Version: "1.0.0",
		Up: `
CREATE TABLE IF NOT EXISTS newspapers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    url TEXT
);

CREATE TABLE IF NOT EXISTS sections (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS articles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    link TEXT NOT NULL UNIQUE,
    newspaper_id INTEGER NOT NULL REFERENCES newspapers(id),
    section_id INTEGER NOT NULL REFERENCES sections(id),
    published_at DATETIME,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_articles_section ON articles(section_id);
CREATE INDEX IF NOT EXISTS idx_articles_newspaper ON articles(newspaper_id);

CREATE TABLE IF NOT EXISTS processed_articles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    article_id INTEGER NOT NULL UNIQUE REFERENCES articles(id) ON DELETE CASCADE,
    processed_title TEXT NOT NULL,
    processed_content TEXT NOT NULL,
    keywords TEXT NOT NULL DEFAULT '',
    article_created_at DATETIME,
    processed_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`,
		Down: `
DROP TABLE IF EXISTS processed_articles;
DROP TABLE IF EXISTS articles;
DROP TABLE IF EXISTS sections;
DROP TABLE IF EXISTS newspapers;
`,
	},
}

var postgresMigrations = []storage.Migration{
	{
		Version: "1.0.0",
		Up: `
CREATE TABLE IF NOT EXISTS newspapers (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    url TEXT
);

CREATE TABLE IF NOT EXISTS sections (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS articles (
    id BIGSERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    link TEXT NOT NULL UNIQUE,
    newspaper_id BIGINT NOT NULL REFERENCES newspapers(id),
    section_id BIGINT NOT NULL REFERENCES sections(id),
    published_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_articles_section ON articles(section_id);
CREATE INDEX IF NOT EXISTS idx_articles_newspaper ON articles(newspaper_id);

CREATE TABLE IF NOT EXISTS processed_articles (
    id BIGSERIAL PRIMARY KEY,
    article_id BIGINT NOT NULL UNIQUE REFERENCES articles(id) ON DELETE CASCADE,
    processed_title TEXT NOT NULL,
    processed_content TEXT NOT NULL,
    keywords TEXT NOT NULL DEFAULT '',
    article_created_at TIMESTAMPTZ,
    processed_at TIMESTAMPTZ DEFAULT now()
);
`,
		Down: `
DROP TABLE IF EXISTS processed_articles;
DROP TABLE IF EXISTS articles;
DROP TABLE IF EXISTS sections;
DROP TABLE IF EXISTS newspapers;
`,
	},
}

// ApplyMigrations creates the article tables if they are missing. Against
// PostgreSQL this is only needed when the collector has not done it already.
func (d *DB) ApplyMigrations(ctx context.Context) error {
	m := &storage.Migrator{
		Table:      schemaTable,
		Migrations: sqliteMigrations,
		Rebind:     d.Rebind,
	}
	if d.IsPostgres() {
		m.Migrations = postgresMigrations
	}
	return m.Apply(ctx, d.DB.DB)
}
