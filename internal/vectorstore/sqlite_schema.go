package vectorstore

import "github.com/argnews/newsrag/internal/storage"

const schemaTable = "vector_schema_version"

var migrations = []storage.Migration{
	{
		Version: "1.0.0",
		Up: `
CREATE TABLE IF NOT EXISTS collections (
    name TEXT PRIMARY KEY,
    dimension INTEGER NOT NULL CHECK (dimension > 0),
    distance TEXT NOT NULL DEFAULT 'Cosine',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS points (
    collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
    id INTEGER NOT NULL,
    original_id INTEGER NOT NULL,
    title TEXT NOT NULL,
    section TEXT NOT NULL,
    published_at TEXT,
    newspaper TEXT NOT NULL,
    vector BLOB NOT NULL,
    PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_points_section ON points(collection, section);
CREATE INDEX IF NOT EXISTS idx_points_published_at ON points(collection, published_at);

CREATE TABLE IF NOT EXISTS point_keywords (
    collection TEXT NOT NULL,
    point_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    term TEXT NOT NULL,
    score REAL NOT NULL,
    PRIMARY KEY (collection, point_id, position),
    FOREIGN KEY (collection, point_id) REFERENCES points(collection, id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_point_keywords_term ON point_keywords(collection, term);
`,
		Down: `
DROP TABLE IF EXISTS point_keywords;
DROP TABLE IF EXISTS points;
DROP TABLE IF EXISTS collections;
`,
	},
	{
		Version: "1.1.0",
		Up:      `ALTER TABLE collections ADD COLUMN metadata TEXT NOT NULL DEFAULT '{}';`,
		Down:    `ALTER TABLE collections DROP COLUMN metadata;`,
	},
}
