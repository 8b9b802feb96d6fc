package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argnews/newsrag/internal/embedder"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "newsrag.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, BackendSQLite, cfg.VectorStore.Backend)
	assert.Equal(t, embedder.DefaultLexicalDimension, cfg.Embedder.Dimension)
	assert.Equal(t, 100, cfg.Index.BatchSize)
	assert.Equal(t, time.Hour, cfg.Search.CacheTTL)
	assert.Equal(t, 5, cfg.Evaluation.K)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
  dsn: ":memory:"
vectorstore:
  backend: elasticsearch
  elasticsearch:
    addresses: ["http://es:9200"]
    timeout: 5s
embedder:
  dense:
    backend: http
    models:
      minilm:
        endpoint: http://encoder:8000/v1/embeddings
        dimension: 384
index:
  batch_size: 32
log:
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, []string{"http://es:9200"}, cfg.VectorStore.Elasticsearch.Addresses)
	assert.Equal(t, 5*time.Second, cfg.ElasticConfig().Timeout)
	assert.Equal(t, 32, cfg.Index.BatchSize)
	assert.Equal(t, "json", cfg.Log.Format)

	base := cfg.EmbedderBase()
	assert.Equal(t, embedder.BackendHTTP, base.DenseBackend)
	require.Contains(t, base.Models, embedder.StrategyMiniLM)
	assert.Equal(t, "http://encoder:8000/v1/embeddings", base.Models[embedder.StrategyMiniLM].Endpoint)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("NEWSRAG_DATABASE_DSN", "postgres://news@db/news")
	t.Setenv("NEWSRAG_INDEX_BATCH_SIZE", "7")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "postgres://news@db/news", cfg.Database.DSN)
	assert.Equal(t, 7, cfg.Index.BatchSize)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base, err := Load(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"backend", func(c *Config) { c.VectorStore.Backend = "qdrant" }},
		{"es addresses", func(c *Config) {
			c.VectorStore.Backend = BackendElasticsearch
			c.VectorStore.Elasticsearch.Addresses = nil
		}},
		{"dense backend", func(c *Config) { c.Embedder.Dense.Backend = "grpc" }},
		{"default embedder", func(c *Config) { c.Search.DefaultEmbedder = "word2vec" }},
		{"batch size", func(c *Config) { c.Index.BatchSize = 0 }},
		{"word range", func(c *Config) { c.Index.MinWords, c.Index.MaxWords = 10, 5 }},
		{"k", func(c *Config) { c.Evaluation.K = 0 }},
		{"k above result limit", func(c *Config) { c.Evaluation.K = 101 }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *base
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalid)
		})
	}
}
