// Package config loads newsrag configuration from a YAML file and
// NEWSRAG_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/argnews/newsrag/internal/corpus"
	"github.com/argnews/newsrag/internal/embedder"
	"github.com/argnews/newsrag/internal/evaluation"
	"github.com/argnews/newsrag/internal/vectorstore"
	"github.com/argnews/newsrag/pkg/types"
)

// EnvPrefix prefixes environment overrides, e.g. NEWSRAG_DATABASE_DSN.
const EnvPrefix = "NEWSRAG"

// Vector store backends
const (
	BackendSQLite        = "sqlite"
	BackendElasticsearch = "elasticsearch"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// DatabaseConfig points at the article store.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Migrate         bool          `mapstructure:"migrate"` // create the consumed tables if missing
}

// ElasticsearchConfig configures the Elasticsearch vector store.
type ElasticsearchConfig struct {
	Addresses []string      `mapstructure:"addresses"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	Backend       string              `mapstructure:"backend"`
	SQLitePath    string              `mapstructure:"sqlite_path"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

// DenseConfig configures the pretrained encoders.
type DenseConfig struct {
	Backend     string                                     `mapstructure:"backend"`
	ONNXLibrary string                                     `mapstructure:"onnx_library"`
	Models      map[embedder.Strategy]embedder.ModelConfig `mapstructure:"models"`
}

// EmbedderConfig configures all strategies.
type EmbedderConfig struct {
	Dimension   int           `mapstructure:"dimension"`
	CacheSize   int           `mapstructure:"cache_size"`
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Dense       DenseConfig   `mapstructure:"dense"`
}

// IndexConfig holds indexing defaults.
type IndexConfig struct {
	BatchSize       int     `mapstructure:"batch_size"`
	MinWords        int     `mapstructure:"min_words"`
	MaxWords        int     `mapstructure:"max_words"`
	MinKeywordScore float64 `mapstructure:"min_keyword_score"`
	UseProcessed    bool    `mapstructure:"use_processed"`
}

// SearchConfig holds searcher defaults.
type SearchConfig struct {
	DefaultEmbedder string        `mapstructure:"default_embedder"`
	CacheSize       int           `mapstructure:"cache_size"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
}

// EvaluationConfig holds evaluation defaults.
type EvaluationConfig struct {
	K                int     `mapstructure:"k"`
	KeywordThreshold float64 `mapstructure:"keyword_threshold"`
	MinTermLength    int     `mapstructure:"min_term_length"`
	OutputDir        string  `mapstructure:"output_dir"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Config is the full application configuration.
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	VectorStore VectorStoreConfig `mapstructure:"vectorstore"`
	Embedder    EmbedderConfig    `mapstructure:"embedder"`
	Index       IndexConfig       `mapstructure:"index"`
	Search      SearchConfig      `mapstructure:"search"`
	Evaluation  EvaluationConfig  `mapstructure:"evaluation"`
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrate", false)

	v.SetDefault("vectorstore.backend", BackendSQLite)
	v.SetDefault("vectorstore.sqlite_path", "newsrag_vectors.db")
	v.SetDefault("vectorstore.elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("vectorstore.elasticsearch.timeout", "30s")

	v.SetDefault("embedder.dimension", embedder.DefaultLexicalDimension)
	v.SetDefault("embedder.cache_size", embedder.DefaultCacheSize)
	v.SetDefault("embedder.concurrency", 4)
	v.SetDefault("embedder.timeout", embedder.DefaultRequestTimeout)
	v.SetDefault("embedder.dense.backend", embedder.BackendONNX)

	v.SetDefault("index.batch_size", 100)
	v.SetDefault("index.min_words", corpus.DefaultMinWords)
	v.SetDefault("index.max_words", corpus.DefaultMaxWords)
	v.SetDefault("index.min_keyword_score", 0.0)
	v.SetDefault("index.use_processed", false)

	v.SetDefault("search.default_embedder", string(embedder.StrategyMiniLM))
	v.SetDefault("search.cache_size", 1000)
	v.SetDefault("search.cache_ttl", "1h")

	v.SetDefault("evaluation.k", evaluation.DefaultK)
	v.SetDefault("evaluation.keyword_threshold", evaluation.DefaultKeywordThreshold)
	v.SetDefault("evaluation.min_term_length", 0)
	v.SetDefault("evaluation.output_dir", "evaluation_results")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.request_timeout", "20s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
}

// Load reads the configuration. path may be empty, a YAML file, or a
// directory searched for newsrag.yaml. A missing file is not an error when
// no explicit file was given.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("newsrag")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	explicit := strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
	switch {
	case explicit:
		v.SetConfigFile(path)
	case path != "":
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enums and ranges.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "postgresql", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("%w: database.driver %q", ErrInvalid, c.Database.Driver)
	}

	switch c.VectorStore.Backend {
	case BackendSQLite:
		if c.VectorStore.SQLitePath == "" {
			return fmt.Errorf("%w: vectorstore.sqlite_path is empty", ErrInvalid)
		}
	case BackendElasticsearch:
		if len(c.VectorStore.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("%w: vectorstore.elasticsearch.addresses is empty", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: vectorstore.backend %q", ErrInvalid, c.VectorStore.Backend)
	}

	switch c.Embedder.Dense.Backend {
	case embedder.BackendONNX, embedder.BackendHTTP:
	default:
		return fmt.Errorf("%w: embedder.dense.backend %q", ErrInvalid, c.Embedder.Dense.Backend)
	}
	if c.Embedder.Dimension <= 0 {
		return fmt.Errorf("%w: embedder.dimension must be positive", ErrInvalid)
	}
	if c.Embedder.Concurrency <= 0 {
		return fmt.Errorf("%w: embedder.concurrency must be positive", ErrInvalid)
	}
	if _, err := embedder.ParseStrategy(c.Search.DefaultEmbedder); err != nil {
		return fmt.Errorf("%w: search.default_embedder: %v", ErrInvalid, err)
	}

	if c.Index.BatchSize <= 0 {
		return fmt.Errorf("%w: index.batch_size must be positive", ErrInvalid)
	}
	if c.Index.MinWords < 0 || c.Index.MaxWords < c.Index.MinWords {
		return fmt.Errorf("%w: index word range [%d, %d]", ErrInvalid, c.Index.MinWords, c.Index.MaxWords)
	}

	if c.Evaluation.K <= 0 || c.Evaluation.K > types.MaxLimit {
		return fmt.Errorf("%w: evaluation.k must be in [1, %d], got %d", ErrInvalid, types.MaxLimit, c.Evaluation.K)
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

// EmbedderBase returns the embedder settings shared by every strategy.
func (c *Config) EmbedderBase() embedder.Config {
	return embedder.Config{
		Dimension:    c.Embedder.Dimension,
		CacheSize:    c.Embedder.CacheSize,
		DenseBackend: c.Embedder.Dense.Backend,
		ONNXLibrary:  c.Embedder.Dense.ONNXLibrary,
		Timeout:      c.Embedder.Timeout,
		Models:       c.Embedder.Dense.Models,
	}
}

// ElasticConfig converts the Elasticsearch section for the vector store.
func (c *Config) ElasticConfig() vectorstore.ElasticConfig {
	es := c.VectorStore.Elasticsearch
	return vectorstore.ElasticConfig{
		Addresses: es.Addresses,
		Username:  es.Username,
		Password:  es.Password,
		APIKey:    es.APIKey,
		Timeout:   es.Timeout,
	}
}
