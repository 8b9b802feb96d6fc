package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/argnews/newsrag/internal/config"
	"github.com/argnews/newsrag/internal/corpus"
	"github.com/argnews/newsrag/internal/embedder"
	"github.com/argnews/newsrag/internal/indexer"
	"github.com/argnews/newsrag/internal/logging"
	"github.com/argnews/newsrag/internal/searcher"
	"github.com/argnews/newsrag/internal/vectorstore"
	"github.com/argnews/newsrag/pkg/types"
)

// app is the composition root shared by the commands. Resources are opened
// on first use and released by close.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	flush func()

	mu     sync.Mutex
	db     *corpus.DB
	store  vectorstore.Store
	closed bool
}

func newApp(flags *rootFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}

	logger, flush, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: logger, flush: flush}, nil
}

func (a *app) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("closing vector store", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("closing article store", zap.Error(err))
		}
	}
	a.flush()
}

// corpusDB opens the article store.
func (a *app) corpusDB(ctx context.Context) (*corpus.DB, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db != nil {
		return a.db, nil
	}

	dbCfg := a.cfg.Database
	db, err := corpus.Open(ctx, dbCfg.Driver, dbCfg.DSN, corpus.Options{
		MaxOpenConns:    dbCfg.MaxOpenConns,
		MaxIdleConns:    dbCfg.MaxIdleConns,
		ConnMaxLifetime: dbCfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if dbCfg.Migrate {
		if err := db.ApplyMigrations(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("article store migrations: %w", err)
		}
	}
	a.log.Debug("article store opened", zap.String("driver", dbCfg.Driver))
	a.db = db
	return db, nil
}

// vectorStore opens the configured vector store backend.
func (a *app) vectorStore(ctx context.Context) (vectorstore.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store != nil {
		return a.store, nil
	}

	var (
		store vectorstore.Store
		err   error
	)
	switch a.cfg.VectorStore.Backend {
	case config.BackendElasticsearch:
		store, err = vectorstore.NewElasticStore(a.cfg.ElasticConfig(), a.log.Named("elasticsearch"))
	default:
		store, err = vectorstore.NewSQLiteStore(ctx, a.cfg.VectorStore.SQLitePath, a.log.Named("vectorstore"))
	}
	if err != nil {
		return nil, fmt.Errorf("open %s vector store: %w", a.cfg.VectorStore.Backend, err)
	}
	a.store = store
	return store, nil
}

// loadOptions returns the configured corpus filters.
func (a *app) loadOptions() corpus.LoadOptions {
	return corpus.LoadOptions{
		UseProcessed:    a.cfg.Index.UseProcessed,
		MinWords:        a.cfg.Index.MinWords,
		MaxWords:        a.cfg.Index.MaxWords,
		MinKeywordScore: a.cfg.Index.MinKeywordScore,
	}
}

func (a *app) loadRecords(ctx context.Context, opts corpus.LoadOptions) ([]types.Record, error) {
	db, err := a.corpusDB(ctx)
	if err != nil {
		return nil, err
	}
	records, err := corpus.NewLoader(db).Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, indexer.ErrEmptyCorpus
	}
	return records, nil
}

// articleSource opens the article store on first load, so searches over
// dense collections never touch it.
type articleSource struct {
	a *app
}

func (s articleSource) LoadWithStats(ctx context.Context, opts corpus.LoadOptions) ([]types.Record, corpus.LoadStats, error) {
	db, err := s.a.corpusDB(ctx)
	if err != nil {
		return nil, corpus.LoadStats{}, err
	}
	return corpus.NewLoader(db).LoadWithStats(ctx, opts)
}

// refitter builds query-time embedders. Lexical strategies are fitted on the
// corpus recorded with their collection at index time.
func (a *app) refitter(ctx context.Context) (*indexer.Refitter, error) {
	store, err := a.vectorStore(ctx)
	if err != nil {
		return nil, err
	}
	return indexer.NewRefitter(articleSource{a: a}, store, indexer.NewFactory(a.cfg.EmbedderBase()), indexer.RefitConfig{
		Fallback: a.loadOptions(),
		Logger:   a.log.Named("refit"),
	}), nil
}

// newSearcher wires the searcher over the vector store. seed, when non-nil,
// holds records already loaded with seedOpts.
func (a *app) newSearcher(ctx context.Context, seedOpts corpus.LoadOptions, seed []types.Record) (*searcher.Searcher, error) {
	store, err := a.vectorStore(ctx)
	if err != nil {
		return nil, err
	}
	strategy, err := embedder.ParseStrategy(a.cfg.Search.DefaultEmbedder)
	if err != nil {
		return nil, err
	}
	refit, err := a.refitter(ctx)
	if err != nil {
		return nil, err
	}
	if seed != nil {
		refit.Seed(seedOpts, seed)
	}
	return searcher.New(store, refit.Embedder, searcher.Config{
		CacheSize:       a.cfg.Search.CacheSize,
		CacheTTL:        a.cfg.Search.CacheTTL,
		DefaultStrategy: strategy,
		Logger:          a.log.Named("searcher"),
	}), nil
}

// withApp runs fn with a fresh app and always releases it.
func withApp(flags *rootFlags, fn func(a *app) error) error {
	a, err := newApp(flags)
	if err != nil {
		return err
	}
	defer a.close()

	if err := fn(a); err != nil {
		if !errors.Is(err, context.Canceled) {
			a.log.Debug("command failed", zap.Error(err))
		}
		return err
	}
	return nil
}
