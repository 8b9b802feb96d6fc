package indexer

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/argnews/newsrag/internal/corpus"
	"github.com/argnews/newsrag/internal/embedder"
	"github.com/argnews/newsrag/internal/vectorstore"
	"github.com/argnews/newsrag/pkg/types"
)

// RefitConfig configures a Refitter.
type RefitConfig struct {
	// Fallback loads the corpus of collections indexed without a lineage.
	Fallback corpus.LoadOptions
	Logger   *zap.Logger
}

// Refitter builds query-time embedders. Lexical strategies are fitted on the
// corpus recorded in their collection's lineage, so query vectors share the
// vocabulary of the indexed points. A corpus that no longer matches the
// lineage fails with corpus.ErrCorpusChanged.
type Refitter struct {
	source   Source
	store    vectorstore.Store
	factory  EmbedderFactory
	fallback corpus.LoadOptions
	logger   *zap.Logger

	mu      sync.Mutex
	corpora map[corpus.LoadOptions][]types.Record
}

// NewRefitter creates a Refitter over the article source and vector store.
func NewRefitter(source Source, store vectorstore.Store, factory EmbedderFactory, cfg RefitConfig) *Refitter {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Refitter{
		source:   source,
		store:    store,
		factory:  factory,
		fallback: cfg.Fallback,
		logger:   cfg.Logger,
		corpora:  make(map[corpus.LoadOptions][]types.Record),
	}
}

// Seed registers records already loaded with opts so they are not loaded again.
func (r *Refitter) Seed(opts corpus.LoadOptions, records []types.Record) {
	kept, _ := withText(records)
	r.mu.Lock()
	r.corpora[opts] = kept
	r.mu.Unlock()
}

// Embedder builds the embedder for strategy. Its signature matches
// searcher.EmbedderProvider.
func (r *Refitter) Embedder(ctx context.Context, strategy embedder.Strategy) (embedder.Embedder, error) {
	if !strategy.Lexical() {
		return r.factory(ctx, strategy, nil)
	}

	records, err := r.indexedCorpus(ctx, strategy.CollectionName())
	if err != nil {
		return nil, fmt.Errorf("fit %s: %w", strategy, err)
	}
	texts := make([]string, len(records))
	for i := range records {
		texts[i] = records[i].Text()
	}
	return r.factory(ctx, strategy, texts)
}

// indexedCorpus returns the records collection was indexed from.
func (r *Refitter) indexedCorpus(ctx context.Context, collection string) ([]types.Record, error) {
	info, err := r.store.CollectionInfo(ctx, collection)
	if err != nil {
		return nil, err
	}
	lineage, ok, err := corpus.LineageFromMetadata(info.Metadata)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", collection, err)
	}

	opts := r.fallback
	if ok {
		opts = lineage.Options
	} else {
		r.logger.Warn("collection has no corpus lineage; fitting on configured corpus",
			zap.String("collection", collection))
	}

	records, err := r.load(ctx, opts)
	if err != nil {
		return nil, err
	}
	if ok {
		if err := lineage.Verify(records); err != nil {
			return nil, fmt.Errorf("collection %s must be reindexed: %w", collection, err)
		}
	}
	return records, nil
}

func (r *Refitter) load(ctx context.Context, opts corpus.LoadOptions) ([]types.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if records, ok := r.corpora[opts]; ok {
		return records, nil
	}

	r.logger.Info("loading corpus to fit lexical embedder",
		zap.Bool("use_processed", opts.UseProcessed),
		zap.Int("min_words", opts.MinWords),
		zap.Int("max_words", opts.MaxWords))
	records, _, err := r.source.LoadWithStats(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load articles: %w", err)
	}
	records, _ = withText(records)
	if len(records) == 0 {
		return nil, ErrEmptyCorpus
	}
	r.corpora[opts] = records
	return records, nil
}
