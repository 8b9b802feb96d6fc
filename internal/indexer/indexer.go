package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/argnews/newsrag/internal/corpus"
	"github.com/argnews/newsrag/internal/embedder"
	"github.com/argnews/newsrag/internal/vectorstore"
	"github.com/argnews/newsrag/pkg/types"
)

// DefaultBatchSize is the number of points written per upsert.
const DefaultBatchSize = 100

var (
	// ErrIndexInProgress is returned when Run is called while another run is active
	ErrIndexInProgress = errors.New("indexing already in progress")
	// ErrEmptyCorpus is returned when no record passes the corpus filters
	ErrEmptyCorpus = errors.New("no articles match the corpus filters")
)

// Source loads corpus records. *corpus.Loader implements it.
type Source interface {
	LoadWithStats(ctx context.Context, opts corpus.LoadOptions) ([]types.Record, corpus.LoadStats, error)
}

// EmbedderFactory builds (and for lexical strategies, fits) an embedder.
type EmbedderFactory func(ctx context.Context, strategy embedder.Strategy, corpus []string) (embedder.Embedder, error)

// Indexer coordinates the indexing pipeline: load -> fit -> embed -> store
type Indexer struct {
	source      Source
	store       vectorstore.Store
	newEmbedder EmbedderFactory
	logger      *zap.Logger

	// Embedding concurrency within a batch
	concurrency int

	lock IndexLock
}

// Config contains configuration for the indexer
type Config struct {
	Concurrency int // concurrent Embed calls per batch (default: 1)
	Logger      *zap.Logger
}

// Options selects what a run indexes.
type Options struct {
	Strategy        embedder.Strategy
	UseProcessed    bool
	BatchSize       int // default: DefaultBatchSize
	MinKeywordScore float64
	MinWords        int
	MaxWords        int // 0 means no upper bound
	Limit           int // 0 means every record
}

func (o Options) loadOptions() corpus.LoadOptions {
	return corpus.LoadOptions{
		UseProcessed:    o.UseProcessed,
		MinWords:        o.MinWords,
		MaxWords:        o.MaxWords,
		MinKeywordScore: o.MinKeywordScore,
		Limit:           o.Limit,
	}
}

// Statistics contains statistics about an indexing run
type Statistics struct {
	Strategy   embedder.Strategy
	Collection string
	Dimension  int

	RecordsScanned int
	RecordsLoaded  int
	SkippedEmpty   int
	SkippedShort   int
	SkippedLong    int
	PointsIndexed  int
	Batches        int

	RecordsWithKeywords int
	UniqueKeywords      int
	AvgKeywords         float64 // per loaded record
	MinKeywordScore     float64 // lowest stored keyword score
	MaxKeywordScore     float64
	AvgKeywordScore     float64

	Duration time.Duration
}

// New creates a new Indexer instance
func New(source Source, store vectorstore.Store, factory EmbedderFactory, cfg Config) *Indexer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Indexer{
		source:      source,
		store:       store,
		newEmbedder: factory,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
	}
}

// Running reports whether a run is in progress.
func (idx *Indexer) Running() bool {
	return idx.lock.Held()
}

// Run rebuilds the collection of opts.Strategy from the corpus.
func (idx *Indexer) Run(ctx context.Context, opts Options) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrIndexInProgress
	}
	defer idx.lock.Release()

	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	start := time.Now()
	log := idx.logger.With(zap.String("strategy", string(opts.Strategy)))

	log.Info("loading articles",
		zap.Bool("use_processed", opts.UseProcessed),
		zap.Int("min_words", opts.MinWords),
		zap.Int("max_words", opts.MaxWords))
	loadOpts := opts.loadOptions()
	records, loadStats, err := idx.source.LoadWithStats(ctx, loadOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to load articles: %w", err)
	}
	records, blank := withText(records)
	if len(records) == 0 {
		return nil, ErrEmptyCorpus
	}
	log.Info("loaded articles", zap.Int("count", len(records)))

	stats := &Statistics{
		Strategy:       opts.Strategy,
		RecordsScanned: loadStats.Scanned,
		RecordsLoaded:  len(records),
		SkippedEmpty:   loadStats.Empty + blank,
		SkippedShort:   loadStats.TooShort,
		SkippedLong:    loadStats.TooLong,
	}
	keywordStatistics(records, stats)

	texts := make([]string, len(records))
	for i := range records {
		texts[i] = records[i].Text()
	}

	emb, err := idx.newEmbedder(ctx, opts.Strategy, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s embedder: %w", opts.Strategy, err)
	}
	defer func() { _ = emb.Close() }()

	stats.Collection = emb.CollectionName()
	stats.Dimension = emb.Dimension()

	log.Info("recreating collection",
		zap.String("collection", stats.Collection),
		zap.Int("dimension", stats.Dimension))
	if err := idx.store.RecreateCollection(ctx, stats.Collection, stats.Dimension); err != nil {
		return nil, fmt.Errorf("failed to recreate collection %s: %w", stats.Collection, err)
	}

	total := (len(records) + opts.BatchSize - 1) / opts.BatchSize
	for b := 0; b < total; b++ {
		lo := b * opts.BatchSize
		hi := lo + opts.BatchSize
		if hi > len(records) {
			hi = len(records)
		}

		points, err := idx.embedBatch(ctx, emb, records[lo:hi], int64(lo))
		if err == nil {
			err = idx.store.Upsert(ctx, stats.Collection, points)
		}
		if err != nil {
			return stats, fmt.Errorf("batch %d of %d failed after %d committed: %w", b+1, total, stats.Batches, err)
		}

		stats.Batches++
		stats.PointsIndexed += len(points)
		log.Debug("batch stored",
			zap.Int("batch", b+1),
			zap.Int("of", total),
			zap.Int("points", len(points)))
	}

	// Lexical query embedders are refitted from this at search time
	lineage := corpus.NewLineage(loadOpts, records)
	if err := idx.store.SetMetadata(ctx, stats.Collection, lineage.Metadata()); err != nil {
		return stats, fmt.Errorf("failed to record corpus lineage of %s: %w", stats.Collection, err)
	}

	stats.Duration = time.Since(start)
	log.Info("indexing complete",
		zap.String("collection", stats.Collection),
		zap.Int("points", stats.PointsIndexed),
		zap.Int("batches", stats.Batches),
		zap.Float64("avg_keywords", stats.AvgKeywords),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

// embedBatch embeds records concurrently. Point i of the batch gets id
// firstID+i whatever order the embeddings finish in.
func (idx *Indexer) embedBatch(ctx context.Context, emb embedder.Embedder, records []types.Record, firstID int64) ([]vectorstore.Point, error) {
	points := make([]vectorstore.Point, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)

	for i := range records {
		g.Go(func() error {
			vec, err := emb.Embed(gctx, records[i].Text())
			if err != nil {
				return fmt.Errorf("embed article %d: %w", records[i].ID, err)
			}
			points[i] = vectorstore.Point{
				ID:      firstID + int64(i),
				Vector:  vec,
				Payload: types.PayloadFromRecord(&records[i]),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

// withText drops records with blank text, which no embedder accepts.
func withText(records []types.Record) ([]types.Record, int) {
	kept := make([]types.Record, 0, len(records))
	for i := range records {
		if strings.TrimSpace(records[i].Text()) != "" {
			kept = append(kept, records[i])
		}
	}
	return kept, len(records) - len(kept)
}

func keywordStatistics(records []types.Record, stats *Statistics) {
	unique := make(map[string]struct{})
	var total, scored int
	var sum float64
	for i := range records {
		kws := records[i].Keywords
		if len(kws) == 0 {
			continue
		}
		stats.RecordsWithKeywords++
		total += len(kws)
		for _, kw := range kws {
			unique[kw.Term] = struct{}{}
			if scored == 0 || kw.Score < stats.MinKeywordScore {
				stats.MinKeywordScore = kw.Score
			}
			if scored == 0 || kw.Score > stats.MaxKeywordScore {
				stats.MaxKeywordScore = kw.Score
			}
			sum += kw.Score
			scored++
		}
	}
	stats.UniqueKeywords = len(unique)
	if len(records) > 0 {
		stats.AvgKeywords = float64(total) / float64(len(records))
	}
	if scored > 0 {
		stats.AvgKeywordScore = sum / float64(scored)
	}
}

// NewFactory adapts embedder.New to an EmbedderFactory using base for
// everything but the strategy.
func NewFactory(base embedder.Config) EmbedderFactory {
	return func(ctx context.Context, strategy embedder.Strategy, corpus []string) (embedder.Embedder, error) {
		cfg := base
		cfg.Strategy = strategy
		return embedder.New(ctx, cfg, corpus)
	}
}
