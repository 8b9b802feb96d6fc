package vectorstore

import (
	"context"
	"errors"

	"github.com/argnews/newsrag/internal/keywords"
	"github.com/argnews/newsrag/pkg/types"
)

var (
	// ErrCollectionNotFound is returned for operations on a missing collection
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrDimensionMismatch is returned when a vector does not fit the collection
	ErrDimensionMismatch = errors.New("vector dimension does not match collection")
	// ErrUnsupportedFilter is returned for conditions a backend cannot express
	ErrUnsupportedFilter = errors.New("unsupported filter condition")
	// ErrMisaligned is returned when stored keyword terms and scores cannot be paired
	ErrMisaligned = keywords.ErrMisaligned
)

// Distance is the similarity metric of a collection.
type Distance string

// DistanceCosine is the only metric used.
const DistanceCosine Distance = "Cosine"

// Collection describes a stored collection.
type Collection struct {
	Name        string   `json:"name"`
	Dimension   int      `json:"dimension"`
	Distance    Distance `json:"distance"`
	PointsCount int64    `json:"points_count"`

	// Metadata is free-form provenance recorded by the indexer.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Point is a vector with its payload.
type Point struct {
	ID      int64
	Vector  []float32
	Payload types.Payload
}

// Store is implemented by every vector-store backend.
type Store interface {
	// RecreateCollection drops name if it exists and creates it empty.
	RecreateCollection(ctx context.Context, name string, dimension int) error
	DeleteCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]Collection, error)
	CollectionInfo(ctx context.Context, name string) (*Collection, error)

	// SetMetadata replaces the metadata of an existing collection.
	SetMetadata(ctx context.Context, name string, md map[string]string) error

	// Upsert writes one batch atomically. Points with existing ids are replaced.
	Upsert(ctx context.Context, name string, points []Point) error

	// Search returns the limit points most similar to vector among those
	// matching filter, by descending cosine similarity.
	Search(ctx context.Context, name string, vector []float32, filter *Filter, limit int) ([]types.SearchResult, error)

	// SearchSimilar is Search restricted to similarity >= threshold.
	SearchSimilar(ctx context.Context, name string, vector []float32, filter *Filter, limit int, threshold float64) ([]types.SearchResult, error)

	// Scroll returns up to limit matching points in id order, without scores.
	Scroll(ctx context.Context, name string, filter *Filter, limit int) ([]types.SearchResult, error)

	// Retrieve returns the points with the given ids, skipping missing ones.
	Retrieve(ctx context.Context, name string, ids []int64) ([]types.SearchResult, error)

	Close() error
}
