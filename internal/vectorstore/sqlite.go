package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/argnews/newsrag/internal/storage"
	"github.com/argnews/newsrag/pkg/types"
)

// SQLiteStore is a Store backed by a single SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the database at path and migrates it.
func NewSQLiteStore(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &storage.Migrator{Table: schemaTable, Migrations: migrations}
	if err := m.Apply(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate vector store: %w", err)
	}

	logger.Debug("vector store opened",
		zap.String("path", path),
		zap.String("build_mode", storage.BuildMode))
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecreateCollection drops the collection and its points, then creates it empty.
func (s *SQLiteStore) RecreateCollection(ctx context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrDimensionMismatch, dimension)
	}
	err := storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", name); err != nil {
			return fmt.Errorf("failed to drop collection %s: %w", name, err)
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO collections (name, dimension, distance) VALUES (?, ?, ?)",
			name, dimension, string(DistanceCosine))
		if err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("collection recreated", zap.String("collection", name), zap.Int("dimension", dimension))
	return nil
}

// DeleteCollection removes the collection and all of its points.
func (s *SQLiteStore) DeleteCollection(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	s.logger.Info("collection deleted", zap.String("collection", name))
	return nil
}

const collectionColumns = `
	SELECT c.name, c.dimension, c.distance, c.metadata,
		(SELECT COUNT(*) FROM points p WHERE p.collection = c.name)
	FROM collections c`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCollection(row rowScanner) (Collection, error) {
	var c Collection
	var distance, metadata string
	if err := row.Scan(&c.Name, &c.Dimension, &distance, &metadata, &c.PointsCount); err != nil {
		return c, err
	}
	c.Distance = Distance(distance)
	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &c.Metadata); err != nil {
			return c, fmt.Errorf("collection %s has corrupt metadata: %w", c.Name, err)
		}
	}
	return c, nil
}

// ListCollections returns all collections ordered by name.
func (s *SQLiteStore) ListCollections(ctx context.Context) ([]Collection, error) {
	rows, err := s.db.QueryContext(ctx, collectionColumns+" ORDER BY c.name")
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]Collection, 0)
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CollectionInfo returns the collection's dimension and point count.
func (s *SQLiteStore) CollectionInfo(ctx context.Context, name string) (*Collection, error) {
	return s.collectionInfo(ctx, s.db, name)
}

func (s *SQLiteStore) collectionInfo(ctx context.Context, q storage.Querier, name string) (*Collection, error) {
	c, err := scanCollection(q.QueryRowContext(ctx, collectionColumns+" WHERE c.name = ?", name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection %s: %w", name, err)
	}
	return &c, nil
}

// SetMetadata stores md as the collection's metadata, replacing what was there.
func (s *SQLiteStore) SetMetadata(ctx context.Context, name string, md map[string]string) error {
	if md == nil {
		md = map[string]string{}
	}
	raw, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	res, err := s.db.ExecContext(ctx, "UPDATE collections SET metadata = ? WHERE name = ?", string(raw), name)
	if err != nil {
		return fmt.Errorf("failed to set metadata of %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return nil
}

// Upsert writes points in one transaction. Existing ids are replaced along
// with their keywords.
func (s *SQLiteStore) Upsert(ctx context.Context, name string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	return storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		info, err := s.collectionInfo(ctx, tx, name)
		if err != nil {
			return err
		}

		for i := range points {
			p := &points[i]
			if len(p.Vector) != info.Dimension {
				return fmt.Errorf("%w: point %d has %d values, collection %s expects %d",
					ErrDimensionMismatch, p.ID, len(p.Vector), name, info.Dimension)
			}
			if err := upsertPoint(ctx, tx, name, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertPoint(ctx context.Context, tx *sql.Tx, collection string, p *Point) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM point_keywords WHERE collection = ? AND point_id = ?", collection, p.ID); err != nil {
		return fmt.Errorf("failed to clear keywords of point %d: %w", p.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM points WHERE collection = ? AND id = ?", collection, p.ID); err != nil {
		return fmt.Errorf("failed to clear point %d: %w", p.ID, err)
	}

	var publishedAt interface{}
	if p.Payload.PublishedAt != nil {
		publishedAt = *p.Payload.PublishedAt
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO points (collection, id, original_id, title, section, published_at, newspaper, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		collection, p.ID, p.Payload.OriginalID, p.Payload.Title, p.Payload.Section,
		publishedAt, p.Payload.Newspaper, storage.SerializeVector(p.Vector))
	if err != nil {
		return fmt.Errorf("failed to insert point %d: %w", p.ID, err)
	}

	for pos, kw := range p.Payload.Keywords {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO point_keywords (collection, point_id, position, term, score) VALUES (?, ?, ?, ?, ?)",
			collection, p.ID, pos, kw.Term, kw.Score)
		if err != nil {
			return fmt.Errorf("failed to insert keyword of point %d: %w", p.ID, err)
		}
	}
	return nil
}

// Search ranks matching points by cosine similarity.
func (s *SQLiteStore) Search(ctx context.Context, name string, vector []float32, filter *Filter, limit int) ([]types.SearchResult, error) {
	return s.search(ctx, name, vector, filter, limit, nil)
}

// SearchSimilar is Search restricted to scores of at least threshold.
func (s *SQLiteStore) SearchSimilar(ctx context.Context, name string, vector []float32, filter *Filter, limit int, threshold float64) ([]types.SearchResult, error) {
	return s.search(ctx, name, vector, filter, limit, &threshold)
}

func (s *SQLiteStore) search(ctx context.Context, name string, vector []float32, filter *Filter, limit int, threshold *float64) ([]types.SearchResult, error) {
	info, err := s.collectionInfo(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	if len(vector) != info.Dimension {
		return nil, fmt.Errorf("%w: query has %d values, collection %s expects %d",
			ErrDimensionMismatch, len(vector), name, info.Dimension)
	}
	if limit <= 0 {
		return []types.SearchResult{}, nil
	}

	where, args, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}

	var candidates []candidate
	if storage.CosineInSQL {
		candidates, err = s.searchOptimized(ctx, name, vector, where, args, limit, threshold)
	} else {
		candidates, err = s.searchFallback(ctx, name, vector, where, args, limit, threshold)
	}
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	payloads, err := s.loadPayloads(ctx, name, ids)
	if err != nil {
		return nil, err
	}

	results := make([]types.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		payload, ok := payloads[c.id]
		if !ok {
			continue
		}
		score := c.score
		results = append(results, types.NewSearchResult(c.id, &score, payload))
	}
	return results, nil
}

// searchOptimized computes similarity inside SQLite with vec_distance_cosine.
func (s *SQLiteStore) searchOptimized(ctx context.Context, name string, vector []float32, where string, filterArgs []interface{}, limit int, threshold *float64) ([]candidate, error) {
	blob := storage.SerializeVector(vector)

	// vec_distance_cosine returns a distance; 1 - distance is the similarity
	query := `
		SELECT p.id, 1.0 - vec_distance_cosine(p.vector, ?) AS similarity
		FROM points p
		WHERE p.collection = ?` + where
	args := append([]interface{}{blob, name}, filterArgs...)

	if threshold != nil {
		query += " AND (1.0 - vec_distance_cosine(p.vector, ?)) >= ?"
		args = append(args, blob, *threshold)
	}

	query += " ORDER BY similarity DESC, p.id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]candidate, 0, limit)
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// searchFallback scores every filtered candidate in Go.
func (s *SQLiteStore) searchFallback(ctx context.Context, name string, vector []float32, where string, filterArgs []interface{}, limit int, threshold *float64) ([]candidate, error) {
	query := "SELECT p.id, p.vector FROM points p WHERE p.collection = ?" + where
	args := append([]interface{}{name}, filterArgs...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]candidate, 0, 256)
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		stored := storage.DeserializeVector(blob)
		if len(stored) != len(vector) {
			continue
		}
		score := storage.CosineSimilarity(vector, stored)
		if threshold != nil && score < *threshold {
			continue
		}
		candidates = append(candidates, candidate{id: id, score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// Scroll returns up to limit matching points ordered by id, with no score.
func (s *SQLiteStore) Scroll(ctx context.Context, name string, filter *Filter, limit int) ([]types.SearchResult, error) {
	if _, err := s.collectionInfo(ctx, s.db, name); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []types.SearchResult{}, nil
	}

	where, filterArgs, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}

	query := "SELECT p.id FROM points p WHERE p.collection = ?" + where + " ORDER BY p.id LIMIT ?"
	args := append([]interface{}{name}, filterArgs...)
	args = append(args, limit)

	ids, err := s.queryIDs(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scroll %s: %w", name, err)
	}
	return s.resultsFor(ctx, name, ids)
}

// Retrieve returns the points with the given ids in the requested order.
func (s *SQLiteStore) Retrieve(ctx context.Context, name string, ids []int64) ([]types.SearchResult, error) {
	if _, err := s.collectionInfo(ctx, s.db, name); err != nil {
		return nil, err
	}
	return s.resultsFor(ctx, name, ids)
}

func (s *SQLiteStore) resultsFor(ctx context.Context, name string, ids []int64) ([]types.SearchResult, error) {
	payloads, err := s.loadPayloads(ctx, name, ids)
	if err != nil {
		return nil, err
	}
	results := make([]types.SearchResult, 0, len(ids))
	for _, id := range ids {
		if payload, ok := payloads[id]; ok {
			results = append(results, types.NewSearchResult(id, nil, payload))
		}
	}
	return results, nil
}

func (s *SQLiteStore) queryIDs(ctx context.Context, query string, args ...interface{}) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// loadPayloads fetches payloads for ids, with keywords in stored order.
func (s *SQLiteStore) loadPayloads(ctx context.Context, name string, ids []int64) (map[int64]types.Payload, error) {
	payloads := make(map[int64]types.Payload, len(ids))
	if len(ids) == 0 {
		return payloads, nil
	}

	in, idArgs := placeholders(ids)
	args := append([]interface{}{name}, idArgs...)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, original_id, title, section, published_at, newspaper
		FROM points WHERE collection = ? AND id IN (`+in+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load payloads: %w", err)
	}
	for rows.Next() {
		var id int64
		var p types.Payload
		var publishedAt sql.NullString
		if err := rows.Scan(&id, &p.OriginalID, &p.Title, &p.Section, &publishedAt, &p.Newspaper); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if publishedAt.Valid {
			date := publishedAt.String
			p.PublishedAt = &date
		}
		p.Keywords = []types.Keyword{}
		payloads[id] = p
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	kwRows, err := s.db.QueryContext(ctx, `
		SELECT point_id, term, score
		FROM point_keywords WHERE collection = ? AND point_id IN (`+in+`)
		ORDER BY point_id, position`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load keywords: %w", err)
	}
	defer func() { _ = kwRows.Close() }()

	for kwRows.Next() {
		var id int64
		var kw types.Keyword
		if err := kwRows.Scan(&id, &kw.Term, &kw.Score); err != nil {
			return nil, err
		}
		p, ok := payloads[id]
		if !ok {
			return nil, fmt.Errorf("%w: keywords without point %d", ErrMisaligned, id)
		}
		p.Keywords = append(p.Keywords, kw)
		payloads[id] = p
	}
	return payloads, kwRows.Err()
}

// compileFilter renders filter as " AND ..." clauses over points aliased p.
func compileFilter(filter *Filter) (string, []interface{}, error) {
	if filter.Empty() {
		return "", nil, nil
	}

	var sb strings.Builder
	var args []interface{}
	for _, c := range filter.Must {
		clause, clauseArgs, err := compileCondition(c)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" AND ")
		sb.WriteString(clause)
		args = append(args, clauseArgs...)
	}
	return sb.String(), args, nil
}

const keywordExists = "EXISTS (SELECT 1 FROM point_keywords k WHERE k.collection = p.collection AND k.point_id = p.id AND "

func compileCondition(c Condition) (string, []interface{}, error) {
	switch c.Key {
	case KeySection, KeyNewspaper, KeyPublishedAt, KeyTitle:
		column := "p." + c.Key
		switch c.Kind {
		case MatchValue:
			return column + " = ?", []interface{}{c.Value}, nil
		case MatchAny:
			in, args := placeholders(c.Any)
			return column + " IN (" + in + ")", args, nil
		}
	case KeyKeywords:
		switch c.Kind {
		case MatchValue:
			return keywordExists + "k.term = ?)", []interface{}{c.Value}, nil
		case MatchAny:
			in, args := placeholders(c.Any)
			return keywordExists + "k.term IN (" + in + "))", args, nil
		}
	case KeyKeywordScores:
		if c.Kind == Range {
			return keywordExists + "k.score >= ?)", []interface{}{c.GTE}, nil
		}
	}
	return "", nil, fmt.Errorf("%w: %s on %s", ErrUnsupportedFilter, c.Kind, c.Key)
}

func placeholders[T any](values []T) (string, []interface{}) {
	if len(values) == 0 {
		// IN () is a syntax error; NULL never matches
		return "NULL", nil
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(values)), ","), args
}

// candidate is a point id with its similarity score
type candidate struct {
	id    int64
	score float64
}

// sortCandidates orders by score descending, then id ascending.
func sortCandidates(candidates []candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})
}
