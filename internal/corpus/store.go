package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/argnews/newsrag/pkg/types"
)

// EnsureNewspaper returns the id of the named newspaper, creating it if needed.
func (d *DB) EnsureNewspaper(ctx context.Context, name string) (int64, error) {
	return d.ensureNamed(ctx, "newspapers", name)
}

// EnsureSection returns the id of the named section, creating it if needed.
func (d *DB) EnsureSection(ctx context.Context, name string) (int64, error) {
	return d.ensureNamed(ctx, "sections", name)
}

func (d *DB) ensureNamed(ctx context.Context, table, name string) (int64, error) {
	var id int64
	err := d.GetContext(ctx, &id, d.Rebind(fmt.Sprintf("SELECT id FROM %s WHERE name = ?", table)), name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up %s %q: %w", table, name, err)
	}

	err = d.QueryRowxContext(ctx, d.Rebind(fmt.Sprintf("INSERT INTO %s (name) VALUES (?) RETURNING id", table)), name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s %q: %w", table, name, err)
	}
	return id, nil
}

// InsertArticle stores a raw article unless one with the same link exists.
// It returns the article id and whether a new row was created.
func (d *DB) InsertArticle(ctx context.Context, a *types.Article) (int64, bool, error) {
	var id int64
	err := d.GetContext(ctx, &id, d.Rebind("SELECT id FROM articles WHERE link = ?"), a.Link)
	if err == nil {
		a.ID = id
		return id, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("failed to look up article: %w", err)
	}

	query := d.Rebind(`
		INSERT INTO articles (title, content, link, newspaper_id, section_id, published_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	var published interface{}
	if a.PublishedAt != nil {
		published = *a.PublishedAt
	}
	err = d.QueryRowxContext(ctx, query, a.Title, a.Content, a.Link, a.NewspaperID, a.SectionID, published).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("failed to insert article: %w", err)
	}
	a.ID = id
	return id, true, nil
}

// ReplaceProcessed stores the processed sibling of an article, deleting any
// previous version first.
func (d *DB) ReplaceProcessed(ctx context.Context, p *types.ProcessedArticle) error {
	if p.ProcessedAt.IsZero() {
		p.ProcessedAt = time.Now().UTC()
	}

	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM processed_articles WHERE article_id = ?"), p.ArticleID); err != nil {
		return fmt.Errorf("failed to delete processed article: %w", err)
	}

	query := tx.Rebind(`
		INSERT INTO processed_articles
			(article_id, processed_title, processed_content, keywords, article_created_at, processed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	var created interface{}
	if p.ArticleCreatedAt != nil {
		created = *p.ArticleCreatedAt
	}
	if err := tx.QueryRowxContext(ctx, query, p.ArticleID, p.ProcessedTitle, p.ProcessedContent, p.Keywords, created, p.ProcessedAt).Scan(&p.ID); err != nil {
		return fmt.Errorf("failed to insert processed article: %w", err)
	}

	return tx.Commit()
}

// GetProcessed returns the processed sibling of an article.
func (d *DB) GetProcessed(ctx context.Context, articleID int64) (*types.ProcessedArticle, error) {
	var p types.ProcessedArticle
	err := d.GetContext(ctx, &p, d.Rebind(`
		SELECT id, article_id, processed_title, processed_content, keywords, article_created_at, processed_at
		FROM processed_articles WHERE article_id = ?
	`), articleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get processed article: %w", err)
	}
	return &p, nil
}

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")
