package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feedgate/app/feed"
)

type ItemRepository interface {
	UpsertItem(ctx context.Context, item feed.Item) error
	GetItems(ctx context.Context, limit int) ([]feed.Item, error)
	GetItemsByCategory(ctx context.Context, slug string, limit int) ([]feed.Item, error)
	GetItemCount(ctx context.Context) (int, error)
}

type itemRepository struct {
	db *DB
}

func NewItemRepository(db *DB) ItemRepository {
	return &itemRepository{db: db}
}

// UpsertItem records a published item, replacing any previous snapshot of
// the same id.
func (r *itemRepository) UpsertItem(ctx context.Context, item feed.Item) error {
	var categorySlug, categoryName, authorName, authorURL string
	if item.Category != nil {
		categorySlug = item.Category.Slug
		categoryName = item.Category.Name
	}
	if item.Author != nil {
		authorName = item.Author.Name
		authorURL = item.Author.URL
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO items (
			id, title, canonical_url, content_html, excerpt,
			published_at, category_slug, category_name, author_name, author_url
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			canonical_url = excluded.canonical_url,
			content_html = excluded.content_html,
			excerpt = excluded.excerpt,
			published_at = excluded.published_at,
			category_slug = excluded.category_slug,
			category_name = excluded.category_name,
			author_name = excluded.author_name,
			author_url = excluded.author_url,
			updated_at = CURRENT_TIMESTAMP
	`, item.ID, item.Title, item.URL, item.ContentHTML, item.Excerpt,
		item.PublishedAt.UTC(), categorySlug, categoryName, authorName, authorURL)

	if err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}

	return nil
}

func (r *itemRepository) GetItems(ctx context.Context, limit int) ([]feed.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, canonical_url, content_html, excerpt,
			published_at, category_slug, category_name, author_name, author_url
		FROM items
		ORDER BY published_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *itemRepository) GetItemsByCategory(ctx context.Context, slug string, limit int) ([]feed.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, canonical_url, content_html, excerpt,
			published_at, category_slug, category_name, author_name, author_url
		FROM items
		WHERE category_slug = ?
		ORDER BY published_at DESC
		LIMIT ?
	`, slug, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query items by category: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *itemRepository) GetItemCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

func scanItems(rows *sql.Rows) ([]feed.Item, error) {
	var items []feed.Item

	for rows.Next() {
		var item feed.Item
		var publishedAt time.Time
		var categorySlug, categoryName, authorName, authorURL string

		err := rows.Scan(&item.ID, &item.Title, &item.URL, &item.ContentHTML, &item.Excerpt,
			&publishedAt, &categorySlug, &categoryName, &authorName, &authorURL)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}

		item.PublishedAt = publishedAt.UTC()
		if categorySlug != "" {
			item.Category = &feed.Category{Slug: categorySlug, Name: categoryName}
		}
		if authorName != "" {
			item.Author = &feed.Author{Name: authorName, URL: authorURL}
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	return items, nil
}
