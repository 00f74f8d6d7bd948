package database

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// GalleryFilter holds the optional gallery predicates. Zero-value fields are
// inactive; active filters combine conjunctively.
type GalleryFilter struct {
	CategoryID *int64
	Keyword    string
	Type       MediaType
	Date       *time.Time
}

// escapeLike neutralizes LIKE wildcards in user-supplied search terms so a
// literal % or _ matches itself.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// buildGalleryPredicate renders the filter into a WHERE clause fragment and
// its arguments. The same predicate backs both the page query and the count
// query so paging metadata always agrees with the rows.
func buildGalleryPredicate(filter GalleryFilter) (string, []interface{}) {
	clauses := []string{"m.is_deleted = 0"}
	var args []interface{}

	if filter.CategoryID != nil {
		clauses = append(clauses, "m.category_id = ?")
		args = append(args, *filter.CategoryID)
	}

	if filter.Keyword != "" {
		// SQLite LIKE is case-insensitive for ASCII by default
		pattern := "%" + escapeLike(filter.Keyword) + "%"
		clauses = append(clauses, `(m.title LIKE ? ESCAPE '\'
			OR m.description LIKE ? ESCAPE '\'
			OR EXISTS (
				SELECT 1 FROM media_keywords mk
				INNER JOIN keywords k ON k.id = mk.keyword_id
				WHERE mk.media_id = m.id AND k.text LIKE ? ESCAPE '\'
			))`)
		args = append(args, pattern, pattern, pattern)
	}

	if filter.Type != "" {
		clauses = append(clauses, "m.type = ?")
		args = append(args, string(filter.Type))
	}

	if filter.Date != nil {
		// match the whole calendar day, UTC
		start := time.Date(filter.Date.Year(), filter.Date.Month(), filter.Date.Day(), 0, 0, 0, 0, time.UTC)
		end := start.Add(24 * time.Hour)
		clauses = append(clauses, "m.upload_date >= ? AND m.upload_date < ?")
		args = append(args, start.Unix(), end.Unix())
	}

	return strings.Join(clauses, " AND "), args
}

// QueryGallery returns one page of gallery summaries matching the filter,
// newest first, with ties broken by descending id for a stable order.
// Pages are 1-indexed; a page past the end comes back empty with the
// metadata intact. Page values are used as given, callers normalize.
func (d *Database) QueryGallery(ctx context.Context, filter GalleryFilter, page, pageSize int) (*GalleryPage, error) {
	done := observeQuery("query_gallery")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	predicate, args := buildGalleryPredicate(filter)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM media_items m WHERE %s", predicate)
	if err := d.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		done(err)
		return nil, fmt.Errorf("failed to count gallery items: %w", err)
	}

	offset := (page - 1) * pageSize
	pageQuery := fmt.Sprintf(`
		SELECT m.id, m.title, m.thumbnail_path
		FROM media_items m
		WHERE %s
		ORDER BY m.upload_date DESC, m.id DESC
		LIMIT ? OFFSET ?
	`, predicate)

	rows, err := d.db.QueryContext(ctx, pageQuery, append(args, pageSize, offset)...)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to query gallery: %w", err)
	}
	defer closeRows(rows)

	items := []GalleryItem{}
	for rows.Next() {
		var item GalleryItem
		if err := rows.Scan(&item.ID, &item.Title, &item.ThumbnailPath); err != nil {
			done(err)
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		done(err)
		return nil, err
	}

	totalPages := (total + pageSize - 1) / pageSize

	done(nil)
	return &GalleryPage{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

// RecentMedia returns the newest non-deleted records, up to limit.
func (d *Database) RecentMedia(ctx context.Context, limit int) ([]GalleryItem, error) {
	done := observeQuery("recent_media")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, title, thumbnail_path
		FROM media_items
		WHERE is_deleted = 0
		ORDER BY upload_date DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		done(err)
		return nil, err
	}
	defer closeRows(rows)

	var items []GalleryItem
	for rows.Next() {
		var item GalleryItem
		if err := rows.Scan(&item.ID, &item.Title, &item.ThumbnailPath); err != nil {
			done(err)
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		done(err)
		return nil, err
	}

	done(nil)
	return items, nil
}

// ListAllMedia returns every record including soft-deleted ones, newest
// first. This backs the administrative listing.
func (d *Database) ListAllMedia(ctx context.Context) ([]MediaItem, error) {
	done := observeQuery("list_all_media")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT m.id, m.title, m.description, m.file_path, m.thumbnail_path, m.type,
		       m.upload_date, m.category_id, c.name, m.user_id, m.share_token, m.is_deleted
		FROM media_items m
		INNER JOIN categories c ON c.id = m.category_id
		ORDER BY m.upload_date DESC, m.id DESC
	`)
	if err != nil {
		done(err)
		return nil, err
	}
	defer closeRows(rows)

	var items []MediaItem
	for rows.Next() {
		item, err := scanMediaItem(rows)
		if err != nil {
			done(err)
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		done(err)
		return nil, err
	}

	done(nil)
	return items, nil
}

// CountMedia returns the number of non-deleted media records.
func (d *Database) CountMedia(ctx context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM media_items WHERE is_deleted = 0",
	).Scan(&count)
	return count, err
}
