package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"galleria/internal/logging"
)

// CreateMedia inserts a media record together with its keyword associations
// in one transaction. attachIDs are existing keyword rows to associate;
// createTexts are brand-new keyword names to insert and associate. The
// record and any new keyword rows commit atomically.
func (d *Database) CreateMedia(ctx context.Context, m *MediaItem, attachIDs []int64, createTexts []string) error {
	done := observeQuery("create_media")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		done(err)
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx, `
		INSERT INTO media_items (title, description, file_path, thumbnail_path, type, upload_date, category_id, user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.Title, m.Description, m.FilePath, m.ThumbnailPath, string(m.Type), m.UploadDate.Unix(), m.CategoryID, m.UserID)
	if err != nil {
		err = fmt.Errorf("failed to insert media record: %w", err)
		done(err)
		return err
	}

	m.ID, err = result.LastInsertId()
	if err != nil {
		done(err)
		return err
	}

	keywordIDs := append([]int64(nil), attachIDs...)
	for _, text := range createTexts {
		id, err := getOrCreateKeywordTx(ctx, tx, text)
		if err != nil {
			done(err)
			return err
		}
		keywordIDs = append(keywordIDs, id)
	}

	if err := attachKeywordsTx(ctx, tx, m.ID, keywordIDs); err != nil {
		done(err)
		return err
	}

	if err := tx.Commit(); err != nil {
		done(err)
		return err
	}

	done(nil)
	return nil
}

// UpdateMedia updates a record's editable fields and applies a keyword diff
// (attach existing, detach removed, create new) in one transaction.
func (d *Database) UpdateMedia(ctx context.Context, m *MediaItem, attachIDs, detachIDs []int64, createTexts []string) error {
	done := observeQuery("update_media")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		done(err)
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx, `
		UPDATE media_items SET title = ?, description = ?, category_id = ?
		WHERE id = ?
	`, m.Title, m.Description, m.CategoryID, m.ID)
	if err != nil {
		err = fmt.Errorf("failed to update media record: %w", err)
		done(err)
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		done(ErrNotFound)
		return ErrNotFound
	}

	for _, keywordID := range detachIDs {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM media_keywords WHERE media_id = ? AND keyword_id = ?",
			m.ID, keywordID,
		); err != nil {
			done(err)
			return err
		}
	}

	keywordIDs := append([]int64(nil), attachIDs...)
	for _, text := range createTexts {
		id, err := getOrCreateKeywordTx(ctx, tx, text)
		if err != nil {
			done(err)
			return err
		}
		keywordIDs = append(keywordIDs, id)
	}

	if err := attachKeywordsTx(ctx, tx, m.ID, keywordIDs); err != nil {
		done(err)
		return err
	}

	if err := tx.Commit(); err != nil {
		done(err)
		return err
	}

	done(nil)
	return nil
}

// getOrCreateKeywordTx resolves a keyword name to a row id, creating the row
// if needed. Concurrent ingestions can race on a brand-new name: the insert
// loses to the UNIQUE constraint and we re-fetch the winner's row instead of
// failing the ingestion.
func getOrCreateKeywordTx(ctx context.Context, tx *sql.Tx, text string) (int64, error) {
	var id int64
	// text is COLLATE NOCASE, so equality here is case-insensitive
	err := tx.QueryRowContext(ctx, "SELECT id FROM keywords WHERE text = ?", text).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	result, err := tx.ExecContext(ctx, "INSERT INTO keywords (text) VALUES (?)", text)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			logging.Debug("keyword %q created concurrently, re-fetching", text)
			if selErr := tx.QueryRowContext(ctx, "SELECT id FROM keywords WHERE text = ?", text).Scan(&id); selErr == nil {
				return id, nil
			}
		}
		return 0, fmt.Errorf("failed to create keyword %q: %w", text, err)
	}

	return result.LastInsertId()
}

func attachKeywordsTx(ctx context.Context, tx *sql.Tx, mediaID int64, keywordIDs []int64) error {
	for _, keywordID := range keywordIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO media_keywords (media_id, keyword_id) VALUES (?, ?)",
			mediaID, keywordID,
		); err != nil {
			return fmt.Errorf("failed to attach keyword %d: %w", keywordID, err)
		}
	}
	return nil
}

// GetMedia retrieves a media record by id, excluding soft-deleted records.
func (d *Database) GetMedia(ctx context.Context, id int64) (*MediaItem, error) {
	return d.getMedia(ctx, id, false)
}

// GetMediaAny retrieves a media record by id including soft-deleted records.
// This is the administrative path; normal reads go through GetMedia.
func (d *Database) GetMediaAny(ctx context.Context, id int64) (*MediaItem, error) {
	return d.getMedia(ctx, id, true)
}

func (d *Database) getMedia(ctx context.Context, id int64, includeDeleted bool) (*MediaItem, error) {
	done := observeQuery("get_media")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
		SELECT m.id, m.title, m.description, m.file_path, m.thumbnail_path, m.type,
		       m.upload_date, m.category_id, c.name, m.user_id, m.share_token, m.is_deleted
		FROM media_items m
		INNER JOIN categories c ON c.id = m.category_id
		WHERE m.id = ?
	`
	if !includeDeleted {
		query += " AND m.is_deleted = 0"
	}

	item, err := scanMediaItem(d.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			done(nil)
			return nil, ErrNotFound
		}
		done(err)
		return nil, err
	}

	item.Keywords, err = d.mediaKeywordsUnlocked(ctx, item.ID)
	if err != nil {
		done(err)
		return nil, err
	}

	done(nil)
	return item, nil
}

// GetMediaByShareToken resolves a share token to its media record. This is
// the anonymous access path; it deliberately still excludes soft-deleted
// records, so hiding a record also kills its share link.
func (d *Database) GetMediaByShareToken(ctx context.Context, token string) (*MediaItem, error) {
	done := observeQuery("get_media_by_share_token")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	item, err := scanMediaItem(d.db.QueryRowContext(ctx, `
		SELECT m.id, m.title, m.description, m.file_path, m.thumbnail_path, m.type,
		       m.upload_date, m.category_id, c.name, m.user_id, m.share_token, m.is_deleted
		FROM media_items m
		INNER JOIN categories c ON c.id = m.category_id
		WHERE m.share_token = ? AND m.is_deleted = 0
	`, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			done(nil)
			return nil, ErrNotFound
		}
		done(err)
		return nil, err
	}

	item.Keywords, err = d.mediaKeywordsUnlocked(ctx, item.ID)
	if err != nil {
		done(err)
		return nil, err
	}

	done(nil)
	return item, nil
}

// SetShareToken overwrites the record's share token. Any previously issued
// token stops resolving.
func (d *Database) SetShareToken(ctx context.Context, id int64, token string) error {
	done := observeQuery("set_share_token")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		"UPDATE media_items SET share_token = ? WHERE id = ?",
		token, id,
	)
	if err != nil {
		done(err)
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		done(nil)
		return ErrNotFound
	}

	done(nil)
	return nil
}

// SoftDeleteMedia hides a record from all normal queries without removing
// the row or its blobs.
func (d *Database) SoftDeleteMedia(ctx context.Context, id int64) error {
	done := observeQuery("soft_delete_media")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		"UPDATE media_items SET is_deleted = 1 WHERE id = ?",
		id,
	)
	if err != nil {
		done(err)
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		done(nil)
		return ErrNotFound
	}

	done(nil)
	return nil
}

// DeleteMedia removes the row permanently. Keyword associations cascade;
// blob cleanup is the caller's responsibility.
func (d *Database) DeleteMedia(ctx context.Context, id int64) error {
	done := observeQuery("delete_media")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, "DELETE FROM media_items WHERE id = ?", id)
	if err != nil {
		done(err)
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		done(nil)
		return ErrNotFound
	}

	done(nil)
	return nil
}

// GetMediaKeywords returns the keywords associated with a media record.
func (d *Database) GetMediaKeywords(ctx context.Context, mediaID int64) ([]Keyword, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return d.mediaKeywordsUnlocked(ctx, mediaID)
}

// mediaKeywordsUnlocked returns keywords without acquiring the lock.
// Caller must hold at least a read lock.
func (d *Database) mediaKeywordsUnlocked(ctx context.Context, mediaID int64) ([]Keyword, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT k.id, k.text
		FROM keywords k
		INNER JOIN media_keywords mk ON k.id = mk.keyword_id
		WHERE mk.media_id = ?
		ORDER BY k.text COLLATE NOCASE
	`, mediaID)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var keywords []Keyword
	for rows.Next() {
		var k Keyword
		if err := rows.Scan(&k.ID, &k.Text); err != nil {
			return nil, err
		}
		keywords = append(keywords, k)
	}

	return keywords, rows.Err()
}

// FindKeywordsByText returns the existing keyword rows whose text matches
// any of the given names, case-insensitively.
func (d *Database) FindKeywordsByText(ctx context.Context, names []string) ([]Keyword, error) {
	if len(names) == 0 {
		return nil, nil
	}

	done := observeQuery("find_keywords")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	placeholders := strings.Repeat("?,", len(names))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, len(names))
	for i, name := range names {
		args[i] = name
	}

	// The text column is COLLATE NOCASE, so IN matches case-insensitively
	rows, err := d.db.QueryContext(ctx,
		fmt.Sprintf("SELECT id, text FROM keywords WHERE text IN (%s)", placeholders),
		args...,
	)
	if err != nil {
		done(err)
		return nil, err
	}
	defer closeRows(rows)

	var keywords []Keyword
	for rows.Next() {
		var k Keyword
		if err := rows.Scan(&k.ID, &k.Text); err != nil {
			done(err)
			return nil, err
		}
		keywords = append(keywords, k)
	}

	if err := rows.Err(); err != nil {
		done(err)
		return nil, err
	}

	done(nil)
	return keywords, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMediaItem(row rowScanner) (*MediaItem, error) {
	var item MediaItem
	var mediaType string
	var uploadDate int64
	var shareToken sql.NullString
	var isDeleted int

	err := row.Scan(
		&item.ID, &item.Title, &item.Description, &item.FilePath, &item.ThumbnailPath,
		&mediaType, &uploadDate, &item.CategoryID, &item.CategoryName, &item.UserID,
		&shareToken, &isDeleted,
	)
	if err != nil {
		return nil, err
	}

	item.Type = MediaType(mediaType)
	item.UploadDate = time.Unix(uploadDate, 0).UTC()
	if shareToken.Valid {
		item.ShareToken = shareToken.String
	}
	item.IsDeleted = isDeleted != 0

	return &item, nil
}
