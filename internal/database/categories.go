package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateCategory inserts a new category and returns its id.
func (d *Database) CreateCategory(ctx context.Context, name string) (int64, error) {
	done := observeQuery("create_category")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, "INSERT INTO categories (name) VALUES (?)", name)
	if err != nil {
		err = fmt.Errorf("failed to create category: %w", err)
		done(err)
		return 0, err
	}

	id, err := result.LastInsertId()
	done(err)
	return id, err
}

// ListCategories returns all non-deleted categories sorted by name.
func (d *Database) ListCategories(ctx context.Context) ([]Category, error) {
	done := observeQuery("list_categories")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, created_at
		FROM categories
		WHERE is_deleted = 0
		ORDER BY name COLLATE NOCASE
	`)
	if err != nil {
		done(err)
		return nil, err
	}
	defer closeRows(rows)

	var categories []Category
	for rows.Next() {
		var c Category
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.Name, &createdAt); err != nil {
			done(err)
			return nil, err
		}
		c.CreatedAt = time.Unix(createdAt, 0).UTC()
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		done(err)
		return nil, err
	}

	done(nil)
	return categories, nil
}

// GetCategory retrieves a category by id, excluding soft-deleted ones.
func (d *Database) GetCategory(ctx context.Context, id int64) (*Category, error) {
	done := observeQuery("get_category")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var c Category
	var createdAt int64
	err := d.db.QueryRowContext(ctx, `
		SELECT id, name, created_at
		FROM categories
		WHERE id = ? AND is_deleted = 0
	`, id).Scan(&c.ID, &c.Name, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			done(nil)
			return nil, ErrNotFound
		}
		done(err)
		return nil, err
	}
	c.CreatedAt = time.Unix(createdAt, 0).UTC()

	done(nil)
	return &c, nil
}

// CategoryExists reports whether a non-deleted category with the id exists.
func (d *Database) CategoryExists(ctx context.Context, id int64) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var one int
	err := d.db.QueryRowContext(ctx,
		"SELECT 1 FROM categories WHERE id = ? AND is_deleted = 0",
		id,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SoftDeleteCategory hides a category from listings. Media records keep
// their reference to it.
func (d *Database) SoftDeleteCategory(ctx context.Context, id int64) error {
	done := observeQuery("soft_delete_category")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		"UPDATE categories SET is_deleted = 1 WHERE id = ?",
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

// CountCategories returns the total number of categories, deleted included.
// The seeder uses this to decide whether defaults are needed.
func (d *Database) CountCategories(ctx context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories").Scan(&count)
	return count, err
}
