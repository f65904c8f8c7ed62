package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentloop/internal/models"
)

const itemColumns = `id, owner_id, name, description, available, request_id, created_at, updated_at`

func (db *DB) CreateItem(ctx context.Context, item *models.Item) error {
	query := `INSERT INTO items (owner_id, name, description, available, request_id, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		item.OwnerID,
		item.Name,
		item.Description,
		item.Available,
		item.RequestID,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	item.ID = id
	item.CreatedAt = now
	item.UpdatedAt = now

	return nil
}

// SeedItem inserts an item under its preconfigured id, skipping rows
// that already exist.
func (db *DB) SeedItem(ctx context.Context, item *models.Item) error {
	query := `INSERT OR IGNORE INTO items (id, owner_id, name, description, available, request_id, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	if _, err := db.ExecContext(ctx, query,
		item.ID,
		item.OwnerID,
		item.Name,
		item.Description,
		item.Available,
		item.RequestID,
		now,
		now,
	); err != nil {
		return fmt.Errorf("failed to seed item: %w", err)
	}
	return nil
}

func (db *DB) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ?`
	item, err := scanItem(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (db *DB) UpdateItem(ctx context.Context, item *models.Item) error {
	query := `UPDATE items SET name = ?, description = ?, available = ?, updated_at = ? WHERE id = ?`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, item.Name, item.Description, item.Available, now, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrItemNotFound
	}
	item.UpdatedAt = now
	return nil
}

func (db *DB) DeleteItem(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// ItemsByOwner returns the owner's items in listing order.
func (db *DB) ItemsByOwner(ctx context.Context, ownerID int64) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE owner_id = ? ORDER BY id`
	return db.queryItems(ctx, query, ownerID)
}

// ItemIDsOwnedBy returns the ids of all items listed by the user.
func (db *DB) ItemIDsOwnedBy(ctx context.Context, ownerID int64) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM items WHERE owner_id = ?`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query owned item ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan item id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate item ids: %w", err)
	}
	return ids, nil
}

// SearchItems matches available items whose name or description
// contains the text, case-insensitive. A blank query matches nothing.
func (db *DB) SearchItems(ctx context.Context, text string) ([]*models.Item, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	pattern := "%" + strings.ToLower(text) + "%"
	query := `SELECT ` + itemColumns + ` FROM items
              WHERE available = 1 AND (LOWER(name) LIKE ? OR LOWER(description) LIKE ?)
              ORDER BY id`
	return db.queryItems(ctx, query, pattern, pattern)
}

// ItemsByRequest returns items listed in answer to an item request.
func (db *DB) ItemsByRequest(ctx context.Context, requestID int64) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE request_id = ? ORDER BY id`
	return db.queryItems(ctx, query, requestID)
}

func scanItem(row rowScanner) (*models.Item, error) {
	item := &models.Item{}
	err := row.Scan(
		&item.ID, &item.OwnerID, &item.Name, &item.Description,
		&item.Available, &item.RequestID, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (db *DB) queryItems(ctx context.Context, query string, args ...any) ([]*models.Item, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}
