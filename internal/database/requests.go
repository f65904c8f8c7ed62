package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rentloop/internal/models"
)

func (db *DB) CreateRequest(ctx context.Context, request *models.ItemRequest) error {
	query := `INSERT INTO requests (requestor_id, description, created) VALUES (?, ?, ?)`
	if request.Created.IsZero() {
		request.Created = time.Now()
	}
	result, err := db.ExecContext(ctx, query, request.RequestorID, request.Description, request.Created)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	request.ID = id

	return nil
}

func (db *DB) GetRequest(ctx context.Context, id int64) (*models.ItemRequest, error) {
	query := `SELECT id, requestor_id, description, created FROM requests WHERE id = ?`
	request := &models.ItemRequest{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&request.ID, &request.RequestorID, &request.Description, &request.Created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return request, nil
}

// RequestsByRequestor returns the user's own requests, newest first.
func (db *DB) RequestsByRequestor(ctx context.Context, requestorID int64) ([]*models.ItemRequest, error) {
	query := `SELECT id, requestor_id, description, created
              FROM requests WHERE requestor_id = ? ORDER BY created DESC`
	return db.queryRequests(ctx, query, requestorID)
}

// RequestsOfOthers returns requests posted by everyone except the
// user, newest first, paginated.
func (db *DB) RequestsOfOthers(ctx context.Context, userID int64, limit, offset int) ([]*models.ItemRequest, error) {
	query := `SELECT id, requestor_id, description, created
              FROM requests WHERE requestor_id != ? ORDER BY created DESC LIMIT ? OFFSET ?`
	return db.queryRequests(ctx, query, userID, limit, offset)
}

func (db *DB) queryRequests(ctx context.Context, query string, args ...any) ([]*models.ItemRequest, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.ItemRequest
	for rows.Next() {
		r := &models.ItemRequest{}
		if err := rows.Scan(&r.ID, &r.RequestorID, &r.Description, &r.Created); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate requests: %w", err)
	}
	return requests, nil
}
