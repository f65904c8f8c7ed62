package database

import (
	"context"
	"fmt"

	"rentloop/internal/models"
)

func (db *DB) CreateComment(ctx context.Context, comment *models.Comment) error {
	query := `INSERT INTO comments (item_id, author_id, author_name, text, created) VALUES (?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		comment.ItemID,
		comment.AuthorID,
		comment.AuthorName,
		comment.Text,
		comment.Created,
	)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	comment.ID = id

	return nil
}

func (db *DB) CommentsForItem(ctx context.Context, itemID int64) ([]models.Comment, error) {
	query := `SELECT id, item_id, author_id, author_name, text, created
              FROM comments WHERE item_id = ? ORDER BY created`
	rows, err := db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.ItemID, &c.AuthorID, &c.AuthorName, &c.Text, &c.Created); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return comments, nil
}
