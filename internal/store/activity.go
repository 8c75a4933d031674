package store

import (
	"context"
	"database/sql"
	"fmt"

	"stockroom/internal/model"
)

// recordActivity appends an audit entry inside the caller's transaction, so
// the entry commits (or rolls back) with the operation it describes.
func recordActivity(ctx context.Context, tx *sql.Tx, actorID *int64, action string, itemID, requestID *int64, quantity *int, note string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO activity (actor_id, action, item_id, request_id, quantity, note)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		actorID, action, itemID, requestID, quantity, note,
	)
	if err != nil {
		return fmt.Errorf("recording activity: %w", err)
	}
	return nil
}

// ListActivity returns audit entries, newest first, optionally filtered by
// item. Limit caps the result size; 0 means a default of 100.
func ListActivity(ctx context.Context, db *sql.DB, itemID int64, limit int) ([]model.Activity, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT a.id, a.actor_id, a.action, a.item_id, a.request_id, a.quantity,
	                 a.note, a.created_at, COALESCE(u.username, ''), COALESCE(i.name, '')
	          FROM activity a
	          LEFT JOIN users u ON u.id = a.actor_id
	          LEFT JOIN items i ON i.id = a.item_id
	          WHERE 1=1`
	var args []any

	if itemID > 0 {
		query += ` AND a.item_id = ?`
		args = append(args, itemID)
	}
	query += ` ORDER BY a.created_at DESC, a.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	defer rows.Close()

	var entries []model.Activity
	for rows.Next() {
		var a model.Activity
		var note sql.NullString
		if err := rows.Scan(&a.ID, &a.ActorID, &a.Action, &a.ItemID, &a.RequestID, &a.Quantity,
			&note, &a.CreatedAt, &a.ActorName, &a.ItemName); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		a.Note = note.String
		entries = append(entries, a)
	}
	return entries, rows.Err()
}
