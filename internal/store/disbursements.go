package store

import (
	"context"
	"database/sql"
	"fmt"

	"stockroom/internal/model"
)

// GetDisbursement returns a disbursement by ID, nil if it does not exist.
// Disbursements are permanent removals: they are only ever created by
// request approval or loan conversion, and have no update path.
func GetDisbursement(ctx context.Context, db *sql.DB, id int64) (*model.Disbursement, error) {
	d := &model.Disbursement{}
	err := db.QueryRowContext(ctx,
		`SELECT d.id, d.request_id, d.item_id, d.quantity, d.created_at,
		        i.name, r.requester_id, u.username
		 FROM disbursements d
		 JOIN items i ON i.id = d.item_id
		 JOIN requests r ON r.id = d.request_id
		 JOIN users u ON u.id = r.requester_id
		 WHERE d.id = ?`, id,
	).Scan(&d.ID, &d.RequestID, &d.ItemID, &d.Quantity, &d.CreatedAt,
		&d.ItemName, &d.RequesterID, &d.RequesterName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting disbursement: %w", err)
	}
	return d, nil
}

// ListDisbursements returns disbursements, newest first, optionally filtered
// by item and/or requester.
func ListDisbursements(ctx context.Context, db *sql.DB, itemID, requesterID int64) ([]model.Disbursement, error) {
	query := `SELECT d.id, d.request_id, d.item_id, d.quantity, d.created_at,
	                 i.name, r.requester_id, u.username
	          FROM disbursements d
	          JOIN items i ON i.id = d.item_id
	          JOIN requests r ON r.id = d.request_id
	          JOIN users u ON u.id = r.requester_id
	          WHERE 1=1`
	var args []any

	if itemID > 0 {
		query += ` AND d.item_id = ?`
		args = append(args, itemID)
	}
	if requesterID > 0 {
		query += ` AND r.requester_id = ?`
		args = append(args, requesterID)
	}
	query += ` ORDER BY d.created_at DESC, d.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing disbursements: %w", err)
	}
	defer rows.Close()

	var disbursements []model.Disbursement
	for rows.Next() {
		var d model.Disbursement
		if err := rows.Scan(&d.ID, &d.RequestID, &d.ItemID, &d.Quantity, &d.CreatedAt,
			&d.ItemName, &d.RequesterID, &d.RequesterName); err != nil {
			return nil, fmt.Errorf("scanning disbursement: %w", err)
		}
		disbursements = append(disbursements, d)
	}
	return disbursements, rows.Err()
}
