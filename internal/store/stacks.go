package store

import (
	"context"
	"database/sql"
	"fmt"

	"stockroom/internal/model"
)

// ComputeStacks returns the derived distribution of an item's units:
// requested sums lines of outstanding requests, loaned sums unreturned
// loaned units, disbursed sums permanent removals, in_cart sums live cart
// entries. Counts are recomputed from the source rows in a single read
// transaction so the snapshot is internally consistent.
//
// If userID is non-zero the counts are scoped to that user's requests,
// loans, disbursements and cart, matching what a non-manager is shown.
func ComputeStacks(ctx context.Context, db *sql.DB, itemName string, userID int64) (*model.Stacks, error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := getItem(ctx, tx, `WHERE name = ? AND deleted_at IS NULL`, itemName)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("computing stacks for %q: %w", itemName, ErrNotFound)
	}

	stacks := &model.Stacks{InStock: item.Quantity}

	requested := `SELECT COALESCE(SUM(ri.quantity), 0)
	              FROM requested_items ri
	              JOIN requests r ON r.id = ri.request_id
	              WHERE ri.item_id = ? AND r.status = ?`
	args := []any{item.ID, model.StatusOutstanding}
	if userID > 0 {
		requested += ` AND r.requester_id = ?`
		args = append(args, userID)
	}
	if err := tx.QueryRowContext(ctx, requested, args...).Scan(&stacks.Requested); err != nil {
		return nil, fmt.Errorf("summing requested quantity: %w", err)
	}

	loaned := `SELECT COALESCE(SUM(l.quantity_loaned - l.quantity_returned), 0)
	           FROM loans l
	           JOIN requests r ON r.id = l.request_id
	           WHERE l.item_id = ?`
	args = []any{item.ID}
	if userID > 0 {
		loaned += ` AND r.requester_id = ?`
		args = append(args, userID)
	}
	if err := tx.QueryRowContext(ctx, loaned, args...).Scan(&stacks.Loaned); err != nil {
		return nil, fmt.Errorf("summing loaned quantity: %w", err)
	}

	disbursed := `SELECT COALESCE(SUM(d.quantity), 0)
	              FROM disbursements d
	              JOIN requests r ON r.id = d.request_id
	              WHERE d.item_id = ?`
	args = []any{item.ID}
	if userID > 0 {
		disbursed += ` AND r.requester_id = ?`
		args = append(args, userID)
	}
	if err := tx.QueryRowContext(ctx, disbursed, args...).Scan(&stacks.Disbursed); err != nil {
		return nil, fmt.Errorf("summing disbursed quantity: %w", err)
	}

	inCart := `SELECT COALESCE(SUM(quantity), 0) FROM cart_entries WHERE item_id = ?`
	args = []any{item.ID}
	if userID > 0 {
		inCart += ` AND user_id = ?`
		args = append(args, userID)
	}
	if err := tx.QueryRowContext(ctx, inCart, args...).Scan(&stacks.InCart); err != nil {
		return nil, fmt.Errorf("summing in-cart quantity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing stacks read: %w", err)
	}
	return stacks, nil
}
