package store

import (
	"context"
	"database/sql"
	"fmt"

	"stockroom/internal/model"
)

// AddToCart stages an item in the user's cart. A user holds at most one
// entry per item, so adding an item already in the cart replaces its
// quantity and request type. The quantity check against on-hand stock is
// advisory: nothing is reserved until the request is approved.
func AddToCart(ctx context.Context, db *sql.DB, userID int64, itemName string, quantity int, requestType string) (*model.CartEntry, error) {
	if err := validateCartInput(quantity, requestType); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := getItem(ctx, tx, `WHERE name = ? AND deleted_at IS NULL`, itemName)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("adding item %q to cart: %w", itemName, ErrNotFound)
	}
	if quantity > item.Quantity {
		return nil, fmt.Errorf("requested %d of %q with %d on hand: %w",
			quantity, itemName, item.Quantity, ErrQuantityExceedsAvailable)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cart_entries (user_id, item_id, quantity, request_type)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, item_id) DO UPDATE SET
		     quantity = excluded.quantity,
		     request_type = excluded.request_type,
		     updated_at = CURRENT_TIMESTAMP`,
		userID, item.ID, quantity, requestType,
	); err != nil {
		return nil, fmt.Errorf("adding cart entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing cart entry: %w", err)
	}

	return GetCartEntry(ctx, db, userID, itemName)
}

// UpdateCartEntry modifies the quantity and/or request type of an existing
// cart entry. Pass quantity 0 or requestType "" to keep the current value.
func UpdateCartEntry(ctx context.Context, db *sql.DB, userID int64, itemName string, quantity int, requestType string) (*model.CartEntry, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	entry, err := getCartEntry(ctx, tx, userID, itemName)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("updating cart entry for %q: %w", itemName, ErrNotFound)
	}

	if quantity == 0 {
		quantity = entry.Quantity
	}
	if requestType == "" {
		requestType = entry.RequestType
	}
	if err := validateCartInput(quantity, requestType); err != nil {
		return nil, err
	}

	item, err := getItem(ctx, tx, `WHERE id = ?`, entry.ItemID)
	if err != nil {
		return nil, err
	}
	if quantity > item.Quantity {
		return nil, fmt.Errorf("requested %d of %q with %d on hand: %w",
			quantity, itemName, item.Quantity, ErrQuantityExceedsAvailable)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE cart_entries SET quantity = ?, request_type = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		quantity, requestType, entry.ID,
	); err != nil {
		return nil, fmt.Errorf("updating cart entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing cart update: %w", err)
	}

	return GetCartEntry(ctx, db, userID, itemName)
}

// RemoveFromCart deletes the user's cart entry for an item.
func RemoveFromCart(ctx context.Context, db *sql.DB, userID int64, itemName string) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM cart_entries
		 WHERE user_id = ? AND item_id IN (SELECT id FROM items WHERE name = ?)`,
		userID, itemName,
	)
	if err != nil {
		return fmt.Errorf("removing cart entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("removing cart entry: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("removing cart entry for %q: %w", itemName, ErrNotFound)
	}
	return nil
}

// GetCartEntry returns the user's cart entry for an item, nil if absent.
func GetCartEntry(ctx context.Context, db *sql.DB, userID int64, itemName string) (*model.CartEntry, error) {
	return getCartEntry(ctx, db, userID, itemName)
}

func getCartEntry(ctx context.Context, q querier, userID int64, itemName string) (*model.CartEntry, error) {
	e := &model.CartEntry{}
	err := q.QueryRowContext(ctx,
		`SELECT c.id, c.user_id, c.item_id, c.quantity, c.request_type,
		        c.created_at, c.updated_at, i.name
		 FROM cart_entries c
		 JOIN items i ON i.id = c.item_id
		 WHERE c.user_id = ? AND i.name = ?`,
		userID, itemName,
	).Scan(&e.ID, &e.UserID, &e.ItemID, &e.Quantity, &e.RequestType,
		&e.CreatedAt, &e.UpdatedAt, &e.ItemName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting cart entry: %w", err)
	}
	return e, nil
}

// GetCart returns all of the user's cart entries, ordered by item name.
func GetCart(ctx context.Context, db *sql.DB, userID int64) ([]model.CartEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT c.id, c.user_id, c.item_id, c.quantity, c.request_type,
		        c.created_at, c.updated_at, i.name
		 FROM cart_entries c
		 JOIN items i ON i.id = c.item_id
		 WHERE c.user_id = ?
		 ORDER BY i.name`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing cart: %w", err)
	}
	defer rows.Close()

	var entries []model.CartEntry
	for rows.Next() {
		var e model.CartEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.ItemID, &e.Quantity, &e.RequestType,
			&e.CreatedAt, &e.UpdatedAt, &e.ItemName); err != nil {
			return nil, fmt.Errorf("scanning cart entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func validateCartInput(quantity int, requestType string) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if !model.ValidRequestType(requestType) {
		return fmt.Errorf("invalid request type %q", requestType)
	}
	return nil
}
