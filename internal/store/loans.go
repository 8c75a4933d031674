package store

import (
	"context"
	"database/sql"
	"fmt"

	"stockroom/internal/model"
)

// RecordReturn registers quantity units of a loan as returned. The return
// cap is hard: quantity_returned can never exceed quantity_loaned, and a
// call that would push past it fails with ErrOverReturn leaving the loan
// untouched. Returned units go back into the item's on-hand quantity in the
// same transaction, so they are immediately available for new requests.
func RecordReturn(ctx context.Context, db *sql.DB, loanID int64, quantity int, actorID *int64) (*model.Loan, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("return quantity must be positive")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var itemID int64
	var loaned, returned int
	err = tx.QueryRowContext(ctx,
		`SELECT item_id, quantity_loaned, quantity_returned FROM loans WHERE id = ?`, loanID,
	).Scan(&itemID, &loaned, &returned)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("returning loan %d: %w", loanID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}

	if returned+quantity > loaned {
		return nil, fmt.Errorf("returning %d of loan %d with %d outstanding: %w",
			quantity, loanID, loaned-returned, ErrOverReturn)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE loans SET quantity_returned = quantity_returned + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		quantity, loanID,
	); err != nil {
		return nil, fmt.Errorf("recording return: %w", err)
	}

	// On-hand quantity means physically available right now, so returned
	// units rejoin the ledger.
	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		quantity, itemID,
	); err != nil {
		return nil, fmt.Errorf("restoring stock: %w", err)
	}

	if err := recordActivity(ctx, tx, actorID, model.ActionReturn, &itemID, nil, &quantity, ""); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing return: %w", err)
	}

	return GetLoan(ctx, db, loanID)
}

// ConvertToDisbursement makes quantity outstanding units of a loan permanent:
// the units are moved off the loan and into the request's disbursement for
// the same item (merging into an existing one if present). The ledger is not
// touched; the units already left stock when the request was approved.
func ConvertToDisbursement(ctx context.Context, db *sql.DB, loanID int64, quantity int, actorID *int64) (*model.Disbursement, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("conversion quantity must be positive")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var requestID, itemID int64
	var loaned, returned int
	err = tx.QueryRowContext(ctx,
		`SELECT request_id, item_id, quantity_loaned, quantity_returned FROM loans WHERE id = ?`,
		loanID,
	).Scan(&requestID, &itemID, &loaned, &returned)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("converting loan %d: %w", loanID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}

	if quantity > loaned-returned {
		return nil, fmt.Errorf("converting %d of loan %d with %d outstanding: %w",
			quantity, loanID, loaned-returned, ErrOverReturn)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE loans SET quantity_loaned = quantity_loaned - ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		quantity, loanID,
	); err != nil {
		return nil, fmt.Errorf("reducing loan: %w", err)
	}

	// Merge into the request's existing disbursement for this item, if any.
	var disbursementID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM disbursements WHERE request_id = ? AND item_id = ?`,
		requestID, itemID,
	).Scan(&disbursementID)
	switch {
	case err == sql.ErrNoRows:
		result, err := tx.ExecContext(ctx,
			`INSERT INTO disbursements (request_id, item_id, quantity) VALUES (?, ?, ?)`,
			requestID, itemID, quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("creating disbursement: %w", err)
		}
		disbursementID, err = result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("getting disbursement id: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("finding disbursement: %w", err)
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE disbursements SET quantity = quantity + ? WHERE id = ?`,
			quantity, disbursementID,
		); err != nil {
			return nil, fmt.Errorf("merging disbursement: %w", err)
		}
	}

	// A loan fully emptied by conversions is deleted; it no longer tracks
	// anything.
	if loaned-quantity == 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM loans WHERE id = ?`, loanID,
		); err != nil {
			return nil, fmt.Errorf("removing emptied loan: %w", err)
		}
	}

	if err := recordActivity(ctx, tx, actorID, model.ActionConvert, &itemID, &requestID, &quantity, ""); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing conversion: %w", err)
	}

	return GetDisbursement(ctx, db, disbursementID)
}

// GetLoan returns a loan by ID, nil if it does not exist.
func GetLoan(ctx context.Context, db *sql.DB, id int64) (*model.Loan, error) {
	l := &model.Loan{}
	var assetTag sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT l.id, l.request_id, l.item_id, l.quantity_loaned, l.quantity_returned,
		        l.asset_tag, l.created_at, l.updated_at,
		        i.name, r.requester_id, u.username
		 FROM loans l
		 JOIN items i ON i.id = l.item_id
		 JOIN requests r ON r.id = l.request_id
		 JOIN users u ON u.id = r.requester_id
		 WHERE l.id = ?`, id,
	).Scan(&l.ID, &l.RequestID, &l.ItemID, &l.QuantityLoaned, &l.QuantityReturned,
		&assetTag, &l.CreatedAt, &l.UpdatedAt,
		&l.ItemName, &l.RequesterID, &l.RequesterName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}
	l.AssetTag = assetTag.String
	return l, nil
}

// ListLoans returns loans, newest first, optionally filtered by item,
// requester, and open-only (loans with unreturned units).
func ListLoans(ctx context.Context, db *sql.DB, itemID, requesterID int64, openOnly bool) ([]model.Loan, error) {
	query := `SELECT l.id, l.request_id, l.item_id, l.quantity_loaned, l.quantity_returned,
	                 l.asset_tag, l.created_at, l.updated_at,
	                 i.name, r.requester_id, u.username
	          FROM loans l
	          JOIN items i ON i.id = l.item_id
	          JOIN requests r ON r.id = l.request_id
	          JOIN users u ON u.id = r.requester_id
	          WHERE 1=1`
	var args []any

	if itemID > 0 {
		query += ` AND l.item_id = ?`
		args = append(args, itemID)
	}
	if requesterID > 0 {
		query += ` AND r.requester_id = ?`
		args = append(args, requesterID)
	}
	if openOnly {
		query += ` AND l.quantity_returned < l.quantity_loaned`
	}
	query += ` ORDER BY l.created_at DESC, l.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing loans: %w", err)
	}
	defer rows.Close()

	var loans []model.Loan
	for rows.Next() {
		var l model.Loan
		var assetTag sql.NullString
		if err := rows.Scan(&l.ID, &l.RequestID, &l.ItemID, &l.QuantityLoaned, &l.QuantityReturned,
			&assetTag, &l.CreatedAt, &l.UpdatedAt,
			&l.ItemName, &l.RequesterID, &l.RequesterName); err != nil {
			return nil, fmt.Errorf("scanning loan: %w", err)
		}
		l.AssetTag = assetTag.String
		loans = append(loans, l)
	}
	return loans, rows.Err()
}
