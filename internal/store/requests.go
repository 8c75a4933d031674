package store

import (
	"context"
	"database/sql"
	"fmt"

	"stockroom/internal/model"
)

// SubmitCart converts all of the user's cart entries into the lines of a new
// Outstanding request and empties the cart, in one transaction: either every
// entry converts or none do.
func SubmitCart(ctx context.Context, db *sql.DB, userID int64, openComment string) (*model.Request, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT item_id, quantity, request_type FROM cart_entries WHERE user_id = ? ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("reading cart: %w", err)
	}

	type line struct {
		itemID      int64
		quantity    int
		requestType string
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.itemID, &l.quantity, &l.requestType); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning cart entry: %w", err)
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("submitting cart: %w", ErrEmptyCart)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO requests (requester_id, status, open_comment) VALUES (?, ?, ?)`,
		userID, model.StatusOutstanding, openComment,
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	requestID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting request id: %w", err)
	}

	for _, l := range lines {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO requested_items (request_id, item_id, quantity, request_type)
			 VALUES (?, ?, ?, ?)`,
			requestID, l.itemID, l.quantity, l.requestType,
		); err != nil {
			return nil, fmt.Errorf("creating requested line: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cart_entries WHERE user_id = ?`, userID,
	); err != nil {
		return nil, fmt.Errorf("emptying cart: %w", err)
	}

	if err := recordActivity(ctx, tx, &userID, model.ActionSubmitRequest, nil, &requestID, nil, openComment); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing request: %w", err)
	}

	return GetRequest(ctx, db, requestID)
}

// GetRequest returns a request with its lines, nil if it does not exist.
func GetRequest(ctx context.Context, db *sql.DB, id int64) (*model.Request, error) {
	r := &model.Request{}
	var openComment, closedComment sql.NullString
	var adminName sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT r.id, r.requester_id, r.status, r.open_comment, r.closed_comment,
		        r.administrator_id, r.date_open, r.date_closed,
		        u.username, a.username
		 FROM requests r
		 JOIN users u ON u.id = r.requester_id
		 LEFT JOIN users a ON a.id = r.administrator_id
		 WHERE r.id = ?`, id,
	).Scan(&r.ID, &r.RequesterID, &r.Status, &openComment, &closedComment,
		&r.AdministratorID, &r.DateOpen, &r.DateClosed,
		&r.RequesterName, &adminName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting request: %w", err)
	}
	r.OpenComment = openComment.String
	r.ClosedComment = closedComment.String
	r.AdministratorName = adminName.String

	rows, err := db.QueryContext(ctx,
		`SELECT ri.id, ri.request_id, ri.item_id, ri.quantity, ri.request_type, i.name
		 FROM requested_items ri
		 JOIN items i ON i.id = ri.item_id
		 WHERE ri.request_id = ?
		 ORDER BY ri.id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting request lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ri model.RequestedItem
		if err := rows.Scan(&ri.ID, &ri.RequestID, &ri.ItemID, &ri.Quantity, &ri.RequestType, &ri.ItemName); err != nil {
			return nil, fmt.Errorf("scanning request line: %w", err)
		}
		r.Items = append(r.Items, ri)
	}
	return r, rows.Err()
}

// ListRequests returns requests, newest first, optionally filtered by
// requester and/or status.
func ListRequests(ctx context.Context, db *sql.DB, requesterID int64, status string) ([]model.Request, error) {
	query := `SELECT r.id, r.requester_id, r.status, r.open_comment, r.closed_comment,
	                 r.administrator_id, r.date_open, r.date_closed, u.username
	          FROM requests r
	          JOIN users u ON u.id = r.requester_id
	          WHERE 1=1`
	var args []any

	if requesterID > 0 {
		query += ` AND r.requester_id = ?`
		args = append(args, requesterID)
	}
	if status != "" {
		query += ` AND r.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY r.date_open DESC, r.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	defer rows.Close()

	var requests []model.Request
	for rows.Next() {
		var r model.Request
		var openComment, closedComment sql.NullString
		if err := rows.Scan(&r.ID, &r.RequesterID, &r.Status, &openComment, &closedComment,
			&r.AdministratorID, &r.DateOpen, &r.DateClosed, &r.RequesterName); err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		r.OpenComment = openComment.String
		r.ClosedComment = closedComment.String
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// CloseDecision is an administrator's verdict on an outstanding request.
type CloseDecision struct {
	Approve       bool
	ClosedComment string

	// ConfirmedQuantities optionally overrides the disbursed/loaned quantity
	// per request line (keyed by requested_items id). A confirmed quantity
	// must be between 1 and the originally requested quantity; lines without
	// an override are approved at the requested quantity.
	ConfirmedQuantities map[int64]int

	// AssetTags optionally attaches an asset tag to the loan created for a
	// loan line (keyed by requested_items id).
	AssetTags map[int64]string
}

// CloseRequest closes an outstanding request. Denial records the decision
// and nothing else. Approval re-validates every confirmed quantity against
// the item's current on-hand stock inside the transaction, then decrements
// the ledger and creates one loan or disbursement per line. Any shortfall
// aborts the whole close with ErrInsufficientStock and the request stays
// Outstanding: the ledger decrement and the record creation commit together
// or not at all.
func CloseRequest(ctx context.Context, db *sql.DB, requestID, administratorID int64, decision CloseDecision) (*model.Request, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM requests WHERE id = ?`, requestID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("closing request %d: %w", requestID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting request status: %w", err)
	}
	if status != model.StatusOutstanding {
		return nil, fmt.Errorf("closing request %d with status %s: %w",
			requestID, model.StatusName(status), ErrRequestClosed)
	}

	newStatus := model.StatusDenied
	action := model.ActionDeny

	if decision.Approve {
		newStatus = model.StatusApproved
		action = model.ActionApprove

		rows, err := tx.QueryContext(ctx,
			`SELECT id, item_id, quantity, request_type FROM requested_items
			 WHERE request_id = ? ORDER BY id`, requestID,
		)
		if err != nil {
			return nil, fmt.Errorf("getting request lines: %w", err)
		}

		type line struct {
			id          int64
			itemID      int64
			quantity    int
			requestType string
		}
		var lines []line
		for rows.Next() {
			var l line
			if err := rows.Scan(&l.id, &l.itemID, &l.quantity, &l.requestType); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning request line: %w", err)
			}
			lines = append(lines, l)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}

		for _, l := range lines {
			confirmed := l.quantity
			if q, ok := decision.ConfirmedQuantities[l.id]; ok {
				confirmed = q
			}
			if confirmed < 1 || confirmed > l.quantity {
				return nil, fmt.Errorf("confirmed quantity %d for line %d outside 1..%d",
					confirmed, l.id, l.quantity)
			}

			// Re-validate against current on-hand stock. Admission checks at
			// cart time were advisory; this is the binding one, serialized by
			// the store's write transaction.
			var onHand int
			var itemName string
			err = tx.QueryRowContext(ctx,
				`SELECT quantity, name FROM items WHERE id = ?`, l.itemID,
			).Scan(&onHand, &itemName)
			if err != nil {
				return nil, fmt.Errorf("checking on-hand stock: %w", err)
			}
			if confirmed > onHand {
				return nil, fmt.Errorf("approving %d of %q with %d on hand: %w",
					confirmed, itemName, onHand, ErrInsufficientStock)
			}

			if _, err := tx.ExecContext(ctx,
				`UPDATE items SET quantity = quantity - ?, updated_at = CURRENT_TIMESTAMP
				 WHERE id = ?`,
				confirmed, l.itemID,
			); err != nil {
				return nil, fmt.Errorf("decrementing stock: %w", err)
			}

			switch l.requestType {
			case model.RequestTypeLoan:
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO loans (request_id, item_id, quantity_loaned, asset_tag)
					 VALUES (?, ?, ?, ?)`,
					requestID, l.itemID, confirmed, nullString(decision.AssetTags[l.id]),
				); err != nil {
					return nil, fmt.Errorf("creating loan: %w", err)
				}
			case model.RequestTypeDisbursement:
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO disbursements (request_id, item_id, quantity)
					 VALUES (?, ?, ?)`,
					requestID, l.itemID, confirmed,
				); err != nil {
					return nil, fmt.Errorf("creating disbursement: %w", err)
				}
			default:
				return nil, fmt.Errorf("unknown request type %q on line %d", l.requestType, l.id)
			}

			if err := recordActivity(ctx, tx, &administratorID, action, &l.itemID, &requestID, &confirmed, decision.ClosedComment); err != nil {
				return nil, err
			}
		}
	} else {
		if err := recordActivity(ctx, tx, &administratorID, action, nil, &requestID, nil, decision.ClosedComment); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE requests SET status = ?, administrator_id = ?, closed_comment = ?,
		        date_closed = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		newStatus, administratorID, decision.ClosedComment, requestID,
	); err != nil {
		return nil, fmt.Errorf("closing request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing close: %w", err)
	}

	return GetRequest(ctx, db, requestID)
}

// DeleteRequest withdraws a request, as if it was never submitted. Only the
// requester may withdraw, and only while the request is still Outstanding.
func DeleteRequest(ctx context.Context, db *sql.DB, requestID, requesterID int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var owner int64
	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT requester_id, status FROM requests WHERE id = ?`, requestID,
	).Scan(&owner, &status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("deleting request %d: %w", requestID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("getting request: %w", err)
	}
	if owner != requesterID {
		return fmt.Errorf("deleting request %d: %w", requestID, ErrForbidden)
	}
	if status != model.StatusOutstanding {
		return fmt.Errorf("deleting request %d with status %s: %w",
			requestID, model.StatusName(status), ErrRequestClosed)
	}

	// Withdrawals leave no trace, including the submit activity entry.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM activity WHERE request_id = ?`, requestID,
	); err != nil {
		return fmt.Errorf("deleting request activity: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM requested_items WHERE request_id = ?`, requestID,
	); err != nil {
		return fmt.Errorf("deleting request lines: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM requests WHERE id = ?`, requestID,
	); err != nil {
		return fmt.Errorf("deleting request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing request deletion: %w", err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
