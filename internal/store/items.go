package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"stockroom/internal/model"
)

// CreateItem creates a new item with optional initial stock and tags.
func CreateItem(ctx context.Context, db *sql.DB, name, modelNo, location, description string, quantity, minimumStock int, tags []string) (*model.Item, error) {
	if name == "" {
		return nil, fmt.Errorf("item name required")
	}
	if quantity < 0 {
		return nil, fmt.Errorf("quantity must not be negative")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO items (name, model_no, location, description, quantity, minimum_stock)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		name, modelNo, location, description, quantity, minimumStock,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	if err := setItemTags(ctx, tx, id, tags); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	return getItem(ctx, db, `WHERE id = ?`, id)
}

// GetItemByName returns an active item by its public name.
func GetItemByName(ctx context.Context, db *sql.DB, name string) (*model.Item, error) {
	return getItem(ctx, db, `WHERE name = ? AND deleted_at IS NULL`, name)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getItem(ctx context.Context, q querier, where string, arg any) (*model.Item, error) {
	item := &model.Item{}
	var modelNo, location, description, imageMime sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT id, name, model_no, location, description, quantity, minimum_stock,
		        image_mime, created_at, updated_at, deleted_at
		 FROM items `+where, arg,
	).Scan(&item.ID, &item.Name, &modelNo, &location, &description, &item.Quantity,
		&item.MinimumStock, &imageMime, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	item.ModelNo = modelNo.String
	item.Location = location.String
	item.Description = description.String
	item.ImageMime = imageMime.String

	tags, err := itemTags(ctx, q, item.ID)
	if err != nil {
		return nil, err
	}
	item.Tags = tags
	return item, nil
}

// ListItemsOptions filters ListItems output.
type ListItemsOptions struct {
	Search      string   // substring match on name or model number
	IncludeTags []string // items must carry every listed tag
	ExcludeTags []string // items must carry none of the listed tags
	LowStock    bool     // only items at or below their minimum stock
}

// ListItems returns all non-deleted items matching the options, ordered by name.
func ListItems(ctx context.Context, db *sql.DB, opts ListItemsOptions) ([]model.Item, error) {
	query := `SELECT id, name, model_no, location, description, quantity, minimum_stock,
	                 image_mime, created_at, updated_at, deleted_at
	          FROM items WHERE deleted_at IS NULL`
	var args []any

	if opts.Search != "" {
		query += ` AND (name LIKE ? OR model_no LIKE ?)`
		pattern := "%" + opts.Search + "%"
		args = append(args, pattern, pattern)
	}
	for _, tag := range opts.IncludeTags {
		query += ` AND id IN (SELECT item_id FROM item_tags it JOIN tags t ON t.id = it.tag_id WHERE t.name = ?)`
		args = append(args, tag)
	}
	for _, tag := range opts.ExcludeTags {
		query += ` AND id NOT IN (SELECT item_id FROM item_tags it JOIN tags t ON t.id = it.tag_id WHERE t.name = ?)`
		args = append(args, tag)
	}
	if opts.LowStock {
		query += ` AND quantity <= minimum_stock`
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		var modelNo, location, description, imageMime sql.NullString
		if err := rows.Scan(&item.ID, &item.Name, &modelNo, &location, &description,
			&item.Quantity, &item.MinimumStock, &imageMime,
			&item.CreatedAt, &item.UpdatedAt, &item.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.ModelNo = modelNo.String
		item.Location = location.String
		item.Description = description.String
		item.ImageMime = imageMime.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range items {
		tags, err := itemTags(ctx, db, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Tags = tags
	}
	return items, nil
}

// UpdateItem updates an item's metadata and replaces its tag set.
func UpdateItem(ctx context.Context, db *sql.DB, name, modelNo, location, description string, minimumStock int, tags []string) (*model.Item, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := getItem(ctx, tx, `WHERE name = ? AND deleted_at IS NULL`, name)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("updating item %q: %w", name, ErrNotFound)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE items SET model_no = ?, location = ?, description = ?, minimum_stock = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		modelNo, location, description, minimumStock, item.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}

	if err := setItemTags(ctx, tx, item.ID, tags); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item update: %w", err)
	}

	return GetItem(ctx, db, item.ID)
}

// DeleteItem soft-deletes an item. Deletion is refused while outstanding
// request lines or open loans still reference the item; cart entries for it
// are removed as part of the deletion.
func DeleteItem(ctx context.Context, db *sql.DB, name string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := getItem(ctx, tx, `WHERE name = ? AND deleted_at IS NULL`, name)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("deleting item %q: %w", name, ErrNotFound)
	}

	var outstanding int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM requested_items ri
		 JOIN requests r ON r.id = ri.request_id
		 WHERE ri.item_id = ? AND r.status = ?`,
		item.ID, model.StatusOutstanding,
	).Scan(&outstanding)
	if err != nil {
		return fmt.Errorf("checking outstanding requests: %w", err)
	}
	if outstanding > 0 {
		return fmt.Errorf("item %q has outstanding request lines: %w", name, ErrForbidden)
	}

	var openLoans int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE item_id = ? AND quantity_returned < quantity_loaned`,
		item.ID,
	).Scan(&openLoans)
	if err != nil {
		return fmt.Errorf("checking open loans: %w", err)
	}
	if openLoans > 0 {
		return fmt.Errorf("item %q has open loans: %w", name, ErrForbidden)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cart_entries WHERE item_id = ?`, item.ID,
	); err != nil {
		return fmt.Errorf("clearing cart entries: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ?`, item.ID,
	); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing item deletion: %w", err)
	}
	return nil
}

// AdjustQuantity changes an item's on-hand quantity by delta (restocks and
// corrections). Fails with ErrInsufficientStock if the result would be
// negative.
func AdjustQuantity(ctx context.Context, db *sql.DB, name string, delta int, actorID *int64, note string) (*model.Item, error) {
	if delta == 0 {
		return nil, fmt.Errorf("delta must be non-zero")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := getItem(ctx, tx, `WHERE name = ? AND deleted_at IS NULL`, name)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("adjusting item %q: %w", name, ErrNotFound)
	}

	if item.Quantity+delta < 0 {
		return nil, fmt.Errorf("adjusting item %q by %d with %d on hand: %w",
			name, delta, item.Quantity, ErrInsufficientStock)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		delta, item.ID,
	); err != nil {
		return nil, fmt.Errorf("adjusting quantity: %w", err)
	}

	if err := recordActivity(ctx, tx, actorID, model.ActionRestock, &item.ID, nil, &delta, note); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing adjustment: %w", err)
	}

	return GetItem(ctx, db, item.ID)
}

// SetItemImage stores an item's processed image data.
func SetItemImage(ctx context.Context, db *sql.DB, name string, image []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE name = ? AND deleted_at IS NULL`,
		image, mime, name,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("setting image for item %q: %w", name, ErrNotFound)
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, name string) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE name = ? AND deleted_at IS NULL`, name,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

// setItemTags replaces an item's tag set, creating missing tags.
func setItemTags(ctx context.Context, tx *sql.Tx, itemID int64, tags []string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM item_tags WHERE item_id = ?`, itemID,
	); err != nil {
		return fmt.Errorf("clearing item tags: %w", err)
	}

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO tags (name) VALUES (?)`, tag,
		); err != nil {
			return fmt.Errorf("creating tag %q: %w", tag, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO item_tags (item_id, tag_id)
			 SELECT ?, id FROM tags WHERE name = ?`,
			itemID, tag,
		); err != nil {
			return fmt.Errorf("tagging item: %w", err)
		}
	}
	return nil
}

// itemTags returns an item's tag names, sorted.
func itemTags(ctx context.Context, q querier, itemID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT t.name FROM tags t
		 JOIN item_tags it ON it.tag_id = t.id
		 WHERE it.item_id = ? ORDER BY t.name`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting item tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}
