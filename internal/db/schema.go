package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Item quantity is the on-hand ledger;
// everything else that looks like a count (requested, loaned, disbursed,
// in-cart) is derived by aggregating the referencing rows at read time.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    email         TEXT,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tags (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS items (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    model_no      TEXT,
    location      TEXT,
    description   TEXT,
    quantity      INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    minimum_stock INTEGER NOT NULL DEFAULT 0 CHECK (minimum_stock >= 0),
    image         BLOB,
    image_mime    TEXT,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_items_name_active
    ON items(name) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS item_tags (
    item_id INTEGER NOT NULL REFERENCES items(id),
    tag_id  INTEGER NOT NULL REFERENCES tags(id),
    PRIMARY KEY (item_id, tag_id)
);

CREATE TABLE IF NOT EXISTS cart_entries (
    id           INTEGER PRIMARY KEY,
    user_id      INTEGER NOT NULL REFERENCES users(id),
    item_id      INTEGER NOT NULL REFERENCES items(id),
    quantity     INTEGER NOT NULL CHECK (quantity > 0),
    request_type TEXT NOT NULL CHECK (request_type IN ('loan', 'disbursement')),
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (user_id, item_id)
);

CREATE TABLE IF NOT EXISTS requests (
    id               INTEGER PRIMARY KEY,
    requester_id     INTEGER NOT NULL REFERENCES users(id),
    status           TEXT NOT NULL DEFAULT 'O' CHECK (status IN ('O', 'A', 'D')),
    open_comment     TEXT,
    closed_comment   TEXT,
    administrator_id INTEGER REFERENCES users(id),
    date_open        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    date_closed      DATETIME
);

CREATE INDEX IF NOT EXISTS idx_requests_requester
    ON requests(requester_id, status);

CREATE TABLE IF NOT EXISTS requested_items (
    id           INTEGER PRIMARY KEY,
    request_id   INTEGER NOT NULL REFERENCES requests(id),
    item_id      INTEGER NOT NULL REFERENCES items(id),
    quantity     INTEGER NOT NULL CHECK (quantity > 0),
    request_type TEXT NOT NULL CHECK (request_type IN ('loan', 'disbursement'))
);

CREATE INDEX IF NOT EXISTS idx_requested_items_item
    ON requested_items(item_id);

CREATE TABLE IF NOT EXISTS loans (
    id                INTEGER PRIMARY KEY,
    request_id        INTEGER NOT NULL REFERENCES requests(id),
    item_id           INTEGER NOT NULL REFERENCES items(id),
    quantity_loaned   INTEGER NOT NULL CHECK (quantity_loaned > 0),
    quantity_returned INTEGER NOT NULL DEFAULT 0
        CHECK (quantity_returned >= 0 AND quantity_returned <= quantity_loaned),
    asset_tag         TEXT,
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_loans_item
    ON loans(item_id);

CREATE TABLE IF NOT EXISTS disbursements (
    id         INTEGER PRIMARY KEY,
    request_id INTEGER NOT NULL REFERENCES requests(id),
    item_id    INTEGER NOT NULL REFERENCES items(id),
    quantity   INTEGER NOT NULL CHECK (quantity > 0),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_disbursements_item
    ON disbursements(item_id);

CREATE TABLE IF NOT EXISTS activity (
    id         INTEGER PRIMARY KEY,
    actor_id   INTEGER REFERENCES users(id),
    action     TEXT NOT NULL,
    item_id    INTEGER REFERENCES items(id),
    request_id INTEGER REFERENCES requests(id),
    quantity   INTEGER,
    note       TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_activity_item
    ON activity(item_id, created_at DESC);
`

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at
// the end.
var migrations = []string{
	// Migration 1: replace the hard UNIQUE on item names with a partial
	// unique index covering only active items, so a deleted item's name
	// can be reused.
	`DROP INDEX IF EXISTS sqlite_autoindex_items_1`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_items_name_active
	     ON items(name) WHERE deleted_at IS NULL`,
}

// EnsureSchema creates all tables and indexes if they don't already exist,
// then applies migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
