package model

import "time"

// Item represents a stocked item type. Quantity is the on-hand ledger:
// the number of physical units currently available for new commitments.
// It is only ever changed by restocks, approved requests, and loan returns.
type Item struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	ModelNo      string     `json:"model_no,omitempty"`
	Location     string     `json:"location,omitempty"`
	Description  string     `json:"description,omitempty"`
	Quantity     int        `json:"quantity"`
	MinimumStock int        `json:"minimum_stock"`
	Tags         []string   `json:"tags,omitempty"`
	ImageMime    string     `json:"image_mime,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Stacks is the derived view of how an item's units are currently
// distributed. The counts are recomputed from the live cart, request,
// loan and disbursement rows on every read and are never stored.
type Stacks struct {
	InStock   int `json:"in_stock"`
	Requested int `json:"requested"`
	Loaned    int `json:"loaned"`
	Disbursed int `json:"disbursed"`
	InCart    int `json:"in_cart"`
}
