package model

import "time"

// Loan tracks units temporarily out of stock. Created only when a loan line
// of a request is approved; quantity_returned grows monotonically until it
// reaches quantity_loaned, at which point the loan is closed.
type Loan struct {
	ID               int64     `json:"id"`
	RequestID        int64     `json:"request_id"`
	ItemID           int64     `json:"item_id"`
	QuantityLoaned   int       `json:"quantity_loaned"`
	QuantityReturned int       `json:"quantity_returned"`
	AssetTag         string    `json:"asset_tag,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	ItemName      string `json:"item_name,omitempty"`
	RequesterID   int64  `json:"requester_id,omitempty"`
	RequesterName string `json:"requester_name,omitempty"`
}

// Outstanding returns the number of loaned units not yet returned.
func (l *Loan) Outstanding() int {
	return l.QuantityLoaned - l.QuantityReturned
}

// Closed reports whether every loaned unit has been returned.
func (l *Loan) Closed() bool {
	return l.QuantityReturned == l.QuantityLoaned
}

// Disbursement tracks units permanently removed from stock. Created only
// when a disbursement line of a request is approved, or when an open loan
// is converted; never mutated afterwards except by merging conversions.
type Disbursement struct {
	ID        int64     `json:"id"`
	RequestID int64     `json:"request_id"`
	ItemID    int64     `json:"item_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`

	// Joined fields (not always populated).
	ItemName      string `json:"item_name,omitempty"`
	RequesterID   int64  `json:"requester_id,omitempty"`
	RequesterName string `json:"requester_name,omitempty"`
}
