package model

import "time"

// CartEntry is a user's pre-submission staging of a desired item. Each user
// holds at most one entry per item; adding the same item again replaces it.
type CartEntry struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	ItemID      int64     `json:"item_id"`
	Quantity    int       `json:"quantity"`
	RequestType string    `json:"request_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
}

// Request types: a loan is expected back, a disbursement is permanent.
const (
	RequestTypeLoan         = "loan"
	RequestTypeDisbursement = "disbursement"
)

// ValidRequestType reports whether t is a known request type.
func ValidRequestType(t string) bool {
	return t == RequestTypeLoan || t == RequestTypeDisbursement
}
