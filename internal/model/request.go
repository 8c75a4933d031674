package model

import "time"

// Request aggregates the lines a user submitted from their cart. It starts
// Outstanding and is closed exactly once, to Approved or Denied; both are
// terminal.
type Request struct {
	ID              int64      `json:"id"`
	RequesterID     int64      `json:"requester_id"`
	Status          string     `json:"status"`
	OpenComment     string     `json:"open_comment,omitempty"`
	ClosedComment   string     `json:"closed_comment,omitempty"`
	AdministratorID *int64     `json:"administrator_id,omitempty"`
	DateOpen        time.Time  `json:"date_open"`
	DateClosed      *time.Time `json:"date_closed,omitempty"`

	// Joined fields (not always populated).
	RequesterName     string          `json:"requester_name,omitempty"`
	AdministratorName string          `json:"administrator_name,omitempty"`
	Items             []RequestedItem `json:"items,omitempty"`
}

// RequestedItem is one line of a request.
type RequestedItem struct {
	ID          int64  `json:"id"`
	RequestID   int64  `json:"request_id"`
	ItemID      int64  `json:"item_id"`
	Quantity    int    `json:"quantity"`
	RequestType string `json:"request_type"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
}

// Request statuses.
const (
	StatusOutstanding = "O"
	StatusApproved    = "A"
	StatusDenied      = "D"
)

// StatusName returns the human-readable name of a status code.
func StatusName(status string) string {
	switch status {
	case StatusOutstanding:
		return "Outstanding"
	case StatusApproved:
		return "Approved"
	case StatusDenied:
		return "Denied"
	}
	return status
}
