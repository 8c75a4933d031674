package model

import "time"

// Activity is one audit trail entry, recorded inside the transaction of the
// operation it describes.
type Activity struct {
	ID        int64     `json:"id"`
	ActorID   *int64    `json:"actor_id,omitempty"`
	Action    string    `json:"action"`
	ItemID    *int64    `json:"item_id,omitempty"`
	RequestID *int64    `json:"request_id,omitempty"`
	Quantity  *int      `json:"quantity,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Joined fields (not always populated).
	ActorName string `json:"actor_name,omitempty"`
	ItemName  string `json:"item_name,omitempty"`
}

// Activity actions.
const (
	ActionRestock       = "restock"
	ActionSubmitRequest = "submit_request"
	ActionApprove       = "approve"
	ActionDeny          = "deny"
	ActionReturn        = "return"
	ActionConvert       = "convert"
)
