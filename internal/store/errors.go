package store

import "errors"

// Domain failures surfaced to callers as typed sentinels; check with
// errors.Is. Every mutating operation that returns one of these leaves the
// database exactly as it was before the call.
var (
	ErrNotFound                 = errors.New("not found")
	ErrInsufficientStock        = errors.New("insufficient stock")
	ErrQuantityExceedsAvailable = errors.New("quantity exceeds available stock")
	ErrEmptyCart                = errors.New("cart is empty")
	ErrRequestClosed            = errors.New("request already closed")
	ErrOverReturn               = errors.New("return exceeds outstanding loaned quantity")
	ErrForbidden                = errors.New("forbidden")
)
