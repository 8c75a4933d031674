package api

import (
	"database/sql"
	"net/http"

	"stockroom/internal/model"
	"stockroom/internal/store"
)

// CartHandler handles the caller's durable cart.
type CartHandler struct {
	DB *sql.DB
}

type cartEntryRequest struct {
	Item        string `json:"item"`
	Quantity    int    `json:"quantity"`
	RequestType string `json:"request_type"`
}

// List handles GET /api/cart.
func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	entries, err := store.GetCart(r.Context(), h.DB, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get cart")
		return
	}
	if entries == nil {
		entries = []model.CartEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}

// Add handles POST /api/cart. Adding an item already in the cart replaces
// its entry.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req cartEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Item == "" {
		jsonError(w, http.StatusBadRequest, "item required")
		return
	}
	if req.Quantity <= 0 {
		jsonError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}
	if !model.ValidRequestType(req.RequestType) {
		jsonError(w, http.StatusBadRequest, "request_type must be loan or disbursement")
		return
	}

	entry, err := store.AddToCart(r.Context(), h.DB, claims.UserID, req.Item, req.Quantity, req.RequestType)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, entry)
}

// Update handles PUT /api/cart/{name}. Zero-valued fields keep their
// current values.
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	name := r.PathValue("name")

	var req cartEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity < 0 {
		jsonError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}
	if req.RequestType != "" && !model.ValidRequestType(req.RequestType) {
		jsonError(w, http.StatusBadRequest, "request_type must be loan or disbursement")
		return
	}

	entry, err := store.UpdateCartEntry(r.Context(), h.DB, claims.UserID, name, req.Quantity, req.RequestType)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, entry)
}

// Remove handles DELETE /api/cart/{name}.
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	name := r.PathValue("name")

	if err := store.RemoveFromCart(r.Context(), h.DB, claims.UserID, name); err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "removed from cart"})
}
