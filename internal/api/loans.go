package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"stockroom/internal/model"
	"stockroom/internal/store"
)

// LoansHandler handles loan tracking endpoints.
type LoansHandler struct {
	DB *sql.DB
}

type loanQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// List handles GET /api/loans. Regular users see their own loans.
func (h *LoansHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var itemID, requesterID int64
	if v := r.URL.Query().Get("item_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid item_id")
			return
		}
		itemID = id
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		requesterID = id
	}
	openOnly := r.URL.Query().Get("open") == "true"

	if !model.RoleAtLeast(claims.Role, model.RoleManager) {
		requesterID = claims.UserID
	}

	loans, err := store.ListLoans(r.Context(), h.DB, itemID, requesterID, openOnly)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list loans")
		return
	}
	if loans == nil {
		loans = []model.Loan{}
	}
	jsonResponse(w, http.StatusOK, loans)
}

// Get handles GET /api/loans/{id}. Visible to the borrower and to managers.
func (h *LoansHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	loan, err := store.GetLoan(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get loan")
		return
	}
	if loan == nil {
		jsonError(w, http.StatusNotFound, "loan not found")
		return
	}

	claims := GetClaims(r.Context())
	if loan.RequesterID != claims.UserID && !model.RoleAtLeast(claims.Role, model.RoleManager) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	jsonResponse(w, http.StatusOK, loan)
}

// Return handles POST /api/loans/{id}/return: a manager records returned units.
func (h *LoansHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	var req loanQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity <= 0 {
		jsonError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	claims := GetClaims(r.Context())
	loan, err := store.RecordReturn(r.Context(), h.DB, id, req.Quantity, &claims.UserID)
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("loan return recorded", "loan", loan.ID, "item", loan.ItemName,
		"returned", req.Quantity, "outstanding", loan.QuantityLoaned-loan.QuantityReturned)
	jsonResponse(w, http.StatusOK, loan)
}

// Convert handles POST /api/loans/{id}/convert: a manager converts loaned
// units into a permanent disbursement.
func (h *LoansHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	var req loanQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity <= 0 {
		jsonError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	claims := GetClaims(r.Context())
	disbursement, err := store.ConvertToDisbursement(r.Context(), h.DB, id, req.Quantity, &claims.UserID)
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("loan converted", "loan", id, "item", disbursement.ItemName, "quantity", req.Quantity)
	jsonResponse(w, http.StatusOK, disbursement)
}
