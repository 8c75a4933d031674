package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"stockroom/internal/model"
	"stockroom/internal/store"
)

// DisbursementsHandler handles read-only disbursement endpoints.
type DisbursementsHandler struct {
	DB *sql.DB
}

// List handles GET /api/disbursements. Regular users see their own.
func (h *DisbursementsHandler) List(w http.ResponseWriter, r *http.Request) {
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

	if !model.RoleAtLeast(claims.Role, model.RoleManager) {
		requesterID = claims.UserID
	}

	disbursements, err := store.ListDisbursements(r.Context(), h.DB, itemID, requesterID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list disbursements")
		return
	}
	if disbursements == nil {
		disbursements = []model.Disbursement{}
	}
	jsonResponse(w, http.StatusOK, disbursements)
}

// Get handles GET /api/disbursements/{id}. Visible to the recipient and to
// managers.
func (h *DisbursementsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid disbursement id")
		return
	}

	disbursement, err := store.GetDisbursement(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get disbursement")
		return
	}
	if disbursement == nil {
		jsonError(w, http.StatusNotFound, "disbursement not found")
		return
	}

	claims := GetClaims(r.Context())
	if disbursement.RequesterID != claims.UserID && !model.RoleAtLeast(claims.Role, model.RoleManager) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	jsonResponse(w, http.StatusOK, disbursement)
}
