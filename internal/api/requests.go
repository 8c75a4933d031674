package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"stockroom/internal/model"
	"stockroom/internal/store"
)

// RequestsHandler handles request lifecycle endpoints.
type RequestsHandler struct {
	DB *sql.DB
}

type submitRequest struct {
	OpenComment string `json:"open_comment"`
}

type closeRequest struct {
	Approve             bool             `json:"approve"`
	ClosedComment       string           `json:"closed_comment"`
	ConfirmedQuantities map[int64]int    `json:"confirmed_quantities"`
	AssetTags           map[int64]string `json:"asset_tags"`
}

// Submit handles POST /api/requests: the caller's cart becomes an
// outstanding request.
func (h *RequestsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	request, err := store.SubmitCart(r.Context(), h.DB, claims.UserID, req.OpenComment)
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("request submitted", "user", claims.Username, "request", request.ID, "lines", len(request.Items))
	jsonResponse(w, http.StatusCreated, request)
}

// List handles GET /api/requests. Regular users see their own requests;
// managers can pass all=true for everyone's.
func (h *RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	requesterID := claims.UserID
	if r.URL.Query().Get("all") == "true" {
		if !model.RoleAtLeast(claims.Role, model.RoleManager) {
			jsonError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		requesterID = 0
	}

	status := r.URL.Query().Get("status")
	requests, err := store.ListRequests(r.Context(), h.DB, requesterID, status)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}
	if requests == nil {
		requests = []model.Request{}
	}
	jsonResponse(w, http.StatusOK, requests)
}

// Get handles GET /api/requests/{id}. Visible to the owner and to managers.
func (h *RequestsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	request, err := store.GetRequest(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get request")
		return
	}
	if request == nil {
		jsonError(w, http.StatusNotFound, "request not found")
		return
	}

	claims := GetClaims(r.Context())
	if request.RequesterID != claims.UserID && !model.RoleAtLeast(claims.Role, model.RoleManager) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	jsonResponse(w, http.StatusOK, request)
}

// Close handles PUT /api/requests/{id}: a manager approves or denies an
// outstanding request.
func (h *RequestsHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var req closeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	request, err := store.CloseRequest(r.Context(), h.DB, id, claims.UserID, store.CloseDecision{
		Approve:             req.Approve,
		ClosedComment:       req.ClosedComment,
		ConfirmedQuantities: req.ConfirmedQuantities,
		AssetTags:           req.AssetTags,
	})
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("request closed", "request", request.ID,
		"status", model.StatusName(request.Status), "administrator", claims.Username)
	jsonResponse(w, http.StatusOK, request)
}

// Delete handles DELETE /api/requests/{id}: the owner withdraws an
// outstanding request.
func (h *RequestsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	claims := GetClaims(r.Context())
	if err := store.DeleteRequest(r.Context(), h.DB, id, claims.UserID); err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "request withdrawn"})
}
