package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"stockroom/internal/imaging"
	"stockroom/internal/model"
	"stockroom/internal/store"
)

// ItemsHandler handles item CRUD and ledger endpoints.
type ItemsHandler struct {
	DB *sql.DB
}

type createItemRequest struct {
	Name         string   `json:"name"`
	ModelNo      string   `json:"model_no"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	Quantity     int      `json:"quantity"`
	MinimumStock int      `json:"minimum_stock"`
	Tags         []string `json:"tags"`
}

type updateItemRequest struct {
	ModelNo      string   `json:"model_no"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	MinimumStock int      `json:"minimum_stock"`
	Tags         []string `json:"tags"`
}

type restockRequest struct {
	Delta int    `json:"delta"`
	Note  string `json:"note"`
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.ListItemsOptions{
		Search:      q.Get("search"),
		IncludeTags: q["tag"],
		ExcludeTags: q["exclude_tag"],
		LowStock:    q.Get("low_stock") == "true",
	}

	items, err := store.ListItems(r.Context(), h.DB, opts)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}
	if req.Quantity < 0 || req.MinimumStock < 0 {
		jsonError(w, http.StatusBadRequest, "quantities must not be negative")
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB,
		req.Name, req.ModelNo, req.Location, req.Description,
		req.Quantity, req.MinimumStock, req.Tags)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	slog.Info("item created", "item", item.Name, "quantity", item.Quantity)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{name}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	item, err := store.GetItemByName(r.Context(), h.DB, name)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	// Regular users see their own stacks, managers the global view.
	claims := GetClaims(r.Context())
	var userID int64
	if claims != nil && !model.RoleAtLeast(claims.Role, model.RoleManager) {
		userID = claims.UserID
	}

	stacks, err := store.ComputeStacks(r.Context(), h.DB, name, userID)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"item":   item,
		"stacks": stacks,
	})
}

// Update handles PUT /api/items/{name}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.MinimumStock < 0 {
		jsonError(w, http.StatusBadRequest, "minimum stock must not be negative")
		return
	}

	item, err := store.UpdateItem(r.Context(), h.DB,
		name, req.ModelNo, req.Location, req.Description,
		req.MinimumStock, req.Tags)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{name}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if err := store.DeleteItem(r.Context(), h.DB, name); err != nil {
		storeError(w, err)
		return
	}

	slog.Info("item deleted", "item", name)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// Restock handles POST /api/items/{name}/quantity.
func (h *ItemsHandler) Restock(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req restockRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Delta == 0 {
		jsonError(w, http.StatusBadRequest, "delta must be non-zero")
		return
	}

	claims := GetClaims(r.Context())
	var actorID *int64
	if claims != nil {
		actorID = &claims.UserID
	}

	item, err := store.AdjustQuantity(r.Context(), h.DB, name, req.Delta, actorID, req.Note)
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("stock adjusted", "item", name, "delta", req.Delta, "quantity", item.Quantity)
	jsonResponse(w, http.StatusOK, item)
}

// Stacks handles GET /api/items/{name}/stacks.
func (h *ItemsHandler) Stacks(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var userID int64
	if v := r.URL.Query().Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		userID = id
	}

	// Non-managers may only ask about themselves.
	claims := GetClaims(r.Context())
	if claims != nil && !model.RoleAtLeast(claims.Role, model.RoleManager) {
		if userID != 0 && userID != claims.UserID {
			jsonError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
	}

	stacks, err := store.ComputeStacks(r.Context(), h.DB, name, userID)
	if err != nil {
		storeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, stacks)
}

// UploadImage handles PUT /api/items/{name}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes)

	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Prepare(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, name, photo.Data, photo.MIME); err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/items/{name}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	data, mime, err := store.GetItemImage(r.Context(), h.DB, name)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// GetActivity handles GET /api/items/{name}/activity.
func (h *ItemsHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	item, err := store.GetItemByName(r.Context(), h.DB, name)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	entries, err := store.ListActivity(r.Context(), h.DB, item.ID, limit)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get item activity")
		return
	}
	if entries == nil {
		entries = []model.Activity{}
	}
	jsonResponse(w, http.StatusOK, entries)
}
