package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/devshelf/devshelf/internal/api/respond"
	"github.com/devshelf/devshelf/internal/facade"
	"github.com/devshelf/devshelf/internal/model"
)

// ResourceHandler is the actor RPC surface plus the listing and search
// reads. Every request runs against the configured partition.
type ResourceHandler struct {
	facade    *facade.Facade
	partition string
}

func NewResourceHandler(f *facade.Facade, partition string) *ResourceHandler {
	return &ResourceHandler{facade: f, partition: partition}
}

// Submit POST /submit
func (h *ResourceHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL    string `json:"url"`
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	out, err := h.facade.Submit(r.Context(), h.partition, req.UserID, req.URL)
	if err != nil {
		writeFailure(w, r, "submit", err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

// Refresh POST /refresh
func (h *ResourceHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ResourceID string `json:"resourceId"`
		UserID     string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	ok, err := h.facade.Refresh(r.Context(), h.partition, req.UserID, req.ResourceID)
	if err != nil {
		writeFailure(w, r, "refresh", err)
		return
	}
	if !ok {
		respond.WriteNotFound(w)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GetDetails GET /details?resourceId=
func (h *ResourceHandler) GetDetails(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("resourceId")
	if id == "" {
		respond.WriteBadRequest(w, "resourceId query parameter required")
		return
	}
	res, err := h.facade.Query(r.Context(), h.partition, id)
	if err != nil {
		writeFailure(w, r, "details", err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, res)
}

// View PUT /view
func (h *ResourceHandler) View(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ResourceID string `json:"resourceId"`
		UserID     string `json:"userId,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	ok, err := h.facade.View(r.Context(), h.partition, req.UserID, req.ResourceID)
	if err != nil {
		writeFailure(w, r, "view", err)
		return
	}
	if !ok {
		respond.WriteNotFound(w)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Bookmark PUT /bookmark
func (h *ResourceHandler) Bookmark(w http.ResponseWriter, r *http.Request) {
	h.setBookmark(w, r, true)
}

// Unbookmark DELETE /bookmark
func (h *ResourceHandler) Unbookmark(w http.ResponseWriter, r *http.Request) {
	h.setBookmark(w, r, false)
}

func (h *ResourceHandler) setBookmark(w http.ResponseWriter, r *http.Request, bookmarked bool) {
	var req struct {
		UserID     string `json:"userId"`
		ResourceID string `json:"resourceId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	var (
		ok  bool
		err error
	)
	op := "bookmark"
	if bookmarked {
		ok, err = h.facade.Bookmark(r.Context(), h.partition, req.UserID, req.ResourceID)
	} else {
		op = "unbookmark"
		ok, err = h.facade.Unbookmark(r.Context(), h.partition, req.UserID, req.ResourceID)
	}
	if err != nil {
		writeFailure(w, r, op, err)
		return
	}
	if !ok {
		respond.WriteNotFound(w)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Backup POST /backup
func (h *ResourceHandler) Backup(w http.ResponseWriter, r *http.Request) {
	dump, err := h.facade.BackupResources(r.Context(), h.partition)
	if err != nil {
		writeFailure(w, r, "backup", err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, dump)
}

// Restore POST /restore
func (h *ResourceHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var dump map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&dump); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := h.facade.RestoreResources(r.Context(), h.partition, dump); err != nil {
		writeFailure(w, r, "restore", err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// List GET /resources
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.facade.ListResources(r.Context())
	if err != nil {
		writeFailure(w, r, "listResources", err)
		return
	}
	if list == nil {
		list = []model.ResourceMetadata{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"resources": list, "count": len(list)})
}

// Search GET /search?q=&limit=
func (h *ResourceHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		respond.WriteBadRequest(w, "q query parameter required")
		return
	}
	limit := 0
	if s := q.Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	results, err := h.facade.Search(r.Context(), query, limit)
	if err != nil {
		writeFailure(w, r, "search", err)
		return
	}
	if results == nil {
		results = []model.ResourceMetadata{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"results": results, "count": len(results)})
}
