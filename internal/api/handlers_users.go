package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/devshelf/devshelf/internal/api/respond"
	"github.com/devshelf/devshelf/internal/facade"
	"github.com/devshelf/devshelf/internal/model"
)

// UserHandler serves the profile reads and per-user backup/restore.
type UserHandler struct {
	facade *facade.Facade
}

func NewUserHandler(f *facade.Facade) *UserHandler {
	return &UserHandler{facade: f}
}

// List GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.facade.ListUsers(r.Context())
	if err != nil {
		writeFailure(w, r, "listUsers", err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": users, "count": len(users)})
}

// Get GET /users/{userId}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	u, err := h.facade.GetUser(r.Context(), userID)
	if err != nil {
		writeFailure(w, r, "getUser", err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, u)
}

// Backup POST /users/{userId}/backup
func (h *UserHandler) Backup(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	raw, err := h.facade.BackupUser(r.Context(), userID)
	if err != nil {
		writeFailure(w, r, "backupUser", err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, raw)
}

// Restore POST /users/{userId}/restore
func (h *UserHandler) Restore(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		respond.WriteBadRequest(w, "request body required")
		return
	}
	if err := h.facade.RestoreUser(r.Context(), userID, json.RawMessage(body)); err != nil {
		writeFailure(w, r, "restoreUser", err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
