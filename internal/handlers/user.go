package handlers

import (
	"net/http"

	"github.com/crucial707/blog/internal/service"
)

// ==========================
// UserHandler
// ==========================
type UserHandler struct {
	Auth *service.AuthService
}

// ==========================
// List Users (session required)
// ==========================
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Auth.ListUsers(r.Context(), actorFrom(r))
	if err != nil {
		respondError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users":   users,
		"flashes": takeFlashes(w, r),
	})
}
