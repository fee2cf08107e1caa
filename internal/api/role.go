package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"murmer/internal/ws"
)

// roleAssignmentRequest is the body of the admin-only POST /role endpoint,
// gated by a bearer admin token rather than a user session.
type roleAssignmentRequest struct {
	Key   string  `json:"key" validate:"required"`
	Role  string  `json:"role" validate:"required"`
	Color *string `json:"color"`
}

type RoleHandler struct {
	app        *ws.App
	adminToken string
}

func NewRoleHandler(app *ws.App, adminToken string) *RoleHandler {
	return &RoleHandler{app: app, adminToken: adminToken}
}

func (h *RoleHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		unauthorized(w, "invalid admin token")
		return
	}

	var req roleAssignmentRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.app.AdminSetRole(r.Context(), req.Key, req.Role, req.Color); err != nil {
		internalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *RoleHandler) authorized(r *http.Request) bool {
	if h.adminToken == "" {
		return false
	}
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) == 1
}
