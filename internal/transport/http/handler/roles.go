package handler

import (
	"context"
	"net/http"

	"github.com/go-blog-api/internal/domain"
)

type roleLister interface {
	Scan(ctx context.Context) ([]domain.Role, error)
}

// RoleHandler lists the roles known to the platform.
type RoleHandler struct {
	roles roleLister
}

func NewRoleHandler(roles roleLister) *RoleHandler { return &RoleHandler{roles: roles} }

func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.Scan(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}
