package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-blog-api/internal/application/session"
	"github.com/go-blog-api/internal/transport/http/middleware"
)

// refreshTokenHeader carries the opaque refresh token on login/refresh
// responses and on refresh requests.
const refreshTokenHeader = "X-Auth-Refresh-Token"

// SessionHandler handles login, token refresh and logout.
type SessionHandler struct {
	svc session.Service
}

func NewSessionHandler(svc session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}
	bearer, refreshToken, sess, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpError(w, err)
		return
	}
	w.Header().Set(refreshTokenHeader, refreshToken)
	writeJSON(w, http.StatusOK, AuthEnvelope{
		AccessToken: bearer,
		Account:     sess.Account,
	})
}

func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := r.Header.Get(refreshTokenHeader)
	if refreshToken == "" {
		writeError(w, http.StatusBadRequest, refreshTokenHeader+" header required")
		return
	}
	bearer, newToken, err := h.svc.Refresh(r.Context(), refreshToken)
	if err != nil {
		httpError(w, err)
		return
	}
	w.Header().Set(refreshTokenHeader, newToken)
	writeJSON(w, http.StatusOK, AuthEnvelope{AccessToken: bearer})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Logout(r.Context(), claims.SessionID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}
