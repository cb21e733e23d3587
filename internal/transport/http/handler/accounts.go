package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-blog-api/internal/application/account"
	"github.com/go-blog-api/internal/domain"
	"github.com/go-blog-api/internal/infrastructure/smtp"
	"github.com/go-blog-api/internal/pkg/validate"
	"github.com/go-blog-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// AccountHandler handles account lifecycle endpoints. Mail is sent here,
// after the service returns the artifact, so a mail outage never leaves a
// half-finished account mutation behind.
type AccountHandler struct {
	svc           account.Service
	mailer        smtp.Mailer
	publicBaseURL string
}

func NewAccountHandler(svc account.Service, mailer smtp.Mailer, publicBaseURL string) *AccountHandler {
	return &AccountHandler{svc: svc, mailer: mailer, publicBaseURL: publicBaseURL}
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email,max=320"`
}

type registerTokenRequest struct {
	Email           string `json:"email" validate:"required,email,max=320"`
	EmailVerifyCode string `json:"email_verify_code" validate:"required"`
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.svc.Create(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *AccountHandler) IssueVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	code, err := h.svc.IssueVerificationCode(r.Context(), req.Email)
	if err != nil {
		httpError(w, err)
		return
	}
	if err := h.mailer.SendEmail(req.Email, "Email verification code",
		"Your verification code: "+code+"\nIt expires in 3 minutes."); err != nil {
		slog.Error("could not send verification mail", "err", err)
		writeError(w, http.StatusInternalServerError, "could not send verification mail")
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "verification code sent"})
}

func (h *AccountHandler) IssueRegisterToken(w http.ResponseWriter, r *http.Request) {
	var req registerTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	token, err := h.svc.IssueRegisterToken(r.Context(), req.Email, req.EmailVerifyCode)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"register_token": token})
}

func (h *AccountHandler) IssueResetToken(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	token, err := h.svc.IssueResetToken(r.Context(), req.Email)
	if err != nil {
		httpError(w, err)
		return
	}
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", h.publicBaseURL, token)
	if err := h.mailer.SendEmail(req.Email, "Password reset",
		"Reset your password within 3 minutes:\n"+resetURL); err != nil {
		slog.Error("could not send reset mail", "err", err)
		writeError(w, http.StatusInternalServerError, "could not send reset mail")
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password reset mail sent"})
}

func (h *AccountHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password reset"})
}

func (h *AccountHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	a, err := h.svc.Get(r.Context(), claims.AccountID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AccountHandler) Modify(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	targetID := chi.URLParam(r, "id")
	if claims.AccountID != targetID && claims.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "cannot modify another account")
		return
	}
	var req domain.ModifyAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.svc.Modify(r.Context(), targetID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AccountHandler) SetProfileImage(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	targetID := chi.URLParam(r, "id")
	if claims.AccountID != targetID {
		writeError(w, http.StatusForbidden, "cannot modify another account")
		return
	}
	var req struct {
		FileID *string `json:"file_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := h.svc.SetProfileImage(r.Context(), targetID, req.FileID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	targetID := chi.URLParam(r, "id")
	if claims.AccountID != targetID && claims.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "cannot delete another account")
		return
	}
	if err := h.svc.Delete(r.Context(), targetID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "account deleted"})
}
