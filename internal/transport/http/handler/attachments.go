package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-blog-api/internal/application/attachment"
	"github.com/go-blog-api/internal/domain"
	"github.com/go-blog-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// AttachmentHandler handles multipart upload, streaming download and delete.
type AttachmentHandler struct {
	svc attachment.Service
}

func NewAttachmentHandler(svc attachment.Service) *AttachmentHandler {
	return &AttachmentHandler{svc: svc}
}

func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxAttachmentSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' required")
		return
	}
	defer file.Close()

	a, err := h.svc.Upload(r.Context(), claims.AccountID, header.Filename,
		header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	a, body, err := h.svc.Download(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(a.Size, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+a.Name+`"`)
	_, _ = io.Copy(w, body)
}

// PresignedURL hands back a short-lived S3 link instead of proxying
// the payload through the API.
func (h *AttachmentHandler) PresignedURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.svc.PresignedURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"), claims.AccountID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "attachment deleted"})
}
