package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	qrapp "github.com/qr-codes-api/internal/application/qrcode"
	"github.com/qr-codes-api/internal/application/storage"
	"github.com/qr-codes-api/internal/domain"
	"github.com/qr-codes-api/internal/transport/http/middleware"
)

// QRCodeHandler handles QR generation and history endpoints.
type QRCodeHandler struct {
	svc qrapp.Service
}

func NewQRCodeHandler(svc qrapp.Service) *QRCodeHandler { return &QRCodeHandler{svc: svc} }

// Generate accepts a multipart form: text fields content, type and notes,
// plus any number of parts named "files". The form parser spools to disk
// past 32 MiB, so large uploads stream instead of living in memory.
func (h *QRCodeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	req := domain.GenerateRequest{
		Content: r.FormValue("content"),
		Type:    r.FormValue("type"),
		Notes:   r.FormValue("notes"),
	}

	var files []storage.UploadInput
	var closers []func() error
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			f, err := header.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "unreadable file part")
				return
			}
			closers = append(closers, f.Close)
			files = append(files, storage.UploadInput{
				Reader:      f,
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
			})
		}
	}
	defer func() {
		for _, c := range closers {
			_ = c()
		}
	}()

	rec, err := h.svc.Generate(r.Context(), claims.UserID, req, files)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *QRCodeHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	views, err := h.svc.List(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *QRCodeHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.UpdateNotes(r.Context(), claims.UserID, chi.URLParam(r, "id"), req); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "notes updated"})
}

func (h *QRCodeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Delete(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "qr code deleted"})
}

func (h *QRCodeHandler) Share(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	links, err := h.svc.Share(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}
