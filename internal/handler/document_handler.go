// Package handler provides HTTP handlers for the API.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"pdf-signer/internal/domain"
	apperrors "pdf-signer/pkg/errors"

	"github.com/gorilla/mux"
)

// multipartOverhead is allowed on top of the file limit for form boundaries and
// headers.
const multipartOverhead = 1 << 20

// DocumentHandler handles document upload, page previews and signing.
type DocumentHandler struct {
	documents      domain.DocumentService
	logger         domain.Logger
	maxUploadBytes int64
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documents domain.DocumentService, maxUploadBytes int64, logger domain.Logger) *DocumentHandler {
	return &DocumentHandler{
		documents:      documents,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// UploadDocument handles document upload
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	upload, cleanup, err := formUpload(w, r, h.maxUploadBytes)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	defer cleanup()

	info, err := h.documents.UploadDocument(r.Context(), sess.ID, upload)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// RenderPage returns a PNG of one page. The native page size and render scale are
// reported in headers so a client can map pointer events back to page space.
func (h *DocumentHandler) RenderPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	page, err := strconv.Atoi(mux.Vars(r)["page"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid page number")
		return
	}
	width := 0
	if raw := r.URL.Query().Get("width"); raw != "" {
		if width, err = strconv.Atoi(raw); err != nil || width < 0 {
			writeError(w, http.StatusBadRequest, "Invalid width")
			return
		}
	}

	rendered, err := h.documents.RenderPage(r.Context(), sess.ID, page, width)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Page-Width", strconv.FormatFloat(rendered.Native.Width, 'f', -1, 64))
	w.Header().Set("X-Page-Height", strconv.FormatFloat(rendered.Native.Height, 'f', -1, 64))
	w.Header().Set("X-Render-Scale", strconv.FormatFloat(rendered.Scale, 'f', -1, 64))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rendered.PNG)
}

// SignDocument embeds the session's signatures. With ?download=true the PDF itself
// is returned as an attachment; otherwise a JSON summary with its URL.
func (h *DocumentHandler) SignDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	signed, err := h.documents.SignDocument(r.Context(), sess.ID)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	if download, _ := strconv.ParseBool(r.URL.Query().Get("download")); download {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", signed.Filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(signed.Bytes)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(signed.Bytes)
		return
	}
	writeJSON(w, http.StatusOK, signed)
}

// formUpload extracts the multipart "file" field. The returned cleanup must be
// called once the upload has been consumed.
func formUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (domain.Upload, func(), error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Upload{}, nil, apperrors.NewTooLargeError("File too large", maxBytes)
		}
		return domain.Upload{}, nil, apperrors.NewValidationError("File is required")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return domain.Upload{}, nil, apperrors.NewValidationError("File is required")
	}

	// Sanitize filename (strip any path components)
	name := strings.TrimSpace(filepath.Base(header.Filename))
	if name == "." || name == string(filepath.Separator) {
		name = ""
	}

	cleanup := func() {
		file.Close()
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}
	return domain.Upload{
		Reader:      file,
		Filename:    name,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}, cleanup, nil
}
