package handler

import (
	"net/http"

	"pdf-signer/internal/domain"
	"pdf-signer/internal/service"
	apperrors "pdf-signer/pkg/errors"

	"github.com/gorilla/mux"
)

// SignatureHandler attaches signatures and edits their placement.
type SignatureHandler struct {
	documents      domain.DocumentService
	logger         domain.Logger
	maxUploadBytes int64
}

func NewSignatureHandler(documents domain.DocumentService, maxUploadBytes int64, logger domain.Logger) *SignatureHandler {
	return &SignatureHandler{documents: documents, logger: logger, maxUploadBytes: maxUploadBytes}
}

type drawnSignatureRequest struct {
	DataURL string `json:"data_url"`
}

type placeRequest struct {
	Pointer domain.Pointer  `json:"pointer"`
	Rect    domain.PageRect `json:"rect"`
	Scale   float64         `json:"scale"`
	Page    int             `json:"page"`
}

type dragRequest struct {
	Pointer domain.Pointer `json:"pointer"`
	Scale   float64        `json:"scale"`
	Page    *int           `json:"page,omitempty"`
}

type reorderRequest struct {
	Direction string `json:"direction"`
}

func (h *SignatureHandler) ListSignatures(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess.Placements.Snapshot())
}

func (h *SignatureHandler) UploadSignature(w http.ResponseWriter, r *http.Request) {
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

	p, err := h.documents.AddSignatureImage(r.Context(), sess.ID, upload)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *SignatureHandler) AddDrawnSignature(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	var req drawnSignatureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	p, err := h.documents.AddDrawnSignature(r.Context(), sess.ID, req.DataURL)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// MoveSignature applies a partial position/page update.
func (h *SignatureHandler) MoveSignature(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	var req domain.MoveUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if req.Page != nil {
		if err := checkPage(sess, *req.Page); err != nil {
			writeAppError(w, h.logger, err)
			return
		}
	}

	p, ok := sess.Placements.Move(mux.Vars(r)["id"], req)
	h.writePlacement(w, p, ok)
}

// PlaceSignature centers the signature on a click inside a rendered page.
func (h *SignatureHandler) PlaceSignature(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	var req placeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if err := checkPage(sess, req.Page); err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	scale := req.Scale
	if scale <= 0 {
		if doc, _ := sess.Document(); doc != nil {
			scale = service.ScaleFor(req.Rect.Width, doc.Pages[req.Page].Width)
		}
	}

	p, ok := sess.Placements.PlaceAt(mux.Vars(r)["id"], req.Pointer, req.Rect, scale, req.Page)
	h.writePlacement(w, p, ok)
}

func (h *SignatureHandler) StartDrag(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	var req dragRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	if !sess.Placements.BeginDrag(mux.Vars(r)["id"], req.Pointer) {
		writeError(w, http.StatusNotFound, "Signature not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SignatureHandler) DragMove(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	var req dragRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if req.Page != nil {
		if err := checkPage(sess, *req.Page); err != nil {
			writeAppError(w, h.logger, err)
			return
		}
	}

	p, ok := sess.Placements.DragMove(mux.Vars(r)["id"], req.Pointer, req.Scale, req.Page)
	if !ok {
		writeError(w, http.StatusConflict, "No drag in progress")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *SignatureHandler) EndDrag(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	sess.Placements.EndDrag(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

// ReorderSignature changes z-order and returns the reordered list.
func (h *SignatureHandler) ReorderSignature(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	var req reorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	dir, err := domain.ParseReorderDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !sess.Placements.Reorder(mux.Vars(r)["id"], dir) {
		writeError(w, http.StatusNotFound, "Signature not found")
		return
	}
	writeJSON(w, http.StatusOK, sess.Placements.Snapshot())
}

func (h *SignatureHandler) DeleteSignature(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if !sess.Placements.Delete(mux.Vars(r)["id"]) {
		writeError(w, http.StatusNotFound, "Signature not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SignatureHandler) writePlacement(w http.ResponseWriter, p domain.Placement, ok bool) {
	if !ok {
		writeError(w, http.StatusNotFound, "Signature not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// checkPage rejects a page index outside the session's document. Without a
// document only negative pages are rejected.
func checkPage(sess *service.Session, page int) error {
	doc, _ := sess.Document()
	if page < 0 || (doc != nil && page >= doc.PageCount()) {
		return apperrors.NewValidationError(domain.ErrPageOutOfRange.Error())
	}
	return nil
}
