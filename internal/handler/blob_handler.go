package handler

import (
	"net/http"
	"strconv"

	"pdf-signer/internal/domain"

	"github.com/gorilla/mux"
)

// BlobReader serves objects held by an in-process blob store.
type BlobReader interface {
	Get(bucket domain.Bucket, name string) ([]byte, string, error)
}

// BlobHandler exposes an in-memory blob store over HTTP.
type BlobHandler struct {
	blobs BlobReader
}

func NewBlobHandler(blobs BlobReader) *BlobHandler {
	return &BlobHandler{blobs: blobs}
}

func (h *BlobHandler) GetBlob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bucket, ok := domain.ParseBucket(vars["bucket"])
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	data, contentType, err := h.blobs.Get(bucket, vars["name"])
	if err != nil {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
