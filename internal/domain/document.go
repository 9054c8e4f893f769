package domain

import (
	"context"
	"io"
	"time"
)

// DocumentInfo describes the PDF loaded into a session.
type DocumentInfo struct {
	URL        string     `json:"url"`
	Name       string     `json:"name"`
	Size       int64      `json:"size"`
	Pages      []PageSize `json:"pages"`
	UploadedAt time.Time  `json:"uploaded_at"`
}

// PageCount returns the number of pages, zero when info is nil.
func (d *DocumentInfo) PageCount() int {
	if d == nil {
		return 0
	}
	return len(d.Pages)
}

// SessionView is the JSON projection of a signing session.
type SessionView struct {
	ID         string        `json:"id"`
	Document   *DocumentInfo `json:"document,omitempty"`
	Placements []Placement   `json:"placements"`
	CreatedAt  time.Time     `json:"created_at"`
}

// SignedDocument is the outcome of a download request.
type SignedDocument struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Embedded int    `json:"embedded"`
	Skipped  int    `json:"skipped"`
	Bytes    []byte `json:"-"`
}

// Upload carries a user file through validation and storage.
type Upload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// DocumentService defines the use-case operations of a signing session.
type DocumentService interface {
	UploadDocument(ctx context.Context, sessionID string, upload Upload) (*DocumentInfo, error)
	AddSignatureImage(ctx context.Context, sessionID string, upload Upload) (*Placement, error)
	AddDrawnSignature(ctx context.Context, sessionID string, dataURL string) (*Placement, error)
	SignDocument(ctx context.Context, sessionID string) (*SignedDocument, error)
	RenderPage(ctx context.Context, sessionID string, page int, width int) (*RenderedPage, error)
}
