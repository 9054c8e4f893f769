package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"pdf-signer/internal/domain"
	apperrors "pdf-signer/pkg/errors"

	"github.com/google/uuid"
)

const drawnSignaturePrefix = "data:image/png;base64,"

// DocumentService implements the signing workflow of a session: upload a PDF, attach
// signature images, render previews and produce the signed document.
type DocumentService struct {
	sessions  *SessionService
	store     domain.BlobStore
	inspector domain.PDFInspector
	signer    domain.Signer
	renderer  domain.PageRenderer
	config    domain.Config
	logger    domain.Logger
	now       func() time.Time
}

func NewDocumentService(
	sessions *SessionService,
	store domain.BlobStore,
	inspector domain.PDFInspector,
	signer domain.Signer,
	renderer domain.PageRenderer,
	config domain.Config,
	logger domain.Logger,
) *DocumentService {
	return &DocumentService{
		sessions:  sessions,
		store:     store,
		inspector: inspector,
		signer:    signer,
		renderer:  renderer,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// UploadDocument validates and stores a PDF, making it the session's document.
func (s *DocumentService) UploadDocument(ctx context.Context, sessionID string, upload domain.Upload) (*domain.DocumentInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	if !isPDFUpload(upload) {
		return nil, apperrors.NewValidationError("Please upload a PDF file", upload.Filename)
	}
	data, err := readUpload(upload, s.config.GetMaxPDFSize(), "PDF file is too large")
	if err != nil {
		return nil, err
	}

	pages, err := s.inspector.PageSizes(data)
	if err != nil {
		s.logger.Warn("Rejected invalid PDF", "session_id", sessionID, "error", err.Error())
		return nil, apperrors.NewValidationError("Invalid PDF file", err.Error())
	}

	name := uuid.New().String() + ".pdf"
	url, err := s.store.Store(ctx, domain.BucketDocuments, name, data, "application/pdf")
	if err != nil {
		s.logger.Error("Failed to store document", err, "session_id", sessionID)
		return nil, apperrors.NewNetworkError("Failed to upload document", err)
	}

	original := upload.Filename
	if original == "" {
		original = name
	}
	info := &domain.DocumentInfo{
		URL:        url,
		Name:       original,
		Size:       int64(len(data)),
		Pages:      pages,
		UploadedAt: s.now().UTC(),
	}
	sess.setDocument(info, data)

	s.logger.Info("Document uploaded",
		"session_id", sessionID,
		"name", original,
		"page_count", len(pages),
		"size", len(data),
	)
	return info, nil
}

// AddSignatureImage stores an uploaded image and attaches it as a new placement.
func (s *DocumentService) AddSignatureImage(ctx context.Context, sessionID string, upload domain.Upload) (*domain.Placement, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	data, err := readUpload(upload, s.config.GetMaxSignatureSize(), "Signature image is too large")
	if err != nil {
		return nil, err
	}
	contentType := upload.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperrors.NewValidationError("Please upload an image file", contentType)
	}

	return s.attachSignature(ctx, sess, data, contentType)
}

// AddDrawnSignature attaches a signature drawn on the client, sent as a PNG data URL.
func (s *DocumentService) AddDrawnSignature(ctx context.Context, sessionID string, dataURL string) (*domain.Placement, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	data, err := decodePNGDataURL(dataURL)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid drawn signature", err.Error())
	}
	if limit := s.config.GetMaxSignatureSize(); limit > 0 && int64(len(data)) > limit {
		return nil, apperrors.NewTooLargeError("Signature image is too large", limit)
	}

	return s.attachSignature(ctx, sess, data, "image/png")
}

// attachSignature validates the image and stores it under the extension and content
// type of the codec that decoded it.
func (s *DocumentService) attachSignature(ctx context.Context, sess *Session, data []byte, contentType string) (*domain.Placement, error) {
	limit := s.config.GetMaxSignaturePixels()
	img, err := DecodeSignatureImage(data, contentType, limit)
	if errors.Is(err, domain.ErrImageTooLarge) {
		return nil, apperrors.NewValidationError("Signature image dimensions are too large", fmt.Sprintf("limit %d pixels", limit))
	}
	if err != nil {
		return nil, apperrors.NewValidationError("Unsupported image data", contentType)
	}
	contentType = img.ContentType()

	name := uuid.New().String() + img.Extension()
	url, err := s.store.Store(ctx, domain.BucketSignatures, name, data, contentType)
	if err != nil {
		s.logger.Error("Failed to store signature", err, "session_id", sess.ID)
		return nil, apperrors.NewNetworkError("Failed to upload signature", err)
	}

	defaults := s.config.GetSignatureDefaults()
	p := sess.Placements.Add(domain.Placement{
		URL:      url,
		Position: domain.Position{X: defaults.X, Y: defaults.Y},
		Width:    defaults.Width,
		Height:   defaults.Height,
		Page:     0,
	})

	s.logger.Info("Signature added", "session_id", sess.ID, "signature_id", p.ID, "content_type", contentType)
	return &p, nil
}

// SignDocument embeds every active placement into the session's document and
// stores the result.
func (s *DocumentService) SignDocument(ctx context.Context, sessionID string) (*domain.SignedDocument, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	doc, _ := sess.Document()
	if doc == nil {
		return nil, noDocumentError()
	}
	placements := sess.Placements.Active()
	if len(placements) == 0 {
		err := apperrors.NewValidationError("Please add at least one signature")
		err.Cause = domain.ErrNoSignatures
		return nil, err
	}

	source, err := s.store.Fetch(ctx, doc.URL)
	if err != nil {
		s.logger.Error("Failed to fetch source PDF", err, "session_id", sessionID)
		return nil, apperrors.NewNetworkError("Failed to fetch document", err)
	}

	result, err := s.signer.Sign(ctx, source, placements)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("signed-%d.pdf", s.now().UnixMilli())
	url, err := s.store.Store(ctx, domain.BucketSigned, uuid.New().String()+"-"+filename, result.PDF, "application/pdf")
	if err != nil {
		s.logger.Error("Failed to store signed PDF", err, "session_id", sessionID)
		return nil, apperrors.NewNetworkError("Failed to upload signed document", err)
	}

	s.logger.Info("Document signed",
		"session_id", sessionID,
		"filename", filename,
		"embedded", result.Embedded,
		"skipped", result.Skipped,
	)
	return &domain.SignedDocument{
		URL:      url,
		Filename: filename,
		Embedded: result.Embedded,
		Skipped:  result.Skipped,
		Bytes:    result.PDF,
	}, nil
}

// RenderPage rasterizes one page. A positive width picks the resolution so the PNG
// is that many pixels wide; otherwise the configured DPI is used.
func (s *DocumentService) RenderPage(ctx context.Context, sessionID string, page int, width int) (*domain.RenderedPage, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	doc, pdf := sess.Document()
	if doc == nil {
		return nil, noDocumentError()
	}
	if page < 0 || page >= doc.PageCount() {
		return nil, apperrors.NewValidationError(domain.ErrPageOutOfRange.Error(), fmt.Sprintf("page %d of %d", page, doc.PageCount()))
	}
	if pdf == nil {
		if pdf, err = s.store.Fetch(ctx, doc.URL); err != nil {
			return nil, apperrors.NewNetworkError("Failed to fetch document", err)
		}
	}

	native := doc.Pages[page]
	dpi := s.config.GetRenderDPI()
	if width > 0 && native.Width > 0 {
		dpi = 72 * float64(width) / native.Width
	}

	png, err := s.renderer.RenderPNG(pdf, page, dpi)
	if err != nil {
		s.logger.Error("Failed to render page", err, "session_id", sessionID, "page", page)
		return nil, apperrors.NewProcessingError("Failed to render page", err)
	}

	return &domain.RenderedPage{
		Page:   page,
		Native: native,
		Scale:  NormalizeScale(dpi / 72),
		PNG:    png,
	}, nil
}

func (s *DocumentService) session(id string) (*Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, apperrors.NewNotFoundError("Session not found")
	}
	return sess, nil
}

func noDocumentError() error {
	err := apperrors.NewValidationError("Please upload a PDF document first")
	err.Cause = domain.ErrNoDocument
	return err
}

func isPDFUpload(upload domain.Upload) bool {
	if strings.EqualFold(filepath.Ext(upload.Filename), ".pdf") {
		return true
	}
	ct := strings.ToLower(strings.TrimSpace(upload.ContentType))
	return strings.HasPrefix(ct, "application/pdf")
}

// readUpload reads at most limit bytes, failing with a too-large error beyond that.
func readUpload(upload domain.Upload, limit int64, tooLarge string) ([]byte, error) {
	if upload.Reader == nil {
		return nil, apperrors.NewValidationError("No file provided")
	}
	if limit > 0 && upload.Size > limit {
		return nil, apperrors.NewTooLargeError(tooLarge, limit)
	}

	r := upload.Reader
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewValidationError("Failed to read upload", err.Error())
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, apperrors.NewTooLargeError(tooLarge, limit)
	}
	if len(data) == 0 {
		return nil, apperrors.NewValidationError("Uploaded file is empty")
	}
	return data, nil
}

func decodePNGDataURL(dataURL string) ([]byte, error) {
	dataURL = strings.TrimSpace(dataURL)
	if !strings.HasPrefix(dataURL, drawnSignaturePrefix) {
		return nil, errors.New("expected a data:image/png;base64 URL")
	}
	data, err := base64.StdEncoding.DecodeString(dataURL[len(drawnSignaturePrefix):])
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		return nil, errors.New("payload is not a PNG")
	}
	return data, nil
}
