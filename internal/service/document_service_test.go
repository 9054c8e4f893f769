package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"pdf-signer/internal/domain"
	apperrors "pdf-signer/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	maxPDF       int64
	maxSignature int64
	maxPixels    int64
	defaults     domain.SignatureDefaults
	dpi          float64
}

func newTestConfig() *testConfig {
	return &testConfig{
		maxPDF:       50 << 20,
		maxSignature: 5 << 20,
		maxPixels:    testMaxPixels,
		defaults:     domain.SignatureDefaults{Width: 150, Height: 70, X: 50, Y: 50},
		dpi:          108,
	}
}

func (c *testConfig) GetServerPort() string                          { return "8080" }
func (c *testConfig) GetLogLevel() string                            { return "debug" }
func (c *testConfig) GetSupabaseURL() string                         { return "" }
func (c *testConfig) GetSupabaseKey() string                         { return "" }
func (c *testConfig) GetStorageBackend() string                      { return "memory" }
func (c *testConfig) GetPublicBaseURL() string                       { return "http://localhost:8080" }
func (c *testConfig) GetAllowedOrigins() []string                    { return nil }
func (c *testConfig) GetMaxPDFSize() int64                           { return c.maxPDF }
func (c *testConfig) GetMaxSignatureSize() int64                     { return c.maxSignature }
func (c *testConfig) GetMaxSignaturePixels() int64                   { return c.maxPixels }
func (c *testConfig) GetSignatureDefaults() domain.SignatureDefaults { return c.defaults }
func (c *testConfig) GetFetchTimeout() time.Duration                 { return time.Second }
func (c *testConfig) GetFetchConcurrency() int                       { return 2 }
func (c *testConfig) GetRateLimit() (float64, int)                   { return 0, 0 }
func (c *testConfig) GetRenderDPI() float64                          { return c.dpi }
func (c *testConfig) GetSessionTTL() time.Duration                   { return time.Hour }

type fakeRenderer struct {
	lastPage int
	lastDPI  float64
	err      error
}

func (r *fakeRenderer) Init() error { return nil }

func (r *fakeRenderer) RenderPNG(_ []byte, page int, dpi float64) ([]byte, error) {
	r.lastPage, r.lastDPI = page, dpi
	if r.err != nil {
		return nil, r.err
	}
	return []byte("\x89PNG fake"), nil
}

type docFixture struct {
	svc      *DocumentService
	sessions *SessionService
	store    *fakeBlobStore
	renderer *fakeRenderer
	config   *testConfig
	session  *Session
}

func newDocFixture(t *testing.T) *docFixture {
	t.Helper()
	store := newFakeBlobStore()
	sessions := NewSessionService(time.Hour, nopLogger{})
	renderer := &fakeRenderer{}
	cfg := newTestConfig()
	svc := NewDocumentService(sessions, store, NewPDFInspector(), NewPDFSigner(store, nopLogger{}, 2, cfg.maxPixels), renderer, cfg, nopLogger{})
	svc.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return &docFixture{
		svc:      svc,
		sessions: sessions,
		store:    store,
		renderer: renderer,
		config:   cfg,
		session:  sessions.Create(),
	}
}

func pdfUpload(data []byte) domain.Upload {
	return domain.Upload{Reader: bytes.NewReader(data), Filename: "contract.pdf", ContentType: "application/pdf", Size: int64(len(data))}
}

func imageUpload(data []byte, name, contentType string) domain.Upload {
	return domain.Upload{Reader: bytes.NewReader(data), Filename: name, ContentType: contentType, Size: int64(len(data))}
}

func TestDocumentService_UploadDocument(t *testing.T) {
	f := newDocFixture(t)
	f.session.Placements.Add(domain.Placement{URL: "stale", Width: 1, Height: 1})

	info, err := f.svc.UploadDocument(context.Background(), f.session.ID, pdfUpload(buildTestPDF(a4, a4)))

	require.NoError(t, err)
	assert.Equal(t, "contract.pdf", info.Name)
	assert.Equal(t, 2, info.PageCount())
	assert.Equal(t, 595.0, info.Pages[0].Width)
	assert.True(t, strings.HasPrefix(info.URL, "https://blobs.test/documents/"))
	assert.Empty(t, f.session.Placements.Snapshot(), "new document clears placements")
}

func TestDocumentService_UploadDocument_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		upload   domain.Upload
		maxPDF   int64
		wantType apperrors.ErrorType
	}{
		{
			name:     "not a pdf",
			upload:   imageUpload([]byte("hello"), "notes.txt", "text/plain"),
			wantType: apperrors.ErrorTypeValidation,
		},
		{
			name:     "too large",
			upload:   pdfUpload(bytes.Repeat([]byte("x"), 2048)),
			maxPDF:   1024,
			wantType: apperrors.ErrorTypeTooLarge,
		},
		{
			name:     "too large without declared size",
			upload:   domain.Upload{Reader: bytes.NewReader(bytes.Repeat([]byte("x"), 2048)), Filename: "a.pdf"},
			maxPDF:   1024,
			wantType: apperrors.ErrorTypeTooLarge,
		},
		{
			name:     "corrupt pdf",
			upload:   pdfUpload([]byte("%PDF-1.4 nothing here")),
			wantType: apperrors.ErrorTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDocFixture(t)
			if tt.maxPDF > 0 {
				f.config.maxPDF = tt.maxPDF
			}

			_, err := f.svc.UploadDocument(context.Background(), f.session.ID, tt.upload)

			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.wantType), err.Error())
			assert.Empty(t, f.store.stored, "nothing is stored on rejection")
			doc, _ := f.session.Document()
			assert.Nil(t, doc)
		})
	}
}

func TestDocumentService_UnknownSession(t *testing.T) {
	f := newDocFixture(t)

	_, err := f.svc.UploadDocument(context.Background(), "missing", pdfUpload(buildTestPDF(a4)))

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestDocumentService_AddSignatureImage_UsesDefaults(t *testing.T) {
	f := newDocFixture(t)

	p, err := f.svc.AddSignatureImage(context.Background(), f.session.ID, imageUpload(testPNG(t, 3, 3, 0xff), "sig.PNG", "image/png"))

	require.NoError(t, err)
	assert.Equal(t, 150.0, p.Width)
	assert.Equal(t, 70.0, p.Height)
	assert.Equal(t, domain.Position{X: 50, Y: 50}, p.Position)
	assert.Equal(t, 0, p.Page)
	assert.False(t, p.Deleted)
	assert.True(t, strings.HasPrefix(p.URL, "https://blobs.test/signatures/"))
	assert.True(t, strings.HasSuffix(p.URL, ".png"))
	assert.Len(t, f.session.Placements.Snapshot(), 1)
}

func TestDocumentService_AddSignatureImage_Rejections(t *testing.T) {
	f := newDocFixture(t)
	f.config.maxSignature = 64

	_, err := f.svc.AddSignatureImage(context.Background(), f.session.ID, imageUpload([]byte("%PDF-1.4"), "x.pdf", "application/pdf"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = f.svc.AddSignatureImage(context.Background(), f.session.ID, imageUpload(bytes.Repeat([]byte{1}, 65), "big.png", "image/png"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTooLarge))

	_, err = f.svc.AddSignatureImage(context.Background(), f.session.ID, imageUpload([]byte("not really"), "fake.png", "image/png"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	assert.Empty(t, f.session.Placements.Snapshot())
}

func TestDocumentService_AddSignatureImage_SniffsMissingContentType(t *testing.T) {
	f := newDocFixture(t)

	p, err := f.svc.AddSignatureImage(context.Background(), f.session.ID, imageUpload(testJPEG(t, 4, 4), "", ""))

	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p.URL, ".jpg"))
}

func TestDocumentService_AddSignatureImage_NamedByDecodedCodec(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()
	_, err := f.svc.UploadDocument(ctx, f.session.ID, pdfUpload(buildTestPDF(a4)))
	require.NoError(t, err)

	// JPEG bytes behind a .png file name.
	p, err := f.svc.AddSignatureImage(ctx, f.session.ID, imageUpload(testJPEG(t, 4, 4), "sig.png", "image/jpeg"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p.URL, ".jpg"), p.URL)

	signed, err := f.svc.SignDocument(ctx, f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, signed.Embedded)
	assert.Equal(t, 0, signed.Skipped)
}

func TestDocumentService_AddSignatureImage_RejectsOversizedDimensions(t *testing.T) {
	f := newDocFixture(t)

	_, err := f.svc.AddSignatureImage(context.Background(), f.session.ID,
		imageUpload(pngWithDimensions(t, 6000, 6000), "sig.png", "image/png"))

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Contains(t, apperrors.PublicMessage(err), "dimensions")
	assert.Empty(t, f.store.stored)
	assert.Empty(t, f.session.Placements.Snapshot())
}

func TestDocumentService_AddDrawnSignature(t *testing.T) {
	f := newDocFixture(t)
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPNG(t, 5, 2, 0x00))

	p, err := f.svc.AddDrawnSignature(context.Background(), f.session.ID, dataURL)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p.URL, ".png"))

	_, err = f.svc.AddDrawnSignature(context.Background(), f.session.ID, "data:image/gif;base64,R0lGOD")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = f.svc.AddDrawnSignature(context.Background(), f.session.ID, "data:image/png;base64,!!!")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestDocumentService_SignDocument(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()

	_, err := f.svc.UploadDocument(ctx, f.session.ID, pdfUpload(buildTestPDF(a4, a4)))
	require.NoError(t, err)
	a, err := f.svc.AddSignatureImage(ctx, f.session.ID, imageUpload(testPNG(t, 2, 2, 0xff), "a.png", "image/png"))
	require.NoError(t, err)
	b, err := f.svc.AddSignatureImage(ctx, f.session.ID, imageUpload(testPNG(t, 2, 2, 0xff), "b.png", "image/png"))
	require.NoError(t, err)

	page := 1
	f.session.Placements.Move(b.ID, domain.MoveUpdate{Page: &page})
	f.session.Placements.Delete(a.ID)

	signed, err := f.svc.SignDocument(ctx, f.session.ID)

	require.NoError(t, err)
	assert.Equal(t, "signed-1700000000123.pdf", signed.Filename)
	assert.Equal(t, 1, signed.Embedded)
	assert.True(t, strings.HasPrefix(signed.URL, "https://blobs.test/signed-documents/"))
	assert.True(t, strings.HasSuffix(signed.URL, signed.Filename))

	pages := pageContents(t, signed.Bytes)
	assert.NotContains(t, pages[0], " Do")
	assert.Contains(t, pages[1], "150 0 0 70 50 722 cm")
}

func TestDocumentService_SignDocument_Preconditions(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignDocument(ctx, f.session.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "no document")
	assert.True(t, errors.Is(err, domain.ErrNoDocument))

	_, err = f.svc.UploadDocument(ctx, f.session.ID, pdfUpload(buildTestPDF(a4)))
	require.NoError(t, err)

	_, err = f.svc.SignDocument(ctx, f.session.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "no signatures")
	assert.True(t, errors.Is(err, domain.ErrNoSignatures))
}

func TestDocumentService_SignDocument_SourceUnavailable(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()

	info, err := f.svc.UploadDocument(ctx, f.session.ID, pdfUpload(buildTestPDF(a4)))
	require.NoError(t, err)
	_, err = f.svc.AddSignatureImage(ctx, f.session.ID, imageUpload(testPNG(t, 2, 2, 0xff), "a.png", "image/png"))
	require.NoError(t, err)
	f.store.failURLs[info.URL] = errors.New("bucket offline")

	_, err = f.svc.SignDocument(ctx, f.session.ID)

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNetwork))
}

func TestDocumentService_RenderPage(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()

	_, err := f.svc.RenderPage(ctx, f.session.ID, 0, 0)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "no document")
	assert.True(t, errors.Is(err, domain.ErrNoDocument))

	_, err = f.svc.UploadDocument(ctx, f.session.ID, pdfUpload(buildTestPDF(a4, a4)))
	require.NoError(t, err)

	page, err := f.svc.RenderPage(ctx, f.session.ID, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, f.renderer.lastPage)
	assert.Equal(t, 108.0, f.renderer.lastDPI)
	assert.Equal(t, 1.5, page.Scale)
	assert.Equal(t, 842.0, page.Native.Height)

	page, err = f.svc.RenderPage(ctx, f.session.ID, 0, 1190)
	require.NoError(t, err)
	assert.InDelta(t, 144.0, f.renderer.lastDPI, 1e-9)
	assert.InDelta(t, 2.0, page.Scale, 1e-9)

	_, err = f.svc.RenderPage(ctx, f.session.ID, 2, 0)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "page out of range")

	f.renderer.err = errors.New("mupdf failed")
	_, err = f.svc.RenderPage(ctx, f.session.ID, 0, 0)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeProcessing))
}
