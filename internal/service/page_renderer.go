package service

import (
	"fmt"
	"sync"
	"time"

	"pdf-signer/internal/domain"

	"github.com/gen2brain/go-fitz"
)

const defaultRenderTimeout = 30 * time.Second

// blankPDF is a single empty 72x72pt page, opened once by Init to check MuPDF.
const blankPDF = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n" +
	"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n" +
	"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 72 72] >>\nendobj\n" +
	"xref\n0 4\n0000000000 65535 f \n0000000009 00000 n \n0000000058 00000 n \n0000000115 00000 n \n" +
	"trailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n184\n%%EOF\n"

// FitzRenderer rasterizes pages with MuPDF through go-fitz.
type FitzRenderer struct {
	logger    domain.Logger
	timeout   time.Duration
	selfCheck []byte

	initOnce sync.Once
	initErr  error
}

// NewPageRenderer creates a renderer. Init must run before the first render; it is
// also run lazily.
func NewPageRenderer(logger domain.Logger) *FitzRenderer {
	return &FitzRenderer{logger: logger, timeout: defaultRenderTimeout, selfCheck: []byte(blankPDF)}
}

// Init prepares the PDF engines and checks that MuPDF can open a document. Calling
// it more than once is harmless; a failure is remembered and returned every time.
func (r *FitzRenderer) Init() error {
	r.initOnce.Do(func() {
		InitPDFEngine()
		doc, err := fitz.NewFromMemory(r.selfCheck)
		if err != nil {
			r.initErr = fmt.Errorf("mupdf self-check: %w", err)
			return
		}
		defer doc.Close()
		if n := doc.NumPage(); n != 1 {
			r.initErr = fmt.Errorf("mupdf self-check: expected 1 page, got %d", n)
			return
		}
		r.logger.Debug("Page renderer initialized", "timeout_sec", int(r.timeout.Seconds()))
	})
	return r.initErr
}

// RenderPNG renders a zero-based page at dpi.
func (r *FitzRenderer) RenderPNG(pdf []byte, page int, dpi float64) ([]byte, error) {
	if err := r.Init(); err != nil {
		return nil, err
	}
	if dpi <= 0 {
		return nil, fmt.Errorf("invalid dpi %v", dpi)
	}

	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	if page < 0 || page >= doc.NumPage() {
		doc.Close()
		return nil, fmt.Errorf("%w: page %d of %d", domain.ErrPageOutOfRange, page, doc.NumPage())
	}

	type renderResult struct {
		png []byte
		err error
	}
	resultCh := make(chan renderResult, 1)
	go func() {
		defer doc.Close()
		png, err := doc.ImagePNG(page, dpi)
		resultCh <- renderResult{png: png, err: err}
	}()

	start := time.Now()
	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, fmt.Errorf("render page %d: %w", page, res.err)
		}
		r.logger.Debug("Page rendered", "page", page, "dpi", dpi, "bytes", len(res.png), "duration_ms", time.Since(start).Milliseconds())
		return res.png, nil
	case <-time.After(r.timeout):
		r.logger.Warn("Page render timeout", "page", page, "timeout_sec", int(r.timeout.Seconds()))
		return nil, fmt.Errorf("render page %d: timeout after %v", page, r.timeout)
	}
}
