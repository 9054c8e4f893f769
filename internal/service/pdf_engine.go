package service

import (
	"bytes"
	"fmt"
	"sync"

	"pdf-signer/internal/domain"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var pdfEngineOnce sync.Once

// InitPDFEngine performs pdfcpu's one-time global setup. It is safe to call any
// number of times; startup calls it explicitly and every entry point below calls it
// again so tests need no special setup.
func InitPDFEngine() {
	pdfEngineOnce.Do(func() {
		// Keep pdfcpu from creating a config directory under $HOME.
		model.ConfigPath = "disable"
	})
}

func newPDFConfiguration() *model.Configuration {
	InitPDFEngine()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// loadPDF parses and validates a document.
func loadPDF(pdf []byte) (*model.Context, error) {
	ctx, err := pdfapi.ReadValidateAndOptimize(bytes.NewReader(pdf), newPDFConfiguration())
	if err != nil {
		return nil, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, err
	}
	if ctx.PageCount == 0 {
		return nil, fmt.Errorf("%w: document has no pages", domain.ErrInvalidFile)
	}
	return ctx, nil
}

// pageSizes measures every page from its CropBox, falling back to the MediaBox.
func pageSizes(ctx *model.Context) ([]domain.PageSize, error) {
	sizes := make([]domain.PageSize, 0, ctx.PageCount)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		_, _, inh, err := ctx.PageDict(pageNr, false)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNr, err)
		}
		if inh == nil {
			return nil, fmt.Errorf("page %d: missing page attributes", pageNr)
		}
		box := inh.CropBox
		if box == nil {
			box = inh.MediaBox
		}
		if box == nil {
			return nil, fmt.Errorf("page %d: no media box", pageNr)
		}
		sizes = append(sizes, domain.PageSize{
			Width:   box.Width(),
			Height:  box.Height(),
			OriginX: box.LL.X,
			OriginY: box.LL.Y,
		})
	}
	return sizes, nil
}

// PDFCPUInspector implements domain.PDFInspector with pdfcpu.
type PDFCPUInspector struct{}

func NewPDFInspector() *PDFCPUInspector {
	return &PDFCPUInspector{}
}

// PageSizes validates pdf and returns the native size of each page.
func (PDFCPUInspector) PageSizes(pdf []byte) ([]domain.PageSize, error) {
	ctx, err := loadPDF(pdf)
	if err != nil {
		return nil, err
	}
	return pageSizes(ctx)
}
