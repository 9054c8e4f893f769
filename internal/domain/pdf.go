package domain

import "context"

// SignResult is the output of one embedding pass.
type SignResult struct {
	PDF      []byte
	Embedded int
	Skipped  int
}

// Signer embeds placements into PDF bytes.
type Signer interface {
	Sign(ctx context.Context, pdf []byte, placements []Placement) (*SignResult, error)
}

// PDFInspector validates a PDF and reports its page sizes.
type PDFInspector interface {
	PageSizes(pdf []byte) ([]PageSize, error)
}

// RenderedPage is a raster of one page plus the numbers a client needs to map
// pointer events back into page space.
type RenderedPage struct {
	Page   int      `json:"page"`
	Native PageSize `json:"native"`
	Scale  float64  `json:"scale"`
	PNG    []byte   `json:"-"`
}

// PageRenderer rasterizes PDF pages.
type PageRenderer interface {
	Init() error
	RenderPNG(pdf []byte, page int, dpi float64) ([]byte, error)
}
