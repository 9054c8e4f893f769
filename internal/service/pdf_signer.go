package service

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"

	"pdf-signer/internal/domain"
	apperrors "pdf-signer/pkg/errors"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/sync/errgroup"
)

// PDFSigner embeds signature images into a PDF.
type PDFSigner struct {
	fetcher     domain.BlobFetcher
	logger      domain.Logger
	concurrency int
	maxPixels   int64
}

// NewPDFSigner creates a signer that fetches images through fetcher, at most
// concurrency at a time. Images over maxPixels are skipped.
func NewPDFSigner(fetcher domain.BlobFetcher, logger domain.Logger, concurrency int, maxPixels int64) *PDFSigner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &PDFSigner{
		fetcher:     fetcher,
		logger:      logger,
		concurrency: concurrency,
		maxPixels:   maxPixels,
	}
}

// Sign draws every active, in-range placement onto its page and returns the
// re-serialized document. Only a document that cannot be loaded or written fails the
// call; a placement whose image cannot be fetched or decoded is logged and skipped.
func (s *PDFSigner) Sign(ctx context.Context, pdf []byte, placements []domain.Placement) (*domain.SignResult, error) {
	pdfCtx, err := loadPDF(pdf)
	if err != nil {
		return nil, apperrors.NewProcessingError("Failed to load PDF", err)
	}
	pages, err := pageSizes(pdfCtx)
	if err != nil {
		return nil, apperrors.NewProcessingError("Failed to read PDF pages", err)
	}

	result := &domain.SignResult{}
	var targets []domain.Placement
	for _, p := range placements {
		switch {
		case p.Deleted:
			continue
		case p.Page < 0 || p.Page >= len(pages):
			s.logger.Warn("Skipping signature on missing page", "signature_id", p.ID, "page", p.Page, "page_count", len(pages))
			result.Skipped++
			continue
		case p.Width <= 0 || p.Height <= 0:
			s.logger.Warn("Skipping signature with empty box", "signature_id", p.ID)
			result.Skipped++
			continue
		}
		targets = append(targets, p)
	}

	images := s.fetchImages(ctx, targets)

	stamper := newPageStamper(pdfCtx)
	// Index 0 is the front-most placement, so it is painted last.
	for i := len(targets) - 1; i >= 0; i-- {
		p := targets[i]
		if images[i] == nil {
			result.Skipped++
			continue
		}
		if err := stamper.drawImage(p, pages[p.Page], images[i]); err != nil {
			s.logger.Error("Failed to embed signature", err, "signature_id", p.ID, "page", p.Page)
			result.Skipped++
			continue
		}
		result.Embedded++
	}

	var out bytes.Buffer
	if err := pdfapi.WriteContext(pdfCtx, &out); err != nil {
		return nil, apperrors.NewProcessingError("Failed to write signed PDF", err)
	}
	result.PDF = out.Bytes()

	s.logger.Info("PDF signed", "embedded", result.Embedded, "skipped", result.Skipped, "bytes", len(result.PDF))
	return result, nil
}

// fetchImages fetches and decodes every placement image concurrently. A failed slot
// is left nil.
func (s *PDFSigner) fetchImages(ctx context.Context, targets []domain.Placement) []*RasterImage {
	images := make([]*RasterImage, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, p := range targets {
		g.Go(func() error {
			data, err := s.fetcher.Fetch(gctx, p.URL)
			if err != nil {
				s.logger.Error("Failed to fetch signature image", err, "signature_id", p.ID)
				return nil
			}
			img, err := DecodeSignatureImage(data, p.URL, s.maxPixels)
			if err != nil {
				s.logger.Error("Failed to decode signature image", err, "signature_id", p.ID)
				return nil
			}
			images[i] = img
			return nil
		})
	}
	_ = g.Wait()
	return images
}

// pageStamper appends image drawing operators to page content streams.
type pageStamper struct {
	ctx     *model.Context
	wrapped map[int]bool
	seq     int
}

func newPageStamper(ctx *model.Context) *pageStamper {
	return &pageStamper{ctx: ctx, wrapped: make(map[int]bool)}
}

func (ps *pageStamper) drawImage(p domain.Placement, page domain.PageSize, img *RasterImage) error {
	pageNr := p.Page + 1
	pageDict, _, inh, err := ps.ctx.PageDict(pageNr, true)
	if err != nil {
		return fmt.Errorf("page dict: %w", err)
	}
	if pageDict == nil {
		return fmt.Errorf("page %d not found", pageNr)
	}

	imgRef, err := ps.imageXObject(img)
	if err != nil {
		return err
	}

	inheritResources(pageDict, inh)
	xobjects, err := ps.subDict(pageDict, "Resources")
	if err == nil {
		xobjects, err = ps.subDict(xobjects, "XObject")
	}
	if err != nil {
		return fmt.Errorf("page resources: %w", err)
	}
	name := ps.freeName(xobjects)
	xobjects[name] = *imgRef

	x, y := ToPDFSpace(p.Position, p.Width, p.Height, page)

	var buf bytes.Buffer
	if !ps.wrapped[pageNr] {
		// Restore whatever state the original content left behind.
		buf.WriteString("Q\n")
	}
	fmt.Fprintf(&buf, "q\n%s 0 0 %s %s %s cm\n/%s Do\nQ\n", num(p.Width), num(p.Height), num(x), num(y), name)

	return ps.appendContent(pageDict, pageNr, buf.Bytes())
}

// imageXObject adds img as an image XObject, with a soft mask when it has alpha.
func (ps *pageStamper) imageXObject(img *RasterImage) (*types.IndirectRef, error) {
	sd, err := ps.ctx.NewStreamDictForBuf(img.RGB)
	if err != nil {
		return nil, err
	}
	setImageDict(sd.Dict, img.Width, img.Height, "DeviceRGB")

	if img.Alpha != nil {
		mask, err := ps.ctx.NewStreamDictForBuf(img.Alpha)
		if err != nil {
			return nil, err
		}
		setImageDict(mask.Dict, img.Width, img.Height, "DeviceGray")
		if err := mask.Encode(); err != nil {
			return nil, fmt.Errorf("encode soft mask: %w", err)
		}
		maskRef, err := ps.ctx.IndRefForNewObject(*mask)
		if err != nil {
			return nil, err
		}
		sd.Dict["SMask"] = *maskRef
	}

	if err := sd.Encode(); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return ps.ctx.IndRefForNewObject(*sd)
}

func setImageDict(d types.Dict, w, h int, colorSpace string) {
	d["Type"] = types.Name("XObject")
	d["Subtype"] = types.Name("Image")
	d["Width"] = types.Integer(w)
	d["Height"] = types.Integer(h)
	d["ColorSpace"] = types.Name(colorSpace)
	d["BitsPerComponent"] = types.Integer(8)
}

// inheritResources copies resources inherited from the page tree onto a page that has
// none of its own, so adding an XObject does not hide the inherited fonts and images.
func inheritResources(pageDict types.Dict, inh *model.InheritedPageAttrs) {
	if _, found := pageDict.Find("Resources"); found {
		return
	}
	if inh == nil || len(inh.Resources) == 0 {
		return
	}
	pageDict["Resources"] = inh.Resources.Clone()
}

// subDict returns parent[key] as a dictionary, creating it when absent.
func (ps *pageStamper) subDict(parent types.Dict, key string) (types.Dict, error) {
	obj, found := parent.Find(key)
	if !found || obj == nil {
		d := types.NewDict()
		parent[key] = d
		return d, nil
	}
	d, err := ps.ctx.DereferenceDict(obj)
	if err != nil {
		return nil, err
	}
	if d == nil {
		d = types.NewDict()
		parent[key] = d
	}
	return d, nil
}

func (ps *pageStamper) freeName(xobjects types.Dict) string {
	for {
		ps.seq++
		name := "Sig" + strconv.Itoa(ps.seq)
		if _, taken := xobjects[name]; !taken {
			return name
		}
	}
}

// appendContent adds content as a new stream after the page's existing content. The
// first append on a page also prepends a "q" stream so the original content runs in
// its own graphics state.
func (ps *pageStamper) appendContent(pageDict types.Dict, pageNr int, content []byte) error {
	var streams types.Array
	if obj, found := pageDict.Find("Contents"); found && obj != nil {
		if ref, ok := obj.(*types.IndirectRef); ok && ref != nil {
			obj = *ref
		}
		switch c := obj.(type) {
		case types.IndirectRef:
			deref, err := ps.ctx.Dereference(c)
			if err != nil {
				return err
			}
			if arr, ok := deref.(types.Array); ok {
				streams = append(streams, arr...)
			} else {
				streams = append(streams, c)
			}
		case types.Array:
			streams = append(streams, c...)
		}
	}

	if !ps.wrapped[pageNr] {
		if len(streams) > 0 {
			openRef, err := ps.newContentStream([]byte("q\n"))
			if err != nil {
				return err
			}
			streams = append(types.Array{*openRef}, streams...)
		} else {
			content = bytes.TrimPrefix(content, []byte("Q\n"))
		}
		ps.wrapped[pageNr] = true
	}

	ref, err := ps.newContentStream(content)
	if err != nil {
		return err
	}
	pageDict["Contents"] = append(streams, *ref)
	return nil
}

func (ps *pageStamper) newContentStream(content []byte) (*types.IndirectRef, error) {
	sd, err := ps.ctx.NewStreamDictForBuf(content)
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return ps.ctx.IndRefForNewObject(*sd)
}

// num formats a coordinate for a content stream.
func num(f float64) string {
	return strconv.FormatFloat(math.Round(f*1e4)/1e4, 'f', -1, 64)
}
