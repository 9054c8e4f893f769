package service

import (
	"math"

	"pdf-signer/internal/domain"
)

// Three coordinate spaces meet here: client pixels from pointer events, rendered
// page pixels (client minus the page element origin), and page space in PDF points
// with a top-left origin. Render scale is rendered pixels per point.

// NormalizeScale treats a missing render scale as 1.0.
func NormalizeScale(scale float64) float64 {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return 1
	}
	return scale
}

// ScaleFor derives the render scale from the measured rendered width and the page's
// native width.
func ScaleFor(renderedWidth, nativeWidth float64) float64 {
	if renderedWidth <= 0 || nativeWidth <= 0 {
		return 1
	}
	return NormalizeScale(renderedWidth / nativeWidth)
}

// ToPageSpace converts a pointer to page-space coordinates relative to rect.
func ToPageSpace(ptr domain.Pointer, rect domain.PageRect, scale float64) domain.Position {
	scale = NormalizeScale(scale)
	return domain.Position{
		X: (ptr.ClientX - rect.Left) / scale,
		Y: (ptr.ClientY - rect.Top) / scale,
	}
}

// ClickToPlace centers a width x height box on the clicked point.
func ClickToPlace(ptr domain.Pointer, rect domain.PageRect, scale, width, height float64) domain.Position {
	p := ToPageSpace(ptr, rect, scale)
	return clampNonNegative(domain.Position{
		X: p.X - width/2,
		Y: p.Y - height/2,
	})
}

// DragDelta is the page-space distance the pointer travelled since start.
func DragDelta(start, current domain.Pointer, scale float64) (dx, dy float64) {
	scale = NormalizeScale(scale)
	return (current.ClientX - start.ClientX) / scale, (current.ClientY - start.ClientY) / scale
}

// DragTo applies the total delta since drag start to the origin recorded at drag
// start. Only the lower bound is enforced so a box can sit flush with any edge.
func DragTo(origin domain.Position, start, current domain.Pointer, scale float64) domain.Position {
	dx, dy := DragDelta(start, current, scale)
	return clampNonNegative(domain.Position{X: origin.X + dx, Y: origin.Y + dy})
}

// ClampToPage keeps a width x height box inside the page.
func ClampToPage(pos domain.Position, width, height float64, page domain.PageSize) domain.Position {
	return domain.Position{
		X: math.Max(0, math.Min(pos.X, page.Width-width)),
		Y: math.Max(0, math.Min(pos.Y, page.Height-height)),
	}
}

// ToPDFSpace clamps a placement to its page and returns the lower-left corner of the
// box in PDF user space (origin bottom-left, y up).
func ToPDFSpace(pos domain.Position, width, height float64, page domain.PageSize) (x, y float64) {
	c := ClampToPage(pos, width, height, page)
	return page.OriginX + c.X, page.OriginY + page.Height - c.Y - height
}

func clampNonNegative(p domain.Position) domain.Position {
	return domain.Position{X: math.Max(0, p.X), Y: math.Max(0, p.Y)}
}
