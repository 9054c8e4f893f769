package domain

import "strings"

// Position is a point in page space: PDF points, origin top-left, y growing downward.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Placement is one signature image attached to a page of the current document.
type Placement struct {
	ID       string   `json:"id"`
	URL      string   `json:"url"`
	Position Position `json:"position"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Page     int      `json:"page"`
	Deleted  bool     `json:"deleted"`
}

// MoveUpdate is a partial update; nil fields are left unchanged.
type MoveUpdate struct {
	X    *float64 `json:"x,omitempty"`
	Y    *float64 `json:"y,omitempty"`
	Page *int     `json:"page,omitempty"`
}

// SignatureDefaults holds the box used for newly attached signatures.
type SignatureDefaults struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
}

// PageSize is the native size of a page in PDF points. OriginX/OriginY carry the
// lower-left corner of the page box, which is not always 0,0.
type PageSize struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	OriginX float64 `json:"origin_x,omitempty"`
	OriginY float64 `json:"origin_y,omitempty"`
}

// PageRect is the bounding rectangle of a rendered page element, in client pixels.
type PageRect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Pointer is a pointer or touch event location in client pixels.
type Pointer struct {
	ClientX float64 `json:"client_x"`
	ClientY float64 `json:"client_y"`
}

// ReorderDirection names a z-order command.
type ReorderDirection string

const (
	ReorderFront    ReorderDirection = "front"
	ReorderBack     ReorderDirection = "back"
	ReorderForward  ReorderDirection = "forward"
	ReorderBackward ReorderDirection = "backward"
)

// ParseReorderDirection validates a direction coming from a client.
func ParseReorderDirection(s string) (ReorderDirection, error) {
	switch d := ReorderDirection(strings.ToLower(strings.TrimSpace(s))); d {
	case ReorderFront, ReorderBack, ReorderForward, ReorderBackward:
		return d, nil
	}
	return "", &ValidationError{Field: "direction", Message: "must be one of front, back, forward, backward"}
}
