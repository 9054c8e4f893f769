package service

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"

	"pdf-signer/internal/domain"

	_ "golang.org/x/image/bmp"  // register BMP format
	_ "golang.org/x/image/tiff" // register TIFF format
	_ "golang.org/x/image/webp" // register WebP format
)

// ImageCodec is the decoder chosen for a signature image.
type ImageCodec string

const (
	CodecUnknown ImageCodec = ""
	CodecPNG     ImageCodec = "png"
	CodecJPEG    ImageCodec = "jpeg"
)

// RasterImage is an image flattened into the sample layout of a PDF image XObject:
// 8-bit DeviceRGB samples plus an optional 8-bit soft mask.
type RasterImage struct {
	Width  int
	Height int
	RGB    []byte
	Alpha  []byte // nil when fully opaque
	Codec  string
}

// CodecHint guesses the codec from a URL, file name or data URL.
func CodecHint(ref string) ImageCodec {
	lower := strings.ToLower(ref)
	switch {
	case strings.Contains(lower, ".jpg"), strings.Contains(lower, ".jpeg"), strings.Contains(lower, "image/jpeg"):
		return CodecJPEG
	case strings.Contains(lower, ".png"), strings.Contains(lower, "image/png"):
		return CodecPNG
	}
	return CodecUnknown
}

// DecodeSignatureImage decodes data using the codec hinted by ref. Without a usable
// hint it tries PNG, then JPEG, then any other registered format. The header is
// checked first: an image over maxPixels (width*height) is rejected with
// ErrImageTooLarge before any pixel is decoded. A non-positive maxPixels disables
// the check.
func DecodeSignatureImage(data []byte, ref string, maxPixels int64) (*RasterImage, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image %dx%d", domain.ErrUnsupportedImage, cfg.Width, cfg.Height)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", domain.ErrImageTooLarge, cfg.Width, cfg.Height, maxPixels)
	}

	img, codec, err := decodeImage(data, CodecHint(ref))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedImage, err)
	}
	r := rasterize(img)
	r.Codec = codec
	return r, nil
}

// Extension returns the file extension for the decoded codec.
func (r *RasterImage) Extension() string {
	if r.Codec == string(CodecJPEG) {
		return ".jpg"
	}
	return "." + r.Codec
}

// ContentType returns the MIME type of the decoded codec.
func (r *RasterImage) ContentType() string {
	return "image/" + r.Codec
}

func decodeImage(data []byte, hint ImageCodec) (image.Image, string, error) {
	// A wrong hint falls through to sniffing.
	switch hint {
	case CodecJPEG:
		if img, err := jpeg.Decode(bytes.NewReader(data)); err == nil {
			return img, string(CodecJPEG), nil
		}
	case CodecPNG:
		if img, err := png.Decode(bytes.NewReader(data)); err == nil {
			return img, string(CodecPNG), nil
		}
	}

	if img, err := png.Decode(bytes.NewReader(data)); err == nil {
		return img, string(CodecPNG), nil
	}
	if img, err := jpeg.Decode(bytes.NewReader(data)); err == nil {
		return img, string(CodecJPEG), nil
	}
	return image.Decode(bytes.NewReader(data))
}

func rasterize(img image.Image) *RasterImage {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	rgb := make([]byte, 0, w*h*3)
	alpha := make([]byte, 0, w*h)
	opaque := true

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			rgb = append(rgb, c.R, c.G, c.B)
			alpha = append(alpha, c.A)
			if c.A != 0xff {
				opaque = false
			}
		}
	}

	r := &RasterImage{Width: w, Height: h, RGB: rgb}
	if !opaque {
		r.Alpha = alpha
	}
	return r
}
