package export

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/jsjgdh/Graphite/internal/render"
)

// jpegQuality matches the editor's historical default for JPEG exports.
const jpegQuality = 90

// EncodeRaster encodes a raster buffer into the requested still-image
// codec. A transparent PNG keeps the alpha channel; everything else is
// flattened to opaque.
func EncodeRaster(r *render.Raster, kind FileKind, transparent bool) ([]byte, error) {
	if len(r.Pixels) != r.Width*r.Height*4 {
		return nil, fmt.Errorf("raster buffer size %d does not match %dx%d", len(r.Pixels), r.Width, r.Height)
	}

	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	copy(img.Pix, r.Pixels)
	if kind == FileJPEG || (kind == FilePNG && !transparent) {
		for i := 3; i < len(img.Pix); i += 4 {
			img.Pix[i] = 0xff
		}
	}

	var buf bytes.Buffer
	switch kind {
	case FilePNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode PNG: %w", err)
		}
	case FileJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("failed to encode JPG: %w", err)
		}
	default:
		return nil, fmt.Errorf("file kind %s is not a raster codec", kind)
	}
	return buf.Bytes(), nil
}
