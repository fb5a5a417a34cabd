package media

import (
	"bytes"
	"fmt"
	"image"
	"log"

	"github.com/disintegration/imaging"
)

const watermarkPaddingRatio = 0.02 // of the image width

// Watermarker composites a logo onto imported photos. A zero-value or
// disabled Watermarker passes bytes through unchanged, and callers are
// expected to fall back to the original bytes if Apply fails: a broken
// transform must never fail an import.
type Watermarker struct {
	logo    image.Image
	enabled bool
}

// NewWatermarker loads the logo image; an empty path disables the transform
func NewWatermarker(logoPath string) *Watermarker {
	if logoPath == "" {
		return &Watermarker{}
	}
	logo, err := imaging.Open(logoPath)
	if err != nil {
		log.Printf("media.processor: watermark disabled, cannot load logo %s: %v", logoPath, err)
		return &Watermarker{}
	}
	return &Watermarker{logo: logo, enabled: true}
}

// Enabled reports whether a logo was loaded
func (w *Watermarker) Enabled() bool {
	return w.enabled
}

// Apply composites the logo into the top-right corner and re-encodes the
// image in its original format
func (w *Watermarker) Apply(data []byte) ([]byte, error) {
	if !w.enabled {
		return data, nil
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image for watermarking: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("invalid image dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}

	padding := int(float64(bounds.Dx()) * watermarkPaddingRatio)
	logoBounds := w.logo.Bounds()
	pos := image.Pt(bounds.Dx()-logoBounds.Dx()-padding, padding)

	composited := imaging.Overlay(img, w.logo, pos, 1.0)

	encFormat, err := imaging.FormatFromExtension(format)
	if err != nil {
		encFormat = imaging.JPEG
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, composited, encFormat, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode watermarked image: %w", err)
	}
	return buf.Bytes(), nil
}
