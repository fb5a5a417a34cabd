package media

import (
	"bytes"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// TakenAt extracts the capture timestamp from an image's EXIF data. Images
// without usable EXIF (PNGs, stripped JPEGs) return nil; imports fall back
// to the job-level capture-date override in that case.
func TakenAt(data []byte) *time.Time {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	taken, err := x.DateTime()
	if err != nil {
		return nil
	}
	return &taken
}
