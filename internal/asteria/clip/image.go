package clip

import (
	"image"

	"github.com/starwatch-station/asteria/internal/asteria/frame"
)

// frameToGray adapts a Frame's row-major byte raster to an image.Gray for
// the standard library's JPEG encoder.
func frameToGray(f *frame.Frame) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	copy(img.Pix, f.Samples)
	return img
}
