package images

import (
	"errors"
	"image"
	"image/draw"
)

// ExtractROI copies the part of src under r into a new image anchored at
// (0,0), so the result does not pin the source frame's pixel buffer. r is
// clamped to src bounds. It also returns the clamped rectangle.
func ExtractROI(src image.Image, r image.Rectangle) (*image.RGBA, image.Rectangle, error) {
	if src == nil {
		return nil, image.Rectangle{}, errors.New("nil frame")
	}
	roi := r.Intersect(src.Bounds())
	if roi.Empty() {
		return nil, image.Rectangle{}, errors.New("roi outside frame")
	}
	out := image.NewRGBA(image.Rect(0, 0, roi.Dx(), roi.Dy()))
	draw.Draw(out, out.Bounds(), src, roi.Min, draw.Src)
	return out, roi, nil
}
