package detect

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/soocke/keyprompt-bot/domain/capture"
)

// ScaledTemplate is one pyramid level ready for matching.
type ScaledTemplate struct {
	Scale float64
	pc    *capture.TemplatePrecomp
}

// Template is a symbol image plus its scale pyramid. Immutable once built.
type Template struct {
	Symbol  string
	Image   *image.Gray
	Pyramid []ScaledTemplate
}

// NewTemplate builds the pyramid of img at the given scales. Levels that
// collapse below one pixel or have no contrast are dropped.
func NewTemplate(symbol string, img *image.Gray, scales []float64) Template {
	t := Template{Symbol: symbol, Image: img}
	if img == nil {
		return t
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	for _, s := range scales {
		var level *image.Gray
		if s == 1.0 {
			level = img
		} else {
			nw, nh := int(float64(w)*s), int(float64(h)*s)
			if nw < 1 || nh < 1 {
				continue
			}
			level = capture.ToGray(imaging.Resize(img, nw, nh, imaging.CatmullRom))
		}
		if pc := capture.PrecomputeTemplate(level); pc != nil {
			t.Pyramid = append(t.Pyramid, ScaledTemplate{Scale: s, pc: pc})
		}
	}
	return t
}

// Size returns the level dimensions.
func (s ScaledTemplate) Size() (int, int) { return s.pc.Size() }
