package capture

import (
	"image"
	"math"
	"testing"
)

// noiseGray builds a deterministic textured grayscale image.
func noiseGray(w, h int, seed uint32) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	s := seed | 1
	for i := range g.Pix {
		s ^= s << 13
		s ^= s >> 17
		s ^= s << 5
		g.Pix[i] = uint8(s)
	}
	return g
}

func flatGray(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func paste(dst, src *image.Gray, x0, y0 int) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		copy(dst.Pix[(y0+y)*dst.Stride+x0:], src.Pix[y*src.Stride:y*src.Stride+b.Dx()])
	}
}

func TestMatchAll_FindsEmbeddedTemplate(t *testing.T) {
	frame := flatGray(120, 80, 40)
	tmpl := noiseGray(16, 12, 7)
	paste(frame, tmpl, 37, 21)

	matches := MatchAll(PrecomputeGray(frame), PrecomputeTemplate(tmpl), NCCOptions{Threshold: 0.95})
	if len(matches) != 1 {
		t.Fatalf("expected exactly one match, got %d: %+v", len(matches), matches)
	}
	m := matches[0]
	if m.X != 37 || m.Y != 21 || m.W != 16 || m.H != 12 {
		t.Fatalf("unexpected match position %+v", m)
	}
	if m.Score < 0.999 {
		t.Fatalf("expected near perfect score, got %.4f", m.Score)
	}
}

// blobGray draws a smooth radial blob so neighbouring offsets still correlate.
func blobGray(size int, sigma float64) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, size, size))
	c := float64(size-1) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)-c, float64(y)-c
			g.Pix[y*g.Stride+x] = uint8(255 * math.Exp(-(dx*dx+dy*dy)/(2*sigma*sigma)))
		}
	}
	return g
}

func TestMatchAll_StrideRefinesToSamePeak(t *testing.T) {
	frame := flatGray(100, 60, 0)
	tmpl := blobGray(24, 5)
	paste(frame, tmpl, 43, 17)

	matches := MatchAll(PrecomputeGray(frame), PrecomputeTemplate(tmpl), NCCOptions{Threshold: 0.99, Stride: 4})
	found := false
	for _, m := range matches {
		if m.X == 43 && m.Y == 17 {
			found = true
		}
	}
	if !found {
		t.Fatalf("stride scan missed the embedded template: %+v", matches)
	}
}

func TestPrecomputeTemplate_FlatIsRejected(t *testing.T) {
	if pc := PrecomputeTemplate(flatGray(8, 8, 128)); pc != nil {
		t.Fatalf("flat template should not be matchable")
	}
	if pc := PrecomputeTemplate(image.NewGray(image.Rect(0, 0, 0, 0))); pc != nil {
		t.Fatalf("empty template should not be matchable")
	}
}

func TestMatchAll_TemplateLargerThanFrame(t *testing.T) {
	frame := noiseGray(10, 10, 3)
	tmpl := noiseGray(12, 4, 5)
	if got := MatchAll(PrecomputeGray(frame), PrecomputeTemplate(tmpl), NCCOptions{Threshold: 0.1}); len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}

func TestMatchAll_FlatFrameNeverMatches(t *testing.T) {
	frame := flatGray(50, 50, 0)
	tmpl := noiseGray(8, 8, 11)
	if got := MatchAll(PrecomputeGray(frame), PrecomputeTemplate(tmpl), NCCOptions{Threshold: -1}); len(got) != 0 {
		t.Fatalf("flat frame produced %d matches", len(got))
	}
}
