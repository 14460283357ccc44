package detect

import (
	"image"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/soocke/keyprompt-bot/config"
	"github.com/soocke/keyprompt-bot/domain/capture"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testConfig() config.Config {
	cfg := *config.DefaultConfig()
	cfg.Scales = []float64{1.0}
	return cfg
}

// glyph returns a deterministic noise texture standing in for a key symbol.
func glyph(seed uint32) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, 20, 20))
	s := seed*2654435761 | 1
	for i := range g.Pix {
		s ^= s << 13
		s ^= s >> 17
		s ^= s << 5
		g.Pix[i] = uint8(s >> 8)
	}
	return g
}

func testTemplates() map[string]*image.Gray {
	return map[string]*image.Gray{"W": glyph(1), "A": glyph(2), "S": glyph(3), "D": glyph(4)}
}

// promptFrame draws the given symbols left to right on a mid-gray frame.
func promptFrame(tmpls map[string]*image.Gray, symbols []string, x0, y0, gap int) *image.RGBA {
	frame := image.NewRGBA(image.Rect(0, 0, 320, 120))
	for i := range frame.Pix {
		frame.Pix[i] = 128
		if i%4 == 3 {
			frame.Pix[i] = 255
		}
	}
	for i, s := range symbols {
		g := tmpls[s]
		ox := x0 + i*gap
		for y := 0; y < g.Rect.Dy(); y++ {
			for x := 0; x < g.Rect.Dx(); x++ {
				v := g.Pix[y*g.Stride+x]
				p := frame.PixOffset(ox+x, y0+y)
				frame.Pix[p], frame.Pix[p+1], frame.Pix[p+2] = v, v, v
			}
		}
	}
	return frame
}

func blankFrame() *image.RGBA {
	f := image.NewRGBA(image.Rect(0, 0, 320, 120))
	for i := range f.Pix {
		f.Pix[i] = 90
	}
	return f
}

func TestDiscoverROI_BlankFrameLeavesROIUnchanged(t *testing.T) {
	d := New(testTemplates(), testConfig(), discardLogger())
	defer d.Close()

	if d.DiscoverROI(blankFrame()) {
		t.Fatalf("blank frame should not yield an roi")
	}
	if d.ROI().Known() {
		t.Fatalf("roi should stay unknown")
	}

	tm := testTemplates()
	if !d.DiscoverROI(promptFrame(tm, []string{"W", "A", "S", "D", "A"}, 40, 50, 50)) {
		t.Fatalf("expected discovery on prompt frame")
	}
	before := d.ROI()
	if d.DiscoverROI(blankFrame()) {
		t.Fatalf("blank frame should not yield an roi")
	}
	if d.ROI() != before {
		t.Fatalf("roi changed after failed discovery: %v -> %v", before, d.ROI())
	}
}

func TestDiscoverAndRecognize_SyntheticPrompt(t *testing.T) {
	tm := testTemplates()
	d := New(tm, testConfig(), discardLogger())
	defer d.Close()
	frame := promptFrame(tm, []string{"W", "A", "S", "D", "A"}, 40, 50, 50)

	if !d.DiscoverROI(frame) {
		t.Fatalf("expected discovery")
	}
	roi := d.ROI()
	if roi.Status != ROITentative {
		t.Fatalf("expected tentative roi, got %v", roi.Status)
	}
	want := image.Rect(30, 40, 270, 80)
	if roi.Rect != want {
		t.Fatalf("roi=%v want %v", roi.Rect, want)
	}

	seq := d.RecognizeSequence(frame)
	if seq.Key() != "W A S D A" {
		t.Fatalf("sequence=%q", seq.Key())
	}
	if again := d.RecognizeSequence(frame); !again.Equal(seq) {
		t.Fatalf("recognition not idempotent: %q vs %q", seq.Key(), again.Key())
	}
}

func TestRecognizeSequence_UnknownROI(t *testing.T) {
	tm := testTemplates()
	d := New(tm, testConfig(), nil)
	defer d.Close()
	if seq := d.RecognizeSequence(promptFrame(tm, []string{"W"}, 10, 10, 0)); len(seq) != 0 {
		t.Fatalf("expected empty sequence without roi, got %v", seq)
	}
}

// scripted replaces template matching with fixed detections per symbol.
func scripted(d *Detector, bySymbol map[string][]Detection) {
	d.match = func(_ *capture.GrayPrecomp, t Template, _ float64, _ *atomic.Bool) []Detection {
		return bySymbol[t.Symbol]
	}
}

func TestDiscoverROI_FiveMatchesBoundingBox(t *testing.T) {
	d := New(testTemplates(), testConfig(), discardLogger())
	defer d.Close()
	scripted(d, map[string][]Detection{
		"W": {det("W", 40, 50, 20, 20, 0.9)},
		"A": {det("A", 90, 52, 20, 20, 0.85), det("A", 240, 48, 20, 20, 0.7)},
		"S": {det("S", 140, 50, 20, 20, 0.88)},
		"D": {det("D", 190, 51, 20, 20, 0.91)},
	})
	if !d.DiscoverROI(blankFrame()) {
		t.Fatalf("expected discovery")
	}
	want := image.Rect(30, 38, 270, 82)
	if got := d.ROI().Rect; got != want {
		t.Fatalf("roi=%v want %v", got, want)
	}
}

func TestDiscoverROI_MarginClippedToFrame(t *testing.T) {
	d := New(testTemplates(), testConfig(), nil)
	defer d.Close()
	scripted(d, map[string][]Detection{"W": {det("W", 2, 3, 20, 20, 0.9)}, "D": {det("D", 305, 100, 15, 20, 0.9)}})
	if !d.DiscoverROI(blankFrame()) {
		t.Fatalf("expected discovery")
	}
	if got := d.ROI().Rect; got != image.Rect(0, 0, 320, 120) {
		t.Fatalf("roi=%v", got)
	}
}

func TestDiscoverROI_ConfirmedNotReplaced(t *testing.T) {
	d := New(testTemplates(), testConfig(), nil)
	defer d.Close()
	scripted(d, map[string][]Detection{"W": {det("W", 40, 50, 20, 20, 0.9)}})
	d.DiscoverROI(blankFrame())
	if !d.ConfirmROI() {
		t.Fatalf("confirm failed")
	}
	confirmed := d.ROI()

	scripted(d, map[string][]Detection{"W": {det("W", 60, 55, 20, 20, 0.9)}})
	d.DiscoverROI(blankFrame())
	if d.ROI() != confirmed {
		t.Fatalf("confirmed roi replaced: %v -> %v", confirmed, d.ROI())
	}

	d.InvalidateROI()
	if d.ROI().Known() || d.ConfirmROI() {
		t.Fatalf("invalidated roi should be unknown")
	}
	d.DiscoverROI(blankFrame())
	if got := d.ROI(); got.Status != ROITentative || got.Rect != image.Rect(50, 45, 90, 85) {
		t.Fatalf("unexpected roi after rediscovery %+v", got)
	}
}

func TestDiscoverROI_PanicInOneSymbolIsContained(t *testing.T) {
	d := New(testTemplates(), testConfig(), discardLogger())
	defer d.Close()
	d.match = func(_ *capture.GrayPrecomp, t Template, _ float64, _ *atomic.Bool) []Detection {
		if t.Symbol == "S" {
			panic("boom")
		}
		if t.Symbol == "W" {
			return []Detection{det("W", 40, 50, 20, 20, 0.9)}
		}
		return nil
	}
	if !d.DiscoverROI(blankFrame()) {
		t.Fatalf("other symbols should still be discovered")
	}
}

func TestDetector_EmptyAndPartialTemplates(t *testing.T) {
	empty := New(nil, testConfig(), nil)
	defer empty.Close()
	if empty.DiscoverROI(blankFrame()) {
		t.Fatalf("empty template set should find nothing")
	}
	if seq := empty.RecognizeSequence(blankFrame()); len(seq) != 0 {
		t.Fatalf("expected empty sequence")
	}

	tm := testTemplates()
	partial := New(map[string]*image.Gray{"W": tm["W"], "D": tm["D"]}, testConfig(), nil)
	defer partial.Close()
	frame := promptFrame(tm, []string{"W", "A", "D"}, 40, 50, 60)
	if !partial.DiscoverROI(frame) {
		t.Fatalf("partial set should still discover")
	}
	if seq := partial.RecognizeSequence(frame); seq.Key() != "W D" {
		t.Fatalf("sequence=%q", seq.Key())
	}
}

func TestDetector_CloseIsIdempotent(t *testing.T) {
	d := New(testTemplates(), testConfig(), nil)
	d.Close()
	d.Close()
	if d.DiscoverROI(promptFrame(testTemplates(), []string{"W"}, 10, 10, 0)) {
		t.Fatalf("closed detector should not match")
	}
}
