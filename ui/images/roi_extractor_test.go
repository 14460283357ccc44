package images

import (
	"image"
	"image/color"
	"testing"
)

func TestExtractROI_CopiesRegion(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 100, 100))
	frame.SetRGBA(30, 40, color.RGBA{R: 200, A: 255})
	roi, rect, err := ExtractROI(frame, image.Rect(30, 40, 70, 60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rect != image.Rect(30, 40, 70, 60) || roi.Bounds() != image.Rect(0, 0, 40, 20) {
		t.Fatalf("rect=%v bounds=%v", rect, roi.Bounds())
	}
	if roi.RGBAAt(0, 0).R != 200 {
		t.Fatalf("pixel not copied")
	}
	frame.SetRGBA(30, 40, color.RGBA{})
	if roi.RGBAAt(0, 0).R != 200 {
		t.Fatalf("roi must not share the frame buffer")
	}
}

func TestExtractROI_ClampsToFrame(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 20, 20))
	_, rect, err := ExtractROI(frame, image.Rect(-5, 10, 30, 40))
	if err != nil {
		t.Fatalf("roi error: %v", err)
	}
	if rect != image.Rect(0, 10, 20, 20) {
		t.Fatalf("rect=%v", rect)
	}
}

func TestExtractROI_SubImageSource(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 50, 50))
	frame.SetRGBA(12, 14, color.RGBA{G: 99, A: 255})
	sub := frame.SubImage(image.Rect(10, 10, 30, 30))
	roi, _, err := ExtractROI(sub, sub.Bounds())
	if err != nil {
		t.Fatalf("roi error: %v", err)
	}
	if roi.Bounds().Dx() != 20 || roi.RGBAAt(2, 4).G != 99 {
		t.Fatalf("sub-image offset not honoured")
	}
}

func TestExtractROI_Errors(t *testing.T) {
	if _, _, err := ExtractROI(nil, image.Rect(0, 0, 1, 1)); err == nil {
		t.Fatalf("expected nil frame error")
	}
	frame := image.NewRGBA(image.Rect(0, 0, 10, 10))
	if _, _, err := ExtractROI(frame, image.Rect(20, 20, 30, 30)); err == nil {
		t.Fatalf("expected outside error")
	}
}

func TestScaleToFit(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 10, 10))
	if ScaleToFit(small, 20, 20) != image.Image(small) {
		t.Fatalf("fitting image should be returned as is")
	}
	wide := image.NewRGBA(image.Rect(0, 0, 400, 100))
	b := ScaleToFit(wide, 200, 200).Bounds()
	if b.Dx() != 200 || b.Dy() != 50 {
		t.Fatalf("scaled to %v", b)
	}
	if len(EncodePNG(wide)) == 0 || EncodePNG(nil) != nil {
		t.Fatalf("encode")
	}
}
