package view

import (
	"image"

	"github.com/soocke/keyprompt-bot/ui/images"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// DetectionPreview shows the last found or confirmed key-prompt region.
type DetectionPreview interface {
	UpdateDetection(img image.Image)
	Reset()
}

const (
	maxPreviewW = 320
	maxPreviewH = 90
)

type detectionPreview struct {
	label *LabelWidget
	photo *Img // disposed before replacement so old pixel data is freed
}

// NewDetectionPreview grids the preview label at (row, col).
func NewDetectionPreview(row, col int) DetectionPreview {
	photo := NewPhoto(Data(placeholderPNG()))
	label := Label(Image(photo), Borderwidth(1), Relief("sunken"))
	Grid(label, Row(row), Column(col), Sticky("nwe"), Padx("0.4m"), Pady("0.4m"))
	return &detectionPreview{label: label, photo: photo}
}

func (v *detectionPreview) UpdateDetection(img image.Image) {
	if v.label == nil || img == nil {
		return
	}
	v.replace(images.EncodePNG(images.ScaleToFit(img, maxPreviewW, maxPreviewH)))
}

func (v *detectionPreview) Reset() {
	if v.label == nil {
		return
	}
	v.replace(placeholderPNG())
}

func (v *detectionPreview) replace(pngBytes []byte) {
	if len(pngBytes) == 0 {
		return
	}
	if v.photo != nil {
		v.photo.Delete()
	}
	v.photo = NewPhoto(Data(pngBytes))
	v.label.Configure(Image(v.photo))
}

func placeholderPNG() []byte {
	return images.EncodePNG(image.NewRGBA(image.Rect(0, 0, maxPreviewW, maxPreviewH)))
}
