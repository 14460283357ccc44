package model

import (
	"image"

	"github.com/soocke/keyprompt-bot/domain/detect"
)

// DetectionModel mirrors what the controller last reported about the key
// prompt. Zero value means no ROI and is usable.
// No synchronization needed: updates occur on the UI thread tick.
type DetectionModel struct {
	roi       image.Rectangle
	confirmed bool
	preview   image.Image
	sequence  detect.Sequence
}

func NewDetectionModel() *DetectionModel { return &DetectionModel{} }

// SetROI records a found or confirmed rectangle in frame coordinates. An
// empty rect clears the model.
func (m *DetectionModel) SetROI(r image.Rectangle, confirmed bool, preview image.Image) {
	if m == nil {
		return
	}
	if r.Empty() {
		m.Clear()
		return
	}
	m.roi = r
	m.confirmed = confirmed
	if preview != nil {
		m.preview = preview
	}
}

// Clear forgets the ROI, its preview and the last sequence.
func (m *DetectionModel) Clear() {
	if m == nil {
		return
	}
	*m = DetectionModel{}
}

// SetSequence stores the last replayed sequence.
func (m *DetectionModel) SetSequence(s detect.Sequence) {
	if m == nil {
		return
	}
	m.sequence = append(detect.Sequence(nil), s...)
}

// ROI returns the current rectangle (may be empty) and whether it is confirmed.
func (m *DetectionModel) ROI() (image.Rectangle, bool) {
	if m == nil {
		return image.Rectangle{}, false
	}
	return m.roi, m.confirmed
}

func (m *DetectionModel) Preview() image.Image {
	if m == nil {
		return nil
	}
	return m.preview
}

func (m *DetectionModel) Sequence() detect.Sequence {
	if m == nil {
		return nil
	}
	return m.sequence
}
