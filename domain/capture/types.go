package capture

import (
	"image"

	"github.com/soocke/keyprompt-bot/domain/window"
)

// FrameSource grabs the current contents of a window. Failures are reported
// through ok=false; implementations never panic outward.
type FrameSource interface {
	CaptureFrame(h window.Handle) (img *image.RGBA, ok bool)
}

// FrameSourceFunc adapts a function to FrameSource.
type FrameSourceFunc func(h window.Handle) (*image.RGBA, bool)

func (f FrameSourceFunc) CaptureFrame(h window.Handle) (*image.RGBA, bool) { return f(h) }

// Stats summarises throttler activity.
type Stats struct {
	Captures  uint64 // successful captures
	Failures  uint64 // failed capture attempts
	Reuses    uint64 // frames served from cache
	Unchanged uint64 // captures perceptually identical to the previous one
	Critical  uint64 // critical backoffs taken
}
