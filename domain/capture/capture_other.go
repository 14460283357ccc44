//go:build !windows

package capture

import (
	"image"
	"log/slog"

	"github.com/vova616/screenshot"

	"github.com/soocke/keyprompt-bot/domain/window"
)

// screenSource grabs the whole primary screen; window handles are ignored.
type screenSource struct {
	logger *slog.Logger
}

// NewFrameSource returns the platform frame source.
func NewFrameSource(logger *slog.Logger) FrameSource {
	return &screenSource{logger: logger}
}

func (s *screenSource) CaptureFrame(_ window.Handle) (img *image.RGBA, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if s.logger != nil {
				s.logger.Error("capture panic", "panic", r)
			}
			img, ok = nil, false
		}
	}()
	out, err := screenshot.CaptureScreen()
	if err != nil {
		if s.logger != nil {
			s.logger.Error("capture screen", "error", err)
		}
		return nil, false
	}
	return out, true
}
