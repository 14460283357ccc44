//go:build !windows

package window

import (
	"image"

	"github.com/vova616/screenshot"
)

// screenFinder treats the whole screen as the single target window on
// platforms without a window enumeration backend.
type screenFinder struct{}

// ScreenHandle identifies the whole-screen pseudo window.
const ScreenHandle Handle = 1

// NewFinder returns the platform window finder.
func NewFinder() Finder { return screenFinder{} }

func (screenFinder) Find(title string) (Handle, error) {
	if _, err := screenshot.ScreenRect(); err != nil {
		return 0, ErrNotFound
	}
	return ScreenHandle, nil
}

func (screenFinder) IsValid(h Handle) bool { return h == ScreenHandle }

func (screenFinder) Rect(h Handle) (image.Rectangle, error) {
	if h != ScreenHandle {
		return image.Rectangle{}, ErrNotFound
	}
	return screenshot.ScreenRect()
}

// List reports the screen as the only window.
func List() ([]Info, error) {
	r, err := screenshot.ScreenRect()
	if err != nil {
		return nil, err
	}
	return []Info{{Handle: ScreenHandle, Title: "Screen", Rect: r}}, nil
}
