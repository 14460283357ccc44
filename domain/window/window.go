// Package window resolves and tracks the target application window.
package window

import (
	"errors"
	"image"
	"strings"
)

// Handle is an opaque OS window handle. Zero means no window.
type Handle uintptr

// ErrNotFound is returned when no visible window matches the requested title.
var ErrNotFound = errors.New("window: not found")

// minWindowSide filters out tool windows and tray stubs sharing the game title.
const minWindowSide = 100

// Info describes one top-level window.
type Info struct {
	Handle Handle
	Title  string
	Rect   image.Rectangle
}

// Finder locates windows and answers liveness queries for a handle.
type Finder interface {
	Find(title string) (Handle, error)
	IsValid(h Handle) bool
	Rect(h Handle) (image.Rectangle, error)
}

// SelectByTitle returns the last visible window whose title contains title
// (case-insensitive) and whose bounds exceed the minimum size. The last match
// wins to mirror EnumWindows z-order traversal ending at the bottom-most
// candidate.
func SelectByTitle(windows []Info, title string) (Info, bool) {
	needle := strings.ToLower(strings.TrimSpace(title))
	if needle == "" {
		return Info{}, false
	}
	var (
		found Info
		ok    bool
	)
	for _, w := range windows {
		if !strings.Contains(strings.ToLower(w.Title), needle) {
			continue
		}
		found, ok = w, true
	}
	if !ok {
		return Info{}, false
	}
	if found.Rect.Dx() <= minWindowSide || found.Rect.Dy() <= minWindowSide {
		return Info{}, false
	}
	return found, true
}
