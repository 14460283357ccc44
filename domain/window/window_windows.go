//go:build windows

package window

import (
	"fmt"
	"image"
	"strings"
	"syscall"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows      = user32.NewProc("EnumWindows")
	procGetWindowTextW   = user32.NewProc("GetWindowTextW")
	procIsWindowVisible  = user32.NewProc("IsWindowVisible")
	procIsWindow         = user32.NewProc("IsWindow")
	procGetWindowRect    = user32.NewProc("GetWindowRect")
	procGetForegroundWnd = user32.NewProc("GetForegroundWindow")
)

type rect struct{ Left, Top, Right, Bottom int32 }

// Win32Finder enumerates top-level windows through user32.
type Win32Finder struct{}

// NewFinder returns the platform window finder.
func NewFinder() Finder { return Win32Finder{} }

// Find returns the handle of the visible window whose title contains title.
func (Win32Finder) Find(title string) (Handle, error) {
	wins, err := List()
	if err != nil {
		return 0, err
	}
	info, ok := SelectByTitle(wins, title)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, title)
	}
	return info.Handle, nil
}

// IsValid reports whether h still identifies an existing window.
func (Win32Finder) IsValid(h Handle) bool {
	if h == 0 {
		return false
	}
	r, _, _ := procIsWindow.Call(uintptr(h))
	return r != 0
}

// Rect returns the window bounds in screen coordinates.
func (Win32Finder) Rect(h Handle) (image.Rectangle, error) {
	return windowRect(h)
}

// List returns all visible top-level windows with a non-empty title.
func List() ([]Info, error) {
	var out []Info
	cb := syscall.NewCallback(func(hwnd uintptr, lparam uintptr) uintptr {
		vis, _, _ := procIsWindowVisible.Call(hwnd)
		if vis == 0 {
			return 1
		}
		title := windowText(hwnd)
		if title == "" {
			return 1
		}
		r, err := windowRect(Handle(hwnd))
		if err != nil {
			return 1
		}
		out = append(out, Info{Handle: Handle(hwnd), Title: title, Rect: r})
		return 1
	})
	if r, _, callErr := procEnumWindows.Call(cb, 0); r == 0 {
		return nil, fmt.Errorf("window: EnumWindows failed: %v", callErr)
	}
	return out, nil
}

// Foreground returns the current foreground window handle.
func Foreground() Handle {
	h, _, _ := procGetForegroundWnd.Call()
	return Handle(h)
}

func windowText(hwnd uintptr) string {
	const maxChars = 256
	buf := make([]uint16, maxChars)
	r, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if r == 0 {
		return ""
	}
	n := int(r)
	for i, v := range buf[:n] {
		if v == 0 {
			n = i
			break
		}
	}
	return strings.TrimSpace(string(utf16.Decode(buf[:n])))
}

func windowRect(h Handle) (image.Rectangle, error) {
	var r rect
	ok, _, err := procGetWindowRect.Call(uintptr(h), uintptr(unsafe.Pointer(&r)))
	if ok == 0 {
		return image.Rectangle{}, fmt.Errorf("window: GetWindowRect failed: %v", err)
	}
	return image.Rect(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom)), nil
}
