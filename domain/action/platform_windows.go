//go:build windows

package action

import (
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/soocke/keyprompt-bot/domain/window"
)

const (
	wmKeyDown = 0x0100
	wmKeyUp   = 0x0101

	swShow    = 5
	swRestore = 9
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procSetForegroundWindow      = user32.NewProc("SetForegroundWindow")
	procBringWindowToTop         = user32.NewProc("BringWindowToTop")
	procSwitchToThisWindow       = user32.NewProc("SwitchToThisWindow")
	procShowWindow               = user32.NewProc("ShowWindow")
	procIsIconic                 = user32.NewProc("IsIconic")
	procIsWindow                 = user32.NewProc("IsWindow")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procAttachThreadInput        = user32.NewProc("AttachThreadInput")
	procPostMessageW             = user32.NewProc("PostMessageW")
)

// win32Platform posts window messages through user32.
type win32Platform struct{}

// NewPlatform returns the Win32 platform.
func NewPlatform() Platform { return win32Platform{} }

func (win32Platform) ForegroundWindow() window.Handle {
	h, _, _ := procGetForegroundWindow.Call()
	return window.Handle(h)
}

func (p win32Platform) IsWindow(h window.Handle) bool {
	if h == 0 {
		return false
	}
	r, _, _ := procIsWindow.Call(uintptr(h))
	return r != 0
}

// ForceFocus restores h if minimised and brings it to the foreground with the
// input of this thread temporarily attached to the window's thread, which
// lifts the foreground lock. It reports whether h ended up in front.
func (p win32Platform) ForceFocus(h window.Handle) bool {
	if !p.IsWindow(h) {
		return false
	}
	if iconic, _, _ := procIsIconic.Call(uintptr(h)); iconic != 0 {
		procShowWindow.Call(uintptr(h), swRestore)
	} else {
		procShowWindow.Call(uintptr(h), swShow)
	}

	current := windows.GetCurrentThreadId()
	target, _, _ := procGetWindowThreadProcessId.Call(uintptr(h), 0)
	attached := false
	if target != 0 && uint32(target) != current {
		r, _, _ := procAttachThreadInput.Call(uintptr(current), target, 1)
		attached = r != 0
	}
	defer func() {
		if attached {
			procAttachThreadInput.Call(uintptr(current), target, 0)
		}
	}()

	procBringWindowToTop.Call(uintptr(h))
	procSetForegroundWindow.Call(uintptr(h))
	procSwitchToThisWindow.Call(uintptr(h), 1)
	return p.ForegroundWindow() == h
}

func (p win32Platform) PostKey(h window.Handle, code KeyCode, up bool) error {
	msg := uintptr(wmKeyDown)
	if up {
		msg = wmKeyUp
	}
	r, _, callErr := procPostMessageW.Call(uintptr(h), msg, uintptr(code.VK), KeyLParam(code.Scan, up))
	if r == 0 {
		return fmt.Errorf("action: PostMessageW vk=%#x up=%t: %w", code.VK, up, callErr)
	}
	return nil
}
