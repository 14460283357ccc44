//go:build windows

package capture

// Window capture through PrintWindow into a top-down DIB. PrintWindow renders
// the window even when it is covered by other windows; when it fails the
// visible screen area under the window rectangle is grabbed instead.

import (
	"fmt"
	"image"
	"log/slog"
	"syscall"
	"unsafe"

	"github.com/vova616/screenshot"

	"github.com/soocke/keyprompt-bot/domain/window"
)

const (
	dibRGBColors = 0
	biRgb        = 0
	// PW_CLIENTONLY | PW_RENDERFULLCONTENT
	printWindowFlags = 3
)

var (
	user32                 = syscall.NewLazyDLL("user32.dll")
	gdi32                  = syscall.NewLazyDLL("gdi32.dll")
	kernel32               = syscall.NewLazyDLL("kernel32.dll")
	procGetWindowDC        = user32.NewProc("GetWindowDC")
	procReleaseDC          = user32.NewProc("ReleaseDC")
	procGetWindowRect      = user32.NewProc("GetWindowRect")
	procPrintWindow        = user32.NewProc("PrintWindow")
	procCreateCompatibleDC = gdi32.NewProc("CreateCompatibleDC")
	procDeleteDC           = gdi32.NewProc("DeleteDC")
	procSelectObject       = gdi32.NewProc("SelectObject")
	procCreateDIBSection   = gdi32.NewProc("CreateDIBSection")
	procDeleteObject       = gdi32.NewProc("DeleteObject")
	procGetLastError       = kernel32.NewProc("GetLastError")
)

type bitmapInfoHeader struct {
	BiSize          uint32
	BiWidth         int32
	BiHeight        int32
	BiPlanes        uint16
	BiBitCount      uint16
	BiCompression   uint32
	BiSizeImage     uint32
	BiXPelsPerMeter int32
	BiYPelsPerMeter int32
	BiClrUsed       uint32
	BiClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	_      [4]byte
}

type rect struct{ Left, Top, Right, Bottom int32 }

// WindowSource captures frames of a single target window.
type WindowSource struct {
	logger *slog.Logger
}

// NewFrameSource returns the platform frame source.
func NewFrameSource(logger *slog.Logger) FrameSource {
	return &WindowSource{logger: logger}
}

func (s *WindowSource) CaptureFrame(h window.Handle) (img *image.RGBA, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if s.logger != nil {
				s.logger.Error("capture panic", "panic", r)
			}
			img, ok = nil, false
		}
	}()
	r, err := windowRect(h)
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("capture rect", "error", err)
		}
		return nil, false
	}
	out, err := printWindow(h, r.Dx(), r.Dy())
	if err == nil {
		return out, true
	}
	if s.logger != nil {
		s.logger.Debug("printwindow failed, falling back to screen grab", "error", err)
	}
	out, err = screenshot.CaptureRect(r)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("capture fallback", "error", err)
		}
		return nil, false
	}
	return out, true
}

func windowRect(h window.Handle) (image.Rectangle, error) {
	var rc rect
	ok, _, _ := procGetWindowRect.Call(uintptr(h), uintptr(unsafe.Pointer(&rc)))
	if ok == 0 {
		return image.Rectangle{}, fmt.Errorf("capture: GetWindowRect failed winerr=%d", getLastError())
	}
	r := image.Rect(int(rc.Left), int(rc.Top), int(rc.Right), int(rc.Bottom))
	if r.Empty() {
		return image.Rectangle{}, fmt.Errorf("capture: empty window rect %v", r)
	}
	return r, nil
}

// printWindow renders the window into a DIB section and converts it to RGBA.
func printWindow(h window.Handle, w, ht int) (*image.RGBA, error) {
	winDC, _, _ := procGetWindowDC.Call(uintptr(h))
	if winDC == 0 {
		return nil, fmt.Errorf("capture: GetWindowDC failed winerr=%d", getLastError())
	}
	defer procReleaseDC.Call(uintptr(h), winDC)

	memDC, _, _ := procCreateCompatibleDC.Call(winDC)
	if memDC == 0 {
		return nil, fmt.Errorf("capture: CreateCompatibleDC failed winerr=%d", getLastError())
	}
	defer procDeleteDC.Call(memDC)

	var bi bitmapInfo
	bi.Header.BiSize = uint32(unsafe.Sizeof(bi.Header))
	bi.Header.BiWidth = int32(w)
	bi.Header.BiHeight = -int32(ht) // top-down
	bi.Header.BiPlanes = 1
	bi.Header.BiBitCount = 32
	bi.Header.BiCompression = biRgb
	bi.Header.BiSizeImage = uint32(w * ht * 4)

	var bitsPtr unsafe.Pointer
	bmp, _, _ := procCreateDIBSection.Call(memDC, uintptr(unsafe.Pointer(&bi)), dibRGBColors, uintptr(unsafe.Pointer(&bitsPtr)), 0, 0)
	if bmp == 0 {
		return nil, fmt.Errorf("capture: CreateDIBSection failed winerr=%d", getLastError())
	}
	defer procDeleteObject.Call(bmp)

	prev, _, _ := procSelectObject.Call(memDC, bmp)
	if prev == 0 || prev == ^uintptr(0) {
		return nil, fmt.Errorf("capture: SelectObject failed winerr=%d", getLastError())
	}
	defer procSelectObject.Call(memDC, prev)

	ok, _, _ := procPrintWindow.Call(uintptr(h), memDC, printWindowFlags)
	if ok == 0 {
		return nil, fmt.Errorf("capture: PrintWindow failed hwnd=%#x winerr=%d", uintptr(h), getLastError())
	}

	pixLen := w * ht * 4
	src := unsafe.Slice((*byte)(bitsPtr), pixLen)
	dst := image.NewRGBA(image.Rect(0, 0, w, ht))
	for i := 0; i < pixLen; i += 4 {
		dst.Pix[i+0] = src[i+2]
		dst.Pix[i+1] = src[i+1]
		dst.Pix[i+2] = src[i+0]
		dst.Pix[i+3] = 0xFF
	}
	return dst, nil
}

func getLastError() uint32 {
	v, _, _ := procGetLastError.Call()
	return uint32(v)
}
