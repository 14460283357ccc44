// Package action delivers key sequences to the target window.
package action

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/soocke/keyprompt-bot/config"
	"github.com/soocke/keyprompt-bot/domain/window"
)

// ErrUnsupported is returned by platforms that cannot post keys.
var ErrUnsupported = errors.New("action: key posting not supported on this platform")

// KeyCode is the virtual-key / scan-code pair posted for a symbol.
type KeyCode struct {
	VK   uint16
	Scan uint16
}

// Platform is the OS capability needed to drive a window that may not have
// input focus.
type Platform interface {
	ForegroundWindow() window.Handle
	ForceFocus(h window.Handle) bool
	IsWindow(h window.Handle) bool
	PostKey(h window.Handle, code KeyCode, up bool) error
}

// Executor plays sequences into a window and restores the previous
// foreground window afterwards.
type Executor struct {
	platform Platform
	logger   *slog.Logger
	keys     map[string]KeyCode

	hold     time.Duration
	interKey time.Duration
	settle   time.Duration
	jitterLo time.Duration
	jitterHi time.Duration

	sleep  func(context.Context, time.Duration) error
	jitter func(lo, hi time.Duration) time.Duration
}

// NewExecutor returns an executor posting through p with the key map and
// timings from cfg.
func NewExecutor(p Platform, cfg config.Config, logger *slog.Logger) *Executor {
	_ = cfg.Validate()
	keys := make(map[string]KeyCode, len(cfg.KeyMap))
	for sym, b := range cfg.KeyMap {
		keys[strings.ToUpper(sym)] = KeyCode{VK: b.VK, Scan: b.Scan}
	}
	lo, hi := cfg.Jitter()
	return &Executor{
		platform: p,
		logger:   logger,
		keys:     keys,
		hold:     cfg.KeyHold(),
		interKey: cfg.ReactionDelay(),
		settle:   cfg.Settle(),
		jitterLo: lo,
		jitterHi: hi,
		sleep:    sleepCtx,
		jitter:   randomBetween,
	}
}

// SetSleeper replaces the wait function, mainly for tests.
func (e *Executor) SetSleeper(sleep func(context.Context, time.Duration) error) {
	if sleep != nil {
		e.sleep = sleep
	}
}

// Lookup returns the key code for symbol.
func (e *Executor) Lookup(symbol string) (KeyCode, bool) {
	k, ok := e.keys[strings.ToUpper(symbol)]
	return k, ok
}

// Execute posts every known symbol of keys to window h and reports whether at
// least one key was delivered. Unknown symbols are skipped. The window that
// was in the foreground beforehand is restored on every return path,
// including panics and cancellation.
func (e *Executor) Execute(ctx context.Context, keys []string, h window.Handle) (ok bool) {
	if len(keys) == 0 {
		return false
	}
	original := e.platform.ForegroundWindow()
	defer func() {
		if r := recover(); r != nil {
			if e.logger != nil {
				e.logger.Error("key execution panic", "panic", r)
			}
			ok = false
		}
		if original != 0 && e.platform.IsWindow(original) {
			if !e.platform.ForceFocus(original) && e.logger != nil {
				e.logger.Debug("focus restore not verified", "window", uintptr(original))
			}
		}
	}()

	if !e.platform.ForceFocus(h) && e.logger != nil {
		e.logger.Debug("focus not verified", "window", uintptr(h))
	}

	success := 0
	for i, sym := range keys {
		if ctx.Err() != nil {
			break
		}
		code, known := e.Lookup(sym)
		if !known {
			continue
		}
		if e.platform.ForegroundWindow() != h {
			e.platform.ForceFocus(h)
		}
		if e.press(ctx, h, code) {
			success++
		} else if e.logger != nil {
			e.logger.Debug("key not delivered", "symbol", sym)
		}
		if i < len(keys)-1 {
			if err := e.sleep(ctx, e.interKey); err != nil {
				break
			}
		}
	}
	_ = e.sleep(ctx, e.settle)
	if e.logger != nil {
		e.logger.Debug("sequence executed", "keys", strings.Join(keys, " "), "delivered", success)
	}
	return success > 0
}

// press posts key-down, holds, posts key-up and waits a random jitter. The
// key-up is posted even when ctx is cancelled during the hold.
func (e *Executor) press(ctx context.Context, h window.Handle, code KeyCode) bool {
	if !e.platform.IsWindow(h) {
		return false
	}
	errDown := e.platform.PostKey(h, code, false)
	_ = e.sleep(ctx, e.hold)
	errUp := e.platform.PostKey(h, code, true)
	_ = e.sleep(ctx, e.jitter(e.jitterLo, e.jitterHi))
	if err := errors.Join(errDown, errUp); err != nil {
		if e.logger != nil {
			e.logger.Debug("post key", "vk", code.VK, "error", err)
		}
		return false
	}
	return true
}

// KeyLParam returns the lParam for WM_KEYDOWN (up=false) or WM_KEYUP.
func KeyLParam(scan uint16, up bool) uintptr {
	if up {
		return uintptr(scan)<<16 | 0xC0000001
	}
	return uintptr(scan)<<16 | 1
}

func randomBetween(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo+1)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
