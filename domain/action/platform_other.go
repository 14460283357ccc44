//go:build !windows

package action

import "github.com/soocke/keyprompt-bot/domain/window"

// stubPlatform has no window messaging; every key fails with ErrUnsupported.
type stubPlatform struct{}

// NewPlatform returns a platform that cannot post keys.
func NewPlatform() Platform { return stubPlatform{} }

func (stubPlatform) ForegroundWindow() window.Handle { return 0 }
func (stubPlatform) ForceFocus(window.Handle) bool { return false }
func (stubPlatform) IsWindow(h window.Handle) bool { return h != 0 }
func (stubPlatform) PostKey(window.Handle, KeyCode, bool) error { return ErrUnsupported }
