package presenter

import (
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/soocke/keyprompt-bot/domain/window"
)

// WindowView shows whether the target window is present.
type WindowView interface{ SetWindowLabel(string) }

// WindowWatcher polls in the background for the configured target window so
// the UI can show whether Start would succeed.
type WindowWatcher struct {
	Logger   *slog.Logger
	Find     func(title string) (window.Handle, error)
	Title    func() string
	View     WindowView
	interval time.Duration
	running  atomic.Bool
	done     chan struct{}
	found    atomic.Bool
	shown    string
}

// NewWindowWatcher constructs a watcher; it polls only between Start and Stop.
func NewWindowWatcher(find func(string) (window.Handle, error), title func() string, view WindowView, logger *slog.Logger) *WindowWatcher {
	if title == nil {
		title = func() string { return "" }
	}
	return &WindowWatcher{Logger: logger, Find: find, Title: title, View: view, interval: 500 * time.Millisecond}
}

// Start begins polling. Idempotent.
func (w *WindowWatcher) Start() {
	if w == nil || w.Find == nil || w.running.Load() {
		return
	}
	w.done = make(chan struct{})
	w.running.Store(true)
	go w.loop(w.done)
}

// Stop ends polling. Idempotent.
func (w *WindowWatcher) Stop() {
	if w == nil || !w.running.Load() {
		return
	}
	close(w.done)
	w.running.Store(false)
}

// Found reports the result of the last poll.
func (w *WindowWatcher) Found() bool { return w != nil && w.found.Load() }

// Tick pushes the latest result to the view on the UI thread.
func (w *WindowWatcher) Tick() {
	if w == nil || w.View == nil {
		return
	}
	label := "Window: <missing>"
	if w.found.Load() {
		label = "Window: " + strings.TrimSpace(w.Title())
	}
	if label != w.shown {
		w.shown = label
		w.View.SetWindowLabel(label)
	}
}

func (w *WindowWatcher) loop(done chan struct{}) {
	w.poll()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.poll()
		case <-done:
			return
		}
	}
}

func (w *WindowWatcher) poll() {
	title := strings.TrimSpace(w.Title())
	if title == "" {
		w.found.Store(false)
		return
	}
	_, err := w.Find(title)
	found := err == nil
	if found != w.found.Swap(found) && w.Logger != nil {
		w.Logger.Debug("target window presence changed", "window", title, "found", found)
	}
}
