package automation

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soocke/keyprompt-bot/config"
	"github.com/soocke/keyprompt-bot/domain/action"
	"github.com/soocke/keyprompt-bot/domain/capture"
	"github.com/soocke/keyprompt-bot/domain/detect"
	"github.com/soocke/keyprompt-bot/domain/minigame"
	"github.com/soocke/keyprompt-bot/domain/templates"
	"github.com/soocke/keyprompt-bot/domain/window"
)

type fakeFinder struct {
	handle window.Handle
	valid  atomic.Bool
}

func (f *fakeFinder) Find(title string) (window.Handle, error) {
	if title != "Game" {
		return 0, window.ErrNotFound
	}
	return f.handle, nil
}
func (f *fakeFinder) IsValid(h window.Handle) bool { return h == f.handle && f.valid.Load() }
func (f *fakeFinder) Rect(window.Handle) (image.Rectangle, error) {
	return image.Rect(0, 0, 800, 600), nil
}

type nopPlatform struct{}

func (nopPlatform) ForegroundWindow() window.Handle                   { return 0 }
func (nopPlatform) ForceFocus(window.Handle) bool                     { return true }
func (nopPlatform) IsWindow(h window.Handle) bool                     { return h != 0 }
func (nopPlatform) PostKey(window.Handle, action.KeyCode, bool) error { return nil }

type countingDetector struct {
	*detect.Detector
	closed *atomic.Int32
}

func (d countingDetector) Close() {
	d.closed.Add(1)
	d.Detector.Close()
}

type harness struct {
	runner  *Runner
	finder  *fakeFinder
	built   atomic.Int32
	closed  atomic.Int32
	loadErr error
	noTmpl  bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{finder: &fakeFinder{handle: 7}}
	h.finder.valid.Store(true)
	cfg := *config.DefaultConfig()
	cfg.WindowTitle = "Game"
	deps := RunnerDeps{
		Finder:   h.finder,
		Platform: nopPlatform{},
		Source:   capture.FrameSourceFunc(func(window.Handle) (*image.RGBA, bool) { return nil, false }),
		LoadTemplates: func(config.Config, *slog.Logger) (map[string]*image.Gray, error) {
			if h.noTmpl {
				return map[string]*image.Gray{}, templates.ErrNoTemplates
			}
			return map[string]*image.Gray{"W": image.NewGray(image.Rect(0, 0, 8, 8))}, h.loadErr
		},
		NewDetector: func(tmpl map[string]*image.Gray, cfg config.Config, logger *slog.Logger) ClosableDetector {
			h.built.Add(1)
			return countingDetector{Detector: detect.New(tmpl, cfg, logger), closed: &h.closed}
		},
	}
	h.runner = NewRunner(cfg, deps, nil)
	t.Cleanup(h.runner.Close)
	return h
}

func waitDone(t *testing.T, r *Runner) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not exit")
	}
}

func TestRunner_StartStopKeepsDetector(t *testing.T) {
	h := newHarness(t)
	if h.runner.Events() != nil {
		t.Fatalf("no events before the first start")
	}
	if err := h.runner.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !h.runner.IsRunning() || h.runner.Events() == nil {
		t.Fatalf("expected running with events")
	}
	if err := h.runner.Start(context.Background()); !errors.Is(err, minigame.ErrAlreadyRunning) {
		t.Fatalf("second start err=%v", err)
	}
	h.runner.Stop()
	waitDone(t, h.runner)

	if err := h.runner.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	h.runner.Stop()
	waitDone(t, h.runner)
	if h.built.Load() != 1 {
		t.Fatalf("detector should survive restarts, built %d", h.built.Load())
	}

	h.runner.SetConfig(*config.DefaultConfig())
	h.runner.SetWindowTitle("Game")
	if err := h.runner.Start(context.Background()); err != nil {
		t.Fatalf("start after config change: %v", err)
	}
	if h.built.Load() != 2 || h.closed.Load() != 1 {
		t.Fatalf("config change should rebuild the detector: built=%d closed=%d", h.built.Load(), h.closed.Load())
	}
}

func TestRunner_WindowMissing(t *testing.T) {
	h := newHarness(t)
	h.runner.SetWindowTitle("Other")
	err := h.runner.Start(context.Background())
	if !errors.Is(err, window.ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
	if h.built.Load() != 0 {
		t.Fatalf("templates must not load without a window")
	}
}

func TestRunner_NoTemplates(t *testing.T) {
	h := newHarness(t)
	h.noTmpl = true
	if err := h.runner.Start(context.Background()); !errors.Is(err, templates.ErrNoTemplates) {
		t.Fatalf("err=%v", err)
	}
	if h.runner.IsRunning() {
		t.Fatalf("must not run without templates")
	}
}

func TestRunner_PartialTemplatesStillStart(t *testing.T) {
	h := newHarness(t)
	h.loadErr = errors.New("templates: symbol A: missing")
	if err := h.runner.Start(context.Background()); err != nil {
		t.Fatalf("partial template set should start: %v", err)
	}
}

func TestRunner_WindowLostEndsRun(t *testing.T) {
	h := newHarness(t)
	if err := h.runner.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.finder.valid.Store(false)
	waitDone(t, h.runner)
	if !errors.Is(h.runner.Err(), minigame.ErrWindowLost) {
		t.Fatalf("err=%v", h.runner.Err())
	}
}

func TestRunner_CloseReleasesDetector(t *testing.T) {
	h := newHarness(t)
	if err := h.runner.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.runner.Close()
	if h.runner.IsRunning() || h.closed.Load() != 1 {
		t.Fatalf("close: running=%v closed=%d", h.runner.IsRunning(), h.closed.Load())
	}
}
