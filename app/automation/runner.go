// Package automation assembles a controller per run from the platform
// collaborators and keeps the detector between runs.
package automation

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"

	"github.com/soocke/keyprompt-bot/config"
	"github.com/soocke/keyprompt-bot/domain/action"
	"github.com/soocke/keyprompt-bot/domain/capture"
	"github.com/soocke/keyprompt-bot/domain/detect"
	"github.com/soocke/keyprompt-bot/domain/minigame"
	"github.com/soocke/keyprompt-bot/domain/templates"
	"github.com/soocke/keyprompt-bot/domain/window"
)

// ClosableDetector is a minigame detector owning background workers.
type ClosableDetector interface {
	minigame.Detector
	Close()
}

// RunnerDeps are the platform collaborators of a Runner. Nil loaders and
// factories fall back to the template store and detect.New.
type RunnerDeps struct {
	Finder        window.Finder
	Platform      action.Platform
	Source        capture.FrameSource
	LoadTemplates func(cfg config.Config, logger *slog.Logger) (map[string]*image.Gray, error)
	NewDetector   func(tmpl map[string]*image.Gray, cfg config.Config, logger *slog.Logger) ClosableDetector
}

// Runner builds a controller for every Start. The detector, and with it a
// known ROI, survives restarts until the configuration changes.
type Runner struct {
	deps   RunnerDeps
	logger *slog.Logger

	mu    sync.Mutex
	cfg   config.Config
	dirty bool
	det   ClosableDetector
	ctrl  *minigame.Controller
}

// NewRunner returns a stopped runner.
func NewRunner(cfg config.Config, deps RunnerDeps, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.LoadTemplates == nil {
		deps.LoadTemplates = loadTemplates
	}
	if deps.NewDetector == nil {
		deps.NewDetector = func(tmpl map[string]*image.Gray, cfg config.Config, logger *slog.Logger) ClosableDetector {
			return detect.New(tmpl, cfg, logger)
		}
	}
	return &Runner{deps: deps, logger: logger, cfg: cfg, dirty: true}
}

func loadTemplates(cfg config.Config, logger *slog.Logger) (map[string]*image.Gray, error) {
	return templates.NewStore(cfg.TemplateDir, cfg.Symbols(), logger).LoadAll()
}

// SetConfig replaces the configuration used by the next Start.
func (r *Runner) SetConfig(cfg config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
	r.dirty = true
}

// WindowTitle returns the configured target window title.
func (r *Runner) WindowTitle() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.WindowTitle
}

// SetWindowTitle changes the target window without rebuilding the detector.
func (r *Runner) SetWindowTitle(title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.WindowTitle = title
}

// Start finds the target window and launches a new automation run.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctrl != nil && r.ctrl.IsRunning() {
		return minigame.ErrAlreadyRunning
	}
	if r.ctrl != nil {
		// the previous loop may still hold the detector
		<-r.ctrl.Done()
	}
	cfg := r.cfg
	if r.deps.Finder == nil || r.deps.Source == nil {
		return errors.New("automation: runner has no window finder or frame source")
	}
	h, err := r.deps.Finder.Find(cfg.WindowTitle)
	if err != nil {
		return fmt.Errorf("automation: find window %q: %w", cfg.WindowTitle, err)
	}
	if r.det == nil || r.dirty {
		if err := r.rebuildDetector(cfg); err != nil {
			return err
		}
	}
	deps := minigame.Dependencies{
		Detector: r.det,
		Executor: action.NewExecutor(r.deps.Platform, cfg, r.logger),
		Frames:   capture.NewThrottle(r.deps.Source, cfg, r.logger),
		Windows:  r.deps.Finder,
		Handle:   h,
	}
	r.ctrl = minigame.NewController(deps, cfg, r.logger)
	return r.ctrl.Start(ctx)
}

func (r *Runner) rebuildDetector(cfg config.Config) error {
	tmpl, err := r.deps.LoadTemplates(cfg, r.logger)
	if len(tmpl) == 0 {
		if err == nil {
			err = templates.ErrNoTemplates
		}
		return fmt.Errorf("automation: load templates: %w", err)
	}
	if err != nil {
		r.logger.Warn("some templates failed to load", "error", err)
	}
	if r.det != nil {
		r.det.Close()
	}
	r.det = r.deps.NewDetector(tmpl, cfg, r.logger)
	r.dirty = false
	return nil
}

// Stop ends the current run, if any.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctrl != nil {
		r.ctrl.Stop()
	}
}

// IsRunning reports whether a run is active.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctrl != nil && r.ctrl.IsRunning()
}

// Events returns the current run's event channel, nil before the first Start.
func (r *Runner) Events() <-chan minigame.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctrl == nil {
		return nil
	}
	return r.ctrl.Events()
}

// Done is closed when the current run has exited.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctrl == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return r.ctrl.Done()
}

// Err returns why the last run ended.
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctrl == nil {
		return nil
	}
	return r.ctrl.Err()
}

// Close stops the run, waits for it and releases the detector workers.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctrl != nil {
		r.ctrl.Stop()
		<-r.ctrl.Done()
	}
	if r.det != nil {
		r.det.Close()
		r.det = nil
	}
}
