// Package minigame runs the automation loop: find the key prompt, validate
// it, wait for a stable reading and replay it into the game window.
package minigame

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/soocke/keyprompt-bot/config"
	"github.com/soocke/keyprompt-bot/domain/detect"
)

const (
	eventBuffer = 128

	minTestReadLength = 5
	validationPause   = time.Second
	invalidateBackoff = time.Second
	noFrameWait       = 500 * time.Millisecond
	panicWait         = time.Second
	statsLogInterval  = 5 * time.Second
)

// Controller owns the automation state machine. All state below mu is
// touched only by the loop goroutine (or by Step in tests).
type Controller struct {
	deps   Dependencies
	cfg    config.Config
	base   *slog.Logger
	logger *slog.Logger
	events chan Event

	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	err     error

	state           State
	lastKey         string
	consecutive     int
	stableStart     time.Time
	validationStart time.Time
	validationReads int
	confirmedSize   image.Point
	lastSeen        time.Time
	lastStats       time.Time
	executions      int
}

// NewController wires a controller; it does nothing until Start.
func NewController(deps Dependencies, cfg config.Config, logger *slog.Logger) *Controller {
	_ = cfg.Validate()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	done := make(chan struct{})
	close(done)
	return &Controller{
		deps:   deps,
		cfg:    cfg,
		base:   logger,
		logger: logger,
		events: make(chan Event, eventBuffer),
		now:    time.Now,
		sleep:  sleepCtx,
		done:   done,
		state:  StateHalt,
	}
}

// SetClock replaces the time source and sleeper. Nil arguments are ignored.
func (c *Controller) SetClock(now func() time.Time, sleep func(context.Context, time.Duration) error) {
	if now != nil {
		c.now = now
	}
	if sleep != nil {
		c.sleep = sleep
	}
}

// Events delivers controller events. Events are dropped while the buffer is
// full.
func (c *Controller) Events() <-chan Event { return c.events }

// IsRunning reports whether the loop goroutine is active.
func (c *Controller) IsRunning() bool { return c.running.Load() }

// Done is closed when the current session's loop has exited.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Err returns why the last session ended, nil after a normal stop.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// State returns the current state. It is only safe to call from the loop
// goroutine or while the controller is stopped.
func (c *Controller) State() State { return c.state }

// Executions returns the number of successful sequence executions.
func (c *Controller) Executions() int { return c.executions }

// Start launches the loop in a new goroutine. It fails if the controller is
// already running or the target window is not valid.
func (c *Controller) Start(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	// a stopped loop may still be unwinding
	<-c.Done()
	if c.deps.Windows != nil && !c.deps.Windows.IsValid(c.deps.Handle) {
		c.running.Store(false)
		return ErrWindowLost
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.err = nil
	c.mu.Unlock()

	c.logger = c.base.With("session", uuid.NewString(), "window", uintptr(c.deps.Handle))
	if r, ok := c.deps.Frames.(interface{ Reset() }); ok {
		r.Reset()
	}
	c.resume()
	c.status("automation started")
	c.logger.Info("controller started")

	go func() {
		defer close(done)
		defer c.running.Store(false)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("controller panic", "error", r, "stack", string(debug.Stack()))
			}
		}()
		c.run(loopCtx)
	}()
	return nil
}

// Stop asks the loop to exit. The loop notices at the top of its next
// iteration; waits in progress are cut short.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.running.Store(false)
}

func (c *Controller) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			c.setState(StateHalt)
			c.status("automation stopped")
			c.logger.Info("controller stopped")
			return
		}
		if c.deps.Windows != nil && !c.deps.Windows.IsValid(c.deps.Handle) {
			c.terminate(ErrWindowLost)
			return
		}
		frame := c.deps.Frames.Frame(ctx, c.deps.Handle)
		if frame == nil {
			_ = c.sleep(ctx, noFrameWait)
			continue
		}
		if !c.safeStep(ctx, frame) {
			_ = c.sleep(ctx, panicWait)
			continue
		}
		c.maybeLogStats()
		_ = c.sleep(ctx, c.cfg.LoopDelay())
	}
}

func (c *Controller) terminate(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	c.setState(StateTerminated)
	c.emit(Event{Kind: EventTerminated, Message: err.Error()})
	c.logger.Warn("controller terminated", "error", err)
}

func (c *Controller) safeStep(ctx context.Context, frame *image.RGBA) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("iteration panic", "error", r, "stack", string(debug.Stack()))
			c.status(fmt.Sprintf("error: %v", r))
			ok = false
		}
	}()
	c.Step(ctx, frame)
	return true
}

// Step runs one detection iteration on frame using the current time. It
// blocks for the validation pause, backoff or cooldown when one applies.
func (c *Controller) Step(ctx context.Context, frame *image.RGBA) {
	if frame == nil {
		return
	}
	if c.state == StateHalt || c.state == StateTerminated {
		c.resume()
	}
	now := c.now()
	switch c.state {
	case StateROIUnknown:
		c.discover(frame, now)
	case StateROITesting:
		c.validate(ctx, frame, now)
	default:
		c.track(ctx, frame, now)
	}
}

// resume picks the phase matching the detector's ROI. A known ROI is
// revalidated.
func (c *Controller) resume() {
	c.resetStability()
	c.validationStart = time.Time{}
	c.validationReads = 0
	if c.deps.Detector.ROI().Known() {
		c.setState(StateROITesting)
		return
	}
	c.setState(StateROIUnknown)
}

func (c *Controller) discover(frame *image.RGBA, now time.Time) {
	if !c.deps.Detector.DiscoverROI(frame) {
		return
	}
	roi := c.deps.Detector.ROI()
	c.validationStart = now
	c.validationReads = 0
	c.emit(Event{Kind: EventROIFound, ROI: roi.Rect, Preview: crop(frame, roi.Rect),
		Message: fmt.Sprintf("found potential area %v, validating", roi.Rect)})
	c.logger.Info("roi found", "roi", roi.Rect)
	c.setState(StateROITesting)
}

func (c *Controller) validate(ctx context.Context, frame *image.RGBA, now time.Time) {
	if c.validationStart.IsZero() {
		c.validationStart = now
		c.validationReads = 0
		c.status("testing detection area")
		return
	}
	seq := c.deps.Detector.RecognizeSequence(frame)
	if len(seq) >= minTestReadLength {
		c.validationReads++
		c.status(fmt.Sprintf("test reading: %s (%d)", seq.Key(), c.validationReads))
		if c.cfg.TrialExecution && len(seq) >= c.cfg.TargetSequenceLength {
			if c.deps.Executor.Execute(ctx, seq, c.deps.Handle) {
				c.executions++
				c.emit(Event{Kind: EventExecuted, Sequence: seq, Message: "validation execution: " + seq.Key()})
				c.confirm(frame, now, "validation passed (execution successful)")
				_ = c.sleep(ctx, validationPause)
				return
			}
			c.status("validation execution failed")
		}
	}
	if now.Sub(c.validationStart) < c.cfg.ValidationWindow() {
		return
	}
	if c.validationReads >= c.cfg.MinValidationReads {
		c.confirm(frame, now, fmt.Sprintf("validation passed (%d readings)", c.validationReads))
		return
	}
	reads := c.validationReads
	c.invalidate(fmt.Sprintf("validation failed (%d readings)", reads))
	_ = c.sleep(ctx, invalidateBackoff)
}

func (c *Controller) confirm(frame *image.RGBA, now time.Time, msg string) {
	c.deps.Detector.ConfirmROI()
	roi := c.deps.Detector.ROI()
	c.confirmedSize = frame.Bounds().Size()
	c.validationStart = time.Time{}
	c.validationReads = 0
	c.lastSeen = now
	c.resetStability()
	c.emit(Event{Kind: EventROIConfirmed, ROI: roi.Rect, Preview: crop(frame, roi.Rect), Message: msg})
	c.logger.Info("roi confirmed", "roi", roi.Rect, "reason", msg)
	c.setState(StateSeqIdle)
}

func (c *Controller) invalidate(reason string) {
	c.deps.Detector.InvalidateROI()
	c.validationStart = time.Time{}
	c.validationReads = 0
	c.confirmedSize = image.Point{}
	c.resetStability()
	c.emit(Event{Kind: EventROIInvalidated, Message: reason})
	c.logger.Info("roi invalidated", "reason", reason)
	c.setState(StateROIUnknown)
}

func (c *Controller) track(ctx context.Context, frame *image.RGBA, now time.Time) {
	if size := frame.Bounds().Size(); c.confirmedSize != (image.Point{}) && size != c.confirmedSize {
		c.invalidate(fmt.Sprintf("frame size changed %v -> %v", c.confirmedSize, size))
		return
	}
	seq := c.deps.Detector.RecognizeSequence(frame)
	if len(seq) == 0 {
		c.resetStability()
		if lost := c.cfg.TrackingLost(); lost > 0 && now.Sub(c.lastSeen) >= lost {
			c.invalidate("tracking lost")
			return
		}
		c.setState(StateSeqIdle)
		return
	}
	c.lastSeen = now

	key := seq.Key()
	if key != c.lastKey {
		c.lastKey = key
		c.consecutive = 0
		c.stableStart = time.Time{}
		c.setState(StateSeqIdle)
		return
	}
	c.consecutive++
	if c.consecutive < c.cfg.MinConsecutive || len(seq) < c.cfg.TargetSequenceLength {
		return
	}
	if c.stableStart.IsZero() {
		c.stableStart = now
		c.status("sequence stabilizing: " + key)
		c.setState(StateSeqStabilizing)
		return
	}
	if now.Sub(c.stableStart) >= c.cfg.StableTime() {
		c.execute(ctx, seq)
	}
}

func (c *Controller) execute(ctx context.Context, seq detect.Sequence) {
	c.setState(StateSeqExecuting)
	c.logger.Info("executing sequence", "sequence", seq.Key())
	ok := c.deps.Executor.Execute(ctx, seq, c.deps.Handle)
	c.resetStability()
	c.setState(StateSeqIdle)
	if !ok {
		c.emit(Event{Kind: EventExecutionFailed, Sequence: seq, Message: "execution failed: " + seq.Key()})
		c.logger.Warn("execution failed", "sequence", seq.Key())
		return
	}
	c.executions++
	c.emit(Event{Kind: EventExecuted, Sequence: seq, Message: fmt.Sprintf("executed %d keys: %s", len(seq), seq.Key())})
	_ = c.sleep(ctx, c.cfg.PostExecution())
}

func (c *Controller) resetStability() {
	c.lastKey = ""
	c.consecutive = 0
	c.stableStart = time.Time{}
}

func (c *Controller) setState(next State) {
	prev := c.state
	if prev == next {
		return
	}
	c.state = next
	c.logger.Debug("controller state transition", "from", prev.String(), "to", next.String())
	c.emit(Event{Kind: EventStateChanged})
}

func (c *Controller) status(msg string) {
	c.emit(Event{Kind: EventStatus, Message: msg})
}

func (c *Controller) emit(ev Event) {
	ev.State = c.state
	ev.At = c.now()
	select {
	case c.events <- ev:
	default:
	}
}

func (c *Controller) maybeLogStats() {
	s, ok := c.deps.Frames.(interface{ LogStats() })
	if !ok {
		return
	}
	now := c.now()
	if now.Sub(c.lastStats) < statsLogInterval {
		return
	}
	c.lastStats = now
	s.LogStats()
}

// crop returns the part of frame under r, sharing pixels with frame.
func crop(frame *image.RGBA, r image.Rectangle) *image.RGBA {
	r = r.Add(frame.Bounds().Min).Intersect(frame.Bounds())
	if r.Empty() {
		return nil
	}
	return frame.SubImage(r).(*image.RGBA)
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
