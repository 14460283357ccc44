package capture

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corona10/goimagehash"

	"github.com/soocke/keyprompt-bot/config"
	"github.com/soocke/keyprompt-bot/domain/window"
)

// Throttle limits how often a FrameSource is hit. A frame younger than the
// screenshot interval is reused; failed captures back off and fall back to
// the cached frame, which may be nil.
type Throttle struct {
	src    FrameSource
	logger *slog.Logger

	interval      time.Duration
	failureDelay  time.Duration
	criticalDelay time.Duration
	criticalCount int

	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	mu       sync.Mutex
	last     *image.RGBA
	lastAt   time.Time
	failed   int
	lastHash *goimagehash.ImageHash

	captures  atomic.Uint64
	failures  atomic.Uint64
	reuses    atomic.Uint64
	unchanged atomic.Uint64
	critical  atomic.Uint64
}

// NewThrottle wraps src with the pacing values from cfg.
func NewThrottle(src FrameSource, cfg config.Config, logger *slog.Logger) *Throttle {
	return &Throttle{
		src:           src,
		logger:        logger,
		interval:      cfg.ScreenshotInterval(),
		failureDelay:  cfg.CaptureFailureDelay(),
		criticalDelay: cfg.CaptureCriticalDelay(),
		criticalCount: cfg.CriticalFailureCount,
		now:           time.Now,
		sleep:         Sleep,
	}
}

// SetClock replaces the time source and sleeper. Nil arguments are ignored.
func (t *Throttle) SetClock(now func() time.Time, sleep func(context.Context, time.Duration) error) {
	if now != nil {
		t.now = now
	}
	if sleep != nil {
		t.sleep = sleep
	}
}

// Frame returns a frame of window h, capturing a new one only when the cached
// frame is older than the screenshot interval.
func (t *Throttle) Frame(ctx context.Context, h window.Handle) *image.RGBA {
	t.mu.Lock()
	now := t.now()
	if t.last != nil && now.Sub(t.lastAt) < t.interval {
		img := t.last
		t.mu.Unlock()
		t.reuses.Add(1)
		return img
	}
	t.mu.Unlock()

	img, ok := t.src.CaptureFrame(h)
	if !ok || img == nil {
		return t.onFailure(ctx)
	}

	t.captures.Add(1)
	hash, err := goimagehash.DifferenceHash(img)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err == nil {
		if t.lastHash != nil {
			if d, derr := t.lastHash.Distance(hash); derr == nil && d == 0 {
				t.unchanged.Add(1)
			}
		}
		t.lastHash = hash
	}
	t.last = img
	t.lastAt = now
	t.failed = 0
	return img
}

func (t *Throttle) onFailure(ctx context.Context) *image.RGBA {
	t.failures.Add(1)
	t.mu.Lock()
	t.failed++
	delay := t.failureDelay
	if t.failed >= t.criticalCount {
		delay = t.criticalDelay
		t.failed = 0
		t.critical.Add(1)
		if t.logger != nil {
			t.logger.Warn("multiple capture failures, backing off", "delay", delay)
		}
	}
	cached := t.last
	t.mu.Unlock()
	_ = t.sleep(ctx, delay)
	return cached
}

// Reset drops the cached frame and failure counter.
func (t *Throttle) Reset() {
	t.mu.Lock()
	t.last = nil
	t.lastAt = time.Time{}
	t.failed = 0
	t.lastHash = nil
	t.mu.Unlock()
}

// Stats returns a snapshot of the counters.
func (t *Throttle) Stats() Stats {
	return Stats{
		Captures:  t.captures.Load(),
		Failures:  t.failures.Load(),
		Reuses:    t.reuses.Load(),
		Unchanged: t.unchanged.Load(),
		Critical:  t.critical.Load(),
	}
}

// LogStats writes the counters at debug level.
func (t *Throttle) LogStats() {
	if t.logger == nil {
		return
	}
	s := t.Stats()
	t.logger.Debug("capture.stats",
		"captures", s.Captures,
		"failures", s.Failures,
		"reuses", s.Reuses,
		"unchanged", s.Unchanged,
		"critical", s.Critical,
	)
}

// Sleep waits for d or until ctx is done, returning ctx.Err() in the latter
// case.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
