package presenter

import (
	"context"
	"time"
)

// RunModel provides enabled state access.
type RunModel interface {
	Enabled() bool
	SetEnabled(bool)
}

// Runner narrows what the presenter needs from the automation layer.
type Runner interface {
	Start(ctx context.Context) error
	Stop()
}

// ControlView updates UI elements affected by switching automation on and off.
// The state label is owned by EventPresenter.
type ControlView interface {
	PreviewReset()
	ConfigEditable(bool)
	SetToggleLabel(string)
}

// LogSink receives human-readable status lines.
type LogSink interface{ Append(line string) }

// ControlPresenter owns presentation logic for the Start/Stop toggle.
type ControlPresenter struct {
	ctx    context.Context
	model  RunModel
	runner Runner
	view   ControlView
	log    LogSink
	now    func() time.Time
}

func NewControlPresenter(ctx context.Context, model RunModel, runner Runner, view ControlView, log LogSink) *ControlPresenter {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ControlPresenter{ctx: ctx, model: model, runner: runner, view: view, log: log, now: time.Now}
}

// Enable starts the runner and locks the config panel. Idempotent.
func (c *ControlPresenter) Enable() {
	if c == nil || c.model == nil || c.runner == nil || c.view == nil {
		return
	}
	if c.model.Enabled() {
		return
	}
	if err := c.runner.Start(c.ctx); err != nil {
		c.note("start failed: " + err.Error())
		return
	}
	c.model.SetEnabled(true)
	c.view.ConfigEditable(false)
	c.view.SetToggleLabel("Stop")
}

// Disable stops the runner and resets the preview. Idempotent.
func (c *ControlPresenter) Disable() {
	if c == nil || c.model == nil || c.runner == nil || c.view == nil {
		return
	}
	if !c.model.Enabled() {
		return
	}
	c.runner.Stop()
	c.stopped()
}

// Toggle flips enabled state delegating to Enable/Disable.
func (c *ControlPresenter) Toggle() {
	if c == nil || c.model == nil {
		return
	}
	if c.model.Enabled() {
		c.Disable()
		return
	}
	c.Enable()
}

// Terminated reflects a run that ended on its own, e.g. because the target
// window closed.
func (c *ControlPresenter) Terminated(reason string) {
	if c == nil || c.model == nil || c.view == nil || !c.model.Enabled() {
		return
	}
	c.note("automation terminated: " + reason)
	c.stopped()
}

func (c *ControlPresenter) stopped() {
	c.model.SetEnabled(false)
	c.view.PreviewReset()
	c.view.ConfigEditable(true)
	c.view.SetToggleLabel("Start")
}

func (c *ControlPresenter) note(msg string) {
	if c.log != nil {
		c.log.Append(c.now().Format("15:04:05") + " " + msg)
	}
}
