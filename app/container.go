package app

import (
	"context"
	"log/slog"

	"github.com/soocke/keyprompt-bot/app/automation"
	"github.com/soocke/keyprompt-bot/config"
	"github.com/soocke/keyprompt-bot/domain/action"
	"github.com/soocke/keyprompt-bot/domain/capture"
	"github.com/soocke/keyprompt-bot/domain/window"
	"github.com/soocke/keyprompt-bot/ui/model"
	"github.com/soocke/keyprompt-bot/ui/presenter"
	"github.com/soocke/keyprompt-bot/ui/view"
)

// AppContainer assembles models, the automation runner, presenters and the root view.
type AppContainer struct {
	Config  *config.Config
	CfgPath string
	Logger  *slog.Logger
	Finder  window.Finder
	Runner  *automation.Runner

	Run       *model.RunModel
	Session   *model.SessionModel
	Detection *model.DetectionModel
	Log       *model.LogModel
	RootView  *view.RootView

	// Presenters
	Control          *presenter.ControlPresenter
	Events           *presenter.EventPresenter
	SessionPresenter *presenter.SessionPresenter
	Window           *presenter.WindowWatcher
	Loop             *presenter.Loop
}

// NewRunner wires the platform window finder, key platform and frame source
// into an automation runner.
func NewRunner(cfg config.Config, finder window.Finder, logger *slog.Logger) *automation.Runner {
	return automation.NewRunner(cfg, automation.RunnerDeps{
		Finder:   finder,
		Platform: action.NewPlatform(),
		Source:   capture.NewFrameSource(logger),
	}, logger)
}

// BuildContainer constructs all components. The view is built later by the app
// once the window list is known; presenters only hold it by pointer.
func BuildContainer(ctx context.Context, cfg *config.Config, cfgPath string, logger *slog.Logger, schedule func()) *AppContainer {
	c := &AppContainer{Config: cfg, CfgPath: cfgPath, Logger: logger}
	c.Finder = window.NewFinder()
	c.Runner = NewRunner(*cfg, c.Finder, logger)

	c.Run = &model.RunModel{}
	c.Session = model.NewSessionModel()
	c.Detection = model.NewDetectionModel()
	c.Log = model.NewLogModel(model.DefaultLogLines)
	c.RootView = view.NewRootView(cfg, cfgPath, logger)

	c.Control = presenter.NewControlPresenter(ctx, c.Run, c.Runner, c.RootView, c.Log)
	c.Events = presenter.NewEventPresenter(c.Runner, c.RootView, c.Log, c.Detection, c.Session)
	c.Events.OnTerminated = c.Control.Terminated
	c.SessionPresenter = presenter.NewSessionPresenter(c.Session, c.Run, c.RootView)
	c.Window = presenter.NewWindowWatcher(c.Finder.Find, c.Runner.WindowTitle, c.RootView, logger)
	c.Loop = presenter.NewLoop(c.Events, c.SessionPresenter, c.Window, schedule)
	return c
}
