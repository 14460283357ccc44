package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"

	"github.com/soocke/keyprompt-bot/config"
	"github.com/soocke/keyprompt-bot/domain/window"
	"github.com/soocke/keyprompt-bot/ui/theme"
	"github.com/soocke/keyprompt-bot/ui/view"
)

const (
	tick = 100 * time.Millisecond
)

type app struct {
	c       *AppContainer
	logger  *slog.Logger
	cancel  context.CancelFunc
	afterID string
}

// NewApp prepares the Tk root window and the component container.
func NewApp(title string, width, height int, cfg *config.Config, cfgPath string, logger *slog.Logger) *app {
	a := &app{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.c = BuildContainer(ctx, cfg, cfgPath, logger, a.scheduleUpdate)

	App.WmTitle(title)
	WmProtocol(App, "WM_DELETE_WINDOW", a.exitHandler)
	WmGeometry(App, fmt.Sprintf("%dx%d+100+100", width, height))
	return a
}

// Start builds the layout and blocks in the Tk event loop until exit.
func (a *app) Start() {
	theme.InitStyles()
	a.c.RootView.Build(a.windowTitles(), view.Handlers{
		OnToggle:        a.c.Control.Toggle,
		OnExit:          a.exitHandler,
		OnWindowChanged: a.onWindowChanged,
		OnConfigApplied: a.c.Runner.SetConfig,
	})
	a.c.Window.Start()
	a.scheduleUpdate()
	App.Wait()
}

func (a *app) update() {
	defer func() {
		if r := recover(); r != nil && a.logger != nil {
			a.logger.Error("ui tick panic", "error", r)
		}
	}()
	a.c.Loop.Tick()
}

func (a *app) exitHandler() {
	if a.afterID != "" {
		TclAfterCancel(a.afterID)
	}
	a.c.Window.Stop()
	a.c.Runner.Close()
	a.cancel()
	Destroy(App)
}

// scheduleUpdate queues the next tick on Tk's event loop thread.
func (a *app) scheduleUpdate() {
	a.afterID = TclAfter(tick, func() { a.update() })
}

func (a *app) onWindowChanged(title string) {
	a.c.Runner.SetWindowTitle(title)
	a.c.Config.WindowTitle = title
	if a.logger != nil {
		a.logger.Info("target window selected", "window", title)
	}
}

// windowTitles lists open windows with the configured title first.
func (a *app) windowTitles() []string {
	current := a.c.Runner.WindowTitle()
	titles := []string{current}
	wins, err := window.List()
	if err != nil {
		if a.logger != nil {
			a.logger.Warn("window enumeration failed", "error", err)
		}
		return titles
	}
	for _, w := range wins {
		if w.Title != current {
			titles = append(titles, w.Title)
		}
	}
	return titles
}
