package view

import (
	"image"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/soocke/keyprompt-bot/config"
	"github.com/soocke/keyprompt-bot/domain/minigame"
	"github.com/soocke/keyprompt-bot/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// RootView composes the top-level application layout and wires UI callbacks.
// It owns high-level subviews but exposes minimal exported fields for presenters.
type RootView struct {
	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger

	// Subviews
	Session     SessionStats
	ConfigPanel ConfigPanel
	Preview     DetectionPreview

	// Widgets
	StateLabel   *LabelWidget
	WindowLabel  *LabelWidget
	ToggleButton *ButtonWidget
	WindowSelect *TComboboxWidget
	LogText      *TextWidget
}

// Handlers are the user actions the view forwards.
type Handlers struct {
	OnToggle        func()
	OnExit          func()
	OnWindowChanged func(title string)
	OnConfigApplied func(config.Config)
}

func NewRootView(cfg *config.Config, cfgPath string, logger *slog.Logger) *RootView {
	return &RootView{cfg: cfg, cfgPath: cfgPath, logger: logger}
}

// Build constructs the layout. titles lists open windows for the target dropdown.
func (rv *RootView) Build(titles []string, h Handlers) {
	if rv == nil {
		return
	}
	// Row 0: session stats, state label, buttons frame
	rv.Session = NewSessionStats(nil, 0, 0)
	rv.StateLabel = Label(Txt("State: "+minigame.StateHalt.String()), Borderwidth(1), Relief("ridge"))
	Grid(rv.StateLabel, Row(0), Column(3), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	rv.WindowLabel = Label(Txt("Window: <missing>"), Anchor("w"))
	Grid(rv.WindowLabel, Row(1), Column(3), Sticky("we"), Padx("0.4m"))

	btnFrame := Frame()
	Grid(btnFrame, Row(0), Column(4), Rowspan(3), Sticky("ne"), Padx("0.3m"), Pady("0.3m"))
	rv.ToggleButton = Button(Txt("Start"), Command(h.OnToggle))
	Grid(rv.ToggleButton, In(btnFrame), Row(0), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	if len(titles) == 0 {
		titles = []string{"<none>"}
	}
	rv.WindowSelect = TCombobox(Values(titles), Width(26))
	Grid(rv.WindowSelect, In(btnFrame), Row(1), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	rv.WindowSelect.Current(0)
	Bind(rv.WindowSelect, "<<ComboboxSelected>>", Command(func() {
		idx, err := strconv.Atoi(rv.WindowSelect.Current(nil))
		if err != nil || idx < 0 || idx >= len(titles) {
			if rv.logger != nil {
				rv.logger.Error("window selection parse error", "error", err)
			}
			return
		}
		if h.OnWindowChanged != nil {
			h.OnWindowChanged(titles[idx])
		}
	}))
	exitBtn := Button(Txt("Exit"), Command(h.OnExit))
	Grid(exitBtn, In(btnFrame), Row(2), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))

	// Config panel rows
	rv.ConfigPanel = NewConfigPanel(rv.cfg, rv.cfgPath, rv.logger, h.OnConfigApplied)
	endRow := rv.ConfigPanel.Build(2)

	// Status log beside the config panel, preview below the buttons.
	rv.LogText = Text(Height(16), Width(64))
	Grid(rv.LogText, Row(2), Column(2), Columnspan(2), Rowspan(endRow-2), Sticky("nswe"), Padx("0.4m"), Pady("0.4m"))
	rv.LogText.Configure(State("disabled"))
	rv.Preview = NewDetectionPreview(endRow, 2)
}

// SetState updates and colors the state label.
func (rv *RootView) SetState(s minigame.State) {
	if rv == nil || rv.StateLabel == nil {
		return
	}
	bg, fg := theme.StateColors(s)
	rv.StateLabel.Configure(Txt("State: "+s.String()), Background(bg), Foreground(fg))
}

// SetWindowLabel shows whether the target window is present.
func (rv *RootView) SetWindowLabel(text string) {
	if rv != nil && rv.WindowLabel != nil {
		rv.WindowLabel.Configure(Txt(text))
	}
}

// SetLog replaces the status log, newest line first.
func (rv *RootView) SetLog(lines []string) {
	if rv == nil || rv.LogText == nil {
		return
	}
	rev := make([]string, len(lines))
	for i, l := range lines {
		rev[len(lines)-1-i] = l
	}
	rv.LogText.Configure(State("normal"))
	rv.LogText.Delete("1.0", END)
	rv.LogText.Insert("1.0", strings.Join(rev, "\n"))
	rv.LogText.Configure(State("disabled"))
}

// UpdateDetection proxies to the ROI preview.
func (rv *RootView) UpdateDetection(img image.Image) {
	if rv != nil && rv.Preview != nil {
		rv.Preview.UpdateDetection(img)
	}
}

// SetSession updates run and total durations.
func (rv *RootView) SetSession(session, total time.Duration) {
	if rv != nil && rv.Session != nil {
		rv.Session.SetSession(session, total)
	}
}

// SetExecutions updates the execution counters.
func (rv *RootView) SetExecutions(session, total int) {
	if rv != nil && rv.Session != nil {
		rv.Session.SetExecutions(session, total)
	}
}

// --- ControlPresenter view contract methods ---

// PreviewReset clears the ROI preview.
func (rv *RootView) PreviewReset() {
	if rv != nil && rv.Preview != nil {
		rv.Preview.Reset()
	}
}

// ConfigEditable toggles config panel editability.
func (rv *RootView) ConfigEditable(enabled bool) {
	if rv != nil && rv.ConfigPanel != nil {
		rv.ConfigPanel.SetEditable(enabled)
	}
	if rv != nil && rv.WindowSelect != nil {
		state := "disabled"
		if enabled {
			state = "readonly"
		}
		rv.WindowSelect.Configure(State(state))
	}
}

// SetToggleLabel renames the Start/Stop button.
func (rv *RootView) SetToggleLabel(text string) {
	if rv != nil && rv.ToggleButton != nil {
		rv.ToggleButton.Configure(Txt(text))
	}
}
