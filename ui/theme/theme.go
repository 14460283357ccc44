package theme

// Centralized palette and style initialization for the bot window.

import (
	"github.com/soocke/keyprompt-bot/domain/minigame"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Palette defines the semantic colors used across widgets.
const (
	ColorBg        = "#f7f9fb" // app background
	ColorSurface   = "#ffffff"
	ColorPrimary   = "#2563eb" // searching / validating
	ColorDanger    = "#dc2626"
	ColorAccent    = "#10b981" // tracking
	ColorWarn      = "#d97706" // executing
	ColorText      = "#1e293b"
	ColorTextMuted = "#64748b"
)

// Style names for ttk widgets.
const (
	StylePrimaryButton = "primary.TButton"
	StyleDangerButton  = "danger.TButton"
)

// InitStyles activates the base theme and configures the button styles.
func InitStyles() {
	_ = ActivateTheme("azure light")
	App.Configure(Background(ColorBg))
	StyleConfigure(StylePrimaryButton,
		Background(ColorPrimary),
		Foreground("white"),
		Padding("4p 3p"),
		Borderwidth(1),
		Relief("ridge"),
	)
	StyleConfigure(StyleDangerButton,
		Background(ColorDanger),
		Foreground("white"),
		Padding("4p 3p"),
		Borderwidth(1),
		Relief("ridge"),
	)
}

// StateColors returns background and foreground colors for the state label.
func StateColors(s minigame.State) (bg, fg string) {
	switch s {
	case minigame.StateROIUnknown, minigame.StateROITesting:
		return ColorPrimary, "white"
	case minigame.StateSeqIdle, minigame.StateSeqStabilizing:
		return ColorAccent, "white"
	case minigame.StateSeqExecuting:
		return ColorWarn, "white"
	case minigame.StateTerminated:
		return ColorDanger, "white"
	default:
		return ColorSurface, ColorTextMuted
	}
}
