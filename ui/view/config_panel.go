package view

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/soocke/keyprompt-bot/config"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// ConfigPanel encapsulates the configuration form widgets and apply logic.
// It owns its widgets and writes back into *config.Config on ApplyChanges.
// Changes take effect on the next Start.
type ConfigPanel interface {
	Build(startRow int) (endRow int) // constructs widgets starting at startRow, returns next free row
	SetEditable(enabled bool)
	ApplyChanges() // parses widget text into underlying config and persists
}

type configPanel struct {
	cfg      *config.Config
	cfgPath  string
	logger   *slog.Logger
	onApply  func(config.Config)
	applyBtn *ButtonWidget
	widgets  map[string]*TextWidget // keyed by internal field id
}

// NewConfigPanel creates the view bound to cfg. onApply, if set, receives the
// saved configuration.
func NewConfigPanel(cfg *config.Config, cfgPath string, logger *slog.Logger, onApply func(config.Config)) ConfigPanel {
	return &configPanel{cfg: cfg, cfgPath: cfgPath, logger: logger, onApply: onApply, widgets: make(map[string]*TextWidget)}
}

func (v *configPanel) Build(startRow int) (row int) {
	c := v.cfg
	row = startRow
	makeRow := func(id, label, value string) {
		lbl := Label(Txt(label), Anchor("w"))
		Grid(lbl, Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
		w := Text(Height(1), Width(16))
		Grid(w, Row(row), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
		w.Delete("1.0", END)
		w.Insert("1.0", value)
		v.widgets[id] = w
		row++
	}
	makeRow("windowTitle", "Window Title", c.WindowTitle)
	makeRow("templateDir", "Template Dir", c.TemplateDir)
	makeRow("sensitivity", "Sensitivity (0-1)", fmt.Sprintf("%.2f", c.Sensitivity))
	makeRow("scales", "Scales (comma separated)", formatScales(c.Scales))
	makeRow("nmsThreshold", "NMS IoU", fmt.Sprintf("%.2f", c.NMSThreshold))
	makeRow("minClusterDistance", "Cluster Distance Px", strconv.Itoa(c.MinClusterDistance))
	makeRow("targetLength", "Sequence Length", strconv.Itoa(c.TargetSequenceLength))
	makeRow("minConsecutive", "Min Consecutive Reads", strconv.Itoa(c.MinConsecutive))
	makeRow("stableTimeMs", "Stable Time Ms", strconv.Itoa(c.StableTimeMs))
	makeRow("postExecutionMs", "Cooldown Ms", strconv.Itoa(c.PostExecutionMs))
	makeRow("loopDelayMs", "Loop Delay Ms", strconv.Itoa(c.LoopDelayMs))
	makeRow("trialExecution", "Trial Execution (true/false)", strconv.FormatBool(c.TrialExecution))
	makeRow("trackingLostMs", "Tracking Lost Ms (0 = off)", strconv.Itoa(c.TrackingLostMs))
	v.applyBtn = Button(Txt("Apply Changes"), Command(func() { v.ApplyChanges() }))
	Grid(v.applyBtn, Row(row), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	row++
	return row
}

func (v *configPanel) SetEditable(enabled bool) {
	state := "disabled"
	if enabled {
		state = "normal"
	}
	for _, w := range v.widgets {
		if w != nil {
			w.Configure(State(state))
		}
	}
	if v.applyBtn != nil {
		v.applyBtn.Configure(State(state))
	}
}

func (v *configPanel) text(id string) (string, bool) {
	w := v.widgets[id]
	if w == nil {
		return "", false
	}
	return strings.TrimSpace(strings.Join(w.Get("1.0", END), "")), true
}

func (v *configPanel) ApplyChanges() {
	if v.cfg == nil {
		return
	}
	cfg := *v.cfg // copy
	assignFloat := func(id string, dst *float64) {
		if s, ok := v.text(id); ok {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				*dst = f
			}
		}
	}
	assignInt := func(id string, dst *int) {
		if s, ok := v.text(id); ok {
			if i, err := strconv.Atoi(s); err == nil {
				*dst = i
			}
		}
	}
	assignString := func(id string, dst *string) {
		if s, ok := v.text(id); ok && s != "" {
			*dst = s
		}
	}
	assignString("windowTitle", &cfg.WindowTitle)
	assignString("templateDir", &cfg.TemplateDir)
	assignFloat("sensitivity", &cfg.Sensitivity)
	assignFloat("nmsThreshold", &cfg.NMSThreshold)
	assignInt("minClusterDistance", &cfg.MinClusterDistance)
	assignInt("targetLength", &cfg.TargetSequenceLength)
	assignInt("minConsecutive", &cfg.MinConsecutive)
	assignInt("stableTimeMs", &cfg.StableTimeMs)
	assignInt("postExecutionMs", &cfg.PostExecutionMs)
	assignInt("loopDelayMs", &cfg.LoopDelayMs)
	assignInt("trackingLostMs", &cfg.TrackingLostMs)
	if s, ok := v.text("scales"); ok {
		if scales, ok := parseScales(s); ok {
			cfg.Scales = scales
		}
	}
	if s, ok := v.text("trialExecution"); ok {
		if b, ok := parseBoolLoose(s); ok {
			cfg.TrialExecution = b
		}
	}
	if verr := cfg.Validate(); verr != nil {
		return
	}
	*v.cfg = cfg
	if err := v.cfg.Save(v.cfgPath); err != nil {
		if v.logger != nil {
			v.logger.Error("config save failed", "error", err)
		}
	} else if v.logger != nil {
		v.logger.Info("config saved", "path", v.cfgPath)
	}
	if v.onApply != nil {
		v.onApply(cfg)
	}
}

func formatScales(scales []float64) string {
	parts := make([]string, len(scales))
	for i, s := range scales {
		parts[i] = strconv.FormatFloat(s, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

func parseScales(s string) ([]float64, bool) {
	var out []float64
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, false
		}
		out = append(out, f)
	}
	return out, len(out) > 0
}

func parseBoolLoose(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "on", "t":
		return true, true
	case "false", "0", "no", "n", "off", "f":
		return false, true
	default:
		return false, false
	}
}
