package config

import (
	"encoding/json"
	"os"
	"sort"
	"time"
)

// KeyBinding is the virtual-key / scan-code pair posted for one symbol.
type KeyBinding struct {
	VK   uint16 `json:"vk"`
	Scan uint16 `json:"scan"`
}

// Config holds runtime configuration for detection, automation and input.
// Fields may be loaded from a JSON file and overridden by command-line flags.
// Components receive a copy and never mutate it.
type Config struct {
	Debug bool `json:"debug"`

	// Target window and assets
	WindowTitle string `json:"window_title"`
	TemplateDir string `json:"template_dir"`

	// Detection parameters
	Sensitivity        float64   `json:"sensitivity"`
	Scales             []float64 `json:"scales"`
	NMSThreshold       float64   `json:"nms_threshold"`
	ROIMargin          int       `json:"roi_margin"`
	MinClusterDistance int       `json:"min_cluster_distance"`
	Workers            int       `json:"workers"`
	Stride             int       `json:"stride"`

	// Sequence stability
	TargetSequenceLength int  `json:"target_sequence_length"`
	MinConsecutive       int  `json:"min_consecutive"`
	StableTimeMs         int  `json:"stable_time_ms"`
	ValidationMs         int  `json:"validation_ms"`
	MinValidationReads   int  `json:"min_validation_reads"`
	TrialExecution       bool `json:"trial_execution"`
	TrackingLostMs       int  `json:"tracking_lost_ms"`

	// Loop pacing
	LoopDelayMs            int `json:"loop_delay_ms"`
	PostExecutionMs        int `json:"post_execution_ms"`
	ScreenshotIntervalMs   int `json:"screenshot_interval_ms"`
	CaptureFailureDelayMs  int `json:"capture_failure_delay_ms"`
	CaptureCriticalDelayMs int `json:"capture_critical_delay_ms"`
	CriticalFailureCount   int `json:"critical_failure_count"`

	// Input
	ReactionDelayMs int                   `json:"reaction_delay_ms"`
	KeyHoldMs       int                   `json:"key_hold_ms"`
	JitterMinMs     int                   `json:"jitter_min_ms"`
	JitterMaxMs     int                   `json:"jitter_max_ms"`
	SettleMs        int                   `json:"settle_ms"`
	KeyMap          map[string]KeyBinding `json:"key_map"`
}

// DefaultKeyMap returns the W/A/S/D bindings of the minigame.
func DefaultKeyMap() map[string]KeyBinding {
	return map[string]KeyBinding{
		"W": {VK: 0x57, Scan: 0x11},
		"A": {VK: 0x41, Scan: 0x1E},
		"S": {VK: 0x53, Scan: 0x1F},
		"D": {VK: 0x44, Scan: 0x20},
	}
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:       false,
		WindowTitle: "FiveM",
		TemplateDir: "assets",

		Sensitivity:        0.80,
		Scales:             []float64{0.8, 1.0, 1.2},
		NMSThreshold:       0.30,
		ROIMargin:          10,
		MinClusterDistance: 20,
		Workers:            4,
		Stride:             1,

		TargetSequenceLength: 5,
		MinConsecutive:       3,
		StableTimeMs:         300,
		ValidationMs:         1500,
		MinValidationReads:   2,
		TrialExecution:       true,
		TrackingLostMs:       0,

		LoopDelayMs:            150,
		PostExecutionMs:        1500,
		ScreenshotIntervalMs:   500,
		CaptureFailureDelayMs:  800,
		CaptureCriticalDelayMs: 1000,
		CriticalFailureCount:   3,

		ReactionDelayMs: 10,
		KeyHoldMs:       10,
		JitterMinMs:     20,
		JitterMaxMs:     50,
		SettleMs:        100,
		KeyMap:          DefaultKeyMap(),
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	d := DefaultConfig()
	if c.Sensitivity <= 0 || c.Sensitivity > 1 {
		c.Sensitivity = d.Sensitivity
	}
	scales := c.Scales[:0:0]
	for _, s := range c.Scales {
		if s > 0 {
			scales = append(scales, s)
		}
	}
	if len(scales) == 0 {
		scales = d.Scales
	}
	c.Scales = scales
	if c.NMSThreshold <= 0 || c.NMSThreshold > 1 {
		c.NMSThreshold = d.NMSThreshold
	}
	if c.ROIMargin < 0 {
		c.ROIMargin = d.ROIMargin
	}
	if c.MinClusterDistance <= 0 {
		c.MinClusterDistance = d.MinClusterDistance
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.Stride <= 0 {
		c.Stride = 1
	}
	if c.TargetSequenceLength <= 0 {
		c.TargetSequenceLength = d.TargetSequenceLength
	}
	if c.MinConsecutive <= 0 {
		c.MinConsecutive = d.MinConsecutive
	}
	if c.StableTimeMs < 0 {
		c.StableTimeMs = d.StableTimeMs
	}
	if c.ValidationMs <= 0 {
		c.ValidationMs = d.ValidationMs
	}
	if c.MinValidationReads <= 0 {
		c.MinValidationReads = d.MinValidationReads
	}
	if c.TrackingLostMs < 0 {
		c.TrackingLostMs = 0
	}
	if c.LoopDelayMs <= 0 {
		c.LoopDelayMs = d.LoopDelayMs
	}
	if c.PostExecutionMs < 0 {
		c.PostExecutionMs = d.PostExecutionMs
	}
	if c.ScreenshotIntervalMs < 0 {
		c.ScreenshotIntervalMs = d.ScreenshotIntervalMs
	}
	if c.CaptureFailureDelayMs < 0 {
		c.CaptureFailureDelayMs = d.CaptureFailureDelayMs
	}
	if c.CaptureCriticalDelayMs < 0 {
		c.CaptureCriticalDelayMs = d.CaptureCriticalDelayMs
	}
	if c.CriticalFailureCount <= 0 {
		c.CriticalFailureCount = d.CriticalFailureCount
	}
	if c.ReactionDelayMs < 0 {
		c.ReactionDelayMs = d.ReactionDelayMs
	}
	if c.KeyHoldMs < 0 {
		c.KeyHoldMs = d.KeyHoldMs
	}
	if c.JitterMinMs < 0 {
		c.JitterMinMs = 0
	}
	if c.JitterMaxMs < c.JitterMinMs {
		c.JitterMaxMs = c.JitterMinMs
	}
	if c.SettleMs < 0 {
		c.SettleMs = d.SettleMs
	}
	if len(c.KeyMap) == 0 {
		c.KeyMap = d.KeyMap
	}
	return nil
}

// Symbols returns the key-map symbols in sorted order.
func (c Config) Symbols() []string {
	out := make([]string, 0, len(c.KeyMap))
	for s := range c.KeyMap {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (c Config) StableTime() time.Duration           { return ms(c.StableTimeMs) }
func (c Config) ValidationWindow() time.Duration     { return ms(c.ValidationMs) }
func (c Config) TrackingLost() time.Duration         { return ms(c.TrackingLostMs) }
func (c Config) LoopDelay() time.Duration            { return ms(c.LoopDelayMs) }
func (c Config) PostExecution() time.Duration        { return ms(c.PostExecutionMs) }
func (c Config) ScreenshotInterval() time.Duration   { return ms(c.ScreenshotIntervalMs) }
func (c Config) CaptureFailureDelay() time.Duration  { return ms(c.CaptureFailureDelayMs) }
func (c Config) CaptureCriticalDelay() time.Duration { return ms(c.CaptureCriticalDelayMs) }
func (c Config) ReactionDelay() time.Duration        { return ms(c.ReactionDelayMs) }
func (c Config) KeyHold() time.Duration              { return ms(c.KeyHoldMs) }
func (c Config) Settle() time.Duration               { return ms(c.SettleMs) }

// Jitter returns the post key-up random delay bounds.
func (c Config) Jitter() (lo, hi time.Duration) { return ms(c.JitterMinMs), ms(c.JitterMaxMs) }

// Load attempts to read configuration from the given JSON file path. If the file does not
// exist it returns DefaultConfig(). On JSON error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	// a file-provided key map replaces the defaults instead of merging into them
	cfg.KeyMap = nil
	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return DefaultConfig(), err
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
