package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/soocke/keyprompt-bot/app"
	"github.com/soocke/keyprompt-bot/config"
	"github.com/soocke/keyprompt-bot/debug"
)

func main() {
	cfgPath := flag.String("config", "config.json", "path to the JSON configuration file")
	debugFlag := flag.Bool("debug", false, "enable debug logging and runtime stats")
	windowTitle := flag.String("window", "", "target window title substring (overrides config)")
	templateDir := flag.String("templates", "", "template directory (overrides config)")
	headless := flag.Bool("headless", false, "run without a UI until interrupted")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	level := slog.LevelInfo
	if *debugFlag || cfg.Debug {
		cfg.Debug = true
		level = slog.LevelDebug
	}
	logger := NewLogger(level)
	if err != nil {
		logger.Warn("config load failed, using defaults", "path", *cfgPath, "error", err)
	}
	if *windowTitle != "" {
		cfg.WindowTitle = *windowTitle
	}
	if *templateDir != "" {
		cfg.TemplateDir = *templateDir
	}
	_ = cfg.Validate()

	if cfg.Debug {
		debug.StartRuntimeLogger(5*time.Second, logger)
		debug.StartMemLogger(5*time.Second, logger)
	}

	if *headless {
		os.Exit(runHeadless(cfg, logger))
	}
	application := app.NewApp("Key Prompt Bot", 1000, 640, cfg, *cfgPath, logger)
	application.Start()
}
