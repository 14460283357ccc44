package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/soocke/keyprompt-bot/app"
	"github.com/soocke/keyprompt-bot/config"
	"github.com/soocke/keyprompt-bot/domain/minigame"
	"github.com/soocke/keyprompt-bot/domain/window"
)

// runHeadless drives one automation run without a UI until SIGINT/SIGTERM or
// the target window disappears. It returns the process exit code.
func runHeadless(cfg *config.Config, logger *slog.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := app.NewRunner(*cfg, window.NewFinder(), logger)
	defer r.Close()
	if err := r.Start(ctx); err != nil {
		logger.Error("automation start failed", "error", err)
		return 1
	}
	events := r.Events()
	done := r.Done()
	for {
		select {
		case ev := <-events:
			logEvent(logger, ev)
		case <-done:
			if err := r.Err(); err != nil {
				logger.Error("automation ended", "error", err)
				return 1
			}
			return 0
		case <-ctx.Done():
			logger.Info("interrupted, stopping")
			return 0
		}
	}
}

func logEvent(logger *slog.Logger, ev minigame.Event) {
	if ev.Message == "" {
		return
	}
	attrs := []any{"kind", ev.Kind.String(), "state", ev.State.String()}
	if !ev.ROI.Empty() {
		attrs = append(attrs, "roi", ev.ROI.String())
	}
	if len(ev.Sequence) > 0 {
		attrs = append(attrs, "sequence", ev.Sequence.Key())
	}
	logger.Info(ev.Message, attrs...)
}
