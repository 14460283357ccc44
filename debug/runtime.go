// Package debug holds periodic runtime loggers started when Config.Debug is set.
package debug

import (
	"log/slog"
	"runtime/metrics"
	"time"
)

var runtimeSamples = []string{
	"/sched/goroutines:goroutines",
	"/memory/classes/heap/objects:bytes",
	"/memory/classes/heap/stacks:bytes",
	"/gc/cycles/total:gc-cycles",
}

// StartRuntimeLogger logs goroutine count, heap and stack usage every interval.
// Detector workers and the controller loop are the expected goroutines; growth
// beyond them points at a leak.
func StartRuntimeLogger(interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Second
	}
	samples := make([]metrics.Sample, len(runtimeSamples))
	for i, name := range runtimeSamples {
		samples[i].Name = name
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for range t.C {
			metrics.Read(samples)
			logger.Info("runtime",
				slog.Uint64("goroutines", sampleUint(samples[0])),
				slog.Uint64("heap_objects", sampleUint(samples[1])),
				slog.Uint64("stack_bytes", sampleUint(samples[2])),
				slog.Uint64("gc_cycles", sampleUint(samples[3])),
			)
		}
	}()
}

func sampleUint(s metrics.Sample) uint64 {
	if s.Value.Kind() != metrics.KindUint64 {
		return 0
	}
	return s.Value.Uint64()
}
