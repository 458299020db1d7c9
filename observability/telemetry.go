// Package observability carries process-level telemetry. It observes and
// logs; it never feeds back into chat behavior.
package observability

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
)

// Telemetry periodically logs process and host statistics at debug level.
// It runs under the supervisor like any other worker.
type Telemetry struct {
	log      *slog.Logger
	interval time.Duration
}

func NewTelemetry(log *slog.Logger, interval time.Duration) *Telemetry {
	return &Telemetry{log: log, interval: interval}
}

func (t *Telemetry) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.log.Debug("Stopping telemetry")
			return nil
		case <-ticker.C:
			t.report()
		}
	}
}

func (t *Telemetry) report() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	attrs := []any{
		"goroutines", runtime.NumGoroutine(),
		"alloc_mb", memStats.Alloc / 1024 / 1024,
		"num_gc", memStats.NumGC,
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		attrs = append(attrs, "host_mem_used_percent", vm.UsedPercent)
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		attrs = append(attrs, "host_cpu_percent", percents[0])
	}

	t.log.Debug("Process telemetry", attrs...)
}
