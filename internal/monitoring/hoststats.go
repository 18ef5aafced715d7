package monitoring

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats is a snapshot of the machine the service runs on.
type HostStats struct {
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryPercent float64 `json:"memoryPercent"`
	MemoryUsedMB  uint64  `json:"memoryUsedMb"`
	MemoryTotalMB uint64  `json:"memoryTotalMb"`
	UptimeSeconds uint64  `json:"uptimeSeconds"`
}

// HostStatsProvider reports host resource usage.
type HostStatsProvider interface {
	Collect(ctx context.Context) (HostStats, error)
}

// HostCollector reads host statistics through gopsutil.
type HostCollector struct {
	// Sample is the CPU measurement window. Zero compares against the previous call.
	Sample time.Duration
}

// Collect implements HostStatsProvider.
func (c HostCollector) Collect(ctx context.Context) (HostStats, error) {
	var stats HostStats

	percents, err := cpu.PercentWithContext(ctx, c.Sample, false)
	if err != nil {
		return stats, err
	}
	if len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return stats, err
	}
	stats.MemoryPercent = vm.UsedPercent
	stats.MemoryUsedMB = vm.Used / 1024 / 1024
	stats.MemoryTotalMB = vm.Total / 1024 / 1024

	uptime, err := host.UptimeWithContext(ctx)
	if err != nil {
		return stats, err
	}
	stats.UptimeSeconds = uptime
	return stats, nil
}
