// Package sysmon samples host resource usage so a run can be put in context
// (a slow scan on a saturated host reads differently from one on an idle
// host).
package sysmon

import (
	"context"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/agbru/mpsearch/internal/logging"
)

// Stats holds a single snapshot of system-wide resource usage.
type Stats struct {
	CPUPercent   float64 // 0.0 .. 100.0
	MemPercent   float64 // 0.0 .. 100.0
	LogicalCPUs  int
	AvailableMem uint64
}

// Sample collects a host snapshot. CPU uses interval=0 (delta since the
// previous call). Fields that cannot be read are left at zero.
func Sample(ctx context.Context) Stats {
	var s Stats
	if pcts, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pcts) > 0 {
		s.CPUPercent = pcts[0]
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		s.LogicalCPUs = n
	}
	if vmem, err := mem.VirtualMemoryWithContext(ctx); err == nil && vmem != nil {
		s.MemPercent = vmem.UsedPercent
		s.AvailableMem = vmem.Available
	}
	return s
}

// Fields renders the snapshot as structured log fields.
func (s Stats) Fields() []logging.Field {
	return []logging.Field{
		logging.Float64("host_cpu_percent", s.CPUPercent),
		logging.Float64("host_mem_percent", s.MemPercent),
		logging.Int("host_cpus", s.LogicalCPUs),
		logging.Uint64("host_mem_available", s.AvailableMem),
	}
}

// Oversubscribed reports whether workers exceed the host's logical CPUs.
// An unknown CPU count never reports oversubscription.
func (s Stats) Oversubscribed(workers int) bool {
	return s.LogicalCPUs > 0 && workers > s.LogicalCPUs
}
