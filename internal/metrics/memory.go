package metrics

import (
	"runtime"
	"time"
)

// MemorySnapshot holds a point-in-time reading of the Go runtime's memory.
type MemorySnapshot struct {
	HeapAlloc    uint64 // bytes in use by the process heap
	HeapSys      uint64 // bytes obtained from the OS for the heap
	Sys          uint64 // total bytes obtained from the OS
	NumGC        uint32 // completed GC cycles
	PauseTotalNs uint64 // cumulative GC pause time
}

// GCPause returns the cumulative GC pause as a duration.
func (s MemorySnapshot) GCPause() time.Duration {
	return time.Duration(s.PauseTotalNs)
}

// MemoryCollector reads runtime memory statistics.
type MemoryCollector struct{}

// NewMemoryCollector creates a new memory collector.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{}
}

// Snapshot reads current memory statistics. It briefly stops the world, so
// it is taken once per run rather than per worker.
func (mc *MemoryCollector) Snapshot() MemorySnapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemorySnapshot{
		HeapAlloc:    m.HeapAlloc,
		HeapSys:      m.HeapSys,
		Sys:          m.Sys,
		NumGC:        m.NumGC,
		PauseTotalNs: m.PauseTotalNs,
	}
}
