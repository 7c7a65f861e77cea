package metrics

import (
	"testing"
	"time"
)

func TestMemoryCollector_Snapshot(t *testing.T) {
	t.Parallel()

	mc := NewMemoryCollector()
	snap := mc.Snapshot()

	if snap.HeapAlloc == 0 {
		t.Error("HeapAlloc should be > 0")
	}
	if snap.Sys == 0 {
		t.Error("Sys should be > 0")
	}
}

func TestMemoryCollector_Delta(t *testing.T) {
	t.Parallel()

	mc := NewMemoryCollector()
	before := mc.Snapshot()
	_ = make([]byte, 1024*1024)
	after := mc.Snapshot()

	if after.Sys < before.Sys {
		t.Error("Sys should not decrease between snapshots")
	}
}

func TestMemorySnapshot_GCPause(t *testing.T) {
	t.Parallel()
	if got := (MemorySnapshot{PauseTotalNs: 1500}).GCPause(); got != 1500*time.Nanosecond {
		t.Errorf("GCPause() = %v", got)
	}
}
