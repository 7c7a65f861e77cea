// Package metrics records run statistics in a Prometheus registry and exports
// them in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agbru/mpsearch/internal/orchestration"
	"github.com/agbru/mpsearch/internal/worker"
)

const namespace = "mpsearch"

// Recorder is an orchestration.Observer that turns lifecycle events into
// Prometheus metrics. Each Recorder owns its registry so several runs in one
// process never collide.
type Recorder struct {
	registry *prometheus.Registry
	memory   *MemoryCollector

	outcomes     *prometheus.CounterVec
	bytesScanned prometheus.Counter
	scanSeconds  prometheus.Histogram
	matches      prometheus.Counter
	terminated   prometheus.Counter
	streamBytes  prometheus.Gauge
	workers      prometheus.Gauge
	runSeconds   prometheus.Gauge
	heapBytes    prometheus.Gauge
	gcCycles     prometheus.Gauge
}

var _ orchestration.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		memory:   NewMemoryCollector(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_outcomes_total",
			Help:      "Worker outcomes by status.",
		}, []string{"status"}),
		bytesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_scanned_total",
			Help:      "Bytes read by workers that completed their scan.",
		}),
		scanSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_scan_seconds",
			Help:      "Elapsed scan time of completed workers.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		matches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Workers that found the pattern in their range.",
		}),
		terminated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workers_terminated_total",
			Help:      "Workers stopped at their deadline.",
		}),
		streamBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_size_bytes",
			Help:      "Size of the searched stream.",
		}),
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Size of the worker pool.",
		}),
		runSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the last run.",
		}),
		heapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heap_alloc_bytes",
			Help:      "Heap in use when the run finished.",
		}),
		gcCycles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gc_cycles",
			Help:      "Completed GC cycles when the run finished.",
		}),
	}
	r.registry.MustRegister(
		r.outcomes, r.bytesScanned, r.scanSeconds, r.matches, r.terminated,
		r.streamBytes, r.workers, r.runSeconds, r.heapBytes, r.gcCycles,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// RunStarted records the stream size and pool size.
func (r *Recorder) RunStarted(_ string, totalBytes int64, workers int) {
	r.streamBytes.Set(float64(totalBytes))
	r.workers.Set(float64(workers))
}

// WorkerFinished counts the outcome and, for measured outcomes, its bytes and
// duration.
func (r *Recorder) WorkerFinished(out worker.Outcome) {
	r.outcomes.WithLabelValues(out.Status.String()).Inc()
	if !out.Measured {
		return
	}
	r.bytesScanned.Add(float64(out.BytesScanned))
	r.scanSeconds.Observe(out.Elapsed.Seconds())
	if out.Matched {
		r.matches.Inc()
	}
}

// WorkerTerminated counts a TIMEOUT outcome.
func (r *Recorder) WorkerTerminated(int, time.Duration) {
	r.outcomes.WithLabelValues(worker.StatusTimeout.String()).Inc()
	r.terminated.Inc()
}

// RunFinished records the run duration and a memory snapshot.
func (r *Recorder) RunFinished(res *orchestration.RunResult) {
	if res != nil {
		r.runSeconds.Set(res.Elapsed.Seconds())
	}
	snap := r.memory.Snapshot()
	r.heapBytes.Set(float64(snap.HeapAlloc))
	r.gcCycles.Set(float64(snap.NumGC))
}

// WriteTextfile writes every metric to path in the Prometheus text format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
