package orchestration

import (
	"time"

	"github.com/agbru/mpsearch/internal/worker"
)

// Observer receives lifecycle notifications from a Coordinator. This keeps
// the orchestration layer free of presentation and metrics concerns.
//
// WorkerFinished is called from worker goroutines and must be safe for
// concurrent use. The other methods are called from the coordinating
// goroutine.
type Observer interface {
	// RunStarted is called once the stream has been validated and before
	// any worker is launched.
	RunStarted(source string, totalBytes int64, workers int)
	// WorkerFinished is called for every outcome accepted by the coordinator.
	WorkerFinished(outcome worker.Outcome)
	// WorkerTerminated is called for every worker stopped at its deadline.
	WorkerTerminated(workerID int, limit time.Duration)
	// RunFinished is called after all outcomes have been collected.
	RunFinished(result *RunResult)
}

// NullObserver ignores all notifications.
type NullObserver struct{}

// RunStarted does nothing.
func (NullObserver) RunStarted(string, int64, int) {}

// WorkerFinished does nothing.
func (NullObserver) WorkerFinished(worker.Outcome) {}

// WorkerTerminated does nothing.
func (NullObserver) WorkerTerminated(int, time.Duration) {}

// RunFinished does nothing.
func (NullObserver) RunFinished(*RunResult) {}

// MultiObserver fans notifications out to several observers in order.
type MultiObserver []Observer

// RunStarted forwards to every observer.
func (m MultiObserver) RunStarted(source string, totalBytes int64, workers int) {
	for _, o := range m {
		o.RunStarted(source, totalBytes, workers)
	}
}

// WorkerFinished forwards to every observer.
func (m MultiObserver) WorkerFinished(outcome worker.Outcome) {
	for _, o := range m {
		o.WorkerFinished(outcome)
	}
}

// WorkerTerminated forwards to every observer.
func (m MultiObserver) WorkerTerminated(workerID int, limit time.Duration) {
	for _, o := range m {
		o.WorkerTerminated(workerID, limit)
	}
}

// RunFinished forwards to every observer.
func (m MultiObserver) RunFinished(result *RunResult) {
	for _, o := range m {
		o.RunFinished(result)
	}
}
