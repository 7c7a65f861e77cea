package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/agbru/mpsearch/internal/orchestration"
	"github.com/agbru/mpsearch/internal/worker"
)

// ProgressRefreshRate is the spinner frame interval.
const ProgressRefreshRate = 200 * time.Millisecond

// Spinner abstracts the terminal spinner so the observer can be tested
// without a terminal.
type Spinner interface {
	Start()
	Stop()
	// UpdateSuffix sets the text displayed after the spinner.
	UpdateSuffix(suffix string)
}

type realSpinner struct {
	s *spinner.Spinner
}

func (rs *realSpinner) Start() { rs.s.Start() }

func (rs *realSpinner) Stop() { rs.s.Stop() }

func (rs *realSpinner) UpdateSuffix(suffix string) {
	rs.s.Lock()
	rs.s.Suffix = suffix
	rs.s.Unlock()
}

var newSpinner = func(options ...spinner.Option) Spinner {
	return &realSpinner{spinner.New(spinner.CharSets[11], ProgressRefreshRate, options...)}
}

// ProgressObserver shows a spinner with the number of workers that have
// reached a terminal state. It implements orchestration.Observer.
type ProgressObserver struct {
	mu      sync.Mutex
	spinner Spinner
	source  string
	total   int
	done    int
	matched int
}

var _ orchestration.Observer = (*ProgressObserver)(nil)

// NewProgressObserver creates a progress observer drawing on out.
func NewProgressObserver(out io.Writer) *ProgressObserver {
	return &ProgressObserver{spinner: newSpinner(spinner.WithWriter(out))}
}

// RunStarted starts the spinner.
func (p *ProgressObserver) RunStarted(source string, _ int64, workers int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source, p.total, p.done, p.matched = source, workers, 0, 0
	p.spinner.UpdateSuffix(p.suffix())
	p.spinner.Start()
}

// WorkerFinished advances the counter.
func (p *ProgressObserver) WorkerFinished(out worker.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if out.Matched {
		p.matched++
	}
	p.spinner.UpdateSuffix(p.suffix())
}

// WorkerTerminated advances the counter.
func (p *ProgressObserver) WorkerTerminated(int, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	p.spinner.UpdateSuffix(p.suffix())
}

// RunFinished stops the spinner.
func (p *ProgressObserver) RunFinished(*orchestration.RunResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spinner.Stop()
}

func (p *ProgressObserver) suffix() string {
	s := fmt.Sprintf(" Searching %s: %d/%d workers", p.source, p.done, p.total)
	if p.matched > 0 {
		s += fmt.Sprintf(", %d matched", p.matched)
	}
	return s
}
