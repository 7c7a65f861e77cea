package orchestration

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/agbru/mpsearch/internal/cursor"
	apperrors "github.com/agbru/mpsearch/internal/errors"
	"github.com/agbru/mpsearch/internal/logging"
	"github.com/agbru/mpsearch/internal/stream"
	"github.com/agbru/mpsearch/internal/worker"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 10

// DefaultTimeout is the per-worker wait used when none is configured.
const DefaultTimeout = 60 * time.Second

// DefaultReclaimGrace bounds how long Run waits for terminated workers to
// release their streams before returning.
const DefaultReclaimGrace = time.Second

// DeadlinePolicy selects how the timeout is applied while joining workers.
type DeadlinePolicy int

const (
	// PerWorkerDeadline waits up to the timeout for each worker in turn, so
	// the last worker may be evaluated after almost N times the timeout.
	PerWorkerDeadline DeadlinePolicy = iota
	// SharedDeadline waits for all workers against one deadline computed
	// when the pool is launched.
	SharedDeadline
)

// String returns the flag spelling of the policy.
func (p DeadlinePolicy) String() string {
	if p == SharedDeadline {
		return "shared"
	}
	return "per-worker"
}

// ParseDeadlinePolicy parses "per-worker" or "shared".
func ParseDeadlinePolicy(s string) (DeadlinePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "per-worker":
		return PerWorkerDeadline, nil
	case "shared":
		return SharedDeadline, nil
	}
	return PerWorkerDeadline, apperrors.NewConfigError("unknown deadline policy %q (want per-worker or shared)", s)
}

// Config controls a Coordinator.
type Config struct {
	Workers  int
	Timeout  time.Duration
	Deadline DeadlinePolicy
	// Seed drives each worker's read size; 0 picks a time-based seed.
	Seed         uint64
	ReclaimGrace time.Duration
}

// RunResult is everything the coordinator learned during a run.
type RunResult struct {
	Source     string
	TotalBytes int64
	ChunkSize  int64
	Workers    int
	// Completed holds outcomes with a measured elapsed time, in arrival order.
	Completed []worker.Outcome
	// Failed holds outcomes without one (no work, stream failure).
	Failed []worker.Outcome
	// Terminated lists the workers stopped at their deadline, ascending.
	Terminated []int
	Elapsed    time.Duration
}

// Coordinator runs one search at a time over a fixed worker pool.
type Coordinator struct {
	cfg        Config
	logger     logging.Logger
	observer   Observer
	tracer     trace.Tracer
	workerOpts []worker.Option
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the diagnostic logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithObserver sets the lifecycle observer.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observer = o }
}

// WithWorkerOptions appends options applied to every worker.
func WithWorkerOptions(opts ...worker.Option) Option {
	return func(c *Coordinator) { c.workerOpts = append(c.workerOpts, opts...) }
}

// NewCoordinator creates a Coordinator, filling zero-valued config fields
// with defaults.
func NewCoordinator(cfg Config, opts ...Option) *Coordinator {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout < 0 {
		cfg.Timeout = 0
	}
	if cfg.ReclaimGrace <= 0 {
		cfg.ReclaimGrace = DefaultReclaimGrace
	}
	c := &Coordinator{
		cfg:      cfg,
		logger:   logging.Nop(),
		observer: NullObserver{},
		tracer:   otel.Tracer("github.com/agbru/mpsearch/internal/orchestration"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run searches src for pattern. It fails fast with EmptyStreamError before
// launching anything if the source has no bytes. Worker-level problems never
// fail the run; they are reported through RunResult.
func (c *Coordinator) Run(ctx context.Context, src stream.Source, pattern *regexp.Regexp) (*RunResult, error) {
	totalBytes := src.Size()
	if totalBytes <= 0 {
		return nil, apperrors.EmptyStreamError{Path: src.Name()}
	}
	n := c.cfg.Workers
	alloc, err := cursor.New(totalBytes, n)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "search.run", trace.WithAttributes(
		attribute.String("source", src.Name()),
		attribute.Int64("source.bytes", totalBytes),
		attribute.Int("workers", n),
		attribute.String("deadline", c.cfg.Deadline.String()),
	))
	defer span.End()

	c.logger.Debug("starting search",
		logging.String("source", src.Name()),
		logging.Int64("bytes", totalBytes),
		logging.Int64("chunk", alloc.ChunkSize()),
		logging.Int("workers", n))
	c.observer.RunStarted(src.Name(), totalBytes, n)

	seed := c.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	results := make(chan worker.Outcome, n)
	slots := make([]*outcomeSlot, n)
	cancels := make([]context.CancelFunc, n)
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	start := time.Now()
	var g errgroup.Group
	for i := 0; i < n; i++ {
		slot := newOutcomeSlot()
		slots[i] = slot
		wctx, cancel := context.WithCancel(runCtx)
		cancels[i] = cancel
		w := worker.New(i, alloc, src, pattern, rand.New(rand.NewPCG(seed, uint64(i))),
			append([]worker.Option{worker.WithLogger(c.logger)}, c.workerOpts...)...)
		g.Go(func() error {
			defer close(slot.done)
			out, ok := w.Run(wctx)
			if ok && slot.publish(results, out) {
				c.observer.WorkerFinished(out)
			}
			return nil
		})
	}

	c.join(ctx, slots, start)
	terminated := c.terminateStragglers(slots, cancels)
	c.reclaim(&g)

	// Every slot is now published, terminated or finished without an
	// outcome, so nothing else can be sent.
	close(results)
	res := &RunResult{
		Source:     src.Name(),
		TotalBytes: totalBytes,
		ChunkSize:  alloc.ChunkSize(),
		Workers:    n,
		Terminated: terminated,
	}
	for out := range results {
		if out.Measured {
			res.Completed = append(res.Completed, out)
		} else {
			res.Failed = append(res.Failed, out)
		}
	}
	res.Elapsed = time.Since(start)

	span.SetAttributes(
		attribute.Int("outcomes.completed", len(res.Completed)),
		attribute.Int("outcomes.failed", len(res.Failed)),
		attribute.Int("outcomes.terminated", len(res.Terminated)),
	)
	c.observer.RunFinished(res)

	if err := ctx.Err(); err != nil {
		return res, apperrors.WrapError(err, "search interrupted")
	}
	return res, nil
}

// join waits for each worker in launch order according to the deadline
// policy. It returns early if ctx is canceled.
func (c *Coordinator) join(ctx context.Context, slots []*outcomeSlot, start time.Time) {
	shared := start.Add(c.cfg.Timeout)
	for _, slot := range slots {
		wait := c.cfg.Timeout
		if c.cfg.Deadline == SharedDeadline {
			wait = time.Until(shared)
		}
		if slot.finished() || wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-slot.done:
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
		timer.Stop()
	}
}

// terminateStragglers cancels every worker and closes every slot that holds
// no outcome, returning those ids in ascending order. This includes workers
// that already returned without publishing because their context was
// canceled. A worker that publishes before its slot is closed keeps its
// outcome.
func (c *Coordinator) terminateStragglers(slots []*outcomeSlot, cancels []context.CancelFunc) []int {
	var terminated []int
	for id, slot := range slots {
		cancels[id]()
		if !slot.terminate() {
			continue
		}
		terminated = append(terminated, id)
		c.logger.Warn(apperrors.WorkerTimeoutError{WorkerID: id, Limit: c.cfg.Timeout}.Error(),
			logging.Int("worker", id))
		c.observer.WorkerTerminated(id, c.cfg.Timeout)
	}
	return terminated
}

// reclaim gives canceled workers a short grace period to close their
// streams. Workers blocked in a read that ignores cancellation are left
// behind; their outcome slots are already closed.
func (c *Coordinator) reclaim(g *errgroup.Group) {
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	timer := time.NewTimer(c.cfg.ReclaimGrace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		c.logger.Warn(fmt.Sprintf("workers still releasing streams after %s", c.cfg.ReclaimGrace))
	}
}
