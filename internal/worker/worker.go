// Package worker implements the unit of concurrent work: claim a range from
// the shared cursor, scan it in randomly sized reads and report one Outcome.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"regexp"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agbru/mpsearch/internal/cursor"
	apperrors "github.com/agbru/mpsearch/internal/errors"
	"github.com/agbru/mpsearch/internal/logging"
	"github.com/agbru/mpsearch/internal/stream"
)

const tracerName = "github.com/agbru/mpsearch/internal/worker"

// Productivity bounds, as multiples of the pattern length.
const (
	MinProductivityFactor = 3
	MaxProductivityFactor = 6
)

// Productivity draws a per-read chunk size uniformly from
// [3*patternLen, 6*patternLen]. It is at least 1.
func Productivity(patternLen int, rng *rand.Rand) int {
	lo := MinProductivityFactor * patternLen
	hi := MaxProductivityFactor * patternLen
	if hi < 1 {
		return 1
	}
	return lo + rng.IntN(hi-lo+1)
}

// Worker scans one claimed range of a Source.
type Worker struct {
	id           int
	alloc        *cursor.Allocator
	source       stream.Source
	matcher      *regexp.Regexp
	productivity int
	logger       logging.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the logger used for warnings.
func WithLogger(l logging.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

// WithProductivity overrides the randomly drawn read size.
func WithProductivity(n int) Option {
	return func(w *Worker) { w.productivity = max(n, 1) }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// New creates a worker bound to the shared allocator. The read size is drawn
// from rng using the length of the matcher's source pattern.
func New(id int, alloc *cursor.Allocator, source stream.Source, matcher *regexp.Regexp, rng *rand.Rand, opts ...Option) *Worker {
	w := &Worker{
		id:      id,
		alloc:   alloc,
		source:  source,
		matcher: matcher,
		logger:  logging.Nop(),
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
	}
	w.productivity = Productivity(len(matcher.String()), rng)
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ID returns the worker index.
func (w *Worker) ID() int { return w.id }

// ProductivityBytes returns the per-read chunk size.
func (w *Worker) ProductivityBytes() int { return w.productivity }

// Run claims a range and scans it. It returns ok=false only when ctx was
// canceled before the scan finished; such a worker has no outcome.
func (w *Worker) Run(ctx context.Context) (out Outcome, ok bool) {
	ctx, span := w.tracer.Start(ctx, "worker.scan", trace.WithAttributes(
		attribute.Int("worker.id", w.id),
		attribute.Int("worker.productivity", w.productivity),
	))
	defer span.End()

	r, err := w.alloc.Claim(w.id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return w.failure(r, err), true
	}
	span.SetAttributes(attribute.Int64("range.start", r.Start), attribute.Int64("range.end", r.End))

	if r.Start >= w.alloc.TotalBytes() {
		w.logger.Warn(fmt.Sprintf("No work has been assigned to worker %d", w.id))
		span.SetStatus(codes.Error, "no work assigned")
		return w.failure(r, apperrors.NoWorkAssignedError{WorkerID: w.id, Offset: r.Start}), true
	}

	out, ok = w.scan(ctx, r)
	switch {
	case !ok:
		span.SetStatus(codes.Error, "terminated")
	case out.Err != nil:
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, out.Err.Error())
	default:
		span.SetAttributes(
			attribute.Int64("scan.bytes", out.BytesScanned),
			attribute.Bool("scan.matched", out.Matched),
		)
	}
	return out, ok
}

func (w *Worker) scan(ctx context.Context, r cursor.Range) (Outcome, bool) {
	s, err := w.source.Open(ctx)
	if err != nil {
		return w.streamFailure(ctx, r, "open", err)
	}
	defer s.Close()

	if _, err := s.Seek(r.Start, io.SeekStart); err != nil {
		return w.streamFailure(ctx, r, "seek", err)
	}

	buf := acquireReadBuffer(w.productivity)
	defer releaseReadBuffer(buf)
	step := int64(w.productivity)
	pos := r.Start
	matchOffset := int64(-1)
	start := w.now()

	for pos < r.End {
		if ctx.Err() != nil {
			return Outcome{}, false
		}
		n, err := io.ReadFull(s, buf)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return w.streamFailure(ctx, r, "read", err)
		}
		if loc := w.matcher.FindIndex(buf[:n]); loc != nil {
			matchOffset = pos + int64(loc[0])
			pos += step
			break
		}
		// The cursor advances by the requested size even on a short read.
		pos += step
	}

	return Outcome{
		WorkerID:     w.id,
		Range:        r,
		Measured:     true,
		Elapsed:      w.now().Sub(start),
		BytesScanned: pos - r.Start,
		Status:       StatusSuccess,
		Matched:      matchOffset >= 0,
		MatchOffset:  matchOffset,
	}, true
}

// streamFailure converts an I/O error to a FAILURE outcome, or to "no
// outcome" when the error stems from the worker being terminated.
func (w *Worker) streamFailure(ctx context.Context, r cursor.Range, op string, err error) (Outcome, bool) {
	if ctx.Err() != nil {
		return Outcome{}, false
	}
	serr := apperrors.StreamError{WorkerID: w.id, Op: op, Cause: err}
	w.logger.Error("stream failure", serr, logging.Int("worker", w.id))
	return w.failure(r, serr), true
}

func (w *Worker) failure(r cursor.Range, err error) Outcome {
	return Outcome{
		WorkerID:    w.id,
		Range:       r,
		Status:      StatusFailure,
		MatchOffset: -1,
		Err:         err,
	}
}
