package orchestration

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/agbru/mpsearch/internal/cursor"
	apperrors "github.com/agbru/mpsearch/internal/errors"
	"github.com/agbru/mpsearch/internal/stream"
	"github.com/agbru/mpsearch/internal/worker"
)

// gatedSource serves a buffer whose reads block, for streams positioned in
// a gated range, until the gate is opened or the stream's context ends.
type gatedSource struct {
	data  []byte
	gates map[int64]chan struct{} // keyed by range start; nil map blocks nothing
	all   chan struct{}           // when non-nil every read waits on it
}

func (g *gatedSource) Name() string { return "gated" }
func (g *gatedSource) Size() int64  { return int64(len(g.data)) }
func (g *gatedSource) Open(ctx context.Context) (stream.Stream, error) {
	return &gatedStream{Reader: bytes.NewReader(g.data), src: g, ctx: ctx}, nil
}

type gatedStream struct {
	*bytes.Reader
	src  *gatedSource
	ctx  context.Context
	gate chan struct{}
}

func (s *gatedStream) Seek(off int64, whence int) (int64, error) {
	if g, ok := s.src.gates[off]; ok {
		s.gate = g
	}
	return s.Reader.Seek(off, whence)
}

func (s *gatedStream) Read(p []byte) (int, error) {
	gate := s.gate
	if s.src.all != nil {
		gate = s.src.all
	}
	if gate != nil {
		select {
		case <-gate:
		case <-s.ctx.Done():
			return 0, s.ctx.Err()
		}
	}
	return s.Reader.Read(p)
}

func (s *gatedStream) Close() error { return nil }

// recordingObserver captures notifications for assertions.
type recordingObserver struct {
	mu         sync.Mutex
	started    int
	finished   []int
	terminated []int
	result     *RunResult
}

func (r *recordingObserver) RunStarted(string, int64, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingObserver) WorkerFinished(o worker.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, o.WorkerID)
}

func (r *recordingObserver) WorkerTerminated(id int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terminated = append(r.terminated, id)
}

func (r *recordingObserver) RunFinished(res *RunResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result = res
}

func (r *recordingObserver) terminatedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.terminated)
}

func idsOf(outcomes []worker.Outcome) []int {
	ids := make([]int, 0, len(outcomes))
	for _, o := range outcomes {
		ids = append(ids, o.WorkerID)
	}
	sort.Ints(ids)
	return ids
}

// assertEachIDOnce checks that every worker id appears in exactly one of the
// three result buckets.
func assertEachIDOnce(t *testing.T, res *RunResult) {
	t.Helper()
	seen := make(map[int]string)
	mark := func(id int, bucket string) {
		if prev, ok := seen[id]; ok {
			t.Errorf("worker %d in both %s and %s", id, prev, bucket)
		}
		seen[id] = bucket
	}
	for _, o := range res.Completed {
		mark(o.WorkerID, "completed")
	}
	for _, o := range res.Failed {
		mark(o.WorkerID, "failed")
	}
	for _, id := range res.Terminated {
		mark(id, "terminated")
	}
	if len(seen) != res.Workers {
		t.Errorf("expected %d workers accounted for, got %d", res.Workers, len(seen))
	}
}

func TestParseDeadlinePolicy(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    DeadlinePolicy
		wantErr bool
	}{
		{"", PerWorkerDeadline, false},
		{"per-worker", PerWorkerDeadline, false},
		{"SHARED", SharedDeadline, false},
		{"global", PerWorkerDeadline, true},
	}
	for _, tt := range tests {
		got, err := ParseDeadlinePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDeadlinePolicy(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDeadlinePolicy(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if !tt.wantErr && got.String() == "" {
			t.Errorf("policy %v has no name", got)
		}
	}
}

// TestRun_AllWorkersComplete covers a 1000-byte stream without the pattern:
// all ten workers succeed over ten 100-byte ranges.
func TestRun_AllWorkersComplete(t *testing.T) {
	t.Parallel()
	src := stream.NewBytesSource("mem", bytes.Repeat([]byte("-"), 1000))
	obs := &recordingObserver{}
	c := NewCoordinator(Config{Workers: 10, Timeout: 5 * time.Second, Seed: 42}, WithObserver(obs))

	res, err := c.Run(context.Background(), src, regexp.MustCompile("xAd"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Completed) != 10 || len(res.Failed) != 0 || len(res.Terminated) != 0 {
		t.Fatalf("expected 10 completed, got %d completed / %d failed / %d terminated",
			len(res.Completed), len(res.Failed), len(res.Terminated))
	}
	if res.ChunkSize != 100 {
		t.Errorf("ChunkSize = %d, want 100", res.ChunkSize)
	}

	ranges := make([]cursor.Range, 0, 10)
	for _, o := range res.Completed {
		if o.Status != worker.StatusSuccess {
			t.Errorf("worker %d status %v", o.WorkerID, o.Status)
		}
		if o.Matched {
			t.Errorf("worker %d reported a match in pattern-free data", o.WorkerID)
		}
		ranges = append(ranges, o.Range)
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })
	for i, r := range ranges {
		want := cursor.Range{Start: int64(i) * 100, End: int64(i+1) * 100}
		if r != want {
			t.Errorf("range %d = %v, want %v", i, r, want)
		}
	}

	assertEachIDOnce(t, res)
	if obs.started != 1 || len(obs.finished) != 10 || obs.result != res {
		t.Errorf("observer saw started=%d finished=%d", obs.started, len(obs.finished))
	}
}

func TestRun_EmptyStreamFailsFast(t *testing.T) {
	t.Parallel()
	obs := &recordingObserver{}
	c := NewCoordinator(Config{Workers: 10, Timeout: time.Second}, WithObserver(obs))

	res, err := c.Run(context.Background(), stream.NewBytesSource("empty", nil), regexp.MustCompile("a"))

	var empty apperrors.EmptyStreamError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyStreamError, got %v", err)
	}
	if res != nil || obs.started != 0 {
		t.Error("no worker may be launched for an empty stream")
	}
}

// TestRun_ZeroTimeoutTerminatesEveryone uses streams that never deliver:
// with a zero timeout every worker is terminated and none reports.
func TestRun_ZeroTimeoutTerminatesEveryone(t *testing.T) {
	t.Parallel()
	src := &gatedSource{data: make([]byte, 1000), all: make(chan struct{})}
	defer close(src.all)
	obs := &recordingObserver{}
	c := NewCoordinator(Config{Workers: 10, Timeout: 0}, WithObserver(obs))

	res, err := c.Run(context.Background(), src, regexp.MustCompile("xAd"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Terminated) != 10 {
		t.Fatalf("expected 10 terminated workers, got %v", res.Terminated)
	}
	if len(res.Completed)+len(res.Failed) != 0 {
		t.Errorf("terminated workers must not contribute outcomes")
	}
	for i, id := range res.Terminated {
		if id != i {
			t.Errorf("Terminated not ascending: %v", res.Terminated)
			break
		}
	}
	if len(obs.terminated) != 10 || len(obs.finished) != 0 {
		t.Errorf("observer saw %d terminations and %d finishes", len(obs.terminated), len(obs.finished))
	}
}

func TestRun_MixedOutcomes(t *testing.T) {
	t.Parallel()
	// 30 bytes over 4 workers: chunk 8, ranges [0,8) [8,16) [16,24) [24,30).
	// The range starting at 8 never delivers; everything else finishes.
	src := &gatedSource{
		data:  bytes.Repeat([]byte("."), 30),
		gates: map[int64]chan struct{}{8: make(chan struct{})},
	}
	c := NewCoordinator(Config{Workers: 4, Timeout: 200 * time.Millisecond, Seed: 1},
		WithWorkerOptions(worker.WithProductivity(3)))

	res, err := c.Run(context.Background(), src, regexp.MustCompile("x"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertEachIDOnce(t, res)
	if len(res.Terminated) != 1 {
		t.Fatalf("expected exactly one terminated worker, got %v", res.Terminated)
	}
	if len(res.Completed) != 3 {
		t.Errorf("expected 3 completed workers, got %v", idsOf(res.Completed))
	}
}

func TestRun_StarvedWorkersFail(t *testing.T) {
	t.Parallel()
	// ceil(3/10) = 1: three workers get a byte each, seven get nothing.
	src := stream.NewBytesSource("tiny", []byte("abc"))
	c := NewCoordinator(Config{Workers: 10, Timeout: 5 * time.Second, Seed: 3})

	res, err := c.Run(context.Background(), src, regexp.MustCompile("zzz"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Completed) != 3 || len(res.Failed) != 7 {
		t.Fatalf("expected 3 completed and 7 failed, got %d and %d", len(res.Completed), len(res.Failed))
	}
	for _, o := range res.Failed {
		if o.Status != worker.StatusFailure || o.Measured {
			t.Errorf("starved worker %d: %+v", o.WorkerID, o)
		}
		var noWork apperrors.NoWorkAssignedError
		if !errors.As(o.Err, &noWork) {
			t.Errorf("starved worker %d: expected NoWorkAssignedError, got %v", o.WorkerID, o.Err)
		}
	}
	assertEachIDOnce(t, res)
}

// TestRun_MatchDoesNotStopOthers places the pattern in the first range:
// the matching worker stops early while every other worker still reports.
func TestRun_MatchDoesNotStopOthers(t *testing.T) {
	t.Parallel()
	data := bytes.Repeat([]byte("-"), 1000)
	copy(data[5:], "xAd")
	c := NewCoordinator(Config{Workers: 10, Timeout: 5 * time.Second, Seed: 9})

	res, err := c.Run(context.Background(), stream.NewBytesSource("mem", data), regexp.MustCompile("xAd"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Completed) != 10 {
		t.Fatalf("expected 10 completed workers, got %d", len(res.Completed))
	}
	matched := 0
	for _, o := range res.Completed {
		if o.Range.Start == 0 {
			if !o.Matched || o.MatchOffset != 5 {
				t.Errorf("first range should match at 5, got %+v", o)
			}
			if o.BytesScanned >= o.Range.Len() {
				t.Errorf("matching worker scanned %d of %d bytes", o.BytesScanned, o.Range.Len())
			}
		}
		if o.Matched {
			matched++
		}
	}
	if matched != 1 {
		t.Errorf("expected exactly one matching worker, got %d", matched)
	}
}

// TestRun_SharedDeadlineBoundsRunTime compares both policies with workers
// that never finish.
func TestRun_SharedDeadlineBoundsRunTime(t *testing.T) {
	t.Parallel()
	const timeout = 100 * time.Millisecond
	run := func(policy DeadlinePolicy) time.Duration {
		src := &gatedSource{data: make([]byte, 300), all: make(chan struct{})}
		defer close(src.all)
		c := NewCoordinator(Config{Workers: 3, Timeout: timeout, Deadline: policy})
		start := time.Now()
		res, err := c.Run(context.Background(), src, regexp.MustCompile("x"))
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(res.Terminated) != 3 {
			t.Fatalf("%v: expected 3 terminated, got %v", policy, res.Terminated)
		}
		return time.Since(start)
	}

	if d := run(PerWorkerDeadline); d < 3*timeout {
		t.Errorf("per-worker policy returned after %v, want >= %v", d, 3*timeout)
	}
	if d := run(SharedDeadline); d >= 3*timeout {
		t.Errorf("shared policy returned after %v, want < %v", d, 3*timeout)
	}
}

// TestRun_LateFinisherStillCounts mirrors join-then-terminate semantics: a
// worker that misses its own join window but finishes while a later worker
// is being joined keeps its outcome.
func TestRun_LateFinisherStillCounts(t *testing.T) {
	t.Parallel()
	const timeout = 300 * time.Millisecond
	late := make(chan struct{})
	src := &gatedSource{
		data: make([]byte, 20),
		gates: map[int64]chan struct{}{
			0:  late,
			10: make(chan struct{}), // never opens
		},
	}
	// Opens after worker 0's window, well inside worker 1's.
	timer := time.AfterFunc(timeout+timeout/2, func() { close(late) })
	defer timer.Stop()

	c := NewCoordinator(Config{Workers: 2, Timeout: timeout})
	res, err := c.Run(context.Background(), src, regexp.MustCompile("x"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Completed) != 1 || res.Completed[0].Range.Start != 0 {
		t.Errorf("expected the late range to complete, got %+v", res.Completed)
	}
	if len(res.Terminated) != 1 {
		t.Errorf("expected one terminated worker, got %v", res.Terminated)
	}
	assertEachIDOnce(t, res)
}

// TestRun_ContextCancellation verifies that canceling the parent context
// stops the join early and reports the interruption.
func TestRun_ContextCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	src := &gatedSource{data: make([]byte, 100), all: make(chan struct{})}
	defer close(src.all)
	c := NewCoordinator(Config{Workers: 4, Timeout: time.Minute})

	done := make(chan struct{})
	var res *RunResult
	var err error
	go func() {
		defer close(done)
		res, err = c.Run(ctx, src, regexp.MustCompile("x"))
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("DEADLOCK after context cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if res == nil || len(res.Completed) != 0 {
		t.Fatalf("canceled workers must not report, got %+v", res)
	}
	assertEachIDOnce(t, res)
}

// TestRun_ContextCancellationAccountsForEveryWorker repeats the interruption
// so that workers returning on the canceled context before the terminate
// phase are exercised; each of them must still be recorded as terminated and
// reported to the observer.
func TestRun_ContextCancellationAccountsForEveryWorker(t *testing.T) {
	t.Parallel()
	for round := 0; round < 20; round++ {
		ctx, cancel := context.WithCancel(context.Background())
		src := &gatedSource{data: make([]byte, 100), all: make(chan struct{})}
		obs := &recordingObserver{}
		c := NewCoordinator(Config{Workers: 4, Timeout: time.Minute}, WithObserver(obs))

		time.AfterFunc(20*time.Millisecond, cancel)
		res, err := c.Run(ctx, src, regexp.MustCompile("x"))
		close(src.all)

		if !errors.Is(err, context.Canceled) {
			t.Fatalf("round %d: expected context.Canceled, got %v", round, err)
		}
		assertEachIDOnce(t, res)
		if len(res.Terminated) != 4 {
			t.Fatalf("round %d: expected 4 terminated workers, got %v", round, res.Terminated)
		}
		if got := obs.terminatedCount(); got != 4 {
			t.Fatalf("round %d: observer saw %d terminations, want 4", round, got)
		}
	}
}

// TestRun_NoDeadlockUnderRepeatedRuns stresses the publish/terminate race.
func TestRun_NoDeadlockUnderRepeatedRuns(t *testing.T) {
	t.Parallel()
	data := bytes.Repeat([]byte("ab"), 4096)
	for round := 0; round < 30; round++ {
		c := NewCoordinator(Config{Workers: 16, Timeout: time.Duration(round%3) * time.Millisecond, Seed: uint64(round + 1)})
		done := make(chan struct{})
		go func() {
			defer close(done)
			res, err := c.Run(context.Background(), stream.NewBytesSource("mem", data), regexp.MustCompile("zz"))
			if err != nil {
				t.Errorf("round %d: %v", round, err)
				return
			}
			assertEachIDOnce(t, res)
		}()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Fatalf("DEADLOCK in round %d", round)
		}
	}
}

var _ io.Closer = (*gatedStream)(nil)
