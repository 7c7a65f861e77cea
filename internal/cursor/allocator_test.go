package cursor

import (
	"errors"
	"sort"
	"sync"
	"testing"

	apperrors "github.com/agbru/mpsearch/internal/errors"
)

func TestChunkSize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		total   int64
		workers int
		want    int64
	}{
		{1000, 10, 100},
		{1001, 10, 101},
		{5, 10, 1},
		{1, 1, 1},
		{0, 10, 0},
		{10, 0, 0},
	}
	for _, tt := range tests {
		if got := ChunkSize(tt.total, tt.workers); got != tt.want {
			t.Errorf("ChunkSize(%d, %d) = %d, want %d", tt.total, tt.workers, got, tt.want)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	var valErr apperrors.ValidationError
	if _, err := New(100, 0); !errors.As(err, &valErr) {
		t.Errorf("zero workers: expected ValidationError, got %v", err)
	}
	if _, err := New(-1, 2); !errors.As(err, &valErr) {
		t.Errorf("negative size: expected ValidationError, got %v", err)
	}
}

func TestClaim_SequentialPartition(t *testing.T) {
	t.Parallel()
	a, err := New(1000, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 10; i++ {
		r, err := a.Claim(i)
		if err != nil {
			t.Fatalf("Claim(%d): %v", i, err)
		}
		want := Range{Start: int64(i) * 100, End: int64(i+1) * 100}
		if r != want {
			t.Errorf("Claim(%d) = %v, want %v", i, r, want)
		}
	}
	if hwm := a.HighWaterMark(); hwm != 1000 {
		t.Errorf("HighWaterMark = %d, want 1000", hwm)
	}
}

func TestClaim_LastRangeIsShorter(t *testing.T) {
	t.Parallel()
	a, _ := New(95, 10)
	var last Range
	for i := 0; i < 10; i++ {
		r, _ := a.Claim(i)
		if !r.Empty() {
			last = r
		}
	}
	if last.End != 95 {
		t.Errorf("last non-empty range ends at %d, want 95", last.End)
	}
	if last.Len() != 5 {
		t.Errorf("last non-empty range length = %d, want 5", last.Len())
	}
}

func TestClaim_EmptyRangeWhenExhausted(t *testing.T) {
	t.Parallel()
	// ceil(3/10) = 1 so only three workers get bytes.
	a, _ := New(3, 10)
	empty := 0
	for i := 0; i < 10; i++ {
		r, err := a.Claim(i)
		if err != nil {
			t.Fatalf("Claim(%d): %v", i, err)
		}
		if r.Empty() {
			empty++
			if r.Start != 3 || r.End != 3 {
				t.Errorf("empty range should be [3, 3), got %v", r)
			}
		}
	}
	if empty != 7 {
		t.Errorf("expected 7 empty ranges, got %d", empty)
	}
}

func TestClaim_OutOfRangeWorker(t *testing.T) {
	t.Parallel()
	a, _ := New(10, 2)
	for _, id := range []int{-1, 2, 100} {
		var valErr apperrors.ValidationError
		if _, err := a.Claim(id); !errors.As(err, &valErr) {
			t.Errorf("Claim(%d): expected ValidationError, got %v", id, err)
		}
	}
}

func TestClaim_ConcurrentDisjointCover(t *testing.T) {
	t.Parallel()
	for round := 0; round < 50; round++ {
		const workers = 32
		a, _ := New(10_007, workers)

		ranges := make([]Range, workers)
		barrier := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(workers)
		for i := 0; i < workers; i++ {
			go func(id int) {
				defer wg.Done()
				<-barrier
				r, err := a.Claim(id)
				if err != nil {
					t.Errorf("Claim(%d): %v", id, err)
				}
				ranges[id] = r
			}(i)
		}
		close(barrier)
		wg.Wait()

		if err := checkPartition(ranges, 10_007); err != "" {
			t.Fatalf("round %d: %s", round, err)
		}
	}
}

func TestSlots_ReturnsCopy(t *testing.T) {
	t.Parallel()
	a, _ := New(100, 2)
	_, _ = a.Claim(1)
	slots := a.Slots()
	slots[1] = 0
	if a.Slots()[1] != 50 {
		t.Error("Slots must not expose internal state")
	}
}

// checkPartition returns a description of the first violation, or "".
func checkPartition(ranges []Range, total int64) string {
	nonEmpty := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if r.Start > r.End {
			return "range with start after end: " + r.String()
		}
		if r.End > total {
			return "range overruns stream: " + r.String()
		}
		if !r.Empty() {
			nonEmpty = append(nonEmpty, r)
		}
	}
	sort.Slice(nonEmpty, func(i, j int) bool { return nonEmpty[i].Start < nonEmpty[j].Start })
	var next int64
	for _, r := range nonEmpty {
		if r.Start != next {
			return "gap or overlap before " + r.String()
		}
		next = r.End
	}
	if next != total {
		return "ranges do not cover the stream"
	}
	return ""
}
