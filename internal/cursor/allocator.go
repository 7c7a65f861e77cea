// Package cursor hands out non-overlapping byte ranges of a stream to a fixed
// set of workers through a single mutually exclusive claim operation.
package cursor

import (
	"fmt"
	"sync"

	apperrors "github.com/agbru/mpsearch/internal/errors"
)

// Range is a half-open interval [Start, End) of stream offsets owned by one
// worker.
type Range struct {
	Start int64
	End   int64
}

// Len returns the number of bytes in the range.
func (r Range) Len() int64 { return r.End - r.Start }

// Empty reports whether the range holds no bytes.
func (r Range) Empty() bool { return r.End <= r.Start }

// String renders the range as "[start, end)".
func (r Range) String() string { return fmt.Sprintf("[%d, %d)", r.Start, r.End) }

// Allocator is the shared cursor state. Each worker owns one slot holding the
// end offset it claimed; the high-water mark is the maximum over all slots.
type Allocator struct {
	mu        sync.Mutex
	slots     []int64
	total     int64
	chunkSize int64
}

// ChunkSize returns ceil(totalBytes / numWorkers), the block handed to each
// claim.
func ChunkSize(totalBytes int64, numWorkers int) int64 {
	if numWorkers <= 0 || totalBytes <= 0 {
		return 0
	}
	n := int64(numWorkers)
	return (totalBytes + n - 1) / n
}

// New creates an Allocator for totalBytes split across numWorkers.
func New(totalBytes int64, numWorkers int) (*Allocator, error) {
	if numWorkers <= 0 {
		return nil, apperrors.ValidationError{Field: "workers", Message: "must be at least 1"}
	}
	if totalBytes < 0 {
		return nil, apperrors.ValidationError{Field: "totalBytes", Message: "must not be negative"}
	}
	return &Allocator{
		slots:     make([]int64, numWorkers),
		total:     totalBytes,
		chunkSize: ChunkSize(totalBytes, numWorkers),
	}, nil
}

// Claim assigns the next unclaimed range to workerID. The high-water mark is
// read, the new end computed and the caller's slot written under one lock.
// A range starting at the end of the stream is empty and means no work is
// left; it is not an error.
func (a *Allocator) Claim(workerID int) (Range, error) {
	if workerID < 0 || workerID >= len(a.slots) {
		return Range{}, apperrors.ValidationError{
			Field:   "workerID",
			Message: fmt.Sprintf("%d is outside [0, %d)", workerID, len(a.slots)),
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	start := a.highWaterMarkLocked()
	end := min(start+a.chunkSize, a.total)
	a.slots[workerID] = end
	return Range{Start: start, End: end}, nil
}

// HighWaterMark returns the largest end offset claimed so far.
func (a *Allocator) HighWaterMark() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.highWaterMarkLocked()
}

func (a *Allocator) highWaterMarkLocked() int64 {
	var hwm int64
	for _, end := range a.slots {
		hwm = max(hwm, end)
	}
	return hwm
}

// Slots returns a copy of the per-worker end offsets.
func (a *Allocator) Slots() []int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]int64, len(a.slots))
	copy(out, a.slots)
	return out
}

// TotalBytes returns the stream length the allocator partitions.
func (a *Allocator) TotalBytes() int64 { return a.total }

// ChunkSize returns the per-claim block size.
func (a *Allocator) ChunkSize() int64 { return a.chunkSize }

// Workers returns the number of slots.
func (a *Allocator) Workers() int { return len(a.slots) }
