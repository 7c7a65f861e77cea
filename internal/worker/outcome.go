package worker

import (
	"time"

	"github.com/agbru/mpsearch/internal/cursor"
)

// Status is the terminal classification of a worker.
type Status int

const (
	// StatusSuccess means the worker completed its scan, whether or not the
	// pattern was found. See Outcome.Matched.
	StatusSuccess Status = iota + 1
	// StatusFailure means the worker could not scan: no work was left for
	// it or its stream failed.
	StatusFailure
	// StatusTimeout is never produced by a worker itself; the coordinator
	// assigns it to workers that were terminated.
	StatusTimeout
)

// String returns the upper-case report label.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailure:
		return "FAILURE"
	case StatusTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the single terminal report of one worker.
type Outcome struct {
	WorkerID int
	// Range is the claimed range; empty for workers that got no work.
	Range cursor.Range
	// Measured reports whether Elapsed and BytesScanned carry values. It is
	// false for FAILURE outcomes.
	Measured     bool
	Elapsed      time.Duration
	BytesScanned int64
	Status       Status
	// Matched is true when the pattern was found; MatchOffset is then the
	// absolute stream offset of the first match, otherwise -1.
	Matched     bool
	MatchOffset int64
	// Err explains a FAILURE.
	Err error
}

// ElapsedMillis returns Elapsed in fractional milliseconds.
func (o Outcome) ElapsedMillis() float64 {
	return float64(o.Elapsed) / float64(time.Millisecond)
}
