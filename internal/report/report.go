// Package report turns the outcomes collected by a run into the persisted,
// line-oriented run report: one line per worker followed by a summary line
// holding the average cost per byte.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"

	apperrors "github.com/agbru/mpsearch/internal/errors"
	"github.com/agbru/mpsearch/internal/worker"
)

// Null is printed in place of an absent elapsed time or byte count.
const Null = "null"

// SummaryPrefix starts the trailing summary line.
const SummaryPrefix = "The average time spent per byte read in ms: "

// Line is one worker's row in the report.
type Line struct {
	WorkerID      int
	Measured      bool
	ElapsedMillis float64
	BytesScanned  int64
	Status        worker.Status
	Matched       bool
	MatchOffset   int64
}

// String renders "id elapsed_ms bytes status", with " match=<offset>"
// appended when the pattern was found.
func (l Line) String() string {
	elapsed, scanned := Null, Null
	if l.Measured {
		elapsed = strconv.FormatFloat(l.ElapsedMillis, 'f', 3, 64)
		scanned = strconv.FormatInt(l.BytesScanned, 10)
	}
	s := fmt.Sprintf("%d %s %s %s", l.WorkerID, elapsed, scanned, l.Status)
	if l.Matched {
		s += fmt.Sprintf(" match=%d", l.MatchOffset)
	}
	return s
}

// Report is the immutable result of Build.
type Report struct {
	lines        []Line
	workers      int
	totalMillis  float64
	totalBytes   int64
	completed    int
	average      float64
	averageError error
}

// Build classifies outcomes into report lines. Completed outcomes come first,
// longest elapsed time first (ties by worker id); failed outcomes follow in
// worker order; every id in [0, numWorkers) without an outcome gets a
// synthetic TIMEOUT line. An id outside the range or reported twice is an
// error.
func Build(completed, failed []worker.Outcome, numWorkers int) (*Report, error) {
	if numWorkers < 0 {
		return nil, apperrors.ValidationError{Field: "workers", Message: "must not be negative"}
	}
	seen := roaring.New()
	claim := func(id int) error {
		if id < 0 || id >= numWorkers {
			return apperrors.ValidationError{Field: "workerID", Message: fmt.Sprintf("%d is outside [0, %d)", id, numWorkers)}
		}
		if !seen.CheckedAdd(uint32(id)) {
			return apperrors.ValidationError{Field: "workerID", Message: fmt.Sprintf("worker %d reported more than once", id)}
		}
		return nil
	}

	done := make([]worker.Outcome, len(completed))
	copy(done, completed)
	sort.SliceStable(done, func(i, j int) bool {
		if done[i].Elapsed != done[j].Elapsed {
			return done[i].Elapsed > done[j].Elapsed
		}
		return done[i].WorkerID < done[j].WorkerID
	})
	fails := make([]worker.Outcome, len(failed))
	copy(fails, failed)
	sort.SliceStable(fails, func(i, j int) bool { return fails[i].WorkerID < fails[j].WorkerID })

	r := &Report{workers: numWorkers, lines: make([]Line, 0, numWorkers)}
	for _, o := range done {
		if err := claim(o.WorkerID); err != nil {
			return nil, err
		}
		line := Line{
			WorkerID:      o.WorkerID,
			Measured:      true,
			ElapsedMillis: o.ElapsedMillis(),
			BytesScanned:  o.BytesScanned,
			Status:        o.Status,
			Matched:       o.Matched,
			MatchOffset:   o.MatchOffset,
		}
		r.lines = append(r.lines, line)
		r.totalMillis += line.ElapsedMillis
		r.totalBytes += line.BytesScanned
		r.completed++
	}
	for _, o := range fails {
		if err := claim(o.WorkerID); err != nil {
			return nil, err
		}
		r.lines = append(r.lines, Line{WorkerID: o.WorkerID, Status: worker.StatusFailure})
	}
	for id := 0; id < numWorkers; id++ {
		if !seen.Contains(uint32(id)) {
			r.lines = append(r.lines, Line{WorkerID: id, Status: worker.StatusTimeout})
		}
	}

	if r.totalBytes == 0 {
		r.averageError = apperrors.DegenerateAverageError{CompletedWorkers: r.completed, TotalBytes: r.totalBytes}
	} else {
		r.average = r.totalMillis / float64(r.totalBytes)
	}
	return r, nil
}

// Lines returns a copy of the report lines in output order.
func (r *Report) Lines() []Line {
	out := make([]Line, len(r.lines))
	copy(out, r.lines)
	return out
}

// Workers returns the pool size the report covers.
func (r *Report) Workers() int { return r.workers }

// TotalBytes returns the bytes scanned by completed workers.
func (r *Report) TotalBytes() int64 { return r.totalBytes }

// TotalElapsedMillis returns the summed elapsed time of completed workers.
func (r *Report) TotalElapsedMillis() float64 { return r.totalMillis }

// AverageTimePerByte returns milliseconds per scanned byte, or a
// DegenerateAverageError when no bytes were scanned.
func (r *Report) AverageTimePerByte() (float64, error) {
	return r.average, r.averageError
}

// Counts returns how many lines carry each status.
func (r *Report) Counts() map[worker.Status]int {
	counts := make(map[worker.Status]int, 3)
	for _, l := range r.lines {
		counts[l.Status]++
	}
	return counts
}

// SummaryLine renders the trailing average line.
func (r *Report) SummaryLine() string {
	if r.averageError != nil {
		return SummaryPrefix + "undefined (no bytes scanned)"
	}
	return SummaryPrefix + strconv.FormatFloat(r.average, 'g', 6, 64)
}

// WriteTo writes every line followed by the summary line.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	for _, l := range r.lines {
		buf.WriteString(l.String())
		buf.WriteByte('\n')
	}
	buf.WriteString(r.SummaryLine())
	buf.WriteByte('\n')
	return buf.WriteTo(w)
}

// String returns the full report text.
func (r *Report) String() string {
	var buf bytes.Buffer
	_, _ = r.WriteTo(&buf)
	return buf.String()
}

// WriteFile persists the report to path, creating parent directories and
// truncating any previous report.
func WriteFile(path string, r *Report) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if _, err := r.WriteTo(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return file.Close()
}
