// Package format holds small helpers that render durations and byte counts
// for the console summary.
package format

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatExecutionDuration formats a duration for display: microseconds below
// a millisecond, whole milliseconds below a second, and the default
// representation otherwise.
func FormatExecutionDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	} else if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(time.Millisecond).String()
}

// FormatBytes renders n with a binary unit suffix (B, KiB, MiB, ...).
// Negative counts render as zero.
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// FormatThroughput renders bytes scanned over d as a per-second rate.
// A zero or negative duration yields "n/a".
func FormatThroughput(bytes int64, d time.Duration) string {
	if d <= 0 {
		return "n/a"
	}
	perSec := float64(bytes) / d.Seconds()
	return FormatBytes(int64(perSec)) + "/s"
}
