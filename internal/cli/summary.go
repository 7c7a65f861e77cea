// Package cli renders the interactive console output of a search: a spinner
// while workers run and a coloured summary afterwards. The persisted report
// is written by package report; nothing here is parsed by other tools.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/agbru/mpsearch/internal/format"
	"github.com/agbru/mpsearch/internal/orchestration"
	"github.com/agbru/mpsearch/internal/report"
	"github.com/agbru/mpsearch/internal/ui"
	"github.com/agbru/mpsearch/internal/worker"
)

// PrintSummary writes a short human-readable digest of a run to out.
// reportPath may be empty when the report was not persisted.
func PrintSummary(out io.Writer, res *orchestration.RunResult, rep *report.Report, reportPath string) {
	st := ui.StylesFor(ui.GetCurrentTheme())
	label := func(s string) string { return st.Label.Render(fmt.Sprintf("%-10s", s)) }

	fmt.Fprintf(out, "\n%s\n", st.Title.Render("--- Search Summary ---"))
	fmt.Fprintf(out, "%s %s (%s, %d workers, chunk %s)\n", label("Source"),
		res.Source, format.FormatBytes(res.TotalBytes), res.Workers, format.FormatBytes(res.ChunkSize))

	counts := rep.Counts()
	statuses := []struct {
		status worker.Status
		style  func(...string) string
	}{
		{worker.StatusSuccess, st.Success.Render},
		{worker.StatusFailure, st.Error.Render},
		{worker.StatusTimeout, st.Warning.Render},
	}
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		parts = append(parts, s.style(fmt.Sprintf("%d %s", counts[s.status], s.status)))
	}
	fmt.Fprintf(out, "%s %s\n", label("Outcomes"), strings.Join(parts, "  "))

	fmt.Fprintf(out, "%s %s\n", label("Matches"), describeMatches(rep.Lines()))
	fmt.Fprintf(out, "%s %s (%s)\n", label("Elapsed"),
		format.FormatExecutionDuration(res.Elapsed), format.FormatThroughput(rep.TotalBytes(), res.Elapsed))

	if avg, err := rep.AverageTimePerByte(); err != nil {
		fmt.Fprintf(out, "%s %s\n", label("Average"), st.Warning.Render("undefined (no bytes scanned)"))
	} else {
		fmt.Fprintf(out, "%s %.6g ms/byte\n", label("Average"), avg)
	}
	if reportPath != "" {
		fmt.Fprintf(out, "%s %s\n", label("Report"), st.Dim.Render(reportPath))
	}
}

// describeMatches lists matches in report order, at most three.
func describeMatches(lines []report.Line) string {
	var offsets []string
	for _, l := range lines {
		if l.Matched {
			offsets = append(offsets, fmt.Sprintf("worker %d at offset %d", l.WorkerID, l.MatchOffset))
		}
	}
	switch {
	case len(offsets) == 0:
		return "none"
	case len(offsets) > 3:
		return fmt.Sprintf("%s and %d more", strings.Join(offsets[:3], ", "), len(offsets)-3)
	}
	return strings.Join(offsets, ", ")
}
