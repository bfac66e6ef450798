// Package report renders a rundriver.Result as the plain-text diagnostic
// block spec.md §6 describes: before/after means and a fallback-level
// histogram, with human-readable magnitudes via go-humanize rather than
// raw floats.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/fieldforce/dispatchopt/internal/rundriver"
)

// Render produces the diagnostic report text for one date's run.
func Render(result rundriver.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "dispatch optimization report — %s (run %s)\n", result.Date.Format("2006-01-02"), result.RunID)
	if result.Partial {
		fmt.Fprintf(&b, "WARNING: run was aborted early; results are partial\n")
	}
	fmt.Fprintf(&b, "policy mode: %s\n\n", result.Diagnostics.PolicyMode)

	writeMetrics(&b, "before (baseline)", result.Diagnostics.Initial)
	writeMetrics(&b, "after (optimized)", result.Diagnostics.Optimized)

	fmt.Fprintf(&b, "\ndistance saved: %s\n", humanize.FtoaWithDigits(result.Diagnostics.DistanceSavedKM, 2)+" km")

	fmt.Fprintf(&b, "\nfallback-level histogram:\n")
	levels := make([]int, 0, len(result.Diagnostics.FallbackLevelHistogram))
	for l := range result.Diagnostics.FallbackLevelHistogram {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	for _, l := range levels {
		count := result.Diagnostics.FallbackLevelHistogram[l]
		label := fmt.Sprintf("L%d", l)
		if l == -1 {
			label = "unassigned"
		}
		fmt.Fprintf(&b, "  %-12s %s\n", label, humanize.Comma(int64(count)))
	}

	if len(result.Diagnostics.Warnings) > 0 {
		fmt.Fprintf(&b, "\ntraining warnings:\n")
		for _, w := range result.Diagnostics.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}

	return b.String()
}

func writeMetrics(b *strings.Builder, label string, m rundriver.Metrics) {
	fmt.Fprintf(b, "%s:\n", label)
	fmt.Fprintf(b, "  dispatches:        %s\n", humanize.Comma(int64(m.Total)))
	fmt.Fprintf(b, "  assigned:          %s (%.1f%%)\n", humanize.Comma(int64(m.Assigned)), m.AssignmentRate*100)
	fmt.Fprintf(b, "  mean success:      %.3f\n", m.MeanSuccess)
	fmt.Fprintf(b, "  mean distance:     %s km\n", humanize.FtoaWithDigits(m.MeanDistanceKM, 2))
	fmt.Fprintf(b, "  mean workload:     %.3f\n", m.MeanWorkloadRatio)
	fmt.Fprintf(b, "  mean overrun:      %s min\n", humanize.FtoaWithDigits(m.MeanOverrunMin, 1))
	fmt.Fprintf(b, "  mean dispatch grade: %.1f/100\n", m.MeanDispatchGrade)
}
