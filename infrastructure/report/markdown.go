// Package report renders comparison results into human-readable reports
// for PR comments and console summaries.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/ahrav/go-gauge/internal/domain"
	"github.com/ahrav/go-gauge/internal/ports"
)

var _ ports.ReportRenderer = (*MarkdownRenderer)(nil)

// MarkdownRenderer formats a comparison result list and gate verdict as a
// GitHub-flavored Markdown report: a verdict headline, one table with the
// per-metric comparison, and a footnote for informational entries.
//
// Rendering is pure formatting: identical input always produces an
// identical string, so the output is directly testable.
type MarkdownRenderer struct {
	thresholdPct float64
}

// NewMarkdownRenderer creates a renderer that annotates the report with
// the gate threshold used for classification.
func NewMarkdownRenderer(thresholdPct float64) *MarkdownRenderer {
	return &MarkdownRenderer{thresholdPct: thresholdPct}
}

// kindRank orders table rows: gating kinds first, then performance, then
// undeclared metrics.
func kindRank(kind domain.MetricKind) int {
	switch kind {
	case domain.KindQuality:
		return 0
	case domain.KindSafety:
		return 1
	case domain.KindPerformance:
		return 2
	default:
		return 3
	}
}

// Render produces the Markdown report body.
func (r *MarkdownRenderer) Render(deltas []domain.MetricDelta, verdict domain.Verdict) (string, error) {
	var sb strings.Builder

	sb.WriteString("## Agent Evaluation Report\n\n")
	r.writeHeadline(&sb, verdict)

	if len(deltas) == 0 {
		sb.WriteString("_No metrics to compare._\n")
		return sb.String(), nil
	}

	rows := make([]domain.MetricDelta, len(deltas))
	copy(rows, deltas)
	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := kindRank(rows[i].Kind), kindRank(rows[j].Kind)
		if ri != rj {
			return ri < rj
		}
		return rows[i].Name < rows[j].Name
	})

	table := newMarkdownTable([]string{"Metric", "Current", "Baseline", "Diff", "Diff %", "Status"}, &sb)
	for _, row := range rows {
		_ = table.Append([]string{
			row.Name,
			formatValue(row.Current),
			formatValue(row.Baseline),
			formatDiff(row.Diff),
			formatPct(row.DiffPct),
			row.Classification.Indicator(),
		})
	}
	if err := table.Render(); err != nil {
		return "", fmt.Errorf("render table: %w", err)
	}

	if informational := informationalNames(rows); len(informational) > 0 {
		sb.WriteString(fmt.Sprintf("\n_Informational (not gated): %s_\n", strings.Join(informational, ", ")))
	}

	return sb.String(), nil
}

func (r *MarkdownRenderer) writeHeadline(sb *strings.Builder, verdict domain.Verdict) {
	switch {
	case verdict.FirstRun:
		sb.WriteString("**Gate: ✅ passed** — first run, no baseline to compare against. ")
		sb.WriteString("All results below are informational; promote this run to establish the baseline.\n\n")
	case verdict.Passed:
		fmt.Fprintf(sb, "**Gate: ✅ passed** (threshold ±%.1f%%)\n\n", r.thresholdPct)
	default:
		fmt.Fprintf(sb, "**Gate: ❌ failed** (threshold ±%.1f%%) — degraded: %s\n\n",
			r.thresholdPct, strings.Join(verdict.FailedMetrics, ", "))
	}
}

// newMarkdownTable creates a table writer emitting GitHub-flavored
// Markdown rows with stable, left-aligned formatting.
func newMarkdownTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// formatValue renders a metric value: three decimals for small scores,
// whole numbers for large measurements, an em dash for a missing side.
func formatValue(v *float64) string {
	if v == nil {
		return "—"
	}
	if math.Abs(*v) < 100 {
		return fmt.Sprintf("%.3f", *v)
	}
	return fmt.Sprintf("%.0f", *v)
}

// formatDiff renders a signed difference, or an em dash when the metric
// was present on only one side.
func formatDiff(v *float64) string {
	if v == nil {
		return "—"
	}
	if math.Abs(*v) < 100 {
		return fmt.Sprintf("%+.3f", *v)
	}
	return fmt.Sprintf("%+.0f", *v)
}

// formatPct renders a signed percentage change. The zero-baseline
// sentinel (signed infinity) renders as "n/a" rather than a number.
func formatPct(v *float64) string {
	if v == nil {
		return "—"
	}
	if math.IsInf(*v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", *v)
}

func informationalNames(deltas []domain.MetricDelta) []string {
	var names []string
	for _, d := range deltas {
		if d.Informational {
			names = append(names, d.Name)
		}
	}
	sort.Strings(names)
	return names
}
