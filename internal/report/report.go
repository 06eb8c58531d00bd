// Package report renders an entity's learned patterns, internal insights,
// and forecast into a markdown document and its HTML form.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"factorlens/domain/core"
	"factorlens/domain/correlation"
	"factorlens/domain/insight"
)

// Input bundles everything one report covers. Nil sections are omitted.
type Input struct {
	EntityID     core.EntityID
	Correlations []*correlation.Correlation
	Patterns     *insight.PatternSet
	Forecast     *insight.ForecastResult
	GeneratedAt  time.Time
}

// Markdown renders the report as a markdown document.
func Markdown(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Factor Report: %s\n\n", in.EntityID)
	fmt.Fprintf(&b, "Generated %s\n\n", in.GeneratedAt.Format("2006-01-02 15:04 MST"))

	writeCorrelations(&b, in.Correlations)
	if in.Patterns != nil {
		writePatterns(&b, in.Patterns)
	}
	if in.Forecast != nil {
		writeForecast(&b, in.Forecast)
	}
	return b.String()
}

// HTML renders the report as a standalone HTML fragment.
func HTML(in Input) []byte {
	md := []byte(Markdown(in))
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse(md)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.Render(doc, renderer)
}

func writeCorrelations(b *strings.Builder, correlations []*correlation.Correlation) {
	b.WriteString("## Learned Factor Patterns\n\n")
	if len(correlations) == 0 {
		b.WriteString("No factor patterns have been learned yet.\n\n")
		return
	}
	b.WriteString("| Factor | Impact | Strength | Confidence | Accuracy | Samples |\n")
	b.WriteString("|--------|--------|----------|------------|----------|---------|\n")
	for _, c := range correlations {
		accuracy := "untested"
		if c.Trials() > 0 {
			accuracy = fmt.Sprintf("%.0f%% (%d trials)", c.AccuracyPct, c.Trials())
		}
		fmt.Fprintf(b, "| %s | %+.1f%% | %s | %.0f | %s | %d |\n",
			c.FactorShape, c.OutcomeChangePct, c.Strength(), c.Confidence, accuracy, c.SampleSize)
	}
	b.WriteString("\n")
	for _, c := range correlations {
		if c.Recommendation != "" {
			fmt.Fprintf(b, "- **%s**: %s\n", c.FactorShape, c.Recommendation)
		}
	}
	b.WriteString("\n")
}

func writePatterns(b *strings.Builder, p *insight.PatternSet) {
	b.WriteString("## Internal Patterns\n\n")
	fmt.Fprintf(b, "Period %s to %s.\n\n",
		p.PeriodStart.Format(core.DateLayout), p.PeriodEnd.Format(core.DateLayout))

	if len(p.Temporal) > 0 {
		b.WriteString("### Timing\n\n")
		for _, t := range p.Temporal {
			label := ""
			if t.Weekday != nil {
				label = t.Weekday.String()
			} else if t.Hour != nil {
				label = fmt.Sprintf("%02d:00", *t.Hour)
			}
			fmt.Fprintf(b, "- %s runs %+.1f%% vs mean (avg $%.0f). %s\n",
				label, t.DeviationPct, t.AvgRevenue, t.Recommendation)
		}
		b.WriteString("\n")
	}

	if len(p.Employees) > 0 {
		b.WriteString("### Staff\n\n")
		b.WriteString("| Employee | Rating | Rev/Shift | Avg Ticket | Shifts |\n")
		b.WriteString("|----------|--------|-----------|------------|--------|\n")
		for _, e := range p.Employees {
			rating := strings.Repeat("★", e.Rating)
			if e.Rating == 0 {
				rating = "n/a"
			}
			fmt.Fprintf(b, "| %s | %s | $%.0f | $%.2f | %d |\n",
				e.EmployeeID, rating, e.RevenuePerShift, e.AvgTicket, e.Shifts)
		}
		b.WriteString("\n")
	}

	if len(p.Menu) > 0 {
		b.WriteString("### Menu\n\n")
		for _, m := range p.Menu {
			fmt.Fprintf(b, "- %s: %s. %s\n", m.Kind, strings.Join(m.Items, " + "), m.Recommendation)
		}
		b.WriteString("\n")
	}

	if p.Customers != nil {
		b.WriteString("### Customers\n\n")
		fmt.Fprintf(b, "%d returning of %d identified (%.0f%%), %.1f visits per customer. %s\n\n",
			p.Customers.ReturningCustomers,
			p.Customers.NewCustomers+p.Customers.ReturningCustomers,
			p.Customers.ReturningSharePct, p.Customers.AvgVisitsPerCust,
			p.Customers.Recommendation)
	}

	if p.Velocity != nil {
		b.WriteString("### Momentum\n\n")
		fmt.Fprintf(b, "Revenue is **%s** (%+.1f%% vs prior period). Projected next period: $%.0f.\n\n",
			p.Velocity.Classification, p.Velocity.TrailingChangePct, p.Velocity.NextPeriodProjected)
		for _, ins := range p.Velocity.Insights {
			fmt.Fprintf(b, "- %s\n", ins)
		}
		b.WriteString("\n")
	}
}

func writeForecast(b *strings.Builder, f *insight.ForecastResult) {
	b.WriteString("## Forecast\n\n")
	fmt.Fprintf(b, "Target %s: **$%.0f** (range $%.0f to $%.0f, confidence %.0f).\n\n",
		f.TargetDate.Format(core.DateLayout), f.Mid, f.Low, f.High, f.Confidence)
	if f.BaselineOnly {
		b.WriteString("Baseline only: no learned patterns could be applied.\n\n")
	}
	for _, af := range f.AppliedFactors {
		fmt.Fprintf(b, "- %s: %+.1f%% ($%+.0f). %s\n",
			af.FactorShape, af.Adjustment, af.Contribution, af.Description)
	}
	if len(f.AppliedFactors) > 0 {
		b.WriteString("\n")
	}
	for _, rec := range f.Recommendations {
		fmt.Fprintf(b, "> %s\n", rec)
	}
	if len(f.Recommendations) > 0 {
		b.WriteString("\n")
	}
}
