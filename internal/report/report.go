// Package report renders final-size distributions and simulated ensembles as
// markdown and converts the result to HTML.
package report

import (
	"fmt"
	"strings"

	"reedfrost/domain/epidemic"
	"reedfrost/internal/profiling"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const (
	barWidth          = 40
	maxSampleRuns     = 10
	defaultReportName = "Reed-Frost final-size report"
)

// Report collects the pieces of one rendered page. Nil sections are skipped.
type Report struct {
	Title        string
	Distribution *epidemic.Distribution
	Ensemble     *epidemic.EnsembleRun
	// TotalVariation is the distance between Ensemble and Distribution, or a
	// negative value when no comparison was made.
	TotalVariation float64
}

// New creates an empty report
func New(title string) *Report {
	if title == "" {
		title = defaultReportName
	}
	return &Report{Title: title, TotalVariation: -1}
}

// Markdown renders the report as GitHub-flavoured markdown
func (r *Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Title)

	if r.Distribution != nil {
		r.writeDistribution(&b, *r.Distribution)
	}
	if r.Ensemble != nil {
		r.writeEnsemble(&b, r.Ensemble)
	}
	if r.Distribution == nil && r.Ensemble == nil {
		b.WriteString("_Nothing to report._\n")
	}
	return b.String()
}

// HTML renders the report markdown to an HTML fragment
func (r *Report) HTML() []byte {
	return ToHTML(r.Markdown())
}

// ToHTML converts markdown to HTML with tables and heading ids enabled
func ToHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return markdown.ToHTML([]byte(md), p, renderer)
}

func (r *Report) writeDistribution(b *strings.Builder, dist epidemic.Distribution) {
	params := dist.Params
	fmt.Fprintf(b, "## Final-size distribution\n\n")
	fmt.Fprintf(b, "Start: **%d** susceptible, **%d** infected, transmission probability **%g**.\n\n", params.S0, params.I0, params.P)

	mode := dist.Mode()
	fmt.Fprintf(b, "- Expected new infections: %.3f\n", dist.MeanFinalSize())
	fmt.Fprintf(b, "- Most likely total infected: %d (p = %.6f)\n", mode.TotalInfected, mode.Probability)
	fmt.Fprintf(b, "- Total probability mass: %.9f\n", dist.Total())
	if shape := profiling.NewDistributionAnalyzer().AnalyzeDistribution(dist); shape.Bimodal {
		fmt.Fprintf(b, "- Major outbreak (more than %d new infections): p = %.4f, peak at %d\n", shape.Threshold, shape.MajorProbability, shape.MajorMode)
	}
	b.WriteString("\n")

	b.WriteString("| Total infected | New infections | Escaped | Probability | |\n")
	b.WriteString("|---:|---:|---:|---:|:---|\n")
	for _, o := range dist.Outcomes {
		fmt.Fprintf(b, "| %d | %d | %d | %.6f | %s |\n", o.TotalInfected, o.FinalSize, o.SInf, o.Probability, bar(o.Probability, mode.Probability))
	}
	b.WriteString("\n")
}

func (r *Report) writeEnsemble(b *strings.Builder, run *epidemic.EnsembleRun) {
	fmt.Fprintf(b, "## Simulated ensemble\n\n")
	fmt.Fprintf(b, "Run `%s`: %d trajectories, seeds %d to %d, generator `%s`.\n\n",
		run.ID, run.Runs, epidemic.SeedFor(run.BaseSeed, 0), epidemic.SeedFor(run.BaseSeed, max(run.Runs-1, 0)), run.Algorithm)

	s := run.Summary
	b.WriteString("| Statistic | New infections |\n|---|---:|\n")
	fmt.Fprintf(b, "| Mean | %.3f |\n", s.Mean)
	fmt.Fprintf(b, "| Median | %.1f |\n", s.Median)
	fmt.Fprintf(b, "| Std. dev. | %.3f |\n", s.StdDev)
	fmt.Fprintf(b, "| 5th percentile | %.1f |\n", s.Percentile5)
	fmt.Fprintf(b, "| 95th percentile | %.1f |\n", s.Percentile95)
	fmt.Fprintf(b, "| Min | %.0f |\n", s.Min)
	fmt.Fprintf(b, "| Max | %.0f |\n\n", s.Max)

	if r.Distribution != nil && r.TotalVariation >= 0 {
		fmt.Fprintf(b, "Total-variation distance from the exact distribution: **%.4f**\n\n", r.TotalVariation)
		r.writeComparison(b, run, *r.Distribution)
	}

	n := min(len(run.Trajectories), maxSampleRuns)
	if n == 0 {
		return
	}
	fmt.Fprintf(b, "### Cumulative infections, first %d runs\n\n```\n", n)
	for k := 0; k < n; k++ {
		fmt.Fprintf(b, "seed %-6d %s\n", run.Seeds[k], joinCounts(cumulativeUntilExtinction(run.Trajectories[k])))
	}
	b.WriteString("```\n")
}

func (r *Report) writeComparison(b *strings.Builder, run *epidemic.EnsembleRun, dist epidemic.Distribution) {
	freq := run.Frequencies()
	b.WriteString("| New infections | Simulated | Exact |\n|---:|---:|---:|\n")
	for _, o := range dist.Outcomes {
		simulated := 0.0
		if int(o.FinalSize) < len(freq) {
			simulated = freq[o.FinalSize]
		}
		if simulated == 0 && o.Probability < 5e-4 {
			continue
		}
		fmt.Fprintf(b, "| %d | %.4f | %.4f |\n", o.FinalSize, simulated, o.Probability)
	}
	b.WriteString("\n")
}

func bar(p, peak float64) string {
	if peak <= 0 {
		return ""
	}
	return strings.Repeat("█", int(p/peak*barWidth+0.5))
}

func cumulativeUntilExtinction(t epidemic.Trajectory) []uint {
	return t.Cumulative()[:t.Generations()+1]
}

func joinCounts(counts []uint) string {
	parts := make([]string, len(counts))
	for k, c := range counts {
		parts[k] = fmt.Sprint(c)
	}
	return strings.Join(parts, " ")
}
