package report

import (
	"context"
	"fmt"
	"math"
	"strings"

	"defecteval/internal"
	"defecteval/internal/analysis"
	"defecteval/ports"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// SummarySink writes the per-treatment summary as <project>.summary.md and
// the rendered <project>.summary.html
type SummarySink struct {
	dir    string
	logger *internal.Logger
}

// NewSummarySink creates a sink writing into dir
func NewSummarySink(dir string, logger *internal.Logger) *SummarySink {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &SummarySink{dir: dir, logger: logger}
}

func (s *SummarySink) Name() string { return "markdown" }

func (s *SummarySink) Write(_ context.Context, report ports.RunReport) error {
	md := RenderMarkdown(report)

	f, path, err := createOutput(s.dir, report.Project, ".summary.md")
	if err != nil {
		return err
	}
	_, err = f.Write(md)
	if err = closeOutput(f, path, err); err != nil {
		return err
	}

	page := RenderHTML(report.Project, md)
	f, path, err = createOutput(s.dir, report.Project, ".summary.html")
	if err != nil {
		return err
	}
	_, err = f.Write(page)
	if err = closeOutput(f, path, err); err != nil {
		return err
	}

	s.logger.Info("[SummarySink] wrote summary for %s", report.Project)
	return nil
}

// RenderMarkdown builds the summary document of a run
func RenderMarkdown(report ports.RunReport) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s walk-forward summary\n\n", report.Project)

	if m := report.Manifest; m != nil {
		fmt.Fprintf(&b, "- Run: `%s`\n", m.RunID)
		fmt.Fprintf(&b, "- Records: %d of %d\n", m.RecordCount, m.ExpectedRecords)
		if m.FailedCells > 0 {
			fmt.Fprintf(&b, "- Failed cells: %d\n", m.FailedCells)
		}
		if len(m.SkippedReleases) > 0 {
			fmt.Fprintf(&b, "- Skipped releases: %v\n", m.SkippedReleases)
		}
		fmt.Fprintf(&b, "- Output hash: `%s`\n", m.OutputHash)
		b.WriteString("\n")
	}

	b.WriteString("| Feature selection | Balancing | Classifier | Releases | Precision | Recall | ROC Area | Kappa |\n")
	b.WriteString("|---|---|---|---:|---:|---:|---:|---:|\n")
	for _, row := range analysis.Summarize(report.Records) {
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %s | %s | %s | %s |\n",
			row.Selection, row.Balancing, row.Classifier, row.Releases,
			cell(row.Precision), cell(row.Recall), cell(row.ROCArea), cell(row.Kappa))
	}
	b.WriteString("\nEach score is shown as mean / median over the evaluated releases.\n")
	return []byte(b.String())
}

// RenderHTML converts a markdown document into a standalone page
func RenderHTML(title string, md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	r := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML(md, p, r)
}

func cell(m analysis.MetricSummary) string {
	if m.N == 0 || math.IsNaN(m.Mean) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f / %.3f", m.Mean, m.Median)
}

var _ ports.RecordSink = (*SummarySink)(nil)
