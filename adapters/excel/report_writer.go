package excel

import (
	"context"
	"math"
	"os"
	"path/filepath"

	"defecteval/domain/evaluation"
	"defecteval/internal"
	"defecteval/internal/analysis"
	"defecteval/internal/errors"
	"defecteval/ports"

	"github.com/xuri/excelize/v2"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

// ReportWriter writes <project>.xlsx with a results sheet in record order
// and a per-treatment summary sheet
type ReportWriter struct {
	dir    string
	logger *internal.Logger
}

// NewReportWriter creates a writer saving into dir
func NewReportWriter(dir string, logger *internal.Logger) *ReportWriter {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &ReportWriter{dir: dir, logger: logger}
}

func (w *ReportWriter) Name() string { return "xlsx" }

func (w *ReportWriter) Write(ctx context.Context, report ports.RunReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return errors.Wrap(err, "prepare workbook")
	}
	if err := writeRow(f, resultsSheet, 1, toValues(evaluation.RecordHeader)); err != nil {
		return err
	}
	for i, r := range report.Records {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := writeRow(f, resultsSheet, i+2, recordValues(r)); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return errors.Wrap(err, "add summary sheet")
	}
	if err := writeSummary(f, analysis.Summarize(report.Records)); err != nil {
		return err
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return errors.IOFailure(w.dir, err)
	}
	path := filepath.Join(w.dir, report.Project+".xlsx")
	if err := f.SaveAs(path); err != nil {
		return errors.IOFailure(path, err)
	}

	w.logger.Info("[ReportWriter] wrote %d records to %s", len(report.Records), path)
	return nil
}

// recordValues keeps counts and ratios numeric so the sheet can be charted
func recordValues(r evaluation.Record) []interface{} {
	m := r.Metrics
	return []interface{}{
		r.Dataset, r.TrainingRelease,
		number(r.TrainingFraction), number(r.TrainDefectRate), number(r.TestDefectRate),
		r.Classifier.String(), r.Balancing.String(), r.FeatureSelection.String(),
		m.TruePositive, m.FalsePositive, m.TrueNegative, m.FalseNegative,
		number(m.Precision), number(m.Recall), number(m.ROCArea), number(m.Kappa),
	}
}

func writeSummary(f *excelize.File, rows []analysis.TreatmentSummary) error {
	header := []string{"Feature selection", "Balancing", "Classifier", "Releases",
		"Precision mean", "Precision median", "Recall mean", "Recall median",
		"ROC Area mean", "ROC Area median", "Kappa mean", "Kappa median"}
	if err := writeRow(f, summarySheet, 1, toValues(header)); err != nil {
		return err
	}
	for i, s := range rows {
		values := []interface{}{
			s.Selection.String(), s.Balancing.String(), s.Classifier.String(), s.Releases,
			number(s.Precision.Mean), number(s.Precision.Median),
			number(s.Recall.Mean), number(s.Recall.Median),
			number(s.ROCArea.Mean), number(s.ROCArea.Median),
			number(s.Kappa.Mean), number(s.Kappa.Median),
		}
		if err := writeRow(f, summarySheet, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for c, v := range values {
		cell, err := excelize.CoordinatesToCellName(c+1, row)
		if err != nil {
			return errors.Wrap(err, "cell name")
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return errors.Wrapf(err, "set %s!%s", sheet, cell)
		}
	}
	return nil
}

// number keeps NaN out of numeric cells
func number(v float64) interface{} {
	if math.IsNaN(v) {
		return "NaN"
	}
	return v
}

func toValues(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

var _ ports.RecordSink = (*ReportWriter)(nil)
