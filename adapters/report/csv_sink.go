package report

import (
	"context"
	"encoding/csv"

	"defecteval/domain/evaluation"
	"defecteval/internal"
	"defecteval/internal/errors"
	"defecteval/ports"
)

// Separator is the column delimiter of the results file
const Separator = ';'

// CSVSink writes <project>.csv in record order
type CSVSink struct {
	dir    string
	logger *internal.Logger
}

// NewCSVSink creates a sink writing into dir
func NewCSVSink(dir string, logger *internal.Logger) *CSVSink {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &CSVSink{dir: dir, logger: logger}
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Write(ctx context.Context, report ports.RunReport) error {
	f, path, err := createOutput(s.dir, report.Project, ".csv")
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	w.Comma = Separator
	err = w.Write(evaluation.RecordHeader)
	for i := 0; err == nil && i < len(report.Records); i++ {
		if i%256 == 0 {
			err = ctx.Err()
		}
		if err == nil {
			err = w.Write(report.Records[i].Fields())
		}
	}
	if err == nil {
		w.Flush()
		if ferr := w.Error(); ferr != nil {
			err = errors.IOFailure(path, ferr)
		}
	}
	if err = closeOutput(f, path, err); err != nil {
		return err
	}

	s.logger.Info("[CSVSink] wrote %d records to %s", len(report.Records), path)
	return nil
}

var _ ports.RecordSink = (*CSVSink)(nil)
