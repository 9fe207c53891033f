package report

import (
	"context"
	"encoding/json"

	"defecteval/internal"
	"defecteval/ports"
)

// ManifestSink writes <project>.manifest.json next to the results
type ManifestSink struct {
	dir    string
	logger *internal.Logger
}

// NewManifestSink creates a sink writing into dir
func NewManifestSink(dir string, logger *internal.Logger) *ManifestSink {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &ManifestSink{dir: dir, logger: logger}
}

func (s *ManifestSink) Name() string { return "manifest" }

func (s *ManifestSink) Write(_ context.Context, report ports.RunReport) error {
	if report.Manifest == nil {
		s.logger.Warn("[ManifestSink] no manifest for %s", report.Project)
		return nil
	}

	f, path, err := createOutput(s.dir, report.Project, ".manifest.json")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err = closeOutput(f, path, enc.Encode(report.Manifest)); err != nil {
		return err
	}

	s.logger.Debug("[ManifestSink] wrote %s (output %s)", path, report.Manifest.OutputHash)
	return nil
}

var _ ports.RecordSink = (*ManifestSink)(nil)
