package report

import (
	"context"
	stderrors "errors"

	"defecteval/internal"
	"defecteval/internal/errors"
	"defecteval/ports"
)

// MultiSink fans a report out to every configured sink. Every sink is
// attempted; failures are joined.
type MultiSink struct {
	sinks  []ports.RecordSink
	logger *internal.Logger
}

// NewMultiSink creates a sink over sinks, skipping nils
func NewMultiSink(logger *internal.Logger, sinks ...ports.RecordSink) *MultiSink {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	m := &MultiSink{logger: logger}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *MultiSink) Name() string { return "multi" }

// Names lists the wrapped sinks
func (m *MultiSink) Names() []string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return names
}

func (m *MultiSink) Write(ctx context.Context, report ports.RunReport) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ctx, report); err != nil {
			m.logger.Error("[MultiSink] %s sink failed: %v", s.Name(), err)
			errs = append(errs, errors.Wrapf(err, "%s sink", s.Name()))
		}
	}
	return stderrors.Join(errs...)
}

var _ ports.RecordSink = (*MultiSink)(nil)
