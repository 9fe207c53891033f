package ports

import (
	"context"

	"defecteval/domain/evaluation"
	"defecteval/domain/run"
)

// RecordSink persists the ordered records of a completed run
type RecordSink interface {
	Name() string
	Write(ctx context.Context, report RunReport) error
}

// RunReport is everything a sink may render
type RunReport struct {
	Project  string
	Records  []evaluation.Record
	Manifest *run.RunManifest
}
