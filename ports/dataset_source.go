package ports

import (
	"context"

	"defecteval/domain/dataset"
)

// DatasetSource loads the complete multi-release dataset of a project
type DatasetSource interface {
	// Load parses every row, drops the identifier column and checks release
	// ordering. Missing files are IO failures; malformed rows are parse failures.
	Load(ctx context.Context, req LoadRequest) (*dataset.Dataset, error)
}

// LoadRequest describes one dataset file
type LoadRequest struct {
	Name      string
	Path      string
	Separator string // regular expression
	Schema    dataset.Schema
	Labels    dataset.LabelTokens
}
