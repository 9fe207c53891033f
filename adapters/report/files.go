// Package report renders completed runs to files in the output directory
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"defecteval/internal/errors"
)

// createOutput opens <dir>/<project><suffix> for writing, creating dir
func createOutput(dir, project, suffix string) (*os.File, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", errors.IOFailure(dir, err)
	}
	path := filepath.Join(dir, project+suffix)
	f, err := os.Create(path)
	if err != nil {
		return nil, "", errors.IOFailure(path, err)
	}
	return f, path, nil
}

// closeOutput closes f, keeping the first error
func closeOutput(f *os.File, path string, err error) error {
	if cerr := f.Close(); cerr != nil && err == nil {
		return errors.IOFailure(path, cerr)
	}
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("write %s", path))
	}
	return nil
}
