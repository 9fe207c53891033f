package excel

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"defecteval/domain/core"
	"defecteval/domain/dataset"
	"defecteval/internal"
	"defecteval/internal/errors"
	"defecteval/ports"

	"github.com/xuri/excelize/v2"
)

// Fixed column positions of the metric extractor output
const (
	releaseColumn    = 0
	identifierColumn = 1
	firstFeature     = 2
)

// DataReader loads release datasets from delimited text or .xlsx files
type DataReader struct {
	logger *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and delimited files
func NewDataReader(logger *internal.Logger) *DataReader {
	return &DataReader{logger: logger}
}

// Load reads the file named in req. The header row is skipped, the identifier
// column is dropped and release ordering is checked.
func (r *DataReader) Load(ctx context.Context, req ports.LoadRequest) (*dataset.Dataset, error) {
	start := time.Now()

	var (
		rows [][]string
		err  error
	)
	if strings.ToLower(filepath.Ext(req.Path)) == ".xlsx" {
		rows, err = r.readExcelRows(req.Path)
	} else {
		rows, err = r.readDelimitedRows(ctx, req.Path, req.Separator)
	}
	if err != nil {
		return nil, err
	}
	r.logger.Debug("[DataReader] %s read in %v (%d rows)", req.Path, time.Since(start), len(rows))

	ds, err := r.processRows(req, rows)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", req.Path)
	}
	r.logger.Info("[DataReader] %s: %d instances over %d releases, %d features",
		req.Name, ds.Len(), ds.MaxRelease(), ds.Schema.Width())
	return ds, nil
}

// readExcelRows reads every row of the first sheet
func (r *DataReader) readExcelRows(path string) ([][]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.IOFailure(path, err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.ParseFailure(fmt.Sprintf("cannot open workbook %s", path), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ParseFailure(fmt.Sprintf("workbook %s has no sheets", path), nil)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.ParseFailure(fmt.Sprintf("cannot read sheet %q", sheets[0]), err)
	}
	return rows, nil
}

// readDelimitedRows splits each line on the separator pattern
func (r *DataReader) readDelimitedRows(ctx context.Context, path, separator string) ([][]string, error) {
	sep, err := regexp.Compile(separator)
	if err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("separator %q: %v", separator, err))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.IOFailure(path, err)
	}
	defer file.Close()

	var rows [][]string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if len(rows)%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		rows = append(rows, sep.Split(line, -1))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.IOFailure(path, err)
	}
	return rows, nil
}

// processRows converts raw rows into instances. Row numbers in errors are
// 1-based file lines.
func (r *DataReader) processRows(req ports.LoadRequest, rows [][]string) (*dataset.Dataset, error) {
	width := req.Schema.Width()
	wantColumns := firstFeature + width + 1

	var instances []dataset.Instance
	for i, row := range rows {
		if i == 0 || isBlank(row) {
			continue // header
		}
		line := i + 1
		if len(row) != wantColumns {
			return nil, errors.ParseFailure(
				fmt.Sprintf("line %d: expected %d columns, found %d", line, wantColumns, len(row)), nil)
		}

		release, err := strconv.Atoi(strings.TrimSpace(row[releaseColumn]))
		if err != nil {
			return nil, errors.ParseFailure(fmt.Sprintf("line %d: release %q is not an integer", line, row[releaseColumn]), err)
		}

		features := make([]float64, width)
		for j := 0; j < width; j++ {
			raw := strings.TrimSpace(row[firstFeature+j])
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, errors.ParseFailure(
					fmt.Sprintf("line %d: %s value %q is not numeric", line, req.Schema.Features[j].Name, raw), err)
			}
			features[j] = v
		}

		label, err := req.Labels.Parse(strings.TrimSpace(row[len(row)-1]))
		if err != nil {
			return nil, errors.ParseFailure(fmt.Sprintf("line %d", line), err)
		}

		instances = append(instances, dataset.Instance{Release: release, Features: features, Label: label})
	}

	if len(instances) == 0 {
		return nil, errors.ParseFailure("no data rows", core.ErrInsufficientData)
	}
	if err := dataset.ValidateReleaseOrdering(instances); err != nil {
		return nil, errors.ParseFailure("release column", err)
	}
	return dataset.New(req.Name, req.Schema, instances), nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

var _ ports.DatasetSource = (*DataReader)(nil)
