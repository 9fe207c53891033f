package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"defecteval/domain/evaluation"
	"defecteval/internal/errors"
)

// ReadRecords loads the records of a results file written by CSVSink
func ReadRecords(path string) ([]evaluation.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IOFailure(path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = Separator
	r.FieldsPerRecord = len(evaluation.RecordHeader)

	header, err := r.Read()
	if err != nil {
		return nil, errors.ParseFailure(fmt.Sprintf("%s: missing header", path), err)
	}
	if strings.Join(header, ";") != strings.Join(evaluation.RecordHeader, ";") {
		return nil, errors.ParseFailure(fmt.Sprintf("%s: unexpected header %q", path, strings.Join(header, ";")), nil)
	}

	var records []evaluation.Record
	for line := 2; ; line++ {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.ParseFailure(fmt.Sprintf("%s line %d", path, line), err)
		}
		rec, err := evaluation.ParseRecord(fields)
		if err != nil {
			return nil, errors.ParseFailure(fmt.Sprintf("%s line %d", path, line), err)
		}
		records = append(records, rec)
	}
	return records, nil
}
