package excel

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"defecteval/domain/core"
	"defecteval/domain/dataset"
	"defecteval/internal"
	"defecteval/internal/errors"
	"defecteval/internal/testkit"
	"defecteval/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func request(t *testing.T, path string, schema dataset.Schema) ports.LoadRequest {
	t.Helper()
	return ports.LoadRequest{
		Name:      "bookkeeper",
		Path:      path,
		Separator: ",",
		Schema:    schema,
		Labels:    dataset.DefaultLabelTokens(),
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func smallSchema(t *testing.T) dataset.Schema {
	t.Helper()
	schema, err := dataset.NewSchema([]string{"LOC numeric", "NR numeric", "Buggy {Yes,No}"})
	require.NoError(t, err)
	return schema
}

func TestLoad_DelimitedRoundTrip(t *testing.T) {
	gen := testkit.NewReleaseDataGenerator(testkit.ScenarioConfig())
	want := gen.Generate()

	var buf bytes.Buffer
	require.NoError(t, testkit.WriteDelimited(&buf, want, ",", dataset.DefaultLabelTokens()))
	path := writeFile(t, "bookkeeper.csv", buf.String()+"\n\n")

	got, err := NewDataReader(internal.NewNopLogger()).Load(context.Background(), request(t, path, gen.Schema()))
	require.NoError(t, err)

	assert.Equal(t, want.Len(), got.Len())
	assert.Equal(t, want.Instances, got.Instances)
	assert.Equal(t, 3, got.MaxRelease())
}

func TestLoad_RegexSeparator(t *testing.T) {
	path := writeFile(t, "data.txt", "Version ; File ; LOC ; NR ; Buggy\n1 ; A.java ; 10 ; 2 ; Yes\r\n1;B.java;3;1;No\n")
	req := request(t, path, smallSchema(t))
	req.Separator = `\s*;\s*`

	got, err := NewDataReader(nil).Load(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, []float64{10, 2}, got.Instances[0].Features)
	assert.Equal(t, dataset.LabelDefective, got.Instances[0].Label)
	assert.Equal(t, dataset.LabelClean, got.Instances[1].Label)
}

func TestLoad_ParseFailures(t *testing.T) {
	header := "Version,File,LOC,NR,Buggy\n"
	testCases := []struct {
		name string
		body string
	}{
		{"column count", "1,A.java,10,Yes\n"},
		{"release", "one,A.java,10,2,Yes\n"},
		{"feature", "1,A.java,ten,2,Yes\n"},
		{"label", "1,A.java,10,2,Maybe\n"},
		{"ordering starts above one", "2,A.java,10,2,Yes\n"},
		{"ordering decreases", "1,A.java,10,2,Yes\n2,B.java,1,1,No\n1,C.java,1,1,No\n"},
		{"ordering skips", "1,A.java,10,2,Yes\n3,B.java,1,1,No\n"},
		{"no rows", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, "data.csv", header+tc.body)
			_, err := NewDataReader(nil).Load(context.Background(), request(t, path, smallSchema(t)))
			require.Error(t, err)
			assert.Equal(t, errors.CodeParseFailure, errors.GetCode(err))
		})
	}
}

func TestLoad_OrderingErrorCarriesSentinel(t *testing.T) {
	path := writeFile(t, "data.csv", "h\n1,A,1,1,No\n3,B,1,1,Yes\n")
	_, err := NewDataReader(nil).Load(context.Background(), request(t, path, smallSchema(t)))
	assert.True(t, stderrors.Is(err, core.ErrReleaseOrdering))
}

func TestLoad_MissingFile(t *testing.T) {
	for _, name := range []string{"missing.csv", "missing.xlsx"} {
		_, err := NewDataReader(nil).Load(context.Background(),
			request(t, filepath.Join(t.TempDir(), name), smallSchema(t)))
		require.Error(t, err)
		assert.Equal(t, errors.CodeIOFailure, errors.GetCode(err), name)
	}
}

func TestLoad_Workbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookkeeper.xlsx")
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Version", "File Name", "LOC", "NR", "Buggy"},
		{1, "A.java", 10, 2, "Yes"},
		{1, "B.java", 3.5, 1, "No"},
		{2, "A.java", 12, 3, "No"},
	}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	got, err := NewDataReader(nil).Load(context.Background(), request(t, path, smallSchema(t)))
	require.NoError(t, err)
	require.Equal(t, 3, got.Len())
	assert.Equal(t, []float64{3.5, 1}, got.Instances[1].Features)
	assert.Equal(t, 2, got.Instances[2].Release)
	assert.Equal(t, []dataset.ReleaseCount{
		{Release: 1, Total: 2, Defective: 1},
		{Release: 2, Total: 1, Defective: 0},
	}, got.ReleaseCounts())
}

func TestLoad_CancelledContext(t *testing.T) {
	path := writeFile(t, "data.csv", strings.Repeat("1,A,1,1,No\n", 3))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDataReader(nil).Load(ctx, request(t, path, smallSchema(t)))
	assert.ErrorIs(t, err, context.Canceled)
}
