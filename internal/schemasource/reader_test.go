package schemasource_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docrows/internal/common"
	"github.com/joseph-ayodele/docrows/internal/logging"
	"github.com/joseph-ayodele/docrows/internal/schemasource"
)

func workbook(t *testing.T, sheets map[string][][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, r := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			row := r
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadWorkbook(t *testing.T) {
	b := workbook(t, map[string][][]any{
		"CAO": {
			{" Name ", "WageIncrease", "PDF_Filename"},
			{"Acme CLA", "3%", "acme.pdf"},
			{"", "", ""},
			{"Beta CLA"},
		},
	})
	r := schemasource.NewReader(logging.NewNop())

	src, err := r.ReadWorkbook(context.Background(), bytes.NewReader(b), "overview.xlsx", "")
	require.NoError(t, err)

	assert.Equal(t, "overview.xlsx", src.Filename)
	assert.Equal(t, []string{"Name", "WageIncrease", "PDF_Filename"}, src.Columns)
	assert.Equal(t, [][]string{
		{"Acme CLA", "3%", "acme.pdf"},
		{"Beta CLA", "", ""},
	}, src.Rows)
}

func TestReadWorkbook_NamedSheet(t *testing.T) {
	b := workbook(t, map[string][][]any{"Only": {{"A"}, {"1"}}})
	r := schemasource.NewReader(logging.NewNop())

	src, err := r.ReadWorkbook(context.Background(), bytes.NewReader(b), "x.xlsx", "Only")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, src.Columns)

	_, err = r.ReadWorkbook(context.Background(), bytes.NewReader(b), "x.xlsx", "Missing")
	assert.ErrorIs(t, err, common.ErrUpload)
}

func TestReadWorkbook_Rejects(t *testing.T) {
	r := schemasource.NewReader(logging.NewNop())
	tests := []struct {
		name     string
		filename string
		rows     [][]any
	}{
		{name: "wrong extension", filename: "data.csv", rows: [][]any{{"A"}}},
		{name: "duplicate header", filename: "x.xlsx", rows: [][]any{{"A", "A"}}},
		{name: "blank header cell", filename: "x.xlsx", rows: [][]any{{"A", "", "C"}}},
		{name: "empty sheet", filename: "x.xlsx", rows: nil},
		{name: "row wider than header", filename: "x.xlsx", rows: [][]any{{"A"}, {"1", "2"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := workbook(t, map[string][][]any{"S": tt.rows})
			_, err := r.ReadWorkbook(context.Background(), bytes.NewReader(b), tt.filename, "")
			assert.ErrorIs(t, err, common.ErrUpload)
		})
	}
}

func TestReadWorkbook_Garbage(t *testing.T) {
	_, err := schemasource.NewReader(nil).ReadWorkbook(context.Background(), bytes.NewReader([]byte("not a zip")), "x.xlsx", "")
	assert.ErrorIs(t, err, common.ErrUpload)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.xlsx")
	require.NoError(t, os.WriteFile(path, workbook(t, map[string][][]any{"S": {{"A", "B"}}}), 0o600))

	src, err := schemasource.NewReader(nil).ReadFile(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, "schema.xlsx", src.Filename)
	assert.Equal(t, []string{"A", "B"}, src.Columns)
	assert.Empty(t, src.Rows)
}
