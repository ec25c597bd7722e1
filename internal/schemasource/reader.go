package schemasource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docrows/constants"
	"github.com/joseph-ayodele/docrows/internal/common"
	"github.com/joseph-ayodele/docrows/internal/entity"
)

// Reader loads schema sources from spreadsheet workbooks.
type Reader struct {
	logger *slog.Logger
}

func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// ReadFile opens path and reads it with ReadWorkbook.
func (r *Reader) ReadFile(ctx context.Context, path, sheet string) (entity.SchemaSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return entity.SchemaSource{}, common.UploadError("open workbook %q: %v", path, err)
	}
	defer f.Close()
	return r.ReadWorkbook(ctx, f, filepath.Base(path), sheet)
}

// ReadWorkbook reads one sheet (the first when sheet is empty). The first row is the
// header; blank rows are skipped, short rows are padded, wider rows are rejected.
func (r *Reader) ReadWorkbook(ctx context.Context, in io.Reader, filename, sheet string) (entity.SchemaSource, error) {
	if _, ok := constants.AllowedSchemaExtensions[constants.NormalizeExt(filepath.Ext(filename))]; !ok {
		return entity.SchemaSource{}, common.UploadError("unsupported schema file %q: expected .xlsx or .xlsm", filename)
	}

	f, err := excelize.OpenReader(in)
	if err != nil {
		return entity.SchemaSource{}, common.UploadError("read workbook %q: %v", filename, err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return entity.SchemaSource{}, common.UploadError("workbook %q has no sheets", filename)
		}
		sheet = sheets[0]
	}
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return entity.SchemaSource{}, common.UploadError("workbook %q has no sheet %q", filename, sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return entity.SchemaSource{}, common.UploadError("read sheet %q of %q: %v", sheet, filename, err)
	}
	if err := ctx.Err(); err != nil {
		return entity.SchemaSource{}, err
	}

	src := entity.SchemaSource{Filename: filename}
	headerAt := -1
	for i, row := range rows {
		if !blank(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return entity.SchemaSource{}, common.UploadError("sheet %q of %q has no header row", sheet, filename)
	}

	for _, c := range rows[headerAt] {
		src.Columns = append(src.Columns, strings.TrimSpace(c))
	}
	v := common.NewValidator().Field("columns", src.Columns, common.Required, common.UniqueStrings)
	if v.HasErrors() {
		return entity.SchemaSource{}, common.UploadError("invalid header in %q: %s", filename, v.ErrorMessage())
	}

	for i, row := range rows[headerAt+1:] {
		if blank(row) {
			continue
		}
		if len(row) > len(src.Columns) {
			return entity.SchemaSource{}, common.UploadError("row %d of %q has %d cells but the header has %d",
				headerAt+i+2, filename, len(row), len(src.Columns))
		}
		padded := make([]string, len(src.Columns))
		copy(padded, row)
		src.Rows = append(src.Rows, padded)
	}

	r.logger.Info("schemasource.read.ok",
		"filename", filename,
		"sheet", sheet,
		"columns", len(src.Columns),
		"rows", len(src.Rows),
	)
	return src, nil
}

// Sheets lists the sheet names of a workbook.
func (r *Reader) Sheets(in io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(in)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	defer func() { _ = f.Close() }()
	return f.GetSheetList(), nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
