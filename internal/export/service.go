package export

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docrows/constants"
	"github.com/joseph-ayodele/docrows/internal/common"
)

// SheetName is the worksheet that holds exported rows.
const SheetName = "Processed"

const (
	minColWidth = 12
	maxColWidth = 60
)

// Service serializes a {schema, rows} table into XLSX bytes.
type Service struct {
	sheet  string
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{sheet: SheetName, logger: logger}
}

// MIMEType is the content type of the produced artifact.
func (s *Service) MIMEType() string { return constants.MIMEXLSX }

// Extension is the file extension of the produced artifact, without the dot.
func (s *Service) Extension() string { return "xlsx" }

// Export writes the header row followed by rows. Every row must be as wide as columns.
func (s *Service) Export(ctx context.Context, columns []string, rows [][]string) ([]byte, error) {
	return s.ExportXLSX(ctx, columns, rows)
}

// ExportXLSX returns an XLSX workbook (as bytes) with one header row and one row per entry.
func (s *Service) ExportXLSX(ctx context.Context, columns []string, rows [][]string) ([]byte, error) {
	start := time.Now()
	if len(columns) == 0 {
		return nil, common.NewAppError("EXPORT_ERROR", "no columns to export", common.ErrExport)
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, common.NewAppError("EXPORT_ERROR", fmt.Sprintf("row %d", i+1),
				&common.SchemaMismatchError{Want: len(columns), Got: len(r)})
		}
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// Rename the default sheet so the workbook has exactly one.
	if err := f.SetSheetName(f.GetSheetName(0), s.sheet); err != nil {
		return nil, exportErr("rename sheet", err)
	}
	idx, _ := f.GetSheetIndex(s.sheet)
	f.SetActiveSheet(idx)

	widths := make([]int, len(columns))
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
		widths[i] = utf8.RuneCountInString(c)
	}
	if err := f.SetSheetRow(s.sheet, "A1", &header); err != nil {
		return nil, exportErr("write header", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = f.SetCellStyle(s.sheet, "A1", last, style)
	}

	for n, r := range rows {
		if n%500 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, exportErr("canceled", err)
			}
		}
		cells := make([]any, len(r))
		for i, v := range r {
			cells[i] = v
			if w := utf8.RuneCountInString(v); w > widths[i] {
				widths[i] = w
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, n+2)
		if err := f.SetSheetRow(s.sheet, cell, &cells); err != nil {
			return nil, exportErr(fmt.Sprintf("write row %d", n+1), err)
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(s.sheet, col, col, float64(clamp(w+2, minColWidth, maxColWidth)))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, exportErr("xlsx write", err)
	}

	s.logger.Info("export.xlsx.ok",
		"columns", len(columns),
		"rows", len(rows),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// SuggestedFilename derives "<basename>_processed.<ext>" from the source workbook name.
func SuggestedFilename(source, ext string) string {
	ext = constants.NormalizeExt(ext)
	if ext == "" {
		ext = "xlsx"
	}
	base := filepath.Base(strings.TrimSpace(source))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return strings.TrimSuffix(constants.DefaultExportName, ".xlsx") + "." + ext
	}
	return base + constants.ProcessedSuffix + "." + ext
}

func exportErr(msg string, err error) error {
	return common.NewAppError("EXPORT_ERROR", msg, fmt.Errorf("%w: %w", common.ErrExport, err))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
