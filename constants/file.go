package constants

import "strings"

// DocumentFormat is the coarse format of an uploaded document.
type DocumentFormat string

const (
	PDF   DocumentFormat = "PDF"
	IMAGE DocumentFormat = "IMAGE"
	TXT   DocumentFormat = "TXT"
)

// AllowedDocumentExtensions holds the document extensions accepted for extraction.
var AllowedDocumentExtensions = map[string]DocumentFormat{
	"pdf":  PDF,
	"jpg":  IMAGE,
	"jpeg": IMAGE,
	"png":  IMAGE,
	"txt":  TXT,
}

// AllowedSchemaExtensions holds the workbook extensions accepted as a schema source.
var AllowedSchemaExtensions = map[string]struct{}{
	"xlsx": {},
	"xlsm": {},
}

const (
	MIMEPDF  = "application/pdf"
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMEText = "text/plain"

	// ProcessedSuffix is appended to the source workbook basename on export.
	ProcessedSuffix = "_processed"
	// DefaultExportName is used when no source workbook name is known.
	DefaultExportName = "processed_file.xlsx"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the document format for an extension, or "" when unsupported.
func MapExtToFormat(ext string) DocumentFormat {
	return AllowedDocumentExtensions[NormalizeExt(ext)]
}

// MIMEForFormat returns the content type sent to extraction services.
func MIMEForFormat(f DocumentFormat, ext string) string {
	switch f {
	case PDF:
		return MIMEPDF
	case TXT:
		return MIMEText
	case IMAGE:
		if NormalizeExt(ext) == "png" {
			return "image/png"
		}
		return "image/jpeg"
	}
	return "application/octet-stream"
}
