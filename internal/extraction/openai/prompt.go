package openai

import (
	"encoding/base64"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/docrows/constants"
	"github.com/joseph-ayodele/docrows/internal/entity"
)

// BuildSystemPrompt composes the system message for extracting the requested columns.
func BuildSystemPrompt(columns []string) string {
	parts := []string{
		"You extract structured data from documents such as collective labour agreements, contracts and payslips.",
		"Return ONLY a JSON object that matches the provided JSON Schema.",
		"Use the requested column names as keys: " + strings.Join(quoteAll(columns), ", ") + ".",
		"When the document labels a value differently, you may also return it under the document's own label.",
		"Values are short strings copied or summarized from the document, in the document's language.",
		"Use ISO-8601 dates (YYYY-MM-DD) where a single date is meant.",
		"Ignore worked examples, hypothetical calculations and conditional amounts; only report definitive values.",
		"When a value differs per year, put the year in the value (e.g. \"2025: 3.5%\").",
		"Never output null. If a column is not present in the document, omit the key.",
	}
	return strings.Join(parts, " ")
}

// BuildUserContent returns the user message parts: instructions plus the document, attached
// as a file (PDF), an image, or inline text.
func BuildUserContent(doc entity.Document, maxTextRunes int) []map[string]any {
	var b strings.Builder
	b.WriteString("Filename: ")
	b.WriteString(strings.TrimSpace(doc.Name))
	b.WriteString("\n")
	if doc.Pages > 0 {
		b.WriteString("Pages: ")
		b.WriteString(strconv.Itoa(doc.Pages))
		b.WriteString("\n")
	}

	var attachment map[string]any
	switch doc.Format {
	case constants.PDF:
		attachment = map[string]any{
			"type": "file",
			"file": map[string]any{
				"filename":  doc.Name,
				"file_data": dataURL(doc.ContentType, doc.Content),
			},
		}
		b.WriteString("\nThe document is attached as a PDF file.\n")
	case constants.IMAGE:
		attachment = map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": dataURL(doc.ContentType, doc.Content)},
		}
		b.WriteString("\nA scan of the document is attached as an image.\n")
	default:
		text := strings.TrimSpace(string(doc.Content))
		b.WriteString("\nDocument text:\n")
		if utf8.RuneCountInString(text) > maxTextRunes {
			b.WriteString(string([]rune(text)[:maxTextRunes]))
			b.WriteString("\n…(truncated)")
		} else {
			b.WriteString(text)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nReturn ONLY JSON that matches the provided schema.")

	parts := []map[string]any{{"type": "text", "text": b.String()}}
	if attachment != nil {
		parts = append(parts, attachment)
	}
	return parts
}

func dataURL(mimeType string, content []byte) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(content)
}

func quoteAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = `"` + s + `"`
	}
	return out
}
