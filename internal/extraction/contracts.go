package extraction

import (
	"context"

	"github.com/joseph-ayodele/docrows/internal/entity"
)

// Request asks the extraction boundary for the given columns from each document.
type Request struct {
	Documents []entity.Document
	Columns   []string
}

// Response maps document ID to the raw field/value pairs extracted from it.
type Response map[string]map[string]string

// Service is the extraction boundary the workflow depends on. Implementations must
// return promptly once ctx is done.
type Service interface {
	Extract(ctx context.Context, req Request) (Response, error)
}

// ServiceFunc adapts a function to Service.
type ServiceFunc func(ctx context.Context, req Request) (Response, error)

func (f ServiceFunc) Extract(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// DocumentExtractor extracts fields from a single document.
type DocumentExtractor interface {
	ExtractDocument(ctx context.Context, doc entity.Document, columns []string) (map[string]string, error)
}

// DocumentExtractorFunc adapts a function to DocumentExtractor.
type DocumentExtractorFunc func(ctx context.Context, doc entity.Document, columns []string) (map[string]string, error)

func (f DocumentExtractorFunc) ExtractDocument(ctx context.Context, doc entity.Document, columns []string) (map[string]string, error) {
	return f(ctx, doc, columns)
}

// Results converts a response into immutable extraction results keyed by document ID.
func (r Response) Results() map[string]entity.ExtractionResult {
	out := make(map[string]entity.ExtractionResult, len(r))
	for id, fields := range r {
		out[id] = entity.NewExtractionResult(id, fields)
	}
	return out
}
