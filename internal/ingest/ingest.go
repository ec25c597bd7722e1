package ingest

import (
	"context"

	"github.com/joseph-ayodele/docrows/internal/entity"
)

// FileResult is the per-file outcome of a directory ingest.
type FileResult struct {
	Path     string
	Document entity.Document
	Err      string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Duplicate uint32
	Failed    uint32
}

// Ingestor is the behavior the workflow host depends on.
type Ingestor interface {
	// FromFile reads one file into a Document.
	FromFile(ctx context.Context, path string) (entity.Document, error)
	// FromBytes builds a Document from an upload.
	FromBytes(ctx context.Context, name string, content []byte) (entity.Document, error)
	// IngestDirectory reads all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]FileResult, DirStats, error)
}
