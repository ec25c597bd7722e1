package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docrows/constants"
	"github.com/joseph-ayodele/docrows/internal/common"
	"github.com/joseph-ayodele/docrows/internal/entity"
)

// DefaultMaxBytes caps a single document.
const DefaultMaxBytes int64 = 50 << 20

// FSIngestor reads documents from the local filesystem or from uploaded bytes.
type FSIngestor struct {
	maxBytes int64
	newID    func() string
	logger   *slog.Logger
}

// Option configures an FSIngestor.
type Option func(*FSIngestor)

// WithMaxBytes overrides the per-document size limit.
func WithMaxBytes(n int64) Option {
	return func(i *FSIngestor) {
		if n > 0 {
			i.maxBytes = n
		}
	}
}

// WithIDGenerator replaces the uuid generator, mainly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(i *FSIngestor) {
		if fn != nil {
			i.newID = fn
		}
	}
}

// WithLogger sets the ingestor's logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *FSIngestor) {
		if l != nil {
			i.logger = l
		}
	}
}

func NewFSIngestor(opts ...Option) *FSIngestor {
	i := &FSIngestor{
		maxBytes: DefaultMaxBytes,
		newID:    uuid.NewString,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

func (i *FSIngestor) FromFile(ctx context.Context, path string) (entity.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return entity.Document{}, common.UploadError("resolve %q: %v", path, err)
	}
	if !AllowedExt(filepath.Ext(abs)) {
		return entity.Document{}, common.UploadError("unsupported or missing extension: %q", filepath.Base(abs))
	}

	f, err := os.Open(abs)
	if err != nil {
		return entity.Document{}, common.UploadError("open %q: %v", filepath.Base(abs), err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			i.logger.Warn("ingest.close.error", "path", abs, "err", err)
		}
	}(f)

	content, err := io.ReadAll(io.LimitReader(f, i.maxBytes+1))
	if err != nil {
		return entity.Document{}, common.UploadError("read %q: %v", filepath.Base(abs), err)
	}
	return i.FromBytes(ctx, filepath.Base(abs), content)
}

// FromBytes checks the extension, size and (for PDFs) structure of an upload.
func (i *FSIngestor) FromBytes(ctx context.Context, name string, content []byte) (entity.Document, error) {
	if err := ctx.Err(); err != nil {
		return entity.Document{}, err
	}
	name = strings.TrimSpace(name)
	ext := constants.NormalizeExt(filepath.Ext(name))
	format := constants.MapExtToFormat(ext)
	if format == "" {
		return entity.Document{}, common.UploadError("unsupported or missing extension: %q", name)
	}
	if len(content) == 0 {
		return entity.Document{}, common.UploadError("document %q is empty", name)
	}
	if int64(len(content)) > i.maxBytes {
		return entity.Document{}, common.UploadError("document %q exceeds %d bytes", name, i.maxBytes)
	}

	pages := 1
	if format == constants.PDF {
		if !bytes.HasPrefix(bytes.TrimLeft(content, "\x00\t\r\n "), []byte("%PDF-")) {
			return entity.Document{}, common.UploadError("document %q is not a PDF", name)
		}
		n, err := pdfPages(content)
		if err != nil {
			return entity.Document{}, common.UploadError("document %q is unreadable: %v", name, err)
		}
		pages = n
	}

	doc := entity.Document{
		ID:          i.newID(),
		Name:        name,
		Size:        int64(len(content)),
		Format:      format,
		ContentType: constants.MIMEForFormat(format, ext),
		Content:     content,
		HashHex:     HashHex(content),
		Pages:       pages,
	}
	if err := doc.Validate(); err != nil {
		return entity.Document{}, err
	}

	i.logger.Info("ingest.document.ok",
		"document_id", doc.ID,
		"name", doc.Name,
		"format", string(doc.Format),
		"bytes", doc.Size,
		"pages", doc.Pages,
	)
	return doc, nil
}

// IngestDirectory walks root, skips hidden entries if requested, and reads every
// supported file. Files with a content hash seen earlier in the walk are reported as
// duplicates and not returned twice.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats DirStats
	seen := map[string]string{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		doc, err := i.FromFile(ctx, path)
		if err != nil {
			results = append(results, FileResult{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		if first, dup := seen[doc.HashHex]; dup {
			results = append(results, FileResult{Path: path, Err: fmt.Sprintf("duplicate of %s", first)})
			stats.Duplicate++
			return nil
		}
		seen[doc.HashHex] = path
		results = append(results, FileResult{Path: path, Document: doc})
		stats.Succeeded++
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
