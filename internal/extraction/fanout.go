package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// FanOut implements Service by calling a DocumentExtractor once per document with
// bounded concurrency. Results are assembled by document, so submission order is kept
// regardless of completion order. The first failure cancels the remaining calls.
type FanOut struct {
	extractor DocumentExtractor
	limit     int
	logger    *slog.Logger
}

func NewFanOut(extractor DocumentExtractor, limit int, logger *slog.Logger) *FanOut {
	if limit <= 0 {
		limit = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FanOut{extractor: extractor, limit: limit, logger: logger}
}

func (f *FanOut) Extract(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	results := make([]map[string]string, len(req.Documents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.limit)
	for i, doc := range req.Documents {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fields, err := f.extractor.ExtractDocument(gctx, doc, req.Columns)
			if err != nil {
				return fmt.Errorf("document %q: %w", doc.Name, err)
			}
			results[i] = fields
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		f.logger.Warn("extraction.fanout.error", "documents", len(req.Documents), "error", err)
		return nil, err
	}

	out := make(Response, len(req.Documents))
	for i, doc := range req.Documents {
		fields := results[i]
		if fields == nil {
			fields = map[string]string{}
		}
		out[doc.ID] = fields
	}
	f.logger.Info("extraction.fanout.ok",
		"documents", len(req.Documents),
		"concurrency", f.limit,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
