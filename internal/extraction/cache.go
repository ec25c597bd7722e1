package extraction

import (
	"context"
	"log/slog"
	"maps"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/joseph-ayodele/docrows/internal/entity"
)

// Cache memoizes a DocumentExtractor by document content hash and requested columns, so
// retrying an extraction does not resend documents that already succeeded.
type Cache struct {
	next   DocumentExtractor
	lru    *lru.Cache[string, map[string]string]
	hits   atomic.Uint64
	misses atomic.Uint64
	logger *slog.Logger
}

// NewCache wraps next with an LRU of size entries.
func NewCache(next DocumentExtractor, size int, logger *slog.Logger) (*Cache, error) {
	if size <= 0 {
		size = 128
	}
	l, err := lru.New[string, map[string]string](size)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{next: next, lru: l, logger: logger}, nil
}

func (c *Cache) ExtractDocument(ctx context.Context, doc entity.Document, columns []string) (map[string]string, error) {
	key := cacheKey(doc, columns)
	if key != "" {
		if v, ok := c.lru.Get(key); ok {
			c.hits.Add(1)
			c.logger.Debug("extraction.cache.hit", "document_id", doc.ID, "hash", doc.HashHex)
			return maps.Clone(v), nil
		}
	}
	c.misses.Add(1)

	fields, err := c.next.ExtractDocument(ctx, doc, columns)
	if err != nil {
		return nil, err
	}
	if key != "" {
		c.lru.Add(key, maps.Clone(fields))
	}
	return fields, nil
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// Len is the number of cached entries.
func (c *Cache) Len() int { return c.lru.Len() }

// Purge drops every cached entry.
func (c *Cache) Purge() { c.lru.Purge() }

// cacheKey is empty for documents without a content hash; those are never cached.
func cacheKey(doc entity.Document, columns []string) string {
	if doc.HashHex == "" {
		return ""
	}
	return doc.HashHex + "\x00" + strings.Join(columns, "\x1f")
}
