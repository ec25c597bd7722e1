package rowbuilder

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/docrows/constants"
	"github.com/joseph-ayodele/docrows/internal/entity"
	"github.com/joseph-ayodele/docrows/internal/mapping"
)

// Candidate is a mapped row for one document, waiting to be committed.
type Candidate struct {
	DocumentID   string
	DocumentName string
	Row          entity.Row
	Matches      []mapping.Match
	Gaps         []string
	Found        int
	Missing      int
}

// Builder turns extraction results into schema-aligned, normalized rows.
type Builder struct {
	mapper   *mapping.Mapper
	maxRunes int
	logger   *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithMaxCellRunes overrides the per-cell rune limit.
func WithMaxCellRunes(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxRunes = n
		}
	}
}

// WithLogger sets the builder's logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder wraps mapper; nil selects a mapper over the default rule table.
func NewBuilder(mapper *mapping.Mapper, opts ...Option) *Builder {
	if mapper == nil {
		mapper = mapping.NewMapper(nil)
	}
	b := &Builder{
		mapper:   mapper,
		maxRunes: constants.MaxCellRunes,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build maps one extraction result and normalizes every non-sentinel cell.
func (b *Builder) Build(schema entity.Schema, ex entity.ExtractionResult, mc mapping.Context) (Candidate, error) {
	res, err := b.mapper.MapDetailed(schema, ex, mc)
	if err != nil {
		return Candidate{}, err
	}

	row := res.Row
	for i, cell := range row {
		if res.Matches[i].Kind == mapping.MatchMissing {
			continue
		}
		if v := b.normalizeCell(cell); v != "" {
			row[i] = v
		}
	}

	c := Candidate{
		DocumentID:   ex.DocumentID(),
		DocumentName: mc.DocumentName,
		Row:          row,
		Matches:      res.Matches,
		Gaps:         res.Gaps(),
	}
	c.Missing = len(c.Gaps)
	c.Found = len(row) - c.Missing

	b.logger.Debug("rowbuilder.build",
		"document_id", c.DocumentID,
		"columns", len(row),
		"found", c.Found,
		"missing", c.Missing,
	)
	return c, nil
}

// BuildAll emits one candidate per document, in submission order. A document with no
// result is mapped against an empty extraction.
func (b *Builder) BuildAll(schema entity.Schema, docs []entity.Document, results map[string]entity.ExtractionResult) ([]Candidate, error) {
	out := make([]Candidate, 0, len(docs))
	for _, d := range docs {
		ex, ok := results[d.ID]
		if !ok {
			ex = entity.NewExtractionResult(d.ID, nil)
		}
		c, err := b.Build(schema, ex, mapping.Context{DocumentName: d.Name})
		if err != nil {
			return nil, err
		}
		c.DocumentID = d.ID
		out = append(out, c)
	}
	return out, nil
}

// normalizeCell collapses runs of whitespace (newlines included), trims, and truncates
// to the cell limit.
func (b *Builder) normalizeCell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return truncate(s, b.maxRunes)
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n == 1 {
		return string(r[:1])
	}
	return string(r[:n-1]) + "…"
}
