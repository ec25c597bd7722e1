package mapping

import (
	"strings"

	"github.com/joseph-ayodele/docrows/constants"
	"github.com/joseph-ayodele/docrows/internal/common"
	"github.com/joseph-ayodele/docrows/internal/entity"
)

// Context carries per-document facts that are not part of the extraction.
type Context struct {
	DocumentName string
}

// MatchKind records how a cell was filled.
type MatchKind string

const (
	MatchExact      MatchKind = "exact"
	MatchRule       MatchKind = "rule"
	MatchSourceFile MatchKind = "source_file"
	MatchMissing    MatchKind = "missing"
)

// Match explains one cell of a mapped row.
type Match struct {
	Column string
	Kind   MatchKind
	Rule   string // winning rule, empty unless a rule predicate matched
	Key    string // extraction key the value came from
}

// Result is a mapped row plus the per-column explanation.
type Result struct {
	Row     entity.Row
	Matches []Match
}

// Gaps lists the columns that received the sentinel, in schema order.
func (r Result) Gaps() []string {
	var out []string
	for _, m := range r.Matches {
		if m.Kind == MatchMissing {
			out = append(out, m.Column)
		}
	}
	return out
}

// Mapper maps extraction results onto a schema. It holds only the immutable rule table,
// so one Mapper may be shared across goroutines.
type Mapper struct {
	table *RuleTable
}

// NewMapper builds a mapper over table; nil selects DefaultRuleTable.
func NewMapper(table *RuleTable) *Mapper {
	if table == nil {
		table = DefaultRuleTable()
	}
	return &Mapper{table: table}
}

// Table returns the rule table in use.
func (m *Mapper) Table() *RuleTable { return m.table }

// Map returns one cell per schema column, in schema order.
func (m *Mapper) Map(schema entity.Schema, ex entity.ExtractionResult, mc Context) (entity.Row, error) {
	res, err := m.MapDetailed(schema, ex, mc)
	if err != nil {
		return nil, err
	}
	return res.Row, nil
}

// MapDetailed is Map plus how each column was resolved.
func (m *Mapper) MapDetailed(schema entity.Schema, ex entity.ExtractionResult, mc Context) (Result, error) {
	if schema.IsEmpty() {
		return Result{}, common.NewAppError("INVALID_SCHEMA", "cannot map onto an empty schema", common.ErrInvalidSchema)
	}

	cols := schema.Columns()
	res := Result{
		Row:     make(entity.Row, len(cols)),
		Matches: make([]Match, len(cols)),
	}
	for i, col := range cols {
		value, match := m.mapColumn(col, ex, mc)
		res.Row[i] = value
		res.Matches[i] = match
	}
	return res, nil
}

func (m *Mapper) mapColumn(col string, ex entity.ExtractionResult, mc Context) (string, Match) {
	if m.table.IsSourceFileColumn(col) {
		if strings.TrimSpace(mc.DocumentName) == "" {
			return constants.SentinelNotFound, Match{Column: col, Kind: MatchMissing}
		}
		return mc.DocumentName, Match{Column: col, Kind: MatchSourceFile}
	}

	if v, ok := ex.Get(col); ok && present(v) {
		return v, Match{Column: col, Kind: MatchExact, Key: col}
	}

	rule, ok := m.table.Match(col)
	if !ok {
		return constants.SentinelNotFound, Match{Column: col, Kind: MatchMissing}
	}
	key, ok := rule.Resolve.Resolve(col, ex)
	if !ok {
		return constants.SentinelNotFound, Match{Column: col, Kind: MatchMissing, Rule: rule.Name}
	}
	v, _ := ex.Get(key)
	if !present(v) {
		return constants.SentinelNotFound, Match{Column: col, Kind: MatchMissing, Rule: rule.Name}
	}
	return v, Match{Column: col, Kind: MatchRule, Rule: rule.Name, Key: key}
}

// present reports whether an extracted value carries data. A value that spells the
// sentinel is treated like a blank one.
func present(v string) bool {
	v = strings.Join(strings.Fields(v), " ")
	return v != "" && !strings.EqualFold(v, constants.SentinelNotFound)
}
