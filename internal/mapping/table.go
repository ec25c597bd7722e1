package mapping

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/docrows/internal/common"
)

//go:embed defaults.yaml
var defaultRules []byte

// RuleTable is the ordered rule list plus the predicate for source-file columns.
// Declaration order is part of the contract: the first matching rule wins.
type RuleTable struct {
	SourceFile Predicate `yaml:"source_file"`
	Rules      []Rule    `yaml:"rules"`
}

// DefaultRuleTable returns the built-in vocabulary (collective labour agreement fields
// plus the plain salary fields).
func DefaultRuleTable() *RuleTable {
	t, err := LoadRuleTable(bytes.NewReader(defaultRules))
	if err != nil {
		panic(fmt.Sprintf("embedded rule table: %v", err))
	}
	return t
}

// LoadRuleTableFile reads a YAML rule table from path.
func LoadRuleTableFile(path string) (*RuleTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rule table: %w", err)
	}
	defer f.Close()
	return LoadRuleTable(f)
}

// LoadRuleTable decodes, normalizes and validates a YAML rule table.
func LoadRuleTable(r io.Reader) (*RuleTable, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var t RuleTable
	if err := dec.Decode(&t); err != nil {
		return nil, common.NewAppError("RULES_ERROR", "decode rule table", err)
	}
	t.normalize()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks names are unique and every rule can both match and resolve.
func (t *RuleTable) Validate() error {
	v := common.NewValidator()
	if t.SourceFile.IsZero() {
		v.Field("source_file", nil, func(f string, _ interface{}) *common.ValidationError {
			return &common.ValidationError{Field: f, Message: "predicate is required"}
		})
	}
	seen := map[string]bool{}
	for i, r := range t.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		v.Field(field+".name", r.Name, common.Required)
		if seen[r.Name] {
			v.Field(field+".name", r.Name, func(f string, val interface{}) *common.ValidationError {
				return &common.ValidationError{Field: f, Value: val, Message: "duplicate rule name"}
			})
		}
		seen[r.Name] = true
		if r.When.IsZero() {
			v.Field(field+".when", r.Name, func(f string, val interface{}) *common.ValidationError {
				return &common.ValidationError{Field: f, Value: val, Message: "predicate is empty"}
			})
		}
		if r.Resolve.IsZero() {
			v.Field(field+".resolve", r.Name, func(f string, val interface{}) *common.ValidationError {
				return &common.ValidationError{Field: f, Value: val, Message: "resolver is empty"}
			})
		}
		if r.Resolve.Similar < 0 || r.Resolve.Similar > 1 {
			v.Field(field+".resolve.similar", r.Resolve.Similar, func(f string, val interface{}) *common.ValidationError {
				return &common.ValidationError{Field: f, Value: val, Message: "must be within [0,1]"}
			})
		}
	}
	if v.HasErrors() {
		return common.NewAppError("RULES_ERROR", v.ErrorMessage(), common.ErrInvalidInput)
	}
	return nil
}

// Match returns the first rule whose predicate accepts column.
func (t *RuleTable) Match(column string) (Rule, bool) {
	for _, r := range t.Rules {
		if r.When.Matches(column) {
			return r, true
		}
	}
	return Rule{}, false
}

// IsSourceFileColumn reports whether column should carry the document name.
func (t *RuleTable) IsSourceFileColumn(column string) bool {
	return t.SourceFile.Matches(column)
}

// Names lists rule names in declaration order.
func (t *RuleTable) Names() []string {
	out := make([]string, len(t.Rules))
	for i, r := range t.Rules {
		out[i] = r.Name
	}
	return out
}

// Marshal renders the table back to YAML.
func (t *RuleTable) Marshal() ([]byte, error) {
	return yaml.Marshal(t)
}

func (t *RuleTable) normalize() {
	normalizePredicate(&t.SourceFile)
	for i := range t.Rules {
		r := &t.Rules[i]
		r.Name = strings.TrimSpace(r.Name)
		normalizePredicate(&r.When)
		r.Resolve.KeyContains = lowerGroups(r.Resolve.KeyContains)
	}
}

func normalizePredicate(p *Predicate) {
	p.All = lowerGroups(p.All)
	p.Any = lowerAll(p.Any)
	p.Words = lowerAll(p.Words)
	p.None = lowerAll(p.None)
}

func lowerGroups(groups [][]string) [][]string {
	for i := range groups {
		groups[i] = lowerAll(groups[i])
	}
	return groups
}

func lowerAll(tokens []string) []string {
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}
	return tokens
}
