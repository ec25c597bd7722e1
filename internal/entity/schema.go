package entity

import (
	"slices"

	"github.com/joseph-ayodele/docrows/internal/common"
)

// Schema is the ordered, immutable list of target column names.
// The zero value is the empty schema.
type Schema struct {
	columns []string
}

// NewSchema validates columns (non-empty, no blanks, case-sensitive unique) and copies them.
func NewSchema(columns []string) (Schema, error) {
	v := common.NewValidator().Field("columns", columns, common.Required, common.UniqueStrings)
	if v.HasErrors() {
		return Schema{}, common.UploadError("invalid schema: %s", v.ErrorMessage())
	}
	return Schema{columns: slices.Clone(columns)}, nil
}

// MustSchema is NewSchema for fixed column lists; it panics on invalid input.
func MustSchema(columns ...string) Schema {
	s, err := NewSchema(columns)
	if err != nil {
		panic(err)
	}
	return s
}

// Columns returns a copy of the column names in order.
func (s Schema) Columns() []string { return slices.Clone(s.columns) }

func (s Schema) Len() int { return len(s.columns) }

func (s Schema) Column(i int) string { return s.columns[i] }

func (s Schema) IsEmpty() bool { return len(s.columns) == 0 }

// Index returns the position of name, or -1.
func (s Schema) Index(name string) int { return slices.Index(s.columns, name) }

// Equal reports whether both schemas have the same columns in the same order.
func (s Schema) Equal(o Schema) bool { return slices.Equal(s.columns, o.columns) }

// SchemaSource is what a spreadsheet reader supplies: a header row and data rows.
type SchemaSource struct {
	Filename string
	Columns  []string
	Rows     [][]string
}

// Select builds a Schema from the source columns. An empty selection keeps every column;
// otherwise the selected names are kept in source order. Unknown names are rejected.
func (src SchemaSource) Select(selection []string) (Schema, error) {
	if len(selection) == 0 {
		return NewSchema(src.Columns)
	}
	want := make(map[string]bool, len(selection))
	for _, name := range selection {
		if !slices.Contains(src.Columns, name) {
			return Schema{}, common.UploadError("column %q is not present in %q", name, src.Filename)
		}
		want[name] = true
	}
	picked := make([]string, 0, len(selection))
	for _, c := range src.Columns {
		if want[c] {
			picked = append(picked, c)
			delete(want, c)
		}
	}
	return NewSchema(picked)
}

// Project maps the source rows onto schema, padding short rows with empty cells.
// Rows wider than the source header are rejected.
func (src SchemaSource) Project(schema Schema) ([]Row, error) {
	idx := make([]int, schema.Len())
	for i, c := range schema.columns {
		idx[i] = slices.Index(src.Columns, c)
		if idx[i] < 0 {
			return nil, common.UploadError("column %q is not present in %q", c, src.Filename)
		}
	}
	out := make([]Row, 0, len(src.Rows))
	for n, r := range src.Rows {
		if len(r) > len(src.Columns) {
			return nil, common.UploadError("row %d of %q has %d cells but the header has %d", n+1, src.Filename, len(r), len(src.Columns))
		}
		row := make(Row, schema.Len())
		for i, j := range idx {
			if j < len(r) {
				row[i] = r[j]
			}
		}
		out = append(out, row)
	}
	return out, nil
}
