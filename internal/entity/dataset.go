package entity

import (
	"slices"

	"github.com/joseph-ayodele/docrows/internal/common"
)

// Dataset is the working sheet: rows sharing one schema. It is a value; Append returns a
// new Dataset and leaves the receiver untouched.
type Dataset struct {
	schema Schema
	rows   []Row
}

// NewDataset creates a dataset seeded with rows; each must match the schema width.
func NewDataset(schema Schema, seed ...Row) (Dataset, error) {
	d := Dataset{schema: schema}
	for _, r := range seed {
		next, err := d.Append(r)
		if err != nil {
			return Dataset{}, err
		}
		d = next
	}
	return d, nil
}

func (d Dataset) Schema() Schema { return d.schema }

func (d Dataset) Len() int { return len(d.rows) }

// Rows returns deep copies of the rows in order.
func (d Dataset) Rows() []Row {
	out := make([]Row, len(d.rows))
	for i, r := range d.rows {
		out[i] = r.Clone()
	}
	return out
}

// Values returns the rows as plain string slices for export boundaries.
func (d Dataset) Values() [][]string {
	out := make([][]string, len(d.rows))
	for i, r := range d.rows {
		out[i] = slices.Clone([]string(r))
	}
	return out
}

// Append returns a dataset with row added at the end.
func (d Dataset) Append(row Row) (Dataset, error) {
	if len(row) != d.schema.Len() {
		return d, &common.SchemaMismatchError{Want: d.schema.Len(), Got: len(row)}
	}
	rows := make([]Row, len(d.rows), len(d.rows)+1)
	copy(rows, d.rows)
	return Dataset{schema: d.schema, rows: append(rows, row.Clone())}, nil
}
