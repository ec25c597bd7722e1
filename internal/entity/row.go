package entity

import (
	"slices"

	"github.com/joseph-ayodele/docrows/constants"
)

// Row is a schema-aligned list of cell values.
type Row []string

func (r Row) Clone() Row { return slices.Clone(r) }

// Found counts cells that hold an extracted value.
func (r Row) Found() int {
	n := 0
	for _, v := range r {
		if v != constants.SentinelNotFound {
			n++
		}
	}
	return n
}

// Missing counts sentinel cells.
func (r Row) Missing() int { return len(r) - r.Found() }
