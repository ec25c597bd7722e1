package entity

import (
	"maps"
	"slices"
)

// ExtractionResult holds the raw field/value pairs returned for one document.
// Fields are copied on construction and cannot be modified afterwards.
type ExtractionResult struct {
	documentID string
	fields     map[string]string
	keys       []string
}

func NewExtractionResult(documentID string, fields map[string]string) ExtractionResult {
	cp := maps.Clone(fields)
	if cp == nil {
		cp = map[string]string{}
	}
	return ExtractionResult{
		documentID: documentID,
		fields:     cp,
		keys:       slices.Sorted(maps.Keys(cp)),
	}
}

func (e ExtractionResult) DocumentID() string { return e.documentID }

// Get returns the value stored under the exact key.
func (e ExtractionResult) Get(key string) (string, bool) {
	v, ok := e.fields[key]
	return v, ok
}

// Keys returns the field labels in sorted order.
func (e ExtractionResult) Keys() []string { return slices.Clone(e.keys) }

func (e ExtractionResult) Len() int { return len(e.fields) }

// Fields returns a copy of the underlying map.
func (e ExtractionResult) Fields() map[string]string { return maps.Clone(e.fields) }
