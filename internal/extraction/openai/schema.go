package openai

// BuildFieldsJSONSchema returns a JSON-Schema object with one optional string property
// per requested column. We pass this to the model as the output contract and also use it
// locally to validate. Keys outside the requested columns may carry scalar values; the
// mapper resolves them against the schema later.
func BuildFieldsJSONSchema(columns []string) map[string]any {
	props := make(map[string]any, len(columns))
	for _, c := range columns {
		props[c] = map[string]any{"type": "string", "minLength": 1}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": map[string]any{"type": []string{"string", "number", "boolean", "null"}},
		"properties":           props,
	}
}
