package extraction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docrows/internal/extraction"
)

func TestDecodeFields(t *testing.T) {
	out, dropped, err := extraction.DecodeFields([]byte(`{
		" Name ": "Acme",
		"pct": 2.5,
		"count": 3,
		"ok": false,
		"empty": "  ",
		"nil": null,
		"text_null": "NULL",
		"list": ["a", "b"]
	}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Name":  "Acme",
		"pct":   "2.5",
		"count": "3",
		"ok":    "false",
		"list":  `["a","b"]`,
	}, out)
	assert.ElementsMatch(t, []string{"empty(empty)", "nil(null)", "text_null(empty)"}, dropped)

	_, _, err = extraction.DecodeFields([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	assert.NoError(t, extraction.ValidateJSONAgainstSchema(extraction.FieldsJSONSchema(), []byte(`{"a": "b", "c": 1, "d": null}`)))
	assert.Error(t, extraction.ValidateJSONAgainstSchema(extraction.FieldsJSONSchema(), []byte(`{"a": {"b": 1}}`)))
	assert.Error(t, extraction.ValidateJSONAgainstSchema(extraction.ResponseJSONSchema(), []byte(`{"doc": "flat"}`)))
	assert.Error(t, extraction.ValidateJSONAgainstSchema(extraction.FieldsJSONSchema(), []byte(`not json`)))
}

func TestDecodeFields_TrimmedKeyCollision(t *testing.T) {
	for range 20 {
		out, dropped, err := extraction.DecodeFields([]byte(`{"Name ": "b", "Name": "a", " Name": "c"}`))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"Name": "a"}, out)
		assert.ElementsMatch(t, []string{" Name(duplicate)", "Name (duplicate)"}, dropped)
	}

	out, dropped, err := extraction.DecodeFields([]byte(`{"Name ": "b", " Name": "c"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Name": "c"}, out)
	assert.Equal(t, []string{"Name (duplicate)"}, dropped)
}
