package source_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookmux/hookmux/internal/source"
)

func TestGenerateSchema(t *testing.T) {
	data, err := source.GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, source.SchemaID, schema["$id"])
	assert.Equal(t, "Hookmux Package Manifest", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "version")
	assert.Contains(t, props, "extensions")
}

func TestValidateSchema_Valid(t *testing.T) {
	yaml := `
name: markdown-tools
version: 1.2.0
extensions:
  - hook: render
    name: markdown
    entry: render.tmpl
`
	assert.NoError(t, source.ValidateSchema([]byte(yaml)))
}

func TestValidateSchema_WrongType(t *testing.T) {
	// name must be a string, not a list
	yaml := `
name:
  - one
  - two
version: 1.0.0
`
	err := source.ValidateSchema([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")
}

func TestValidateSchema_EmptyData(t *testing.T) {
	assert.Error(t, source.ValidateSchema(nil))
}
