package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type schemaSample struct {
	Name     string            `json:"name" description:"display name"`
	Score    float64           `json:"score"`
	Count    int               `json:"count,omitempty"`
	Tags     []string          `json:"tags"`
	Labels   map[string]int    `json:"labels,omitempty"`
	Side     string            `json:"side" enum:"UP|DOWN"`
	At       time.Time         `json:"at"`
	Nested   struct{ OK bool } `json:"nested"`
	Ignored  string            `json:"-"`
	internal string
}

func TestGenerateSchema(t *testing.T) {
	schema, err := GenerateSchema(&schemaSample{})
	require.NoError(t, err)
	require.Equal(t, "object", schema["type"])

	props := schema["properties"].(map[string]any)
	assert.NotContains(t, props, "Ignored")
	assert.NotContains(t, props, "internal")
	assert.Equal(t, map[string]any{"type": "string", "description": "display name"}, props["name"])
	assert.Equal(t, map[string]any{"type": "number"}, props["score"])
	assert.Equal(t, map[string]any{"type": "integer"}, props["count"])
	assert.Equal(t, map[string]any{"type": "array", "items": map[string]any{"type": "string"}}, props["tags"])
	assert.Equal(t, []string{"UP", "DOWN"}, props["side"].(map[string]any)["enum"])
	assert.Equal(t, "date-time", props["at"].(map[string]any)["format"])
	assert.Equal(t, "object", props["nested"].(map[string]any)["type"])

	assert.ElementsMatch(t, []string{"name", "score", "tags", "side", "at", "nested"}, schema["required"])

	_, err = GenerateSchema(42)
	assert.Error(t, err)
	_, err = GenerateSchema(nil)
	assert.Error(t, err)
}

func TestExtractJSONObject(t *testing.T) {
	obj, ok := ExtractJSONObject("Sure!\n```json\n{\"a\":{\"b\":1}}\n```\nDone.")
	require.True(t, ok)
	assert.Equal(t, `{"a":{"b":1}}`, obj)

	_, ok = ExtractJSONObject("no json here")
	assert.False(t, ok)
	_, ok = ExtractJSONObject("} backwards {")
	assert.False(t, ok)
}

func TestParseStructured(t *testing.T) {
	var out struct {
		Direction string  `json:"predicted_direction"`
		Score     float64 `json:"confidence_score"`
	}
	require.NoError(t, ParseStructured(`prefix {"predicted_direction":"UP","confidence_score":0.8} suffix`, &out))
	assert.Equal(t, "UP", out.Direction)
	assert.InDelta(t, 0.8, out.Score, 1e-9)

	assert.Error(t, ParseStructured(`{"predicted_direction":`, &out))
	assert.Error(t, ParseStructured(`{}`, out))
	assert.Error(t, ParseStructured(`nothing`, &out))
}
