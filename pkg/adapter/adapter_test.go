package adapter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mfittko/raged/pkg/docregistry"
)

func TestRenderPromptSubstitutesTextAndSchema(t *testing.T) {
	schema := docregistry.Schema{
		DocType: "note",
		Fields: []docregistry.Field{
			{Name: "title", Kind: docregistry.KindString},
			{Name: "tags", Kind: docregistry.KindArray},
		},
	}

	out := RenderPrompt("Text:\n{text}\n\nSchema:\n{schema}", "hello world", &schema, "")

	require.Contains(t, out, "hello world")
	require.Contains(t, out, `"title"`)
	require.Contains(t, out, `"tags"`)
	require.NotContains(t, out, "{text}")
	require.NotContains(t, out, "{schema}")
}

func TestRenderPromptSubstitutesContextOnly(t *testing.T) {
	out := RenderPrompt("Context: {context}", "ignored", nil, "extra context")

	require.Equal(t, "Context: extra context", out)
}

func TestRenderPromptLeavesSchemaPlaceholderWhenSchemaNil(t *testing.T) {
	out := RenderPrompt("{schema}", "text", nil, "")

	require.Equal(t, "{schema}", out)
}

func TestRenderPromptTruncatesLongText(t *testing.T) {
	long := strings.Repeat("a", maxPromptText+500)

	out := RenderPrompt("{text}", long, nil, "")

	require.Len(t, out, maxPromptText)
}

func TestRenderSchemaShapesArraysAndObjectsDistinctly(t *testing.T) {
	schema := docregistry.Schema{
		Fields: []docregistry.Field{
			{Name: "a", Kind: docregistry.KindString},
			{Name: "b", Kind: docregistry.KindArray},
			{Name: "c", Kind: docregistry.KindObject},
		},
	}

	out := renderSchema(schema)

	require.Contains(t, out, `"a": "..."`)
	require.Contains(t, out, `"b": [`)
	require.Contains(t, out, `"c": {`)
}
