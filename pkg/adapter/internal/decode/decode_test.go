package decode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntitiesDecodesWellFormedResult(t *testing.T) {
	result := map[string]any{
		"entities":      []any{map[string]any{"name": "Acme", "type": "org"}},
		"relationships": []any{map[string]any{"source": "Acme", "target": "Bob", "type": "employs"}},
	}

	entities, relationships := Entities(result)

	require.Len(t, entities, 1)
	require.Equal(t, "Acme", entities[0].Name)
	require.Len(t, relationships, 1)
	require.Equal(t, "employs", relationships[0].Type)
}

func TestEntitiesDefaultsToEmptySlicesOnMissingKeys(t *testing.T) {
	entities, relationships := Entities(map[string]any{})

	require.Empty(t, entities)
	require.NotNil(t, entities)
	require.Empty(t, relationships)
	require.NotNil(t, relationships)
}

func TestEntitiesDefaultsToEmptySlicesOnShapeMismatch(t *testing.T) {
	entities, relationships := Entities(map[string]any{"entities": "not an array"})

	require.Empty(t, entities)
	require.Empty(t, relationships)
}

func TestImageDescriptionDecodesWellFormedResult(t *testing.T) {
	result := map[string]any{
		"description":      "a cat",
		"detected_objects": []any{"cat", "sofa"},
		"ocr_text":         "",
		"image_type":       "photo",
	}

	desc := ImageDescription(result)

	require.Equal(t, "a cat", desc.Description)
	require.Equal(t, []string{"cat", "sofa"}, desc.DetectedObjects)
}

func TestImageDescriptionDefaultsDetectedObjectsOnMissingKey(t *testing.T) {
	desc := ImageDescription(map[string]any{"description": "x"})

	require.NotNil(t, desc.DetectedObjects)
	require.Empty(t, desc.DetectedObjects)
}
