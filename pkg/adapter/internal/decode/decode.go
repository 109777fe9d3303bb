// Package decode re-marshals a provider's raw JSON object result into the
// typed shapes pkg/adapter exposes, so the three providers don't each
// duplicate the same round-trip.
package decode

import (
	"encoding/json"

	"github.com/mfittko/raged/pkg/adapter"
)

// Entities decodes result's "entities"/"relationships" keys, defaulting to
// empty slices on any shape mismatch rather than erroring.
func Entities(result map[string]any) ([]adapter.Entity, []adapter.Relationship) {
	raw, err := json.Marshal(result)
	if err != nil {
		return []adapter.Entity{}, []adapter.Relationship{}
	}

	var decoded struct {
		Entities      []adapter.Entity       `json:"entities"`
		Relationships []adapter.Relationship `json:"relationships"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return []adapter.Entity{}, []adapter.Relationship{}
	}
	if decoded.Entities == nil {
		decoded.Entities = []adapter.Entity{}
	}
	if decoded.Relationships == nil {
		decoded.Relationships = []adapter.Relationship{}
	}
	return decoded.Entities, decoded.Relationships
}

// ImageDescription decodes result into adapter.ImageDescription, defaulting
// to an empty-but-well-formed value on any shape mismatch.
func ImageDescription(result map[string]any) adapter.ImageDescription {
	raw, err := json.Marshal(result)
	if err != nil {
		return adapter.ImageDescription{DetectedObjects: []string{}}
	}

	var decoded adapter.ImageDescription
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return adapter.ImageDescription{DetectedObjects: []string{}}
	}
	if decoded.DetectedObjects == nil {
		decoded.DetectedObjects = []string{}
	}
	return decoded
}
