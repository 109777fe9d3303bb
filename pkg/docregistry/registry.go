// Package docregistry resolves a document-type tag to the metadata schema
// description and prompt template used for tier-3 extraction. It is a total
// function over strings: unknown tags resolve to the same entry as the
// explicit "text" tag, mirroring the schema router's if/elif/else-fallback
// shape in the reference implementation's schema package.
package docregistry

import (
	"fmt"
	"os"
	"sync"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/mfittko/raged/pkg/config"
)

// FieldKind describes the JSON shape of a schema field, used both to render
// the field in a pretty-printed prompt schema and to build an adapter's
// empty-result fallback object.
type FieldKind string

// Supported field kinds.
const (
	KindString FieldKind = "string"
	KindArray  FieldKind = "array"
	KindObject FieldKind = "object"
)

// Field is a single named field in a document-type's metadata schema.
type Field struct {
	Name string    `yaml:"name"`
	Kind FieldKind `yaml:"kind"`
}

// Schema describes the metadata shape an adapter should extract for a given
// document type.
type Schema struct {
	DocType    string  `yaml:"-"`
	Fields     []Field `yaml:"fields"`
	HasSummary bool    `yaml:"has_summary"`
}

// Entry pairs a schema with the prompt template used to request it.
type Entry struct {
	Schema         Schema `yaml:"-"`
	PromptTemplate string `yaml:"prompt_template"`
}

// yamlEntry is the on-disk shape of a single registry entry, used only for
// overlay parsing (Schema.DocType is implied by the map key, not stored).
type yamlEntry struct {
	Fields         []Field `yaml:"fields"`
	HasSummary     bool    `yaml:"has_summary"`
	PromptTemplate string  `yaml:"prompt_template"`
}

// Registry is a thread-safe docType -> Entry lookup table.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New builds a registry from the built-in table, optionally merging a YAML
// overlay file on top (user entries win on conflict, matching the
// mergo.WithOverride merge used for the reference loader's queue config).
func New(overlayPath string) (*Registry, error) {
	entries := Builtin()

	if overlayPath != "" {
		overlay, err := loadOverlay(overlayPath)
		if err != nil {
			if os.IsNotExist(err) {
				return &Registry{entries: entries}, nil
			}
			return nil, fmt.Errorf("load doc-type overlay: %w", err)
		}
		for docType, entry := range overlay {
			base, ok := entries[docType]
			if !ok {
				entries[docType] = entry
				continue
			}
			if err := mergo.Merge(&base, entry, mergo.WithOverride); err != nil {
				return nil, fmt.Errorf("merge doc-type %q: %w", docType, err)
			}
			entries[docType] = base
		}
	}

	return &Registry{entries: entries}, nil
}

// Resolve returns the (schema, promptTemplate) pair for docType. It is
// total: any string not present in the registry resolves to the same entry
// as "text", so an unknown docType and the explicit "text" docType behave
// identically, as required.
func (r *Registry) Resolve(docType string) Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch docType {
	case "text":
		return r.entries["text"]
	default:
		if e, ok := r.entries[docType]; ok {
			return e
		}
		return r.entries["text"]
	}
}

func loadOverlay(path string) (map[string]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = config.ExpandEnv(data)

	var raw map[string]yamlEntry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	out := make(map[string]Entry, len(raw))
	for docType, y := range raw {
		out[docType] = Entry{
			Schema: Schema{
				DocType:    docType,
				Fields:     y.Fields,
				HasSummary: y.HasSummary,
			},
			PromptTemplate: y.PromptTemplate,
		}
	}
	return out, nil
}
