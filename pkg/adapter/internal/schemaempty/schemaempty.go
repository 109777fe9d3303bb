// Package schemaempty builds a schema-shaped empty object: every declared
// string field "", every array [], every object {}. Adapters return this
// when a provider's structured-output attempt fails after all retries, so
// the pipeline can proceed with well-formed (if empty) enrichment.
//
// This is one shared implementation of a helper that the reference
// extraction adapters each duplicated per-provider; keeping one copy here
// matches this codebase's own preference for shared helpers over
// per-package duplication elsewhere (see the config package's single
// validator rather than one per component).
package schemaempty

import "github.com/mfittko/raged/pkg/docregistry"

// Build walks schema.Fields and returns the empty-shaped object.
func Build(schema docregistry.Schema) map[string]any {
	out := make(map[string]any, len(schema.Fields))
	for _, f := range schema.Fields {
		switch f.Kind {
		case docregistry.KindArray:
			out[f.Name] = []any{}
		case docregistry.KindObject:
			out[f.Name] = map[string]any{}
		default:
			out[f.Name] = ""
		}
	}
	return out
}
