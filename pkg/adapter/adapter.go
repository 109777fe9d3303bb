// Package adapter defines the uniform interface each extraction provider
// (Ollama, OpenAI, Anthropic) implements, plus the prompt-rendering helper
// shared by all three.
package adapter

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mfittko/raged/pkg/docregistry"
)

// maxPromptText is the character cap applied to {text} substitution, matching
// the reference extraction service's prompt-truncation behavior.
const maxPromptText = 8000

// Entity is a single entity found during document-level extraction.
type Entity struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Relationship is a directed edge between two extracted entities.
type Relationship struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// ImageDescription is the structured result of describing an image doc.
type ImageDescription struct {
	Description     string   `json:"description"`
	DetectedObjects []string `json:"detected_objects"`
	OCRText         string   `json:"ocr_text"`
	ImageType       string   `json:"image_type"`
}

// EntityExtractionPrompt is the generic document-level entity/relationship
// extraction prompt, ported from the reference entity-schema module: it asks
// for a flat list of named entities plus the relationships between them, as
// JSON.
const EntityExtractionPrompt = `Extract all named entities and the relationships between them from the
following text. Entities are people, organizations, locations, products, and
other proper nouns worth indexing. A relationship connects two entities by
name with a short label describing how they relate.

Text:
{text}

Respond with JSON matching this schema:
{schema}
`

// EntityExtractionSchema describes the shape ExtractEntities responses must
// take, for empty-result fallback and prompt rendering alike.
var EntityExtractionSchema = docregistry.Schema{
	DocType: "entities",
	Fields: []docregistry.Field{
		{Name: "entities", Kind: docregistry.KindArray},
		{Name: "relationships", Kind: docregistry.KindArray},
	},
}

// ImageDescriptionPrompt is the generic image-description prompt shared by
// every provider; {context} is substituted with the caller-supplied context
// string (which may be empty).
const ImageDescriptionPrompt = `Describe this image in detail. Provide:
- description: a detailed description of the image
- detected_objects: the main objects/entities visible
- ocr_text: any text visible in the image
- image_type: a classification (photo, diagram, screenshot, chart)

{context}

Respond with JSON matching this schema:
{schema}
`

// ImageDescriptionSchema describes the shape DescribeImage responses must
// take.
var ImageDescriptionSchema = docregistry.Schema{
	DocType: "image_description",
	Fields: []docregistry.Field{
		{Name: "description", Kind: docregistry.KindString},
		{Name: "detected_objects", Kind: docregistry.KindArray},
		{Name: "ocr_text", Kind: docregistry.KindString},
		{Name: "image_type", Kind: docregistry.KindString},
	},
}

// Adapter is implemented by each extraction provider. Every method degrades
// to a schema-shaped empty/zero result rather than propagating a transient
// provider error, except where noted by the caller's own error-handling
// contract.
type Adapter interface {
	// ExtractMetadata runs the per-doc-type structured extraction prompt over
	// text and returns a map shaped like entry.Schema.Fields.
	ExtractMetadata(ctx context.Context, text string, entry docregistry.Entry) (map[string]any, error)

	// ExtractEntities runs the generic document-level entity/relationship
	// extraction prompt over text.
	ExtractEntities(ctx context.Context, text string) ([]Entity, []Relationship, error)

	// DescribeImage runs the image-description prompt against the base64-
	// encoded image imageData, substituting promptContext for {context}. Not
	// reachable from the per-chunk pipeline; available for direct use by a
	// future producer-side caller.
	DescribeImage(ctx context.Context, imageData, promptContext string) (ImageDescription, error)

	// IsAvailable reports whether the provider can currently serve requests
	// (e.g. the configured model is reachable).
	IsAvailable(ctx context.Context) bool
}

// GenericMetadataPrompt is the prompt RenderPrompt uses when it is given an
// empty template, such as an overlay doc type with no prompt_template.
const GenericMetadataPrompt = `Extract structured metadata from the following text.

Text:
{text}

Respond with JSON matching this schema:
{schema}
`

// RenderPrompt substitutes {text}, {schema}, and {context} placeholders in
// template, falling back to GenericMetadataPrompt when template is empty.
// text is truncated to maxPromptText characters before substitution. When
// schema is nil, a {schema} placeholder is left in place.
func RenderPrompt(template, text string, schema *docregistry.Schema, promptContext string) string {
	out := template
	if out == "" {
		out = GenericMetadataPrompt
	}

	if strings.Contains(out, "{text}") {
		out = strings.ReplaceAll(out, "{text}", truncate(text, maxPromptText))
	}
	if strings.Contains(out, "{context}") {
		out = strings.ReplaceAll(out, "{context}", promptContext)
	}
	if strings.Contains(out, "{schema}") && schema != nil {
		out = strings.ReplaceAll(out, "{schema}", renderSchema(*schema))
	}

	return out
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// renderSchema pretty-prints a schema as a JSON object mapping each field
// name to a placeholder value of the right shape, so the model sees a
// concrete example of the expected response.
func renderSchema(schema docregistry.Schema) string {
	shape := make(map[string]any, len(schema.Fields))
	for _, f := range schema.Fields {
		switch f.Kind {
		case docregistry.KindArray:
			shape[f.Name] = []string{"..."}
		case docregistry.KindObject:
			shape[f.Name] = map[string]string{"...": "..."}
		default:
			shape[f.Name] = "..."
		}
	}
	b, err := json.MarshalIndent(shape, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
