// Package anthropicadapter implements adapter.Adapter against the Anthropic
// Messages API, grounded on the reference Anthropic adapter: tool-use for
// structured extraction, and a content-block JSON scrape for the vision
// DescribeImage call (Claude has no JSON-mode response format).
package anthropicadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mfittko/raged/pkg/adapter"
	"github.com/mfittko/raged/pkg/adapter/internal/decode"
	"github.com/mfittko/raged/pkg/adapter/internal/ratelimit"
	"github.com/mfittko/raged/pkg/adapter/internal/retry"
	"github.com/mfittko/raged/pkg/adapter/internal/schemaempty"
	"github.com/mfittko/raged/pkg/docregistry"
)

const (
	apiVersion = "2023-06-01"
	maxTokens  = 4096
)

// apiBaseURL is a var (not const) so tests can point it at a local server.
var apiBaseURL = "https://api.anthropic.com/v1"

// Config configures the adapter.
type Config struct {
	APIKey         string
	FastModel      string
	CapableModel   string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Adapter talks to the Anthropic Messages API.
type Adapter struct {
	cfg     Config
	client  *http.Client
	limiter *ratelimit.Limiter
}

// New builds an Anthropic-backed adapter.Adapter.
func New(cfg Config) *Adapter {
	return &Adapter{
		cfg: cfg,
		client: &http.Client{
			Timeout:   60 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
}

var _ adapter.Adapter = (*Adapter)(nil)

type tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Tools     []tool    `json:"tools,omitempty"`
	Messages  []message `json:"messages"`
}

type contentBlock struct {
	Type  string         `json:"type"`
	Text  string         `json:"text,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type imageBlock struct {
	Type   string      `json:"type"`
	Source imageSource `json:"source"`
}

type textBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ExtractMetadata runs entry's prompt template through the fast model using
// tool-use for structured output.
func (a *Adapter) ExtractMetadata(ctx context.Context, text string, entry docregistry.Entry) (map[string]any, error) {
	prompt := adapter.RenderPrompt(entry.PromptTemplate, text, &entry.Schema, "")
	return a.extractWithTool(ctx, a.cfg.FastModel, prompt, "metadata_extraction", entry.Schema)
}

// ExtractEntities runs the generic entity/relationship prompt through the
// capable model using tool-use.
func (a *Adapter) ExtractEntities(ctx context.Context, text string) ([]adapter.Entity, []adapter.Relationship, error) {
	prompt := adapter.RenderPrompt(adapter.EntityExtractionPrompt, text, &adapter.EntityExtractionSchema, "")
	result, err := a.extractWithTool(ctx, a.cfg.CapableModel, prompt, "entity_extraction", adapter.EntityExtractionSchema)
	if err != nil {
		return nil, nil, err
	}
	entities, relationships := decode.Entities(result)
	return entities, relationships, nil
}

// DescribeImage runs the image-description prompt through the capable model.
// Claude has no JSON response mode, so the span of the result text from its
// first '{' to its last '}' is parsed as JSON before falling back to a
// schema-shaped empty result.
func (a *Adapter) DescribeImage(ctx context.Context, imageData, promptContext string) (adapter.ImageDescription, error) {
	prompt := adapter.RenderPrompt(adapter.ImageDescriptionPrompt, "", &adapter.ImageDescriptionSchema, promptContext)

	if err := a.limiter.Wait(ctx); err != nil {
		return adapter.ImageDescription{}, err
	}

	messages := []message{{
		Role: "user",
		Content: []any{
			imageBlock{Type: "image", Source: imageSource{Type: "base64", MediaType: "image/jpeg", Data: imageData}},
			textBlock{Type: "text", Text: prompt},
		},
	}}

	var result map[string]any
	err := retry.Do(ctx, func() error {
		text, err := a.send(ctx, a.cfg.CapableModel, nil, messages)
		if err != nil {
			return err
		}
		parsed, ok := scrapeJSONObject(text)
		if !ok {
			return fmt.Errorf("anthropicadapter: no JSON object in image description response")
		}
		result = parsed
		return nil
	})
	if err != nil {
		result = schemaempty.Build(adapter.ImageDescriptionSchema)
	}
	return decode.ImageDescription(result), nil
}

// IsAvailable makes a minimal message call to confirm the API key and
// endpoint are reachable.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := a.send(ctx, a.cfg.FastModel, nil, []message{{Role: "user", Content: "test"}})
	return err == nil
}

func (a *Adapter) extractWithTool(ctx context.Context, model, prompt, toolName string, schema docregistry.Schema) (map[string]any, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	tools := []tool{{
		Name:        toolName,
		Description: "Extract structured data for " + toolName,
		InputSchema: jsonSchemaFor(schema),
	}}
	messages := []message{{Role: "user", Content: prompt}}

	var parsed map[string]any
	err := retry.Do(ctx, func() error {
		input, err := a.sendToolUse(ctx, model, tools, messages)
		if err != nil {
			return err
		}
		parsed = input
		return nil
	})
	if err != nil {
		return schemaempty.Build(schema), nil
	}
	return parsed, nil
}

func (a *Adapter) sendToolUse(ctx context.Context, model string, tools []tool, messages []message) (map[string]any, error) {
	resp, err := a.request(ctx, model, tools, messages)
	if err != nil {
		return nil, err
	}
	for _, block := range resp.Content {
		if block.Type == "tool_use" {
			return block.Input, nil
		}
	}
	return nil, fmt.Errorf("anthropicadapter: no tool_use block in response")
}

func (a *Adapter) send(ctx context.Context, model string, tools []tool, messages []message) (string, error) {
	resp, err := a.request(ctx, model, tools, messages)
	if err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("anthropicadapter: empty content in response")
	}
	return resp.Content[0].Text, nil
}

func (a *Adapter) request(ctx context.Context, model string, tools []tool, messages []message) (*messagesResponse, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Tools:     tools,
		Messages:  messages,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("anthropicadapter: messages call returned status %d", resp.StatusCode)
	}

	var decoded messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	return &decoded, nil
}

// jsonSchemaFor renders schema as a JSON-schema object suitable for a tool's
// input_schema.
func jsonSchemaFor(schema docregistry.Schema) map[string]any {
	properties := make(map[string]any, len(schema.Fields))
	for _, f := range schema.Fields {
		switch f.Kind {
		case docregistry.KindArray:
			properties[f.Name] = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
		case docregistry.KindObject:
			properties[f.Name] = map[string]any{"type": "object"}
		default:
			properties[f.Name] = map[string]any{"type": "string"}
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}

// scrapeJSONObject parses the span of text from its first '{' to its last
// '}' as one JSON object, matching the reference adapter's fallback parsing
// of Claude's free-form vision response. Text holding several separate
// objects does not parse.
func scrapeJSONObject(text string) (map[string]any, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &result); err != nil {
		return nil, false
	}
	return result, true
}
