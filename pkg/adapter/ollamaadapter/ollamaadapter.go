// Package ollamaadapter implements adapter.Adapter against a local or
// self-hosted Ollama instance, grounded on the reference Ollama adapter:
// raw JSON POSTs to /api/generate with format=json, and a /api/tags
// reachability probe for IsAvailable.
package ollamaadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mfittko/raged/pkg/adapter"
	"github.com/mfittko/raged/pkg/adapter/internal/decode"
	"github.com/mfittko/raged/pkg/adapter/internal/ratelimit"
	"github.com/mfittko/raged/pkg/adapter/internal/retry"
	"github.com/mfittko/raged/pkg/adapter/internal/schemaempty"
	"github.com/mfittko/raged/pkg/docregistry"
)

// Config configures the adapter.
type Config struct {
	BaseURL        string
	FastModel      string
	CapableModel   string
	VisionModel    string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Adapter talks to an Ollama server's /api/generate endpoint.
type Adapter struct {
	cfg     Config
	client  *http.Client
	limiter *ratelimit.Limiter
}

// New builds an Ollama-backed adapter.Adapter.
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

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// ExtractMetadata runs entry's prompt template through the fast model.
func (a *Adapter) ExtractMetadata(ctx context.Context, text string, entry docregistry.Entry) (map[string]any, error) {
	prompt := adapter.RenderPrompt(entry.PromptTemplate, text, &entry.Schema, "")
	return a.generateStructured(ctx, a.cfg.FastModel, prompt, nil, entry.Schema)
}

// ExtractEntities runs the generic entity/relationship prompt through the
// capable model.
func (a *Adapter) ExtractEntities(ctx context.Context, text string) ([]adapter.Entity, []adapter.Relationship, error) {
	prompt := adapter.RenderPrompt(adapter.EntityExtractionPrompt, text, &adapter.EntityExtractionSchema, "")
	result, err := a.generateStructured(ctx, a.cfg.CapableModel, prompt, nil, adapter.EntityExtractionSchema)
	if err != nil {
		return nil, nil, err
	}
	entities, relationships := decode.Entities(result)
	return entities, relationships, nil
}

// DescribeImage runs the image-description prompt through the vision model.
func (a *Adapter) DescribeImage(ctx context.Context, imageData, promptContext string) (adapter.ImageDescription, error) {
	prompt := adapter.RenderPrompt(adapter.ImageDescriptionPrompt, "", &adapter.ImageDescriptionSchema, promptContext)
	result, err := a.generateStructured(ctx, a.cfg.VisionModel, prompt, []string{imageData}, adapter.ImageDescriptionSchema)
	if err != nil {
		return adapter.ImageDescription{}, err
	}
	return decode.ImageDescription(result), nil
}

// IsAvailable probes the server's tag listing endpoint.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (a *Adapter) generateStructured(ctx context.Context, model, prompt string, images []string, schema docregistry.Schema) (map[string]any, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var parsed map[string]any
	err := retry.Do(ctx, func() error {
		raw, err := a.generate(ctx, model, prompt, images)
		if err != nil {
			return err
		}
		var out map[string]any
		if jsonErr := json.Unmarshal([]byte(raw), &out); jsonErr != nil {
			return jsonErr
		}
		parsed = out
		return nil
	})
	if err != nil {
		return schemaempty.Build(schema), nil
	}
	return parsed, nil
}

func (a *Adapter) generate(ctx context.Context, model, prompt string, images []string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  model,
		Prompt: prompt,
		Images: images,
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("ollamaadapter: generate returned status %d", resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	return decoded.Response, nil
}

