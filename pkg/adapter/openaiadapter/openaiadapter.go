// Package openaiadapter implements adapter.Adapter against the OpenAI Chat
// Completions API, grounded on the reference OpenAI adapter: JSON-mode
// (response_format: json_object) chat completions, with a vision-capable
// image_url content block for DescribeImage.
package openaiadapter

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

const maxTokens = 4096

// apiBaseURL is a var (not const) so tests can point it at a local server.
var apiBaseURL = "https://api.openai.com/v1"

// Config configures the adapter.
type Config struct {
	APIKey         string
	FastModel      string
	CapableModel   string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Adapter talks to the OpenAI Chat Completions API.
type Adapter struct {
	cfg     Config
	client  *http.Client
	limiter *ratelimit.Limiter
}

// New builds an OpenAI-backed adapter.Adapter.
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

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatChoice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type imageURLContent struct {
	Type     string `json:"type"`
	ImageURL struct {
		URL string `json:"url"`
	} `json:"image_url"`
}

// ExtractMetadata runs entry's prompt template through the fast model.
func (a *Adapter) ExtractMetadata(ctx context.Context, text string, entry docregistry.Entry) (map[string]any, error) {
	prompt := adapter.RenderPrompt(entry.PromptTemplate, text, &entry.Schema, "")
	return a.chatStructured(ctx, a.cfg.FastModel, textOnlyMessages(prompt), entry.Schema)
}

// ExtractEntities runs the generic entity/relationship prompt through the
// capable model.
func (a *Adapter) ExtractEntities(ctx context.Context, text string) ([]adapter.Entity, []adapter.Relationship, error) {
	prompt := adapter.RenderPrompt(adapter.EntityExtractionPrompt, text, &adapter.EntityExtractionSchema, "")
	result, err := a.chatStructured(ctx, a.cfg.CapableModel, textOnlyMessages(prompt), adapter.EntityExtractionSchema)
	if err != nil {
		return nil, nil, err
	}
	entities, relationships := decode.Entities(result)
	return entities, relationships, nil
}

// DescribeImage runs the image-description prompt through the capable model
// with a vision content block, matching the reference adapter's GPT-4 Vision
// call shape.
func (a *Adapter) DescribeImage(ctx context.Context, imageData, promptContext string) (adapter.ImageDescription, error) {
	prompt := adapter.RenderPrompt(adapter.ImageDescriptionPrompt, "", &adapter.ImageDescriptionSchema, promptContext)

	img := imageURLContent{Type: "image_url"}
	img.ImageURL.URL = fmt.Sprintf("data:image/jpeg;base64,%s", imageData)

	messages := []chatMessage{{
		Role:    "user",
		Content: []any{textContent{Type: "text", Text: prompt}, img},
	}}

	result, err := a.chatStructured(ctx, a.cfg.CapableModel, messages, adapter.ImageDescriptionSchema)
	if err != nil {
		return adapter.ImageDescription{}, err
	}
	return decode.ImageDescription(result), nil
}

// IsAvailable makes a minimal completion call to confirm the API key and
// endpoint are reachable.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := a.chat(ctx, a.cfg.FastModel, []chatMessage{{Role: "user", Content: "test"}}, false)
	return err == nil
}

func textOnlyMessages(prompt string) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: "You are a helpful assistant that extracts structured data. Always respond with valid JSON."},
		{Role: "user", Content: prompt},
	}
}

func (a *Adapter) chatStructured(ctx context.Context, model string, messages []chatMessage, schema docregistry.Schema) (map[string]any, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var parsed map[string]any
	err := retry.Do(ctx, func() error {
		raw, err := a.chat(ctx, model, messages, true)
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

func (a *Adapter) chat(ctx context.Context, model string, messages []chatMessage, jsonMode bool) (string, error) {
	reqBody := chatRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if jsonMode {
		reqBody.ResponseFormat = responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("openaiadapter: chat completion returned status %d", resp.StatusCode)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("openaiadapter: empty choices in response")
	}
	return decoded.Choices[0].Message.Content, nil
}
