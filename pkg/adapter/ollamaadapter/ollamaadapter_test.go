package ollamaadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mfittko/raged/pkg/docregistry"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		FastModel:      "fast",
		CapableModel:   "capable",
		VisionModel:    "vision",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}
}

func TestExtractMetadataParsesGenerateResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		_ = json.NewEncoder(w).Encode(generateResponse{Response: `{"title":"hello"}`})
	}))
	defer server.Close()

	a := New(testConfig(server.URL))
	entry := docregistry.Entry{
		PromptTemplate: "{text}{schema}",
		Schema: docregistry.Schema{
			Fields: []docregistry.Field{{Name: "title", Kind: docregistry.KindString}},
		},
	}

	result, err := a.ExtractMetadata(context.Background(), "some text", entry)

	require.NoError(t, err)
	require.Equal(t, "hello", result["title"])
}

func TestExtractMetadataFallsBackOnUnparseableResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "not json"})
	}))
	defer server.Close()

	a := New(testConfig(server.URL))
	entry := docregistry.Entry{
		PromptTemplate: "{text}",
		Schema: docregistry.Schema{
			Fields: []docregistry.Field{{Name: "title", Kind: docregistry.KindString}},
		},
	}

	result, err := a.ExtractMetadata(context.Background(), "some text", entry)

	require.NoError(t, err)
	require.Equal(t, "", result["title"])
}

func TestExtractEntitiesDecodesEntitiesAndRelationships(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(generateResponse{
			Response: `{"entities":[{"name":"Acme","type":"org"}],"relationships":[{"source":"Acme","target":"Bob","type":"employs"}]}`,
		})
	}))
	defer server.Close()

	a := New(testConfig(server.URL))

	entities, relationships, err := a.ExtractEntities(context.Background(), "text")

	require.NoError(t, err)
	require.Len(t, entities, 1)
	require.Equal(t, "Acme", entities[0].Name)
	require.Len(t, relationships, 1)
	require.Equal(t, "employs", relationships[0].Type)
}

func TestIsAvailableReflectsServerStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	a := New(testConfig(server.URL))

	require.True(t, a.IsAvailable(context.Background()))
}

func TestIsAvailableFalseOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	a := New(testConfig(server.URL))

	require.False(t, a.IsAvailable(context.Background()))
}
