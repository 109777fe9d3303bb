package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mfittko/raged/pkg/adapter"
	"github.com/mfittko/raged/pkg/controlapi"
	"github.com/mfittko/raged/pkg/docregistry"
	"github.com/mfittko/raged/pkg/nlp"
)

// submitCapturingServer records whether /result was hit and decodes the
// submitted body into captured.
func submitCapturingServer(t *testing.T, captured *controlapi.SubmitRequest, submitCalled *bool) *controlapi.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*submitCalled = true
		require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(server.Close)
	return controlapi.New(server.URL, "test-token")
}

type stubAdapter struct {
	metadata      map[string]any
	metadataErr   error
	entities      []adapter.Entity
	relationships []adapter.Relationship
	entitiesErr   error
}

func (s *stubAdapter) ExtractMetadata(ctx context.Context, text string, entry docregistry.Entry) (map[string]any, error) {
	return s.metadata, s.metadataErr
}

func (s *stubAdapter) ExtractEntities(ctx context.Context, text string) ([]adapter.Entity, []adapter.Relationship, error) {
	return s.entities, s.relationships, s.entitiesErr
}

func (s *stubAdapter) DescribeImage(ctx context.Context, imageData, promptContext string) (adapter.ImageDescription, error) {
	return adapter.ImageDescription{}, nil
}

func (s *stubAdapter) IsAvailable(ctx context.Context) bool { return true }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRegistry(t *testing.T) *docregistry.Registry {
	t.Helper()
	reg, err := docregistry.New("")
	require.NoError(t, err)
	return reg
}

func claimResponse(chunkIndex, totalChunks int, docType string, text string) *controlapi.ClaimResponse {
	return &controlapi.ClaimResponse{
		Task: &controlapi.ClaimedTask{
			ID:      "T1",
			Attempt: 1,
			Payload: map[string]any{
				"baseId":      "D",
				"docType":     docType,
				"collection":  "docs",
				"chunkIndex":  float64(chunkIndex),
				"totalChunks": float64(totalChunks),
			},
		},
		Chunks: []controlapi.ClaimedChunk{{ChunkIndex: chunkIndex, Text: text}},
	}
}

func TestProcessNonFinalChunkOmitsTier3(t *testing.T) {
	var captured controlapi.SubmitRequest
	var submitCalled bool
	client := submitCapturingServer(t, &captured, &submitCalled)

	orch := &Orchestrator{
		Registry: newRegistry(t),
		NLP:      &nlp.Stage{},
		Adapter:  &stubAdapter{},
		Client:   client,
		Logger:   discardLogger(),
	}

	err := orch.Process(context.Background(), claimResponse(0, 2, "code", "print(1)"))
	require.NoError(t, err)
	require.Equal(t, "D:0", captured.ChunkID)
	require.NotNil(t, captured.Tier2)
	require.Nil(t, captured.Tier3)
	require.Empty(t, captured.Entities)
	require.Empty(t, captured.Relationships)
	require.True(t, submitCalled)
}

func TestProcessFinalChunkIncludesTier3(t *testing.T) {
	var captured controlapi.SubmitRequest
	var submitCalled bool
	client := submitCapturingServer(t, &captured, &submitCalled)

	orch := &Orchestrator{
		Registry: newRegistry(t),
		NLP:      &nlp.Stage{},
		Adapter: &stubAdapter{
			metadata: map[string]any{"summary": "a summary", "purpose": "x", "complexity": "low"},
			entities: []adapter.Entity{
				{Name: "Acme", Type: "org"},
				{Name: "", Type: "ignored"},
			},
			relationships: []adapter.Relationship{
				{Source: "Acme", Target: "Globex", Type: "partners"},
				{Source: "", Target: "Globex", Type: "ignored"},
			},
		},
		Client: client,
		Logger: discardLogger(),
	}

	err := orch.Process(context.Background(), claimResponse(1, 2, "code", "print(2)"))
	require.NoError(t, err)
	require.Equal(t, "D:1", captured.ChunkID)
	require.NotNil(t, captured.Tier3)
	require.Equal(t, "a summary", captured.Summary)
	require.Len(t, captured.Entities, 1)
	require.Equal(t, "Acme", captured.Entities[0].Name)
	require.Len(t, captured.Relationships, 1)
	require.True(t, submitCalled)
}

func TestProcessPropagatesTier3Error(t *testing.T) {
	var captured controlapi.SubmitRequest
	var submitCalled bool
	client := submitCapturingServer(t, &captured, &submitCalled)

	orch := &Orchestrator{
		Registry: newRegistry(t),
		NLP:      &nlp.Stage{},
		Adapter:  &stubAdapter{metadataErr: errors.New("provider unreachable")},
		Client:   client,
		Logger:   discardLogger(),
	}

	err := orch.Process(context.Background(), claimResponse(1, 2, "code", "print(2)"))
	require.Error(t, err)
	require.False(t, submitCalled)
}
