package pipeline

import (
	"fmt"
	"time"

	"github.com/mfittko/raged/pkg/controlapi"
)

// Task is the typed view of a claimed task's payload: a flat open record
// with a handful of required fields and whatever else the producer attached.
type Task struct {
	ID          string
	Attempt     int
	BaseID      string
	DocType     string
	Collection  string
	Source      string
	ChunkIndex  int
	TotalChunks int

	// RetryAfter is a legacy producer's retry-after hint, carried through
	// unchanged from the claim response. Nil unless the producer set it.
	RetryAfter *time.Time
}

// ChunkID renders the "{baseId}:{chunkIndex}" identifier submit expects.
func (t Task) ChunkID() string {
	return fmt.Sprintf("%s:%d", t.BaseID, t.ChunkIndex)
}

// IsLastChunk reports whether this is the chunk that should carry tier-3
// document-level extraction.
func (t Task) IsLastChunk() bool {
	return t.ChunkIndex == t.TotalChunks-1
}

func parseTask(claimed *controlapi.ClaimedTask) (Task, error) {
	p := claimed.Payload

	baseID, err := stringField(p, "baseId")
	if err != nil {
		return Task{}, err
	}
	docType, err := stringField(p, "docType")
	if err != nil {
		return Task{}, err
	}
	chunkIndex, err := intField(p, "chunkIndex")
	if err != nil {
		return Task{}, err
	}
	totalChunks, err := intField(p, "totalChunks")
	if err != nil {
		return Task{}, err
	}

	return Task{
		ID:          claimed.ID,
		Attempt:     claimed.Attempt,
		BaseID:      baseID,
		DocType:     docType,
		Collection:  optionalStringField(p, "collection"),
		Source:      optionalStringField(p, "source"),
		ChunkIndex:  chunkIndex,
		TotalChunks: totalChunks,
		RetryAfter:  claimed.RetryAfter,
	}, nil
}

func stringField(payload map[string]any, key string) (string, error) {
	v, ok := payload[key]
	if !ok {
		return "", fmt.Errorf("pipeline: payload missing required field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("pipeline: payload field %q is not a string", key)
	}
	return s, nil
}

func optionalStringField(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func intField(payload map[string]any, key string) (int, error) {
	v, ok := payload[key]
	if !ok {
		return 0, fmt.Errorf("pipeline: payload missing required field %q", key)
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("pipeline: payload field %q is not a number", key)
	}
}
