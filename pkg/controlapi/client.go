// Package controlapi is the HTTP client for the control-plane API that owns
// task queue state: claim, submit, fail, and recover-stale. The worker never
// computes retry or backoff itself — it only reports outcomes here.
package controlapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client talks to the control API's internal task endpoints over bearer-auth
// HTTP, following the same request-construction/status-check/JSON-decode
// shape used throughout the reference HTTP clients in this codebase.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a Client. The underlying *http.Client is process-wide and
// reused across all consumers, per the shared-resources requirement.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout:   60 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// ClaimRequest is the request body for POST /internal/tasks/claim.
type ClaimRequest struct {
	WorkerID      string `json:"workerId"`
	LeaseDuration int    `json:"leaseDuration"`
}

// ClaimedTask is the `task` field of a claim response.
type ClaimedTask struct {
	ID      string         `json:"id"`
	Payload map[string]any `json:"payload"`
	Attempt int            `json:"attempt"`

	// RetryAfter is a legacy producer's retry-after hint: when set, the
	// consumer sleeps until this wall-clock time before processing the task.
	RetryAfter *time.Time `json:"retryAfter,omitempty"`
}

// ClaimedChunk is one element of a claim response's `chunks` field.
type ClaimedChunk struct {
	ChunkIndex int    `json:"chunkIndex"`
	Text       string `json:"text"`
}

// ClaimResponse is the full response body of POST /internal/tasks/claim.
// An empty `{}` response (no task ready) decodes to a response with a nil
// Task and is not an error.
type ClaimResponse struct {
	Task   *ClaimedTask   `json:"task,omitempty"`
	Chunks []ClaimedChunk `json:"chunks,omitempty"`
}

// Claim requests the next available task under a lease. A nil response (no
// error) means no task was ready; the caller should sleep and poll again.
func (c *Client) Claim(ctx context.Context, workerID string, leaseDuration time.Duration) (*ClaimResponse, error) {
	var resp ClaimResponse
	if err := c.post(ctx, "/internal/tasks/claim", ClaimRequest{
		WorkerID:      workerID,
		LeaseDuration: int(leaseDuration.Seconds()),
	}, &resp); err != nil {
		return nil, err
	}
	if resp.Task == nil {
		return nil, nil
	}
	return &resp, nil
}

// SubmitRequest is the request body for POST /internal/tasks/{id}/result.
// Tier-3 fields are omitted (via omitempty) rather than sent as null when
// absent, per the submit contract.
type SubmitRequest struct {
	ChunkID       string         `json:"chunkId"`
	Collection    string         `json:"collection"`
	Tier2         *Tier2Result   `json:"tier2,omitempty"`
	Tier3         map[string]any `json:"tier3,omitempty"`
	Entities      []Entity       `json:"entities,omitempty"`
	Relationships []Relationship `json:"relationships,omitempty"`
	Summary       string         `json:"summary,omitempty"`
}

// Tier2Result is the per-chunk NLP output.
type Tier2Result struct {
	Entities []Tier2Entity `json:"entities"`
	Keywords []string      `json:"keywords"`
	Language string        `json:"language"`
}

// Tier2Entity is a single named-entity span found by tier-2 extraction.
type Tier2Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Entity is a document-level entity produced by tier-3 extraction.
type Entity struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Relationship is a document-level relationship produced by tier-3 extraction.
type Relationship struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Submit reports the enrichment result for one chunk. Per the pipeline
// contract this is called at most once per attempt.
func (c *Client) Submit(ctx context.Context, taskID string, req SubmitRequest) error {
	return c.post(ctx, fmt.Sprintf("/internal/tasks/%s/result", taskID), req, nil)
}

type failRequest struct {
	Error string `json:"error"`
}

// Fail reports that processing the task failed. The control API decides
// retry-vs-dead-letter; this call never retries in-process.
func (c *Client) Fail(ctx context.Context, taskID string, errMsg string) error {
	return c.post(ctx, fmt.Sprintf("/internal/tasks/%s/fail", taskID), failRequest{Error: errMsg}, nil)
}

type recoverStaleResponse struct {
	Recovered int `json:"recovered"`
}

// RecoverStale resets tasks with expired leases back to pending. Returns the
// number of tasks recovered.
func (c *Client) RecoverStale(ctx context.Context) (int, error) {
	var resp recoverStaleResponse
	if err := c.post(ctx, "/internal/tasks/recover-stale", struct{}{}, &resp); err != nil {
		return 0, err
	}
	return resp.Recovered, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}
