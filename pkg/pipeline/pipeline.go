// Package pipeline runs the two-tier enrichment pipeline over one claimed
// chunk: cheap per-chunk NLP always, expensive document-level extraction
// only on the document's final chunk, then a single submit call.
package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mfittko/raged/pkg/adapter"
	"github.com/mfittko/raged/pkg/controlapi"
	"github.com/mfittko/raged/pkg/docregistry"
	"github.com/mfittko/raged/pkg/nlp"
)

// Orchestrator wires the doc-type registry, NLP stage, extraction adapter,
// and control-API client into the per-chunk processing contract.
type Orchestrator struct {
	Registry *docregistry.Registry
	NLP      *nlp.Stage
	Adapter  adapter.Adapter
	Client   *controlapi.Client
	Logger   *slog.Logger
}

// Process runs tier-2, conditionally tier-3, and submits the result exactly
// once. Tier-2 sub-failures are absorbed into empty defaults; tier-3 and
// submit errors propagate to the caller, which must report them via Fail.
func (o *Orchestrator) Process(ctx context.Context, resp *controlapi.ClaimResponse) error {
	task, err := parseTask(resp.Task)
	if err != nil {
		return err
	}

	text := chunkText(resp.Chunks, task.ChunkIndex)

	tier2 := o.runTier2(text)

	req := controlapi.SubmitRequest{
		ChunkID:    task.ChunkID(),
		Collection: task.Collection,
		Tier2:      &tier2,
	}

	if task.IsLastChunk() {
		entry := o.Registry.Resolve(task.DocType)
		tier3, entities, relationships, summary, err := o.runTier3(ctx, text, entry)
		if err != nil {
			return err
		}
		req.Tier3 = tier3
		req.Entities = entities
		req.Relationships = relationships
		req.Summary = summary
	}

	if err := o.Client.Submit(ctx, task.ID, req); err != nil {
		return err
	}

	o.Logger.Info("enrichment complete",
		"event", "enrichment_complete",
		"taskId", task.ID,
		"baseId", task.BaseID,
		"docType", task.DocType,
		"chunkIndex", task.ChunkIndex,
		"attempt", task.Attempt,
	)
	return nil
}

// runTier2 runs entity/keyphrase extraction and language detection
// concurrently, in isolated goroutines so one subtask's panic or failure
// never drops the other's result.
func (o *Orchestrator) runTier2(text string) controlapi.Tier2Result {
	var nlpResult nlp.Result
	language := "unknown"

	g, _ := errgroup.WithContext(context.Background())
	g.Go(func() error {
		defer o.recoverSubtask("tier2.entities_keywords")
		nlpResult = o.NLP.ProcessText(text)
		return nil
	})
	g.Go(func() error {
		defer o.recoverSubtask("tier2.language")
		language = o.NLP.DetectLanguage(text)
		return nil
	})
	_ = g.Wait()

	entities := make([]controlapi.Tier2Entity, 0, len(nlpResult.Entities))
	for _, e := range nlpResult.Entities {
		entities = append(entities, controlapi.Tier2Entity{Text: e.Text, Label: e.Label})
	}
	keywords := nlpResult.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	return controlapi.Tier2Result{
		Entities: entities,
		Keywords: keywords,
		Language: language,
	}
}

func (o *Orchestrator) recoverSubtask(name string) {
	if r := recover(); r != nil {
		o.Logger.Warn("tier-2 subtask panicked, using empty default", "subtask", name, "panic", r)
	}
}

// runTier3 runs document-level metadata and entity/relationship extraction.
// The two adapter calls may run concurrently; their relative order must not
// matter. A real adapter error (as opposed to a degraded-but-successful
// empty result) propagates.
func (o *Orchestrator) runTier3(ctx context.Context, text string, entry docregistry.Entry) (map[string]any, []controlapi.Entity, []controlapi.Relationship, string, error) {
	var metadata map[string]any
	var entities []adapter.Entity
	var relationships []adapter.Relationship

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := o.Adapter.ExtractMetadata(gctx, text, entry)
		if err != nil {
			return err
		}
		metadata = m
		return nil
	})
	g.Go(func() error {
		e, r, err := o.Adapter.ExtractEntities(gctx, text)
		if err != nil {
			return err
		}
		entities, relationships = e, r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, "", err
	}

	summary := ""
	if entry.Schema.HasSummary {
		if s, ok := metadata["summary"].(string); ok {
			summary = s
		}
	}

	return metadata, filterEntities(entities), filterRelationships(relationships), summary, nil
}

func filterEntities(in []adapter.Entity) []controlapi.Entity {
	out := make([]controlapi.Entity, 0, len(in))
	for _, e := range in {
		if e.Name == "" {
			continue
		}
		out = append(out, controlapi.Entity{Name: e.Name, Type: e.Type, Description: e.Description})
	}
	return out
}

func filterRelationships(in []adapter.Relationship) []controlapi.Relationship {
	out := make([]controlapi.Relationship, 0, len(in))
	for _, r := range in {
		if r.Source == "" || r.Target == "" {
			continue
		}
		out = append(out, controlapi.Relationship{Source: r.Source, Target: r.Target, Type: r.Type, Description: r.Description})
	}
	return out
}

// chunkText returns the text of the claimed chunk matching chunkIndex, or
// "" if the claim response didn't include it.
func chunkText(chunks []controlapi.ClaimedChunk, chunkIndex int) string {
	for _, c := range chunks {
		if c.ChunkIndex == chunkIndex {
			return c.Text
		}
	}
	return ""
}
