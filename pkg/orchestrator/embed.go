package orchestrator

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/flashpointintel/pipeline/pkg/datastore"
	"github.com/flashpointintel/pipeline/pkg/model"
)

// embedBatchSize is the fixed batch size for the embedding pass (spec.md
// §4.6), independent of the ingest chunk size since it runs once after
// every chunk has committed.
const embedBatchSize = 64

// embedExtracted runs the batch embedding pass (spec.md §4.6, tier B/C
// only): every job at status=extracted and is_duplicate=false is embedded
// in batches, upserted, and bulk-advanced to embedded.
func (o *Orchestrator) embedExtracted(ctx context.Context, log logr.Logger, tableCtx *datastore.TableContext, runID string) error {
	if o.embedder == nil {
		return fmt.Errorf("no embedder configured for tier %s", o.cfg.Tier)
	}

	entries, err := o.feedEntryRepo.GetExtractedNonDuplicates(ctx, tableCtx.FeedEntries, runID)
	if err != nil {
		return fmt.Errorf("load extracted entries: %w", err)
	}
	log.Info("embedding_selected", "count", len(entries))

	batchSize := o.cfg.EmbeddingBatchSize
	if batchSize <= 0 {
		batchSize = embedBatchSize
	}

	for start := 0; start < len(entries); start += batchSize {
		end := min(start+batchSize, len(entries))
		if err := o.embedBatch(ctx, runID, entries[start:end]); err != nil {
			return fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

// embedBatch embeds, upserts, and advances a single batch of entries.
func (o *Orchestrator) embedBatch(ctx context.Context, runID string, batch []model.FeedEntry) error {
	texts := make([]string, len(batch))
	for i, e := range batch {
		title := e.TitleEN
		if title == "" {
			title = e.Title
		}
		texts[i] = title + "\n" + e.Content
	}

	vectors, err := o.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("compute embeddings: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embedder returned %d vectors for %d inputs", len(vectors), len(batch))
	}

	embeddings := make([]model.Embedding, len(batch))
	entryIDs := make([]uuid.UUID, len(batch))
	for i, e := range batch {
		embeddings[i] = model.Embedding{FeedEntryID: e.ID, Vector: vectors[i], ModelName: o.cfg.EmbeddingModel}
		entryIDs[i] = e.ID
	}

	if err := o.embeddingRepo.BulkUpsertEmbeddings(ctx, embeddings); err != nil {
		return fmt.Errorf("upsert embeddings: %w", err)
	}

	if _, err := o.jobRepo.BulkUpdateStatus(ctx, entryIDs, runID, model.JobStatusEmbedded); err != nil {
		return fmt.Errorf("advance jobs to embedded: %w", err)
	}
	return nil
}
