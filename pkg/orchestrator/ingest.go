package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/flashpointintel/pipeline/pkg/datastore"
	"github.com/flashpointintel/pipeline/pkg/dedupe"
	"github.com/flashpointintel/pipeline/pkg/extract"
	"github.com/flashpointintel/pipeline/pkg/model"
)

// fetchOutcome is the result of phase 1 (concurrent fetch) for one entry,
// consumed sequentially by phase 2 (spec.md §4.6).
type fetchOutcome struct {
	entry    model.FeedEntry
	html     string
	fetchErr error
	fetchMs  int64
}

// ingestChunk processes one fixed-size chunk: phase 1 fetches every entry
// concurrently, phase 2 extracts/enriches/dedupes/persists each outcome in
// order, because the database session is not concurrency-safe. One commit
// per chunk (each repository call here is already transactional at the
// row/bulk level; the chunk boundary is the unit of forward progress).
func (o *Orchestrator) ingestChunk(ctx context.Context, log logr.Logger, tableCtx *datastore.TableContext, runID string, chunk []model.FeedEntry, dedupeEngine *dedupe.Engine) error {
	chunk, err := o.loadResumeContent(ctx, tableCtx, chunk)
	if err != nil {
		return fmt.Errorf("load resume content: %w", err)
	}

	outcomes := o.fetchPhase(ctx, chunk)
	for _, outcome := range outcomes {
		if err := o.processEntry(ctx, log, tableCtx, runID, outcome, dedupeEngine); err != nil {
			return fmt.Errorf("process entry %s: %w", outcome.entry.ID, err)
		}
	}
	return nil
}

// loadResumeContent fetches the heavy enrichment columns, lazily and per
// chunk, for entries GetUnprocessed flagged as already having content
// (spec.md §4.6's resume path) — GetUnprocessed itself only ever returns
// lightweight columns.
func (o *Orchestrator) loadResumeContent(ctx context.Context, tableCtx *datastore.TableContext, chunk []model.FeedEntry) ([]model.FeedEntry, error) {
	var resumeIDs []uuid.UUID
	for _, e := range chunk {
		if e.HasContent {
			resumeIDs = append(resumeIDs, e.ID)
		}
	}
	if len(resumeIDs) == 0 {
		return chunk, nil
	}

	content, err := o.feedEntryRepo.GetEntryContentBatch(ctx, tableCtx.FeedEntries, resumeIDs)
	if err != nil {
		return nil, err
	}

	for i, e := range chunk {
		if full, ok := content[e.ID]; ok {
			chunk[i].Content = full.Content
			chunk[i].Summary = full.Summary
			chunk[i].Entities = full.Entities
			chunk[i].GeoEntities = full.GeoEntities
		}
	}
	return chunk, nil
}

// fetchPhase resolves HTML for every entry in the chunk concurrently.
// Entries that already carry content (the resume path) are passed through
// untouched — they skip fetch and extract entirely.
func (o *Orchestrator) fetchPhase(ctx context.Context, chunk []model.FeedEntry) []fetchOutcome {
	outcomes := make([]fetchOutcome, len(chunk))
	var wg sync.WaitGroup
	for i, entry := range chunk {
		outcomes[i].entry = entry
		if entry.HasContent {
			continue
		}
		wg.Add(1)
		go func(i int, entry model.FeedEntry) {
			defer wg.Done()
			result, err := o.fetcher.Fetch(ctx, entry.URL)
			if err != nil {
				outcomes[i].fetchErr = err
				return
			}
			outcomes[i].html = result.HTML
			outcomes[i].fetchMs = result.DurationMs
		}(i, entry)
	}
	wg.Wait()
	return outcomes
}

// processEntry runs extraction (unless resuming), the full enrichment
// order, the dedupe check, and the resulting persistence + status
// transition for a single entry (spec.md §4.6 enrichment order).
func (o *Orchestrator) processEntry(ctx context.Context, log logr.Logger, tableCtx *datastore.TableContext, runID string, outcome fetchOutcome, dedupeEngine *dedupe.Engine) error {
	entry := outcome.entry

	if outcome.fetchErr != nil {
		return o.failEntry(ctx, entry.ID, runID, outcome.fetchErr, model.FailureReasonUnknown)
	}

	content := entry.Content
	var extractionMethod string
	var extractionChars int
	var extractMs int64
	if !entry.HasContent {
		extracted, err := extract.Extract(outcome.html, o.cfg.MinContentLength)
		if err != nil {
			reason := model.FailureReasonUnknown
			if extractErr, ok := err.(*extract.Error); ok {
				reason = mapExtractReason(extractErr.Reason)
			}
			return o.failEntry(ctx, entry.ID, runID, err, reason)
		}
		content = extracted.Text
		entry.Content = content
		extractionMethod = extracted.Method
		extractionChars = extracted.Chars
		extractMs = extracted.DurationMs
	}

	if o.enricher != nil {
		o.enricher.Enrich(ctx, &entry, outcome.html)
	}

	dedupeResult := dedupeEngine.CheckAndRegister(entry.ID.String(), content)
	isDuplicate := dedupeResult.IsExact || dedupeResult.IsNear

	update := datastore.EnrichmentUpdate{
		Content:     &entry.Content,
		TitleEN:     &entry.TitleEN,
		Hostname:    &entry.Hostname,
		Entities:    entry.Entities,
		GeoEntities: entry.GeoEntities,
		Images:      entry.Images,
	}
	if err := o.feedEntryRepo.UpdateEnrichment(ctx, tableCtx.FeedEntries, entry.ID, update); err != nil {
		return fmt.Errorf("persist enrichment: %w", err)
	}

	status := model.JobStatusExtracted
	if isDuplicate {
		status = model.JobStatusSkippedDuplicate
	}
	job := model.Job{
		Status:            status,
		ExtractionMethod:  extractionMethod,
		ExtractionChars:   extractionChars,
		ContentHash:       dedupeResult.ContentHash,
		IsDuplicate:       isDuplicate,
		FetchDurationMs:   int(outcome.fetchMs),
		ExtractDurationMs: int(extractMs),
	}
	if dedupeResult.DuplicateOf != "" {
		if dup, err := uuid.Parse(dedupeResult.DuplicateOf); err == nil {
			job.DuplicateOf = &dup
		}
	}
	if err := o.jobRepo.RecordExtraction(ctx, entry.ID, runID, job); err != nil {
		return fmt.Errorf("record extraction: %w", err)
	}
	return nil
}

func (o *Orchestrator) failEntry(ctx context.Context, entryID uuid.UUID, runID string, cause error, reason model.FailureReason) error {
	msg := cause.Error()
	if len(msg) > 2000 {
		msg = msg[:2000]
	}
	if err := o.jobRepo.MarkFailed(ctx, entryID, runID, msg, reason); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// mapExtractReason translates pkg/extract's failure taxonomy onto
// pkg/model's, the two packages having been grounded on the same
// heuristic classifier independently (spec.md §4.3/§4.1).
func mapExtractReason(reason extract.FailureReason) model.FailureReason {
	switch reason {
	case extract.ReasonPaywall:
		return model.FailureReasonPaywall
	case extract.ReasonConsent:
		return model.FailureReasonConsent
	case extract.ReasonJSRequired:
		return model.FailureReasonJSRequired
	case extract.ReasonNoText:
		return model.FailureReasonNoText
	default:
		return model.FailureReasonUnknown
	}
}
