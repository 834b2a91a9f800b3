package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flashpointintel/pipeline/pkg/datastore"
	"github.com/flashpointintel/pipeline/pkg/fetch"
	"github.com/flashpointintel/pipeline/pkg/model"
)

// fakeJobRepo is an in-memory JobRepository for orchestrator tests.
type fakeJobRepo struct {
	mu          sync.Mutex
	unprocessed []model.FeedEntry
	statuses    map[uuid.UUID]model.JobStatus
	failures    map[uuid.UUID]model.FailureReason
	extractions map[uuid.UUID]model.Job
	flashpoints map[uuid.UUID]uuid.UUID
	claimErr    error
}

func newFakeJobRepo(unprocessed []model.FeedEntry) *fakeJobRepo {
	return &fakeJobRepo{
		unprocessed: unprocessed,
		statuses:    map[uuid.UUID]model.JobStatus{},
		failures:    map[uuid.UUID]model.FailureReason{},
		extractions: map[uuid.UUID]model.Job{},
		flashpoints: map[uuid.UUID]uuid.UUID{},
	}
}

func (f *fakeJobRepo) GetUnprocessed(ctx context.Context, feedEntriesTable, runID string, limit int) ([]model.FeedEntry, error) {
	return f.unprocessed, nil
}

func (f *fakeJobRepo) ClaimJobsBulk(ctx context.Context, entryIDs []uuid.UUID, runID string) (int64, error) {
	if f.claimErr != nil {
		return 0, f.claimErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range entryIDs {
		f.statuses[id] = model.JobStatusFetching
	}
	return int64(len(entryIDs)), nil
}

func (f *fakeJobRepo) BulkUpdateStatus(ctx context.Context, entryIDs []uuid.UUID, runID string, status model.JobStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range entryIDs {
		f.statuses[id] = status
	}
	return int64(len(entryIDs)), nil
}

func (f *fakeJobRepo) MarkFailed(ctx context.Context, entryID uuid.UUID, runID, errMsg string, reason model.FailureReason) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[entryID] = model.JobStatusFailed
	f.failures[entryID] = reason
	return nil
}

func (f *fakeJobRepo) RecordExtraction(ctx context.Context, entryID uuid.UUID, runID string, job model.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[entryID] = job.Status
	f.extractions[entryID] = job
	return nil
}

func (f *fakeJobRepo) GetRunStats(ctx context.Context, runID string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := map[string]int{}
	for _, status := range f.statuses {
		stats[string(status)]++
	}
	return stats, nil
}

func (f *fakeJobRepo) GetFlashpointIDsForRun(ctx context.Context, feedEntriesTable, runID string) ([]uuid.UUID, error) {
	seen := map[uuid.UUID]struct{}{}
	var ids []uuid.UUID
	for _, fp := range f.flashpoints {
		if _, ok := seen[fp]; !ok {
			seen[fp] = struct{}{}
			ids = append(ids, fp)
		}
	}
	return ids, nil
}

// fakeFeedEntryRepo is an in-memory FeedEntryRepository for orchestrator
// tests.
type fakeFeedEntryRepo struct {
	mu           sync.Mutex
	resumeByID   map[uuid.UUID]model.FeedEntry
	flashpoint   map[uuid.UUID][]model.FeedEntry
	extracted    []model.FeedEntry
	enrichments  map[uuid.UUID]datastore.EnrichmentUpdate
}

func newFakeFeedEntryRepo() *fakeFeedEntryRepo {
	return &fakeFeedEntryRepo{
		resumeByID:  map[uuid.UUID]model.FeedEntry{},
		flashpoint:  map[uuid.UUID][]model.FeedEntry{},
		enrichments: map[uuid.UUID]datastore.EnrichmentUpdate{},
	}
}

func (f *fakeFeedEntryRepo) GetEntryContentBatch(ctx context.Context, feedEntriesTable string, entryIDs []uuid.UUID) (map[uuid.UUID]model.FeedEntry, error) {
	out := map[uuid.UUID]model.FeedEntry{}
	for _, id := range entryIDs {
		if e, ok := f.resumeByID[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func (f *fakeFeedEntryRepo) GetEntriesForFlashpoint(ctx context.Context, feedEntriesTable string, flashpointID uuid.UUID, runID string) ([]model.FeedEntry, error) {
	return f.flashpoint[flashpointID], nil
}

func (f *fakeFeedEntryRepo) GetExtractedNonDuplicates(ctx context.Context, feedEntriesTable, runID string) ([]model.FeedEntry, error) {
	return f.extracted, nil
}

func (f *fakeFeedEntryRepo) UpdateEnrichment(ctx context.Context, feedEntriesTable string, entryID uuid.UUID, update datastore.EnrichmentUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enrichments[entryID] = update
	return nil
}

// fakeEmbeddingRepo is an in-memory EmbeddingRepository.
type fakeEmbeddingRepo struct {
	mu         sync.Mutex
	upserted   []model.Embedding
	byFlash    map[uuid.UUID][]model.Embedding
	upsertErr  error
}

func newFakeEmbeddingRepo() *fakeEmbeddingRepo {
	return &fakeEmbeddingRepo{byFlash: map[uuid.UUID][]model.Embedding{}}
}

func (e *fakeEmbeddingRepo) BulkUpsertEmbeddings(ctx context.Context, embeddings []model.Embedding) error {
	if e.upsertErr != nil {
		return e.upsertErr
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.upserted = append(e.upserted, embeddings...)
	return nil
}

func (e *fakeEmbeddingRepo) GetEmbeddingsForFlashpoint(ctx context.Context, feedEntriesTable string, flashpointID uuid.UUID, runID string) ([]model.Embedding, error) {
	return e.byFlash[flashpointID], nil
}

// fakeRunRepo is an in-memory RunRepository.
type fakeRunRepo struct {
	mu         sync.Mutex
	runs       map[string]*model.Run
	completed  map[string]map[string]any
	partial    map[string]map[string]any
	failed     map[string]string
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{
		runs:      map[string]*model.Run{},
		completed: map[string]map[string]any{},
		partial:   map[string]map[string]any{},
		failed:    map[string]string{},
	}
}

func (r *fakeRunRepo) CreateRun(ctx context.Context, runID, tier, targetDate string) (*model.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run := &model.Run{RunID: runID, Tier: tier, TargetDate: targetDate, Status: model.RunStatusPending, StartedAt: time.Now()}
	r.runs[runID] = run
	return run, nil
}

func (r *fakeRunRepo) MarkRunning(ctx context.Context, runID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[runID]; ok {
		run.Status = model.RunStatusRunning
	}
	return nil
}

func (r *fakeRunRepo) MarkCompleted(ctx context.Context, runID string, metrics map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed[runID] = metrics
	return nil
}

func (r *fakeRunRepo) MarkPartial(ctx context.Context, runID string, metrics map[string]any, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.partial[runID] = metrics
	return nil
}

func (r *fakeRunRepo) MarkFailed(ctx context.Context, runID, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[runID] = errMsg
	return nil
}

func (r *fakeRunRepo) MarkStaleRunsFailed(ctx context.Context, maxAge time.Duration) (int64, error) {
	return 0, nil
}

// fakeResolver is an in-memory Resolver.
type fakeResolver struct {
	tableCtx *datastore.TableContext
}

func (r *fakeResolver) ResolveTables(ctx context.Context, targetDate string) (*datastore.TableContext, error) {
	return r.tableCtx, nil
}

func (r *fakeResolver) EnsureOutputTable(ctx context.Context, targetDate string) (string, error) {
	return r.tableCtx.NewsClusters, nil
}

// fakeFetcher is an in-memory Fetcher keyed by URL.
type fakeFetcher struct {
	html map[string]string
	err  map[string]error
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (*fetch.Result, error) {
	if err, ok := f.err[rawURL]; ok {
		return nil, err
	}
	html, ok := f.html[rawURL]
	if !ok {
		return nil, fmt.Errorf("fakeFetcher: no html configured for %s", rawURL)
	}
	return &fetch.Result{HTML: html, Status: 200, DurationMs: 10}, nil
}

// fakeEmbedder returns a fixed-dimension zero vector per input text.
type fakeEmbedder struct {
	dim int
	err error
}

func (e *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, e.dim)
	}
	return out, nil
}
