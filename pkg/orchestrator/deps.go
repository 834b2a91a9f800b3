package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/flashpointintel/pipeline/pkg/datastore"
	"github.com/flashpointintel/pipeline/pkg/model"
)

// JobRepository narrows datastore.JobRepository to the methods the
// orchestrator drives, so tests can substitute an in-memory fake.
type JobRepository interface {
	GetUnprocessed(ctx context.Context, feedEntriesTable, runID string, limit int) ([]model.FeedEntry, error)
	ClaimJobsBulk(ctx context.Context, entryIDs []uuid.UUID, runID string) (int64, error)
	BulkUpdateStatus(ctx context.Context, entryIDs []uuid.UUID, runID string, status model.JobStatus) (int64, error)
	MarkFailed(ctx context.Context, entryID uuid.UUID, runID, errMsg string, reason model.FailureReason) error
	RecordExtraction(ctx context.Context, entryID uuid.UUID, runID string, job model.Job) error
	GetRunStats(ctx context.Context, runID string) (map[string]int, error)
	GetFlashpointIDsForRun(ctx context.Context, feedEntriesTable, runID string) ([]uuid.UUID, error)
}

var _ JobRepository = (*datastore.JobRepository)(nil)

// FeedEntryRepository narrows datastore.FeedEntryRepository.
type FeedEntryRepository interface {
	GetEntryContentBatch(ctx context.Context, feedEntriesTable string, entryIDs []uuid.UUID) (map[uuid.UUID]model.FeedEntry, error)
	GetEntriesForFlashpoint(ctx context.Context, feedEntriesTable string, flashpointID uuid.UUID, runID string) ([]model.FeedEntry, error)
	GetExtractedNonDuplicates(ctx context.Context, feedEntriesTable, runID string) ([]model.FeedEntry, error)
	UpdateEnrichment(ctx context.Context, feedEntriesTable string, entryID uuid.UUID, update datastore.EnrichmentUpdate) error
}

var _ FeedEntryRepository = (*datastore.FeedEntryRepository)(nil)

// EmbeddingRepository narrows datastore.EmbeddingRepository.
type EmbeddingRepository interface {
	BulkUpsertEmbeddings(ctx context.Context, embeddings []model.Embedding) error
	GetEmbeddingsForFlashpoint(ctx context.Context, feedEntriesTable string, flashpointID uuid.UUID, runID string) ([]model.Embedding, error)
}

var _ EmbeddingRepository = (*datastore.EmbeddingRepository)(nil)

// RunRepository narrows datastore.RunRepository.
type RunRepository interface {
	CreateRun(ctx context.Context, runID, tier, targetDate string) (*model.Run, error)
	MarkRunning(ctx context.Context, runID string) error
	MarkCompleted(ctx context.Context, runID string, metrics map[string]any) error
	MarkPartial(ctx context.Context, runID string, metrics map[string]any, errMsg string) error
	MarkFailed(ctx context.Context, runID, errMsg string) error
	MarkStaleRunsFailed(ctx context.Context, maxAge time.Duration) (int64, error)
}

var _ RunRepository = (*datastore.RunRepository)(nil)

// Resolver narrows datastore.Resolver.
type Resolver interface {
	ResolveTables(ctx context.Context, targetDate string) (*datastore.TableContext, error)
	EnsureOutputTable(ctx context.Context, targetDate string) (string, error)
}

var _ Resolver = (*datastore.Resolver)(nil)
