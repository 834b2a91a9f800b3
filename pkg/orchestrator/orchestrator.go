// Package orchestrator drives one end-to-end pipeline run (spec.md §4.6):
// resolve tables, claim work, ingest in chunks, batch-embed, cluster and
// summarize per flashpoint, then record final run metrics. Grounded on
// original_source/apps/orchestrator/main.py's run_pipeline: the numbered
// steps in that file (resolve tables, create run, mark running, select,
// claim, ingest, cluster, summarize, gather stats, mark terminal) map
// directly onto Orchestrator.Run's stages below.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/flashpointintel/pipeline/pkg/alert"
	"github.com/flashpointintel/pipeline/pkg/cluster"
	"github.com/flashpointintel/pipeline/pkg/datastore"
	"github.com/flashpointintel/pipeline/pkg/dedupe"
	"github.com/flashpointintel/pipeline/pkg/enrich"
	"github.com/flashpointintel/pipeline/pkg/fetch"
	"github.com/flashpointintel/pipeline/pkg/metrics"
	"github.com/flashpointintel/pipeline/pkg/model"
	"github.com/flashpointintel/pipeline/pkg/summary"
)

// Embedder computes fixed-dimension embeddings for a batch of texts
// (spec.md §4.6 "batch embedding"). ML model loading is out of core scope
// (spec.md §1) — the orchestrator depends only on this interface, the same
// pattern pkg/enrich uses for LanguageDetector/Translator/NERExtractor.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Fetcher resolves one URL's HTML (spec.md §4.2). Narrowed from
// *fetch.Fetcher so tests can substitute a stub without standing up a
// real HTTP client, semaphores, and circuit breaker.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Result, error)
}

var _ Fetcher = (*fetch.Fetcher)(nil)

// Config holds the orchestrator's tunables (spec.md §4.6, §5, §9).
type Config struct {
	Tier                   string
	SelectionLimit         int
	ChunkSize              int
	MinContentLength       int
	EmbeddingModel         string
	EmbeddingBatchSize     int
	ClusterK               int
	ClusterCosineThreshold float64
	DedupeConfig           dedupe.Config
	StaleRunMaxAge         time.Duration
}

// DefaultConfig returns spec.md's stated defaults for the fields this
// package controls directly.
func DefaultConfig() Config {
	return Config{
		Tier:                   "A",
		SelectionLimit:         10000,
		ChunkSize:              chunkSize,
		MinContentLength:       200,
		EmbeddingModel:         "text-embedding-3-small",
		EmbeddingBatchSize:     64,
		ClusterK:               10,
		ClusterCosineThreshold: 0.65,
		DedupeConfig:           dedupe.DefaultConfig(),
		StaleRunMaxAge:         2 * time.Hour,
	}
}

// tierHasClustering reports whether the configured tier runs embedding,
// clustering, and summarization (spec.md Glossary: "A = fetch+extract+
// dedupe only; B = + embed+cluster+local summary; C = + LLM summary").
func (c Config) tierHasClustering() bool {
	return c.Tier == "B" || c.Tier == "C"
}

// Orchestrator wires every pipeline stage's collaborator together.
type Orchestrator struct {
	resolver      Resolver
	runRepo       RunRepository
	jobRepo       JobRepository
	feedEntryRepo FeedEntryRepository
	embeddingRepo EmbeddingRepository

	fetcher  Fetcher
	enricher *enrich.Enricher
	embedder Embedder
	writer   *summary.Writer
	alerts   alert.Dispatcher

	cfg    Config
	log    logr.Logger
	tracer trace.Tracer
	meter  otelmetric.Meter
}

// New builds an Orchestrator. alerts may be alert.NoopDispatcher{} when no
// channel is configured.
func New(
	resolver Resolver,
	runRepo RunRepository,
	jobRepo JobRepository,
	feedEntryRepo FeedEntryRepository,
	embeddingRepo EmbeddingRepository,
	fetcher Fetcher,
	enricher *enrich.Enricher,
	embedder Embedder,
	writer *summary.Writer,
	alerts alert.Dispatcher,
	cfg Config,
	log logr.Logger,
) *Orchestrator {
	return &Orchestrator{
		resolver:      resolver,
		runRepo:       runRepo,
		jobRepo:       jobRepo,
		feedEntryRepo: feedEntryRepo,
		embeddingRepo: embeddingRepo,
		fetcher:       fetcher,
		enricher:      enricher,
		embedder:      embedder,
		writer:        writer,
		alerts:        alerts,
		cfg:           cfg,
		log:           log,
		tracer:        otel.Tracer("github.com/flashpointintel/pipeline/pkg/orchestrator"),
		meter:         otel.Meter("github.com/flashpointintel/pipeline/pkg/orchestrator"),
	}
}

// newRunID mirrors original_source's run_{timestamp}_{random8} shape.
func newRunID() string {
	return fmt.Sprintf("run_%s_%s", time.Now().UTC().Format("20060102_150405"), uuid.New().String()[:8])
}

// Run executes one complete pipeline run for targetDate (empty resolves
// to the latest available date) and returns the terminal Run record.
func (o *Orchestrator) Run(ctx context.Context, targetDate string) (*model.Run, error) {
	runID := newRunID()
	log := o.log.WithValues("run_id", runID, "tier", o.cfg.Tier)
	start := time.Now()

	ctx, span := o.tracer.Start(ctx, "orchestrator.Run", trace.WithAttributes(
		attribute.String("run_id", runID), attribute.String("tier", o.cfg.Tier)))
	defer span.End()

	if _, err := o.runRepo.MarkStaleRunsFailed(ctx, o.cfg.StaleRunMaxAge); err != nil {
		log.Error(err, "mark_stale_runs_failed")
	}

	tableCtx, err := o.resolver.ResolveTables(ctx, targetDate)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: resolve tables: %w", err)
	}
	if _, err := o.resolver.EnsureOutputTable(ctx, tableCtx.TargetDate); err != nil {
		return nil, fmt.Errorf("orchestrator: ensure output table: %w", err)
	}

	run, err := o.runRepo.CreateRun(ctx, runID, o.cfg.Tier, tableCtx.TargetDate)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: create run: %w", err)
	}
	log.Info("pipeline_starting", "target_date", tableCtx.TargetDate)

	if err := o.runRepo.MarkRunning(ctx, runID); err != nil {
		return nil, fmt.Errorf("orchestrator: mark running: %w", err)
	}

	result, runErr := o.runStages(ctx, log, tableCtx, runID)
	if runErr != nil {
		log.Error(runErr, "pipeline_failed")
		if err := o.runRepo.MarkFailed(ctx, runID, runErr.Error()); err != nil {
			log.Error(err, "mark_failed")
		}
		o.notifyFailure(ctx, runID, tableCtx.TargetDate, runErr)
		run.Status = model.RunStatusFailed
		run.ErrorMessage = runErr.Error()
		metrics.RecordRun(o.cfg.Tier, string(model.RunStatusFailed), time.Since(start))
		return run, runErr
	}

	stats, err := o.jobRepo.GetRunStats(ctx, runID)
	if err != nil {
		log.Error(err, "get_run_stats")
		stats = map[string]int{}
	}
	runMetrics := map[string]any{
		"total_entries": result.total,
		"claimed":       result.claimed,
		"stats":         stats,
		"tier":          o.cfg.Tier,
		"target_date":   tableCtx.TargetDate,
		"tables": map[string]string{
			"feed_entries":  tableCtx.FeedEntries,
			"flash_point":   tableCtx.FlashPoint,
			"news_clusters": tableCtx.NewsClusters,
		},
	}

	if stats[string(model.JobStatusFailed)] > 0 {
		if err := o.runRepo.MarkPartial(ctx, runID, runMetrics, fmt.Sprintf("%d entries failed", stats[string(model.JobStatusFailed)])); err != nil {
			return run, fmt.Errorf("orchestrator: mark partial: %w", err)
		}
		run.Status = model.RunStatusPartial
	} else {
		if err := o.runRepo.MarkCompleted(ctx, runID, runMetrics); err != nil {
			return run, fmt.Errorf("orchestrator: mark completed: %w", err)
		}
		run.Status = model.RunStatusCompleted
	}

	for status, count := range stats {
		metrics.RecordEntriesProcessed(status, count)
	}
	metrics.RecordRun(o.cfg.Tier, string(run.Status), time.Since(start))

	log.Info("pipeline_completed", "total_entries", result.total, "claimed", result.claimed)
	return run, nil
}

type stageResult struct {
	total   int
	claimed int64
}

// runStages executes the selection → claim → ingest → embed → cluster →
// summarize pipeline. Per-entry failures never abort the run (spec.md
// §4.1); only unexpected infrastructure errors (DB unreachable, etc.) do.
func (o *Orchestrator) runStages(ctx context.Context, log logr.Logger, tableCtx *datastore.TableContext, runID string) (stageResult, error) {
	entries, err := o.jobRepo.GetUnprocessed(ctx, tableCtx.FeedEntries, runID, o.cfg.SelectionLimit)
	if err != nil {
		return stageResult{}, fmt.Errorf("select unprocessed entries: %w", err)
	}
	log.Info("entries_selected", "total", len(entries))
	if len(entries) == 0 {
		return stageResult{total: 0}, nil
	}

	entryIDs := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		entryIDs[i] = e.ID
	}
	claimed, err := o.jobRepo.ClaimJobsBulk(ctx, entryIDs, runID)
	if err != nil {
		return stageResult{}, fmt.Errorf("claim jobs: %w", err)
	}
	log.Info("jobs_claimed", "claimed", claimed, "total", len(entries))

	dedupeEngine := dedupe.NewEngine(o.cfg.DedupeConfig)
	for _, chunk := range chunkEntries(entries, o.cfg.ChunkSize) {
		if err := ctx.Err(); err != nil {
			return stageResult{}, fmt.Errorf("run canceled during ingest: %w", err)
		}
		if err := o.ingestChunk(ctx, log, tableCtx, runID, chunk, dedupeEngine); err != nil {
			return stageResult{}, fmt.Errorf("ingest chunk: %w", err)
		}
	}

	if !o.cfg.tierHasClustering() {
		return stageResult{total: len(entries), claimed: claimed}, nil
	}

	if err := o.embedExtracted(ctx, log, tableCtx, runID); err != nil {
		return stageResult{}, fmt.Errorf("batch embed: %w", err)
	}

	if err := o.clusterAndSummarize(ctx, log, tableCtx, runID); err != nil {
		return stageResult{}, fmt.Errorf("cluster and summarize: %w", err)
	}

	return stageResult{total: len(entries), claimed: claimed}, nil
}

// clusterAndSummarize runs spec.md §4.5/§4.7 for every flashpoint touched
// by this run: cluster its non-duplicate embeddings, advance participating
// jobs to clustered, write summaries, then advance to summarized.
func (o *Orchestrator) clusterAndSummarize(ctx context.Context, log logr.Logger, tableCtx *datastore.TableContext, runID string) error {
	flashpointIDs, err := o.jobRepo.GetFlashpointIDsForRun(ctx, tableCtx.FeedEntries, runID)
	if err != nil {
		return fmt.Errorf("get flashpoint ids: %w", err)
	}
	log.Info("clustering_flashpoints", "count", len(flashpointIDs))

	clustersCreated := 0
	for _, flashpointID := range flashpointIDs {
		n, err := o.clusterFlashpoint(ctx, tableCtx, runID, flashpointID)
		if err != nil {
			return fmt.Errorf("cluster flashpoint %s: %w", flashpointID, err)
		}
		clustersCreated += n
	}
	log.Info("clustering_complete", "clusters_created", clustersCreated)
	return nil
}

// clusterFlashpoint clusters one flashpoint's embeddings and writes its
// summaries, returning the number of distinct clusters formed.
func (o *Orchestrator) clusterFlashpoint(ctx context.Context, tableCtx *datastore.TableContext, runID string, flashpointID uuid.UUID) (int, error) {
	embeddings, err := o.embeddingRepo.GetEmbeddingsForFlashpoint(ctx, tableCtx.FeedEntries, flashpointID, runID)
	if err != nil {
		return 0, fmt.Errorf("load embeddings: %w", err)
	}
	if len(embeddings) == 0 {
		return 0, nil
	}

	entryIDs := make([]uuid.UUID, len(embeddings))
	vectors := make([][]float32, len(embeddings))
	for i, e := range embeddings {
		entryIDs[i] = e.FeedEntryID
		vectors[i] = e.Vector
	}

	assignments := cluster.ClusterEntries(entryIDs, vectors, o.cfg.ClusterK, o.cfg.ClusterCosineThreshold)
	if len(assignments) == 0 {
		return 0, nil
	}

	// Entries must be loaded while jobs still carry their pre-clustering
	// status (extracted/deduped/embedded); GetEntriesForFlashpoint filters
	// on those statuses, so the status advance below must come after.
	entries, err := o.feedEntryRepo.GetEntriesForFlashpoint(ctx, tableCtx.FeedEntries, flashpointID, runID)
	if err != nil {
		return 0, fmt.Errorf("load entries for summarization: %w", err)
	}
	entriesByID := make(map[uuid.UUID]model.FeedEntry, len(entries))
	for _, e := range entries {
		entriesByID[e.ID] = e
	}

	if _, err := o.jobRepo.BulkUpdateStatus(ctx, entryIDs, runID, model.JobStatusClustered); err != nil {
		return 0, fmt.Errorf("advance jobs to clustered: %w", err)
	}

	if err := o.writer.WriteClusters(ctx, tableCtx.NewsClusters, flashpointID, runID, o.cfg.Tier, assignments, entriesByID); err != nil {
		return 0, fmt.Errorf("write clusters: %w", err)
	}

	if _, err := o.jobRepo.BulkUpdateStatus(ctx, entryIDs, runID, model.JobStatusSummarized); err != nil {
		return 0, fmt.Errorf("advance jobs to summarized: %w", err)
	}

	distinct := make(map[int]struct{})
	for _, a := range assignments {
		distinct[a.ClusterID] = struct{}{}
	}
	return len(distinct), nil
}

func (o *Orchestrator) notifyFailure(ctx context.Context, runID, targetDate string, cause error) {
	if o.alerts == nil {
		return
	}
	if err := o.alerts.DispatchRunFailure(ctx, alert.RunFailureAlert{
		RunID:        runID,
		TargetDate:   targetDate,
		Tier:         o.cfg.Tier,
		ErrorMessage: cause.Error(),
	}); err != nil {
		o.log.Error(err, "dispatch_run_failure_alert")
	}
}
