// Command pipeline-runner executes one end-to-end pipeline run and exits,
// designed to run as a Railway cron job (original_source/apps/orchestrator/
// main.py's docstring: "Designed as a Railway cron job that runs and
// terminates"). --tier overrides PIPELINE_TIER for this invocation only;
// --date targets a specific YYYY-MM-DD partition instead of the latest
// available one.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/flashpointintel/pipeline/internal/config"
	"github.com/flashpointintel/pipeline/internal/logging"
	"github.com/flashpointintel/pipeline/pkg/alert"
	"github.com/flashpointintel/pipeline/pkg/datastore"
	"github.com/flashpointintel/pipeline/pkg/datastore/migrations"
	"github.com/flashpointintel/pipeline/pkg/enrich"
	"github.com/flashpointintel/pipeline/pkg/fetch"
	"github.com/flashpointintel/pipeline/pkg/llm"
	"github.com/flashpointintel/pipeline/pkg/model"
	"github.com/flashpointintel/pipeline/pkg/orchestrator"
	"github.com/flashpointintel/pipeline/pkg/ratelimit"
	"github.com/flashpointintel/pipeline/pkg/ssrf"
	"github.com/flashpointintel/pipeline/pkg/summary"
)

func main() {
	tier := flag.String("tier", "", "pipeline tier override (A, B, or C); defaults to PIPELINE_TIER")
	targetDate := flag.String("date", "", "target date YYYY-MM-DD; defaults to the latest available partition")
	flag.Parse()

	if *tier != "" {
		os.Setenv("PIPELINE_TIER", *tier)
	}

	if err := run(*targetDate); err != nil {
		fmt.Fprintln(os.Stderr, "pipeline-runner:", err)
		os.Exit(1)
	}
}

func run(targetDate string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.NewServiceLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("build service logger: %w", err)
	}
	algoLog := logging.NewAlgoLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := sqlx.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := migrations.Up(db.DB); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	resolver := datastore.NewResolver(db)
	runRepo := datastore.NewRunRepository(db)
	jobRepo := datastore.NewJobRepository(db)
	feedEntryRepo := datastore.NewFeedEntryRepository(db)
	embeddingRepo := datastore.NewEmbeddingRepository(db)
	clusterRepo := datastore.NewClusterRepository(db)

	guard, err := ssrf.NewGuard(ctx)
	if err != nil {
		return fmt.Errorf("build ssrf guard: %w", err)
	}

	fetchCfg := fetch.DefaultConfig()
	fetchCfg.MaxConcurrent = cfg.MaxConcurrentFetches
	fetchCfg.PerDomain = cfg.PerDomainConcurrency
	fetchCfg.Timeout = cfg.FetchTimeout()
	fetchCfg.PoliteDelay = cfg.RequestDelay()
	fetcher := fetch.NewFetcher(fetchCfg, guard, algoLog)

	// Language/translation/NER enrichment models are out of core scope
	// (spec.md §1): every collaborator is nil, so Enrich only derives the
	// hostname and geo-entities it can compute without one.
	enricher := enrich.NewEnricher(nil, nil, nil, algoLog)

	var embedder orchestrator.Embedder
	if cfg.PipelineTier == config.TierB || cfg.PipelineTier == config.TierC {
		log.Info("no embedding model wired; clustering will fail for this run",
			"tier", cfg.PipelineTier, "reason", "ML model loading is out of core scope (spec.md §1)")
	}

	limiter := buildLimiter(cfg)
	llmSummarizer := buildLLMSummarizer(ctx, cfg, log)
	summarizer := summary.NewSummarizer(llmSummarizer, limiter, algoLog)
	writer := summary.NewWriter(clusterRepo, summarizer)

	dispatcher := buildDispatcher(cfg)

	oCfg := orchestrator.DefaultConfig()
	oCfg.Tier = string(cfg.PipelineTier)
	oCfg.MinContentLength = cfg.MinContentLength
	oCfg.EmbeddingModel = cfg.EmbeddingModel
	oCfg.ClusterK = cfg.ClusterKNNK
	oCfg.ClusterCosineThreshold = cfg.ClusterCosThreshold
	oCfg.DedupeConfig.NumPerm = cfg.MinHashNumPerm
	oCfg.DedupeConfig.Threshold = cfg.MinHashThreshold

	orch := orchestrator.New(
		resolver, runRepo, jobRepo, feedEntryRepo, embeddingRepo,
		fetcher, enricher, embedder, writer, dispatcher,
		oCfg, log,
	)

	runResult, err := orch.Run(ctx, targetDate)
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	log.Info("pipeline_run_finished", "run_id", runResult.RunID, "status", runResult.Status)
	if runResult.Status == model.RunStatusFailed {
		return fmt.Errorf("run %s finished with status %s: %s", runResult.RunID, runResult.Status, runResult.ErrorMessage)
	}
	return nil
}

func buildLimiter(cfg *config.Config) ratelimit.Limiter {
	// A Redis-backed limiter is only worth the round trip when multiple
	// pipeline-runner processes can race for the same LLM RPM budget.
	return ratelimit.NewLocal(cfg.LLMRPMLimit)
}

func buildLLMSummarizer(ctx context.Context, cfg *config.Config, log interface {
	Info(msg string, kv ...any)
	Error(err error, msg string, kv ...any)
}) summary.LLMSummarizer {
	if cfg.PipelineTier != config.TierC {
		return nil
	}

	switch cfg.LLMProvider {
	case "bedrock":
		s, err := llm.NewBedrockSummarizer(ctx, cfg.AWSRegion, cfg.LLMModel, cfg.LLMMaxPromptChars)
		if err != nil {
			log.Error(err, "bedrock_summarizer_unavailable_falling_back_to_extractive")
			return nil
		}
		return s
	default:
		if cfg.AnthropicAPIKey == "" {
			log.Error(nil, "anthropic_api_key_unset_falling_back_to_extractive")
			return nil
		}
		return llm.NewAnthropicSummarizer(cfg.AnthropicAPIKey, cfg.LLMModel, cfg.LLMMaxPromptChars)
	}
}

func buildDispatcher(cfg *config.Config) alert.Dispatcher {
	token := os.Getenv("SLACK_BOT_TOKEN")
	channel := os.Getenv("SLACK_ALERT_CHANNEL")
	if token == "" || channel == "" {
		return alert.NoopDispatcher{}
	}
	return alert.NewSlackDispatcher(token, channel)
}
