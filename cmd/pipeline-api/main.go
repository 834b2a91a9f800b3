// Command pipeline-api serves the trigger/status HTTP surface (spec.md §6)
// and the Prometheus /metrics endpoint, designed to run as a long-lived
// Railway service alongside the pipeline-runner cron job.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/flashpointintel/pipeline/internal/config"
	"github.com/flashpointintel/pipeline/internal/logging"
	"github.com/flashpointintel/pipeline/pkg/datastore"
	"github.com/flashpointintel/pipeline/pkg/httpapi"
	"github.com/flashpointintel/pipeline/pkg/metrics"
)

const (
	defaultAPIPort     = "8090"
	defaultMetricsPort = "9090"
	defaultRunnerBin   = "pipeline-runner"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "pipeline-api:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.NewServiceLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("build service logger: %w", err)
	}
	algoLog := logging.NewAlgoLogger(cfg.LogLevel, cfg.LogFormat)

	db, err := sqlx.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	runRepo := datastore.NewRunRepository(db)
	trigger := &processTrigger{binPath: runnerBinPath()}

	apiCfg := httpapi.DefaultConfig()
	apiCfg.APIKey = cfg.PipelineAPIKey
	apiCfg.AllowedOrigins = []string{"*"}

	apiServer, err := httpapi.NewServer(runRepo, trigger, apiCfg, log)
	if err != nil {
		return fmt.Errorf("build httpapi server: %w", err)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", envOr("API_PORT", defaultAPIPort)),
		Handler: apiServer.NewRouter(),
	}

	metricsServer := metrics.NewServer(envOr("METRICS_PORT", defaultMetricsPort), algoLog)
	metricsServer.StartAsync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go staleRunSweeper(ctx, runRepo, 2*time.Hour, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("pipeline_api_listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return metricsServer.Stop(shutdownCtx)
}

// staleRunSweeper periodically fails any run stuck at status=running past
// maxAge, reusing the same check the orchestrator runs before every run
// (SPEC_FULL.md: "exported so cmd/pipeline-api can also run it on a
// ticker").
func staleRunSweeper(ctx context.Context, runs *datastore.RunRepository, maxAge time.Duration, log interface {
	Error(err error, msg string, kv ...any)
}) {
	ticker := time.NewTicker(maxAge / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := runs.MarkStaleRunsFailed(ctx, maxAge); err != nil {
				log.Error(err, "stale_run_sweep_failed")
			}
		}
	}
}

// processTrigger spawns pipeline-runner as a detached child process
// (spec.md §6: "Spawns a child process to run the orchestrator").
type processTrigger struct {
	binPath string
}

func (p *processTrigger) Trigger(ctx context.Context, targetDate, tier string) error {
	args := []string{}
	if targetDate != "" {
		args = append(args, "--date", targetDate)
	}
	if tier != "" {
		args = append(args, "--tier", tier)
	}

	cmd := exec.Command(p.binPath, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn %s: %w", p.binPath, err)
	}

	// Don't wait for the run to finish; the caller polls GET
	// /pipeline/runs/{run_id} for status. Reap it in the background so it
	// doesn't become a zombie.
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

func runnerBinPath() string {
	if p := os.Getenv("PIPELINE_RUNNER_BIN"); p != "" {
		return p
	}
	return defaultRunnerBin
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
