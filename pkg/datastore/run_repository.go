package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	apperrors "github.com/flashpointintel/pipeline/internal/errors"
	"github.com/flashpointintel/pipeline/pkg/model"
)

// RunRepository is CRUD over the sidecar runs table (spec.md §3/§7): the
// one piece of run bookkeeping that is not date-partitioned.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository builds a RunRepository over db.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

type runRow struct {
	RunID        string         `db:"run_id"`
	Status       string         `db:"status"`
	Tier         string         `db:"pipeline_tier"`
	TargetDate   sql.NullString `db:"target_date"`
	StartedAt    time.Time      `db:"started_at"`
	CompletedAt  sql.NullTime   `db:"completed_at"`
	ErrorMessage sql.NullString `db:"error_message"`
	Metrics      sql.NullString `db:"metrics"`
}

func (r runRow) toModel() (*model.Run, error) {
	run := &model.Run{
		RunID:        r.RunID,
		Status:       model.RunStatus(r.Status),
		Tier:         r.Tier,
		TargetDate:   r.TargetDate.String,
		StartedAt:    r.StartedAt,
		ErrorMessage: r.ErrorMessage.String,
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		run.CompletedAt = &t
	}
	if r.Metrics.Valid && r.Metrics.String != "" {
		var m map[string]any
		if err := json.Unmarshal([]byte(r.Metrics.String), &m); err != nil {
			return nil, fmt.Errorf("datastore: decoding run metrics: %w", err)
		}
		run.Metrics = m
	}
	return run, nil
}

// CreateRun inserts a new run row in RunStatusPending.
func (r *RunRepository) CreateRun(ctx context.Context, runID, tier, targetDate string) (*model.Run, error) {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO processing_runs (run_id, status, pipeline_tier, target_date, started_at)
		VALUES ($1, $2, $3, $4, $5)`,
		runID, string(model.RunStatusPending), tier, targetDate, now)
	if err != nil {
		return nil, apperrors.NewDatabaseError("create_run", err)
	}
	return &model.Run{
		RunID:      runID,
		Status:     model.RunStatusPending,
		Tier:       tier,
		TargetDate: targetDate,
		StartedAt:  now,
	}, nil
}

// MarkRunning transitions a run to RunStatusRunning.
func (r *RunRepository) MarkRunning(ctx context.Context, runID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE processing_runs SET status = $1 WHERE run_id = $2`,
		string(model.RunStatusRunning), runID)
	if err != nil {
		return apperrors.NewDatabaseError("mark_running", err)
	}
	return nil
}

// MarkCompleted transitions a run to RunStatusCompleted, recording its
// final metrics snapshot.
func (r *RunRepository) MarkCompleted(ctx context.Context, runID string, metrics map[string]any) error {
	return r.markTerminal(ctx, runID, model.RunStatusCompleted, metrics, "")
}

// MarkPartial transitions a run to RunStatusPartial (some flashpoints
// processed, others failed).
func (r *RunRepository) MarkPartial(ctx context.Context, runID string, metrics map[string]any, errMsg string) error {
	return r.markTerminal(ctx, runID, model.RunStatusPartial, metrics, errMsg)
}

// MarkFailed transitions a run to RunStatusFailed. errMsg is truncated to
// the sidecar schema's column limit.
func (r *RunRepository) MarkFailed(ctx context.Context, runID string, errMsg string) error {
	return r.markTerminal(ctx, runID, model.RunStatusFailed, nil, errMsg)
}

func (r *RunRepository) markTerminal(ctx context.Context, runID string, status model.RunStatus, metrics map[string]any, errMsg string) error {
	var metricsJSON []byte
	if metrics != nil {
		var err error
		metricsJSON, err = json.Marshal(metrics)
		if err != nil {
			return fmt.Errorf("datastore: encoding run metrics: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE processing_runs
		SET status = $1, completed_at = $2, error_message = $3, metrics = $4
		WHERE run_id = $5`,
		string(status), time.Now().UTC(), apperrors.Truncate(errMsg, 2000), metricsJSON, runID)
	if err != nil {
		return apperrors.NewDatabaseError("mark_terminal", err)
	}
	return nil
}

// GetByID fetches a single run.
func (r *RunRepository) GetByID(ctx context.Context, runID string) (*model.Run, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row,
		`SELECT run_id, status, pipeline_tier, target_date, started_at, completed_at, error_message, metrics
		 FROM processing_runs WHERE run_id = $1`, runID)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("run")
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get_by_id", err)
	}
	return row.toModel()
}

// HasActiveRun reports whether a run is RunStatusRunning and started
// within maxAge (spec.md §7's concurrent-run guard).
func (r *RunRepository) HasActiveRun(ctx context.Context, maxAge time.Duration) (bool, error) {
	var count int
	cutoff := time.Now().UTC().Add(-maxAge)
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM processing_runs WHERE status = $1 AND started_at >= $2`,
		string(model.RunStatusRunning), cutoff)
	if err != nil {
		return false, apperrors.NewDatabaseError("has_active_run", err)
	}
	return count > 0, nil
}

// MarkStaleRunsFailed fails any run still RunStatusRunning after maxAge,
// recovering from a crashed pipeline-runner process. Returns the count of
// runs marked.
func (r *RunRepository) MarkStaleRunsFailed(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	result, err := r.db.ExecContext(ctx, `
		UPDATE processing_runs
		SET status = $1, error_message = $2, completed_at = $3
		WHERE status = $4 AND started_at < $5`,
		string(model.RunStatusFailed),
		"marked as failed: exceeded max runtime (stale run recovery)",
		time.Now().UTC(), string(model.RunStatusRunning), cutoff)
	if err != nil {
		return 0, apperrors.NewDatabaseError("mark_stale_runs_failed", err)
	}
	return result.RowsAffected()
}

// GetRunsByDate returns every run for targetDate, most recent first
// (spec.md §6 GET /pipeline/runs?date=).
func (r *RunRepository) GetRunsByDate(ctx context.Context, targetDate string) ([]model.Run, error) {
	var rows []runRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT run_id, status, pipeline_tier, target_date, started_at, completed_at, error_message, metrics
		 FROM processing_runs WHERE target_date = $1 ORDER BY started_at DESC`, targetDate)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get_runs_by_date", err)
	}
	runs := make([]model.Run, 0, len(rows))
	for _, row := range rows {
		run, err := row.toModel()
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}
