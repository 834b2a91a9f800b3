package datastore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/flashpointintel/pipeline/internal/errors"
	"github.com/flashpointintel/pipeline/pkg/model"
)

// JobRepository is CRUD over feed_entry_jobs, the per-(entry, run)
// processing ledger (spec.md §3/§4.1).
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository builds a JobRepository over db.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// GetUnprocessed selects candidate entries for targetCtx (spec.md §4.1's
// selection contract): the entry must belong to a flashpoint, must not
// already have a job that reached summarized/scored in ANY run, and must
// not already have a job in the current run. Returns lightweight rows;
// heavy columns are fetched separately via GetEntryContentBatch on the
// resume path.
func (j *JobRepository) GetUnprocessed(ctx context.Context, feedEntriesTable, runID string, limit int) ([]model.FeedEntry, error) {
	query := fmt.Sprintf(`
		SELECT fe.id, fe.flashpoint_id, fe.url, fe.title, fe.language,
		       fe.sourcecountry, fe.description,
		       (fe.content IS NOT NULL) AS has_content
		FROM %q fe
		WHERE fe.flashpoint_id IS NOT NULL
		AND NOT EXISTS (
			SELECT 1 FROM feed_entry_jobs j
			WHERE j.feed_entry_id = fe.id
			AND j.status IN ($1, $2)
		)
		AND NOT EXISTS (
			SELECT 1 FROM feed_entry_jobs j
			WHERE j.feed_entry_id = fe.id
			AND j.run_id = $3
		)
		LIMIT $4`, feedEntriesTable)

	type row struct {
		ID            uuid.UUID  `db:"id"`
		FlashpointID  *uuid.UUID `db:"flashpoint_id"`
		URL           string     `db:"url"`
		Title         string     `db:"title"`
		Language      string     `db:"language"`
		SourceCountry string     `db:"sourcecountry"`
		Description   string     `db:"description"`
		HasContent    bool       `db:"has_content"`
	}

	var rows []row
	err := j.db.SelectContext(ctx, &rows, query,
		string(model.JobStatusSummarized), string(model.JobStatusScored), runID, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get_unprocessed", err)
	}

	entries := make([]model.FeedEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, model.FeedEntry{
			ID:            r.ID,
			FlashpointID:  r.FlashpointID,
			URL:           r.URL,
			Title:         r.Title,
			Language:      r.Language,
			SourceCountry: r.SourceCountry,
			Description:   r.Description,
			HasContent:    r.HasContent,
		})
	}
	return entries, nil
}

// ClaimJobsBulk inserts one job per entry id (status=fetching, attempts=1)
// in a single
// INSERT … ON CONFLICT DO NOTHING, silently skipping ids already claimed
// under uq_job_entry_run. Returns the number of rows actually inserted.
func (j *JobRepository) ClaimJobsBulk(ctx context.Context, entryIDs []uuid.UUID, runID string) (int64, error) {
	if len(entryIDs) == 0 {
		return 0, nil
	}

	valueRows := make([]string, len(entryIDs))
	args := make([]any, 0, len(entryIDs)*4)
	for i, id := range entryIDs {
		base := i * 4
		valueRows[i] = fmt.Sprintf("($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4)
		args = append(args, id, runID, string(model.JobStatusFetching), 1)
	}

	query := fmt.Sprintf(`
		INSERT INTO feed_entry_jobs (feed_entry_id, run_id, status, attempts)
		VALUES %s
		ON CONFLICT ON CONSTRAINT uq_job_entry_run DO NOTHING`, strings.Join(valueRows, ", "))

	result, err := j.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.NewDatabaseError("claim_jobs_bulk", err)
	}
	return result.RowsAffected()
}

// UpdateStatus transitions a single job's status.
func (j *JobRepository) UpdateStatus(ctx context.Context, entryID uuid.UUID, runID string, status model.JobStatus) error {
	_, err := j.db.ExecContext(ctx,
		`UPDATE feed_entry_jobs SET status = $1, updated_at = now() WHERE feed_entry_id = $2 AND run_id = $3`,
		string(status), entryID, runID)
	if err != nil {
		return apperrors.NewDatabaseError("update_status", err)
	}
	return nil
}

// BulkUpdateStatus advances many jobs to the same status in a single
// UPDATE … WHERE ANY.
func (j *JobRepository) BulkUpdateStatus(ctx context.Context, entryIDs []uuid.UUID, runID string, status model.JobStatus) (int64, error) {
	if len(entryIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(
		`UPDATE feed_entry_jobs SET status = ?, updated_at = now() WHERE run_id = ? AND feed_entry_id IN (?)`,
		string(status), runID, entryIDs)
	if err != nil {
		return 0, fmt.Errorf("datastore: building bulk update query: %w", err)
	}
	query = j.db.Rebind(query)

	result, err := j.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.NewDatabaseError("bulk_update_status", err)
	}
	return result.RowsAffected()
}

// MarkFailed records a terminal failure for one job. errMsg is truncated
// to the sidecar schema's column limit.
func (j *JobRepository) MarkFailed(ctx context.Context, entryID uuid.UUID, runID string, errMsg string, reason model.FailureReason) error {
	_, err := j.db.ExecContext(ctx, `
		UPDATE feed_entry_jobs
		SET status = $1, last_error = $2, failure_reason = $3, updated_at = now()
		WHERE feed_entry_id = $4 AND run_id = $5`,
		string(model.JobStatusFailed), apperrors.Truncate(errMsg, 2000), string(reason), entryID, runID)
	if err != nil {
		return apperrors.NewDatabaseError("mark_failed", err)
	}
	return nil
}

// RecordExtraction stamps a job with its extraction outcome (method,
// char count, content hash, duplicate flag) in a single update.
func (j *JobRepository) RecordExtraction(ctx context.Context, entryID uuid.UUID, runID string, job model.Job) error {
	_, err := j.db.ExecContext(ctx, `
		UPDATE feed_entry_jobs
		SET status = $1, extraction_method = $2, extraction_chars = $3,
		    content_hash = $4, is_duplicate = $5, duplicate_of = $6,
		    fetch_duration_ms = $7, extract_duration_ms = $8, updated_at = now()
		WHERE feed_entry_id = $9 AND run_id = $10`,
		string(job.Status), job.ExtractionMethod, job.ExtractionChars,
		job.ContentHash, job.IsDuplicate, job.DuplicateOf,
		job.FetchDurationMs, job.ExtractDurationMs, entryID, runID)
	if err != nil {
		return apperrors.NewDatabaseError("record_extraction", err)
	}
	return nil
}

// GetRunStats aggregates per-status counts for a run (spec.md §7's final
// run metrics).
func (j *JobRepository) GetRunStats(ctx context.Context, runID string) (map[string]int, error) {
	type row struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	var rows []row
	err := j.db.SelectContext(ctx, &rows,
		`SELECT status, COUNT(*) AS count FROM feed_entry_jobs WHERE run_id = $1 GROUP BY status`,
		runID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get_run_stats", err)
	}
	stats := make(map[string]int, len(rows))
	for _, r := range rows {
		stats[r.Status] = r.Count
	}
	return stats, nil
}

// GetFlashpointIDsForRun returns the distinct, non-duplicate, non-failed
// flashpoint ids touched by runID, used to drive the per-flashpoint
// clustering stage.
func (j *JobRepository) GetFlashpointIDsForRun(ctx context.Context, feedEntriesTable, runID string) ([]uuid.UUID, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT fe.flashpoint_id
		FROM %q fe
		JOIN feed_entry_jobs jej ON fe.id = jej.feed_entry_id
		WHERE fe.flashpoint_id IS NOT NULL
		AND jej.run_id = $1
		AND jej.is_duplicate = false
		AND jej.status != $2`, feedEntriesTable)

	var ids []uuid.UUID
	err := j.db.SelectContext(ctx, &ids, query, runID, string(model.JobStatusFailed))
	if err != nil {
		return nil, apperrors.NewDatabaseError("get_flashpoint_ids_for_run", err)
	}
	return ids, nil
}
