package datastore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/flashpointintel/pipeline/internal/errors"
	"github.com/flashpointintel/pipeline/pkg/model"
)

// uuidArrayLiteral renders a Postgres array literal for use with
// `= ANY($1::uuid[])`, avoiding a dependency on lib/pq (the pipeline
// otherwise standardizes on jackc/pgx for Postgres access).
func uuidArrayLiteral(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// textArrayLiteral renders a Postgres TEXT[] array literal.
func textArrayLiteral(items []string) string {
	parts := make([]string, len(items))
	for i, s := range items {
		parts[i] = `"` + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`) + `"`
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// FeedEntryRepository reads and writes the date-partitioned
// feed_entries_YYYYMMDD tables (spec.md §3). Rows arrive pre-populated by
// an upstream ingest project; this pipeline only ever adds the
// enrichment columns (content, title_en, hostname, summary, entities,
// geo_entities, images).
type FeedEntryRepository struct {
	db *sqlx.DB
}

// NewFeedEntryRepository builds a FeedEntryRepository over db.
func NewFeedEntryRepository(db *sqlx.DB) *FeedEntryRepository {
	return &FeedEntryRepository{db: db}
}

// GetEntryContentBatch fetches the heavy enrichment columns for a batch
// of ids, used on the resume path after GetUnprocessed returns
// lightweight rows (spec.md §7's resume semantics: skip fetch+extract
// when content is already present).
func (f *FeedEntryRepository) GetEntryContentBatch(ctx context.Context, feedEntriesTable string, entryIDs []uuid.UUID) (map[uuid.UUID]model.FeedEntry, error) {
	if len(entryIDs) == 0 {
		return map[uuid.UUID]model.FeedEntry{}, nil
	}

	query := fmt.Sprintf(`
		SELECT id, content, summary, entities, geo_entities
		FROM %q WHERE id = ANY($1::uuid[])`, feedEntriesTable)

	type row struct {
		ID          uuid.UUID `db:"id"`
		Content     string    `db:"content"`
		Summary     string    `db:"summary"`
		Entities    []byte    `db:"entities"`
		GeoEntities []byte    `db:"geo_entities"`
	}

	var rows []row
	err := f.db.SelectContext(ctx, &rows, query, uuidArrayLiteral(entryIDs))
	if err != nil {
		return nil, apperrors.NewDatabaseError("get_entry_content_batch", err)
	}

	result := make(map[uuid.UUID]model.FeedEntry, len(rows))
	for _, r := range rows {
		entry := model.FeedEntry{ID: r.ID, Content: r.Content, Summary: r.Summary, HasContent: r.Content != ""}
		if len(r.Entities) > 0 {
			var entities map[string][]model.NamedEntity
			if err := json.Unmarshal(r.Entities, &entities); err != nil {
				return nil, fmt.Errorf("datastore: decoding entities for %s: %w", r.ID, err)
			}
			entry.Entities = entities
		}
		if len(r.GeoEntities) > 0 {
			var geo []model.GeoEntity
			if err := json.Unmarshal(r.GeoEntities, &geo); err != nil {
				return nil, fmt.Errorf("datastore: decoding geo_entities for %s: %w", r.ID, err)
			}
			entry.GeoEntities = geo
		}
		result[r.ID] = entry
	}
	return result, nil
}

// GetEntriesForFlashpoint returns all entries for a flashpoint that
// passed extraction in this run and are not duplicates, the input set
// for clustering.
func (f *FeedEntryRepository) GetEntriesForFlashpoint(ctx context.Context, feedEntriesTable string, flashpointID uuid.UUID, runID string) ([]model.FeedEntry, error) {
	query := fmt.Sprintf(`
		SELECT fe.id, fe.flashpoint_id, fe.url, fe.title, fe.title_en,
		       fe.language, fe.sourcecountry, fe.description, fe.hostname,
		       fe.content, fe.summary, fe.entities, fe.geo_entities, fe.images
		FROM %q fe
		JOIN feed_entry_jobs jej ON fe.id = jej.feed_entry_id
		WHERE fe.flashpoint_id = $1
		AND jej.run_id = $2
		AND jej.status IN ($3, $4, $5)
		AND jej.is_duplicate = false`, feedEntriesTable)

	type row struct {
		ID            uuid.UUID  `db:"id"`
		FlashpointID  *uuid.UUID `db:"flashpoint_id"`
		URL           string     `db:"url"`
		Title         string     `db:"title"`
		TitleEN       string     `db:"title_en"`
		Language      string     `db:"language"`
		SourceCountry string     `db:"sourcecountry"`
		Description   string     `db:"description"`
		Hostname      string     `db:"hostname"`
		Content       string     `db:"content"`
		Summary       string     `db:"summary"`
		Entities      []byte     `db:"entities"`
		GeoEntities   []byte     `db:"geo_entities"`
		Images        []byte     `db:"images"`
	}

	var rows []row
	err := f.db.SelectContext(ctx, &rows, query, flashpointID, runID,
		string(model.JobStatusExtracted), string(model.JobStatusDeduped), string(model.JobStatusEmbedded))
	if err != nil {
		return nil, apperrors.NewDatabaseError("get_entries_for_flashpoint", err)
	}

	entries := make([]model.FeedEntry, 0, len(rows))
	for _, r := range rows {
		entry := model.FeedEntry{
			ID:            r.ID,
			FlashpointID:  r.FlashpointID,
			URL:           r.URL,
			Title:         r.Title,
			TitleEN:       r.TitleEN,
			Language:      r.Language,
			SourceCountry: r.SourceCountry,
			Description:   r.Description,
			Hostname:      r.Hostname,
			Content:       r.Content,
			Summary:       r.Summary,
			HasContent:    r.Content != "",
		}
		if len(r.Entities) > 0 {
			if err := json.Unmarshal(r.Entities, &entry.Entities); err != nil {
				return nil, fmt.Errorf("datastore: decoding entities for %s: %w", r.ID, err)
			}
		}
		if len(r.GeoEntities) > 0 {
			if err := json.Unmarshal(r.GeoEntities, &entry.GeoEntities); err != nil {
				return nil, fmt.Errorf("datastore: decoding geo_entities for %s: %w", r.ID, err)
			}
		}
		if len(r.Images) > 0 {
			if err := json.Unmarshal(r.Images, &entry.Images); err != nil {
				return nil, fmt.Errorf("datastore: decoding images for %s: %w", r.ID, err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetExtractedNonDuplicates returns (id, title, content truncated to 1000
// chars) for every job in this run at status=extracted with
// is_duplicate=false, the batch embedding pass's input set (spec.md §4.6,
// tier B/C only).
func (f *FeedEntryRepository) GetExtractedNonDuplicates(ctx context.Context, feedEntriesTable, runID string) ([]model.FeedEntry, error) {
	query := fmt.Sprintf(`
		SELECT fe.id, fe.title, fe.title_en, left(fe.content, 1000) AS content
		FROM %q fe
		JOIN feed_entry_jobs jej ON fe.id = jej.feed_entry_id
		WHERE jej.run_id = $1
		AND jej.status = $2
		AND jej.is_duplicate = false`, feedEntriesTable)

	type row struct {
		ID      uuid.UUID `db:"id"`
		Title   string    `db:"title"`
		TitleEN string    `db:"title_en"`
		Content string    `db:"content"`
	}

	var rows []row
	err := f.db.SelectContext(ctx, &rows, query, runID, string(model.JobStatusExtracted))
	if err != nil {
		return nil, apperrors.NewDatabaseError("get_extracted_non_duplicates", err)
	}

	entries := make([]model.FeedEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, model.FeedEntry{ID: r.ID, Title: r.Title, TitleEN: r.TitleEN, Content: r.Content, HasContent: r.Content != ""})
	}
	return entries, nil
}

// EnrichmentUpdate names the enrichment fields UpdateEnrichment writes back
// (a nil field is skipped; a non-nil empty value is written), matching the original's "only update
// what was explicitly passed" contract.
type EnrichmentUpdate struct {
	Content     *string
	TitleEN     *string
	Hostname    *string
	Summary     *string
	Entities    map[string][]model.NamedEntity
	GeoEntities []model.GeoEntity
	Images      []string
}

// UpdateEnrichment applies a partial enrichment update to one feed entry.
func (f *FeedEntryRepository) UpdateEnrichment(ctx context.Context, feedEntriesTable string, entryID uuid.UUID, update EnrichmentUpdate) error {
	setParts := make([]string, 0, 8)
	args := make([]any, 0, 8)
	arg := func(col string, val any) {
		args = append(args, val)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if update.Content != nil {
		arg("content", *update.Content)
	}
	if update.TitleEN != nil {
		arg("title_en", *update.TitleEN)
	}
	if update.Hostname != nil {
		arg("hostname", *update.Hostname)
	}
	if update.Summary != nil {
		arg("summary", *update.Summary)
	}
	if update.Entities != nil {
		encoded, err := json.Marshal(update.Entities)
		if err != nil {
			return fmt.Errorf("datastore: encoding entities: %w", err)
		}
		arg("entities", encoded)
	}
	if update.GeoEntities != nil {
		encoded, err := json.Marshal(update.GeoEntities)
		if err != nil {
			return fmt.Errorf("datastore: encoding geo_entities: %w", err)
		}
		arg("geo_entities", encoded)
	}
	if update.Images != nil {
		args = append(args, textArrayLiteral(update.Images))
		setParts = append(setParts, fmt.Sprintf("images = $%d::text[]", len(args)))
	}

	if len(setParts) == 0 {
		return nil
	}
	setParts = append(setParts, "updated_at = now()")

	query := fmt.Sprintf(`UPDATE %q SET %s WHERE id = $%d`, feedEntriesTable,
		joinSet(setParts), len(args)+1)
	args = append(args, entryID)

	if _, err := f.db.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewDatabaseError("update_enrichment", err)
	}
	return nil
}

func joinSet(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}
