package datastore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	apperrors "github.com/flashpointintel/pipeline/internal/errors"
	"github.com/flashpointintel/pipeline/pkg/model"
)

// embeddingChunkSize bounds a single upsert statement to stay within
// Postgres's bind-parameter limit — each row binds 3 params (id, vector,
// model name), so a full chunk uses 1500 of the 65535 allowed.
const embeddingChunkSize = 500

// EmbeddingRepository is CRUD over feed_entry_vectors (spec.md §4.5's
// embedding stage output), keyed by feed_entry_id.
type EmbeddingRepository struct {
	db *sqlx.DB
}

// NewEmbeddingRepository builds an EmbeddingRepository over db.
func NewEmbeddingRepository(db *sqlx.DB) *EmbeddingRepository {
	return &EmbeddingRepository{db: db}
}

// UpsertEmbedding writes a single embedding, overwriting any existing
// vector and model_name for that feed_entry_id unconditionally — per the
// model-upgrade Open Question decision recorded in DESIGN.md, a changed
// model_name always wins rather than being reconciled.
func (e *EmbeddingRepository) UpsertEmbedding(ctx context.Context, feedEntryID uuid.UUID, vector []float32, modelName string) error {
	_, err := e.db.ExecContext(ctx, `
		INSERT INTO feed_entry_vectors (feed_entry_id, embedding, model_name, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (feed_entry_id) DO UPDATE
		SET embedding = EXCLUDED.embedding, model_name = EXCLUDED.model_name, updated_at = now()`,
		feedEntryID, pgvector.NewVector(vector), modelName)
	if err != nil {
		return apperrors.NewDatabaseError("upsert_embedding", err)
	}
	return nil
}

// BulkUpsertEmbeddings upserts many embeddings in chunks of
// embeddingChunkSize, each chunk in a single multi-row statement.
func (e *EmbeddingRepository) BulkUpsertEmbeddings(ctx context.Context, embeddings []model.Embedding) error {
	for start := 0; start < len(embeddings); start += embeddingChunkSize {
		end := min(start+embeddingChunkSize, len(embeddings))
		if err := e.upsertChunk(ctx, embeddings[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (e *EmbeddingRepository) upsertChunk(ctx context.Context, chunk []model.Embedding) error {
	if len(chunk) == 0 {
		return nil
	}

	valueRows := make([]string, len(chunk))
	args := make([]any, 0, len(chunk)*3)
	for i, emb := range chunk {
		base := i * 3
		valueRows[i] = fmt.Sprintf("($%d, $%d, $%d)", base+1, base+2, base+3)
		args = append(args, emb.FeedEntryID, pgvector.NewVector(emb.Vector), emb.ModelName)
	}

	query := fmt.Sprintf(`
		INSERT INTO feed_entry_vectors (feed_entry_id, embedding, model_name)
		VALUES %s
		ON CONFLICT (feed_entry_id) DO UPDATE
		SET embedding = EXCLUDED.embedding, model_name = EXCLUDED.model_name, updated_at = now()`,
		joinSet(valueRows))

	if _, err := e.db.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewDatabaseError("bulk_upsert_embeddings", err)
	}
	return nil
}

// GetEmbeddingsForFlashpoint fetches all non-duplicate embeddings for
// entries belonging to a flashpoint in the given run, the clustering
// stage's direct input.
func (e *EmbeddingRepository) GetEmbeddingsForFlashpoint(ctx context.Context, feedEntriesTable string, flashpointID uuid.UUID, runID string) ([]model.Embedding, error) {
	query := fmt.Sprintf(`
		SELECT fev.feed_entry_id, fev.embedding, fev.model_name
		FROM feed_entry_vectors fev
		JOIN %q fe ON fe.id = fev.feed_entry_id
		JOIN feed_entry_jobs jej ON fe.id = jej.feed_entry_id
		WHERE fe.flashpoint_id = $1
		AND jej.run_id = $2
		AND jej.is_duplicate = false`, feedEntriesTable)

	type row struct {
		FeedEntryID uuid.UUID      `db:"feed_entry_id"`
		Embedding   pgvector.Vector `db:"embedding"`
		ModelName   string         `db:"model_name"`
	}

	var rows []row
	err := e.db.SelectContext(ctx, &rows, query, flashpointID, runID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get_embeddings_for_flashpoint", err)
	}

	out := make([]model.Embedding, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Embedding{FeedEntryID: r.FeedEntryID, Vector: r.Embedding.Slice(), ModelName: r.ModelName})
	}
	return out, nil
}
