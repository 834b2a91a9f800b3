package datastore

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/flashpointintel/pipeline/pkg/model"
)

func TestUpsertEmbeddingWritesVectorAndModel(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec("INSERT INTO feed_entry_vectors").
		WithArgs(id, sqlmock.AnyArg(), "mpnet-v2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewEmbeddingRepository(db)
	err := repo.UpsertEmbedding(context.Background(), id, make([]float32, 384), "mpnet-v2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBulkUpsertEmbeddingsChunksAtLimit(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	embeddings := make([]model.Embedding, embeddingChunkSize+10)
	for i := range embeddings {
		embeddings[i] = model.Embedding{FeedEntryID: uuid.New(), Vector: make([]float32, 8), ModelName: "mpnet-v2"}
	}

	mock.ExpectExec("INSERT INTO feed_entry_vectors").WillReturnResult(sqlmock.NewResult(0, int64(embeddingChunkSize)))
	mock.ExpectExec("INSERT INTO feed_entry_vectors").WillReturnResult(sqlmock.NewResult(0, 10))

	repo := NewEmbeddingRepository(db)
	if err := repo.BulkUpsertEmbeddings(context.Background(), embeddings); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBulkUpsertEmbeddingsEmptyIsNoOp(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	repo := NewEmbeddingRepository(db)
	if err := repo.BulkUpsertEmbeddings(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetEmbeddingsForFlashpointDecodesVectors(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	id := uuid.New()
	fp := uuid.New()
	vec := pgvector.NewVector([]float32{0.1, 0.2, 0.3})

	mock.ExpectQuery("SELECT fev.feed_entry_id").
		WithArgs(fp, "run-1").
		WillReturnRows(sqlmock.NewRows([]string{"feed_entry_id", "embedding", "model_name"}).
			AddRow(id, vec, "mpnet-v2"))

	repo := NewEmbeddingRepository(db)
	embeddings, err := repo.GetEmbeddingsForFlashpoint(context.Background(), "feed_entries_20251103", fp, "run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(embeddings) != 1 || embeddings[0].FeedEntryID != id || len(embeddings[0].Vector) != 3 {
		t.Fatalf("unexpected embeddings: %+v", embeddings)
	}
}
