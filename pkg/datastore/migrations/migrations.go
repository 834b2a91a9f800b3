// Package migrations embeds and applies the pipeline's Postgres schema:
// processing_runs, feed_entry_jobs, the feed_entry_vectors pgvector
// sidecar, and cluster_members (SPEC_FULL.md §B). It creates only these
// sidecar tables; the date-partitioned feed_entries/flash_point tables are
// expected to exist already, and news_clusters is created on demand by
// pkg/datastore.Resolver.EnsureOutputTable.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var embedFS embed.FS

// Up applies every pending migration in filename order, tracked in
// goose's own goose_db_version table. db should be the *sql.DB
// underlying the pool (sqlx.DB.DB, or pgx's stdlib adapter) — goose
// manages its own transaction per migration file, so this is safe to
// call from a pooled connection alongside other in-flight queries.
func Up(db *sql.DB) error {
	goose.SetBaseFS(embedFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrations: set dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("migrations: up: %w", err)
	}
	return nil
}

// Status reports the applied/pending state of every embedded migration,
// useful for a startup log line or a readiness probe.
func Status(db *sql.DB) error {
	goose.SetBaseFS(embedFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrations: set dialect: %w", err)
	}
	return goose.Status(db, ".")
}
