// Package datastore implements the date-partitioned table resolver and the
// repository layer over the pipeline's sidecar (Run/Job) and partitioned
// (feed_entries/flash_point/news_clusters) tables (spec.md §6).
package datastore

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
)

var dateSuffixRe = regexp.MustCompile(`_(\d{8})$`)

// MakeTableName builds a date-partitioned table name. targetDate is
// expected in "YYYY-MM-DD" form; the suffix is simply its hyphens
// stripped, which also accommodates the "8888-88-88" raw test-fixture
// date the original Python test suite seeds (neither form needs to parse
// as a real calendar date — only the digit shape matters downstream).
func MakeTableName(base, targetDate string) string {
	return fmt.Sprintf("%s_%s", base, strings.ReplaceAll(targetDate, "-", ""))
}

// ExtractDateSuffix returns the 8-digit date suffix of a partitioned table
// name, if present.
func ExtractDateSuffix(tableName string) (string, bool) {
	m := dateSuffixRe.FindStringSubmatch(tableName)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// TableContext holds the resolved physical table names for one run
// (spec.md §6): the single source of truth for which tables a run reads
// from and writes to.
type TableContext struct {
	FeedEntries  string
	FlashPoint   string
	NewsClusters string
	TargetDate   string
}

// Resolver resolves logical table names to physical date-partitioned
// tables and ensures the output table exists.
type Resolver struct {
	db *sqlx.DB
}

// NewResolver builds a Resolver over db.
func NewResolver(db *sqlx.DB) *Resolver {
	return &Resolver{db: db}
}

// tableExists checks pg_tables for a table in the public schema.
func (r *Resolver) tableExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM pg_tables WHERE schemaname = 'public' AND tablename = $1)`,
		name)
	if err != nil {
		return false, fmt.Errorf("datastore: checking table existence for %q: %w", name, err)
	}
	return exists, nil
}

// latestFeedEntriesDate finds the most recent feed_entries_YYYYMMDD
// suffix present in the database.
func (r *Resolver) latestFeedEntriesDate(ctx context.Context) (string, error) {
	var tableNames []string
	err := r.db.SelectContext(ctx, &tableNames,
		`SELECT tablename FROM pg_tables WHERE schemaname = 'public' AND tablename LIKE 'feed_entries_%' AND tablename NOT LIKE '%duplicate%' ORDER BY tablename DESC`)
	if err != nil {
		return "", fmt.Errorf("datastore: listing feed_entries tables: %w", err)
	}
	for _, name := range tableNames {
		if suffix, ok := ExtractDateSuffix(name); ok {
			return suffix, nil
		}
	}
	return "", fmt.Errorf("datastore: no feed_entries tables found")
}

// ResolveTables resolves logical table names for targetDate. An empty
// targetDate resolves to the latest available feed_entries date.
// feed_entries and flash_point must already exist; news_clusters is the
// output table and is not checked here (see EnsureOutputTable).
func (r *Resolver) ResolveTables(ctx context.Context, targetDate string) (*TableContext, error) {
	suffix := strings.ReplaceAll(targetDate, "-", "")
	if suffix == "" {
		latest, err := r.latestFeedEntriesDate(ctx)
		if err != nil {
			return nil, err
		}
		suffix = latest
		targetDate = latest
	}

	tc := &TableContext{
		FeedEntries:  fmt.Sprintf("feed_entries_%s", suffix),
		FlashPoint:   fmt.Sprintf("flash_point_%s", suffix),
		NewsClusters: fmt.Sprintf("news_clusters_%s", suffix),
		TargetDate:   targetDate,
	}

	for _, name := range []string{tc.FeedEntries, tc.FlashPoint} {
		exists, err := r.tableExists(ctx, name)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("datastore: required table %q does not exist for date %q", name, targetDate)
		}
	}

	return tc, nil
}

// newsClustersDDL is the canonical schema for a news_clusters_YYYYMMDD
// output table (spec.md §3/§6, confirmed against
// original_source/core/db/table_resolver.py's ensure_output_table).
const newsClustersDDL = `
CREATE TABLE IF NOT EXISTS %q (
	id bigserial PRIMARY KEY,
	flashpoint_id uuid NOT NULL,
	cluster_id integer NOT NULL,
	summary text NOT NULL,
	article_count integer NOT NULL,
	top_domains jsonb DEFAULT '[]'::jsonb,
	languages jsonb DEFAULT '[]'::jsonb,
	urls jsonb DEFAULT '[]'::jsonb,
	images jsonb DEFAULT '[]'::jsonb,
	created_at timestamptz DEFAULT CURRENT_TIMESTAMP
)`

// EnsureOutputTable creates the news_clusters table for targetDate if it
// does not already exist, returning its physical name.
func (r *Resolver) EnsureOutputTable(ctx context.Context, targetDate string) (string, error) {
	name := MakeTableName("news_clusters", targetDate)

	exists, err := r.tableExists(ctx, name)
	if err != nil {
		return "", err
	}
	if exists {
		return name, nil
	}

	if _, err := r.db.ExecContext(ctx, fmt.Sprintf(newsClustersDDL, name)); err != nil {
		return "", fmt.Errorf("datastore: creating output table %q: %w", name, err)
	}
	return name, nil
}
