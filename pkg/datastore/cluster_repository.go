package datastore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/flashpointintel/pipeline/internal/errors"
	"github.com/flashpointintel/pipeline/pkg/model"
)

// ClusterRepository is CRUD over cluster_members (sidecar) and
// news_clusters_YYYYMMDD (date-partitioned output), the clustering and
// summarization stages' write path (spec.md §4.8/§4.9).
type ClusterRepository struct {
	db *sqlx.DB
}

// NewClusterRepository builds a ClusterRepository over db.
func NewClusterRepository(db *sqlx.DB) *ClusterRepository {
	return &ClusterRepository{db: db}
}

// InsertClusterMembers bulk-inserts membership rows, silently skipping
// any (feed_entry_id, run_id) pair already recorded.
func (c *ClusterRepository) InsertClusterMembers(ctx context.Context, runID string, members []model.ClusterMember) error {
	if len(members) == 0 {
		return nil
	}

	valueRows := make([]string, len(members))
	args := make([]any, 0, len(members)*6)
	for i, m := range members {
		base := i * 6
		valueRows[i] = fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args, m.FlashpointID, runID, m.FeedEntryID, m.ClusterUUID, m.ClusterID, m.SimilarityToCentroid)
	}

	query := fmt.Sprintf(`
		INSERT INTO cluster_members (flashpoint_id, run_id, feed_entry_id, cluster_uuid, cluster_id, similarity_to_centroid)
		VALUES %s
		ON CONFLICT ON CONSTRAINT uq_cluster_member_entry_run DO NOTHING`, joinSet(valueRows))

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewDatabaseError("insert_cluster_members", err)
	}
	return nil
}

// WriteNewsCluster inserts a single cluster summary row into the
// date-partitioned output table.
func (c *ClusterRepository) WriteNewsCluster(ctx context.Context, newsClustersTable string, summary model.ClusterSummary) error {
	topDomains, err := json.Marshal(nonNilStrings(summary.TopDomains))
	if err != nil {
		return fmt.Errorf("datastore: encoding top_domains: %w", err)
	}
	languages, err := json.Marshal(nonNilStrings(summary.Languages))
	if err != nil {
		return fmt.Errorf("datastore: encoding languages: %w", err)
	}
	urls, err := json.Marshal(nonNilStrings(summary.URLs))
	if err != nil {
		return fmt.Errorf("datastore: encoding urls: %w", err)
	}
	images, err := json.Marshal(nonNilStrings(summary.Images))
	if err != nil {
		return fmt.Errorf("datastore: encoding images: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %q (flashpoint_id, cluster_id, summary, article_count, top_domains, languages, urls, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, newsClustersTable)

	_, err = c.db.ExecContext(ctx, query,
		summary.FlashpointID, summary.ClusterID, summary.Summary, summary.ArticleCount,
		topDomains, languages, urls, images)
	if err != nil {
		return apperrors.NewDatabaseError("write_news_cluster", err)
	}
	return nil
}

// DeleteClustersForFlashpoint removes existing cluster rows for a
// flashpoint before re-writing them, keeping a re-run idempotent rather
// than accumulating duplicate cluster rows across runs.
func (c *ClusterRepository) DeleteClustersForFlashpoint(ctx context.Context, newsClustersTable string, flashpointID uuid.UUID) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %q WHERE flashpoint_id = $1`, newsClustersTable)
	result, err := c.db.ExecContext(ctx, query, flashpointID)
	if err != nil {
		return 0, apperrors.NewDatabaseError("delete_clusters_for_flashpoint", err)
	}
	return result.RowsAffected()
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
