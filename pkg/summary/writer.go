package summary

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/flashpointintel/pipeline/pkg/cluster"
	"github.com/flashpointintel/pipeline/pkg/datastore"
	"github.com/flashpointintel/pipeline/pkg/model"
)

// ClusterRepository is the subset of *datastore.ClusterRepository the
// Writer depends on, narrowed for testability.
type ClusterRepository interface {
	InsertClusterMembers(ctx context.Context, runID string, members []model.ClusterMember) error
	WriteNewsCluster(ctx context.Context, newsClustersTable string, summary model.ClusterSummary) error
	DeleteClustersForFlashpoint(ctx context.Context, newsClustersTable string, flashpointID uuid.UUID) (int64, error)
}

var _ ClusterRepository = (*datastore.ClusterRepository)(nil)

// Writer groups a flashpoint's cluster assignments, summarizes each
// cluster, and persists the result idempotently: a prior run's clusters
// for the same flashpoint are deleted before the new ones are written
// (spec.md's re-run idempotence invariant), and cluster membership rows
// use ON CONFLICT DO NOTHING keyed on (feed_entry_id, run_id).
type Writer struct {
	repo       ClusterRepository
	summarizer *Summarizer
}

// NewWriter builds a Writer.
func NewWriter(repo ClusterRepository, summarizer *Summarizer) *Writer {
	return &Writer{repo: repo, summarizer: summarizer}
}

// WriteClusters summarizes and persists every cluster formed from
// assignments, keyed by entry content in entriesByID. tier selects the
// extractive vs. LLM-backed summarization path (spec.md §4.9).
func (w *Writer) WriteClusters(
	ctx context.Context,
	newsClustersTable string,
	flashpointID uuid.UUID,
	runID string,
	tier string,
	assignments []cluster.Assignment,
	entriesByID map[uuid.UUID]model.FeedEntry,
) error {
	if len(assignments) == 0 {
		return nil
	}

	groups := groupByCluster(assignments)

	if _, err := w.repo.DeleteClustersForFlashpoint(ctx, newsClustersTable, flashpointID); err != nil {
		return fmt.Errorf("delete prior clusters for flashpoint %s: %w", flashpointID, err)
	}

	members := make([]model.ClusterMember, 0, len(assignments))
	for _, a := range assignments {
		members = append(members, model.ClusterMember{
			FlashpointID:         flashpointID,
			RunID:                runID,
			FeedEntryID:          a.FeedEntryID,
			ClusterUUID:          a.ClusterUUID,
			ClusterID:            a.ClusterID,
			SimilarityToCentroid: a.Similarity,
		})
	}
	if err := w.repo.InsertClusterMembers(ctx, runID, members); err != nil {
		return fmt.Errorf("insert cluster members for flashpoint %s: %w", flashpointID, err)
	}

	for clusterID, group := range groups {
		articles := make([]ArticleInput, 0, len(group))
		for _, a := range group {
			if entry, ok := entriesByID[a.FeedEntryID]; ok {
				articles = append(articles, FromFeedEntries([]model.FeedEntry{entry})...)
			}
		}

		summaryText, metadata := w.summarizer.SummarizeCluster(ctx, tier, articles)

		err := w.repo.WriteNewsCluster(ctx, newsClustersTable, model.ClusterSummary{
			FlashpointID: flashpointID,
			ClusterID:    clusterID,
			Summary:      summaryText,
			ArticleCount: len(group),
			TopDomains:   metadata.TopDomains,
			Languages:    metadata.Languages,
			URLs:         metadata.URLs,
			Images:       metadata.Images,
		})
		if err != nil {
			return fmt.Errorf("write news cluster %d for flashpoint %s: %w", clusterID, flashpointID, err)
		}
	}
	return nil
}

func groupByCluster(assignments []cluster.Assignment) map[int][]cluster.Assignment {
	groups := make(map[int][]cluster.Assignment)
	for _, a := range assignments {
		groups[a.ClusterID] = append(groups[a.ClusterID], a)
	}
	return groups
}
