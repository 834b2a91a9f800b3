// Package model holds the shared entity types of the pipeline (spec.md §3).
package model

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the Run lifecycle status (spec.md §3).
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusPartial   RunStatus = "partial"
)

// JobStatus is the per-(feed_entry, run) lifecycle status (spec.md §4.1).
type JobStatus string

const (
	JobStatusQueued          JobStatus = "queued"
	JobStatusFetching        JobStatus = "fetching"
	JobStatusExtracted       JobStatus = "extracted"
	JobStatusDeduped         JobStatus = "deduped"
	JobStatusEmbedded        JobStatus = "embedded"
	JobStatusClustered       JobStatus = "clustered"
	JobStatusSummarized      JobStatus = "summarized"
	JobStatusScored          JobStatus = "scored"
	JobStatusFailed          JobStatus = "failed"
	JobStatusSkippedDuplicate JobStatus = "skipped_duplicate"
)

// FailureReason categorizes why a Job failed (spec.md §3).
type FailureReason string

const (
	FailureReasonBlocked    FailureReason = "blocked"
	FailureReasonJSRequired FailureReason = "js_required"
	FailureReasonPaywall    FailureReason = "paywall"
	FailureReasonConsent    FailureReason = "consent"
	FailureReasonNoText     FailureReason = "no_text"
	FailureReasonTimeout    FailureReason = "timeout"
	FailureReasonHTTPError  FailureReason = "http_error"
	FailureReasonUnknown    FailureReason = "unknown"
)

// Run is one execution of the pipeline over one target date (spec.md §3).
type Run struct {
	RunID        string
	Status       RunStatus
	Tier         string
	TargetDate   string
	StartedAt    time.Time
	CompletedAt  *time.Time
	ErrorMessage string
	Metrics      map[string]any
	Counters     RunCounters
}

// RunCounters tracks per-status counts for a Run (spec.md §7).
type RunCounters struct {
	Total           int `json:"total"`
	Processed       int `json:"processed"`
	Failed          int `json:"failed"`
	DedupSkipped    int `json:"dedup_skipped"`
	ClustersCreated int `json:"clusters_created"`
}

// FeedEntry is a candidate article record under a flashpoint (spec.md §3).
type FeedEntry struct {
	ID              uuid.UUID
	FlashpointID    *uuid.UUID
	URL             string
	Title           string
	Language        string
	SourceCountry   string
	Description     string
	HasContent      bool

	// Enrichment columns, written by the pipeline.
	Content     string
	TitleEN     string
	Hostname    string
	Summary     string
	Entities    map[string][]NamedEntity
	GeoEntities []GeoEntity
	Images      []string
}

// NamedEntity is a single NER hit.
type NamedEntity struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// GeoEntity is a resolved LOC/GPE entity (spec.md §4.6 step 5).
type GeoEntity struct {
	Name     string  `json:"name"`
	Count    int     `json:"count"`
	Alpha2   string  `json:"alpha2"`
	Alpha3   string  `json:"alpha3"`
	AvgScore float64 `json:"avg_score"`
}

// Job is the per-(feed_entry_id, run_id) processing record (spec.md §3).
type Job struct {
	FeedEntryID      uuid.UUID
	RunID            string
	Status           JobStatus
	Attempts         int
	LastError        string
	FailureReason    FailureReason
	ExtractionMethod string
	ExtractionChars  int
	ContentHash      string
	IsDuplicate      bool
	DuplicateOf      *uuid.UUID
	FetchDurationMs  int
	ExtractDurationMs int
}

// Embedding is a fixed-dimension, L2-normalized vector keyed by
// feed_entry_id (spec.md §3).
type Embedding struct {
	FeedEntryID uuid.UUID
	Vector      []float32
	ModelName   string
}

// ClusterMember is one row of the per-run cluster membership (spec.md §3).
type ClusterMember struct {
	FlashpointID        uuid.UUID
	RunID               string
	FeedEntryID         uuid.UUID
	ClusterUUID         uuid.UUID
	ClusterID           int
	SimilarityToCentroid float64
}

// ClusterSummary is the per-cluster output row (spec.md §3).
type ClusterSummary struct {
	FlashpointID uuid.UUID
	ClusterID    int
	Summary      string
	ArticleCount int
	TopDomains   []string
	Languages    []string
	URLs         []string
	Images       []string
}
