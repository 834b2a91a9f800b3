package httpapi

import (
	"context"
	"time"

	"github.com/flashpointintel/pipeline/pkg/datastore"
	"github.com/flashpointintel/pipeline/pkg/model"
)

// RunStore is the narrow slice of RunRepository the trigger API reads
// (spec.md §6). Narrowed the same way pkg/orchestrator/deps.go narrows its
// repository collaborators, so handlers are testable without a live
// Postgres.
type RunStore interface {
	HasActiveRun(ctx context.Context, maxAge time.Duration) (bool, error)
	GetByID(ctx context.Context, runID string) (*model.Run, error)
	GetRunsByDate(ctx context.Context, targetDate string) ([]model.Run, error)
}

var _ RunStore = (*datastore.RunRepository)(nil)

// Trigger spawns a pipeline run out-of-process and returns immediately
// (spec.md §6: "Spawns a child process to run the orchestrator").
type Trigger interface {
	Trigger(ctx context.Context, targetDate, tier string) error
}
