// Package alert dispatches hotspot/run-failure notifications to external
// channels. It is deliberately thin (spec.md §1 lists "alert dispatch" as a
// non-goal, referenced only by interface) — the core orchestrator depends
// only on Dispatcher, never on a concrete channel, ported in shape from
// original_source/core/pipeline/alerts.py's webhook/Slack/email stubs.
package alert

import "context"

// HotspotAlert carries what alerts.py's AlertPayload carries for a
// top-ranked cluster.
type HotspotAlert struct {
	FlashpointID    string
	FlashpointTitle string
	ClusterID       int
	Summary         string
	ArticleCount    int
	HotspotScore    float64
	TopDomains      []string
}

// RunFailureAlert carries the minimum needed to page someone about a
// failed pipeline run.
type RunFailureAlert struct {
	RunID      string
	TargetDate string
	Tier       string
	ErrorMessage string
}

// Dispatcher sends alerts to an external channel. Implementations must not
// block the caller indefinitely; pass a context with a deadline.
type Dispatcher interface {
	DispatchHotspot(ctx context.Context, alert HotspotAlert) error
	DispatchRunFailure(ctx context.Context, alert RunFailureAlert) error
}

// NoopDispatcher discards every alert. Used when no channel is configured
// (spec.md's ambient stack is optional outside the core pipeline).
type NoopDispatcher struct{}

func (NoopDispatcher) DispatchHotspot(ctx context.Context, alert HotspotAlert) error     { return nil }
func (NoopDispatcher) DispatchRunFailure(ctx context.Context, alert RunFailureAlert) error { return nil }

var _ Dispatcher = NoopDispatcher{}
