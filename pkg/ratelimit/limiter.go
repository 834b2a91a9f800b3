// Package ratelimit implements the LLM summarizer's RPM sliding-window
// limiter (spec.md §4.7/§5): callers block when the 60-second window is
// saturated. A process-local limiter backs single-process deployments;
// an optional Redis-backed limiter shares state across multiple
// `pipeline-runner` processes.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/flashpointintel/pipeline/pkg/metrics"
)

// Limiter throttles callers to a configured requests-per-minute budget.
type Limiter interface {
	// Wait blocks until a slot is available or ctx is canceled.
	Wait(ctx context.Context) error
}

// Local is a process-local sliding-window limiter built on
// golang.org/x/time/rate. Its token bucket refills continuously at
// rpm/60 tokens per second, which approximates the spec's 60-second
// sliding window without the bookkeeping of a literal ring buffer of
// timestamps.
type Local struct {
	limiter *rate.Limiter
}

// NewLocal builds a Local limiter for the given requests-per-minute
// budget (spec.md's LLM_RPM_LIMIT, default 60).
func NewLocal(rpm int) *Local {
	perSecond := float64(rpm) / 60.0
	return &Local{limiter: rate.NewLimiter(rate.Limit(perSecond), burstFor(rpm))}
}

func burstFor(rpm int) int {
	if rpm < 1 {
		return 1
	}
	return rpm
}

// Wait blocks until a token is available.
func (l *Local) Wait(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.RecordLLMLimiterWait(time.Since(start)) }()
	return l.limiter.Wait(ctx)
}

// Error wraps a rate-limiter failure (e.g. the backing store is
// unreachable).
type Error struct {
	Cause error
}

func (e *Error) Error() string { return fmt.Sprintf("ratelimit: %v", e.Cause) }

func (e *Error) Unwrap() error { return e.Cause }
