// Package llm adapts external LLM providers to the synchronous,
// single-call-per-cluster LLMSummarizer interface declared in pkg/summary
// (spec.md §4.9, §9 Open Question 2). Provider failover across adapters is
// explicitly out of scope for the core orchestrator — it depends only on
// summary.LLMSummarizer, never on a concrete provider.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/flashpointintel/pipeline/pkg/metrics"
	"github.com/flashpointintel/pipeline/pkg/summary"
)

// ErrCircuitOpen is returned when the provider's circuit breaker is open.
var ErrCircuitOpen = errors.New("llm: circuit breaker open")

// Completer is the minimal provider call a breaker-wrapped Summarizer
// delegates to: one prompt in, one completion out.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// BreakerSummarizer wraps a Completer with a sony/gobreaker circuit
// breaker, matching the corpus's circuitbreaker.NewManager(gobreaker.Settings{...})
// wiring shape (test/integration/notification/suite_test.go) but scoped to
// a single named breaker per provider instance, since each Summarizer talks
// to exactly one provider. The breaker trips after 3 consecutive failures,
// stays open for 30s, and then lets at most 2 half-open trial requests
// through before closing again.
type BreakerSummarizer struct {
	name      string
	completer Completer
	breaker   *gobreaker.CircuitBreaker
	maxChars  int
}

// NewBreakerSummarizer builds a breaker-wrapped summarizer for one
// provider. name identifies the breaker in logs/metrics (e.g. "anthropic",
// "bedrock"). maxChars bounds the rendered per-cluster prompt size.
func NewBreakerSummarizer(name string, completer Completer, maxChars int) *BreakerSummarizer {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &BreakerSummarizer{
		name:      name,
		completer: completer,
		breaker:   gobreaker.NewCircuitBreaker(settings),
		maxChars:  maxChars,
	}
}

// SummarizeCluster implements summary.LLMSummarizer.
func (b *BreakerSummarizer) SummarizeCluster(ctx context.Context, articles []summary.ArticleInput) (string, error) {
	prompt, err := BuildClusterPrompt(articles, b.maxChars)
	if err != nil {
		return "", fmt.Errorf("llm: build prompt: %w", err)
	}

	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.completer.Complete(ctx, summarizeSystemPrompt, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordLLMRequest(b.name, "circuit_open")
			return "", fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		metrics.RecordLLMRequest(b.name, "error")
		return "", err
	}
	metrics.RecordLLMRequest(b.name, "success")
	return result.(string), nil
}
