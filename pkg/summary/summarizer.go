package summary

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/flashpointintel/pipeline/pkg/ratelimit"
)

// LLMSummarizer is the premium-tier (Tier C) summarization backend,
// implemented by pkg/llm's Anthropic/Bedrock adapters. A single call
// summarizes one cluster's articles.
type LLMSummarizer interface {
	SummarizeCluster(ctx context.Context, articles []ArticleInput) (string, error)
}

// Summarizer builds a ClusterSummary for one cluster, choosing the
// extractive or LLM path by tier (spec.md §4.9).
type Summarizer struct {
	llm     LLMSummarizer
	limiter ratelimit.Limiter
	log     *logrus.Logger
}

// NewSummarizer builds a Summarizer. llm may be nil — Tier A/B runs
// never call it, and a nil llm on Tier C is treated as an LLM failure,
// falling back to the extractive summary. limiter gates Tier C calls to
// the configured LLM RPM budget (spec.md §4.9); it is not consulted for
// Tier A/B since those never reach the LLM.
func NewSummarizer(llm LLMSummarizer, limiter ratelimit.Limiter, log *logrus.Logger) *Summarizer {
	return &Summarizer{llm: llm, limiter: limiter, log: log}
}

// SummarizeCluster builds the cluster's summary text and aggregated
// metadata for the given tier ("A", "B", or "C"). Tier A/B always use
// the extractive summary; Tier C waits for a rate-limit slot, calls the
// LLM, and falls back to the extractive summary on any failure
// (including the limiter's own context-deadline failure).
func (s *Summarizer) SummarizeCluster(ctx context.Context, tier string, articles []ArticleInput) (string, ClusterMetadata) {
	metadata := AggregateClusterMetadata(articles)

	if tier != "C" || s.llm == nil {
		return ExtractiveSummary(articles, defaultMaxSentences), metadata
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			s.logFallback(err)
			return ExtractiveSummary(articles, defaultMaxSentences), metadata
		}
	}

	text, err := s.llm.SummarizeCluster(ctx, articles)
	if err != nil || text == "" {
		s.logFallback(err)
		return ExtractiveSummary(articles, defaultMaxSentences), metadata
	}
	return text, metadata
}

func (s *Summarizer) logFallback(err error) {
	if s.log != nil {
		s.log.WithError(err).Warn("llm_summarize_failed_falling_back_to_extractive")
	}
}
