// Package summary builds per-cluster summaries (spec.md §4.9): an
// extractive lead-sentence summary usable standalone (Tier A/B) or as a
// fallback, plus metadata aggregation shared by every tier, plus an
// LLM-backed path (Tier C) for premium clusters via the LLMSummarizer
// interface (implemented by pkg/llm).
package summary

import (
	"regexp"
	"strings"

	"github.com/flashpointintel/pipeline/pkg/model"
)

// maxConsideredArticles bounds how many of a cluster's articles are
// scanned for lead sentences; articles are assumed pre-sorted by
// relevance/recency.
const maxConsideredArticles = 10

// maxLeadSentencesPerArticle caps how many lead sentences one article
// can contribute, keeping the summary from being dominated by a single
// wordy source.
const maxLeadSentencesPerArticle = 2

// minSentenceLength filters out short fragments (datelines, bylines)
// that survive naive sentence splitting.
const minSentenceLength = 30

// defaultMaxSentences is the extractive summary's target sentence count.
const defaultMaxSentences = 5

var sentenceSplitRe = regexp.MustCompile(`(?:[.!?])\s+`)

// ArticleInput is one cluster member as seen by extractive summarization
// and metadata aggregation.
type ArticleInput struct {
	Title    string
	TitleEN  string
	Content  string
	Summary  string
	Language string
	URL      string
	Hostname string
	Images   []string
}

// ExtractiveSummary picks up to maxSentences lead sentences (at most
// maxLeadSentencesPerArticle per article) from the first
// maxConsideredArticles articles, deduplicating on first appearance.
// Falls back to article titles if no article yields a usable sentence.
func ExtractiveSummary(articles []ArticleInput, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = defaultMaxSentences
	}

	sentences := make([]string, 0, maxSentences)
	seen := make(map[string]bool, maxSentences)

	considered := articles
	if len(considered) > maxConsideredArticles {
		considered = considered[:maxConsideredArticles]
	}

	for _, article := range considered {
		text := article.Content
		if text == "" {
			text = article.Summary
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		for i, sent := range sentenceSplitRe.Split(text, -1) {
			if i >= maxLeadSentencesPerArticle {
				break
			}
			sent = strings.TrimSpace(sent)
			if len(sent) <= minSentenceLength || seen[sent] {
				continue
			}
			sentences = append(sentences, sent)
			seen[sent] = true
		}

		if len(sentences) >= maxSentences {
			break
		}
	}

	if len(sentences) == 0 && len(articles) > 0 {
		for _, article := range firstN(articles, 5) {
			title := preferredTitle(article)
			if title != "" {
				sentences = append(sentences, title)
			}
		}
	}

	if len(sentences) > maxSentences {
		sentences = sentences[:maxSentences]
	}
	return strings.Join(sentences, " ")
}

func preferredTitle(a ArticleInput) string {
	if a.TitleEN != "" {
		return a.TitleEN
	}
	return a.Title
}

func firstN(items []ArticleInput, n int) []ArticleInput {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

// FromFeedEntries adapts model.FeedEntry rows into ArticleInput, the
// shape extractive summarization and aggregation operate on.
func FromFeedEntries(entries []model.FeedEntry) []ArticleInput {
	out := make([]ArticleInput, 0, len(entries))
	for _, e := range entries {
		out = append(out, ArticleInput{
			Title:    e.Title,
			TitleEN:  e.TitleEN,
			Content:  e.Content,
			Summary:  e.Summary,
			Language: e.Language,
			URL:      e.URL,
			Hostname: e.Hostname,
			Images:   e.Images,
		})
	}
	return out
}
