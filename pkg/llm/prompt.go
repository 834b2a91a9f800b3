package llm

import (
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"github.com/flashpointintel/pipeline/pkg/summary"
)

// summarizeSystemPrompt instructs the model to produce a neutral, factual
// synthesis of a single news cluster — adapted from
// original_source/core/pipeline/summarize.py's SUMMARIZE_SYSTEM_PROMPT for
// a synchronous, single-call-per-cluster API rather than that file's batch
// submission flow.
const summarizeSystemPrompt = `You are a neutral news analyst. Given several articles covering the same
event, write a single concise paragraph (3-5 sentences) summarizing what
happened. Report facts only; do not speculate, editorialize, or take sides.
If sources disagree on a detail, note the disagreement briefly.`

var clusterPromptTemplate = prompts.NewPromptTemplate(
	"Summarize the following news articles about the same event:\n\n{{.articles}}",
	[]string{"articles"},
)

// BuildClusterPrompt renders a size-bounded user prompt for one cluster
// (spec.md §4.9: "size-bounded prompt"). Articles are rendered in order and
// truncated once maxChars is reached, so a cluster with many long articles
// never produces an unbounded prompt.
func BuildClusterPrompt(articles []summary.ArticleInput, maxChars int) (string, error) {
	var b strings.Builder
	for i, a := range articles {
		title := a.TitleEN
		if title == "" {
			title = a.Title
		}
		body := a.Content
		if body == "" {
			body = a.Summary
		}
		entry := strings.TrimSpace(title + "\n" + body)
		if entry == "" {
			continue
		}
		if b.Len()+len(entry) > maxChars {
			break
		}
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		b.WriteString(entry)
	}

	return clusterPromptTemplate.Format(map[string]any{"articles": b.String()})
}
