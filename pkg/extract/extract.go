// Package extract implements the ordered extraction ensemble (spec.md §4.3):
// four extractors tried in sequence, the first to clear min_length wins.
package extract

import (
	"fmt"
	"strings"
	"time"
)

// Result is a successful extraction (spec.md §4.3 contract).
type Result struct {
	Text       string
	Method     string
	Chars      int
	DurationMs int64
}

// FailureReason classifies why extraction produced nothing usable
// (spec.md §3, §4.3).
type FailureReason string

const (
	ReasonPaywall    FailureReason = "paywall"
	ReasonConsent    FailureReason = "consent"
	ReasonJSRequired FailureReason = "js_required"
	ReasonNoText     FailureReason = "no_text"
)

// Error is raised when every extractor in the ensemble fails to produce
// text at or above min_length.
type Error struct {
	Reason   FailureReason
	Warnings []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract: all extractors failed, reason=%s, tried: %s",
		e.Reason, strings.Join(e.Warnings, "; "))
}

type extractorFunc func(html string) string

// ensemble is the ordered default sequence from spec.md §4.3: (1) a
// recall-favoring main-article extractor, (2) readability-style DOM
// density scoring, (3) a boilerplate-paragraph classifier with a stoplist,
// (4) a SAX-style tag-stripping extractor.
var ensemble = []struct {
	name string
	fn   extractorFunc
}{
	{"main_article", extractMainArticle},
	{"readability", extractReadability},
	{"boilerplate_paragraphs", extractBoilerplateParagraphs},
	{"sax_strip", extractSAXStrip},
}

// Extract runs the ensemble against html, returning the first extractor's
// output that clears minLength, sanitized. If every extractor falls short
// it returns an *Error carrying the detected failure reason.
func Extract(html string, minLength int) (*Result, error) {
	start := time.Now()
	warnings := make([]string, 0, len(ensemble))

	for _, e := range ensemble {
		text := e.fn(html)
		trimmed := strings.TrimSpace(text)
		if len(trimmed) >= minLength {
			sanitized := Sanitize(trimmed)
			return &Result{
				Text:       sanitized,
				Method:     e.name,
				Chars:      len([]rune(trimmed)),
				DurationMs: time.Since(start).Milliseconds(),
			}, nil
		}
		if trimmed == "" {
			warnings = append(warnings, e.name+": empty")
		} else {
			warnings = append(warnings, fmt.Sprintf("%s: too short (%d chars)", e.name, len(trimmed)))
		}
	}

	return nil, &Error{Reason: DetectFailureReason(html, ""), Warnings: warnings}
}
