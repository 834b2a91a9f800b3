package extract

import (
	"regexp"
	"strings"
)

var (
	controlCharsRe   = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	spaceTabRunsRe   = regexp.MustCompile(`[ \t]+`)
	extraNewlinesRe  = regexp.MustCompile(`\n{3,}`)
)

// Sanitize normalizes extracted text (spec.md §4.3): strips C0 control
// characters (except TAB/LF), collapses runs of spaces/tabs, caps
// consecutive newlines at 2, and trims. No language-specific processing.
func Sanitize(text string) string {
	text = controlCharsRe.ReplaceAllString(text, "")
	text = spaceTabRunsRe.ReplaceAllString(text, " ")
	text = extraNewlinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
