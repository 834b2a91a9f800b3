package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// skipTags are elements whose text never belongs to article content,
// across every extractor in the ensemble.
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"nav": true, "header": true, "footer": true, "aside": true,
	"form": true, "iframe": true, "svg": true,
}

// blockTags delimit paragraph-like text blocks for the density/boilerplate
// scorers.
var blockTags = map[string]bool{
	"p": true, "div": true, "article": true, "section": true,
	"li": true, "blockquote": true, "td": true,
}

// extractMainArticle favors recall: it walks the full DOM and concatenates
// every text node outside skipTags, mirroring trafilatura's
// favor_recall=True mode (grab broadly rather than risk dropping content).
func extractMainArticle(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	var b strings.Builder
	var walk func(n *html.Node, skip bool)
	walk = func(n *html.Node, skip bool) {
		if n.Type == html.ElementNode && skipTags[n.Data] {
			skip = true
		}
		if n.Type == html.TextNode && !skip {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, skip)
		}
	}
	walk(doc, false)
	return b.String()
}

// textBlock is a single block-level element's collected text.
type textBlock struct {
	text      string
	linkChars int
}

// collectBlocks walks the DOM, gathering one textBlock per blockTags
// element encountered (non-nested — a block's text includes descendant
// text not itself inside a nested block).
func collectBlocks(rawHTML string) []textBlock {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}
	var blocks []textBlock
	var collectText func(n *html.Node) (string, int)
	collectText = func(n *html.Node) (string, int) {
		if n.Type == html.ElementNode && skipTags[n.Data] {
			return "", 0
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			// Nested block: recurse independently, don't double count here.
			return "", 0
		}
		var text string
		linkChars := 0
		if n.Type == html.TextNode {
			text = n.Data
		}
		isAnchor := n.Type == html.ElementNode && n.Data == "a"
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			childText, childLink := collectText(c)
			text += childText
			linkChars += childLink
		}
		if isAnchor {
			linkChars += len(text)
		}
		return text, linkChars
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && blockTags[n.Data] {
			text, linkChars := collectText(n)
			if strings.TrimSpace(text) != "" {
				blocks = append(blocks, textBlock{text: text, linkChars: linkChars})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return blocks
}

// extractReadability approximates readability-lxml's density scoring: it
// keeps every block whose trimmed text is at least 40 chars and whose
// link-char density is at most 0.5, concatenated in document order. No
// single best block is chosen.
func extractReadability(rawHTML string) string {
	blocks := collectBlocks(rawHTML)
	var b strings.Builder
	for _, blk := range blocks {
		trimmed := strings.TrimSpace(blk.text)
		if len(trimmed) < 40 {
			continue
		}
		linkDensity := float64(blk.linkChars) / float64(len(trimmed)+1)
		if linkDensity > 0.5 {
			continue
		}
		b.WriteString(trimmed)
		b.WriteString("\n\n")
	}
	return b.String()
}

// boilerplateStopwords is a small, language-agnostic stoplist used for
// boilerplate scoring (jusText's algorithm uses a per-language stoplist;
// this ensemble position carries the spirit — density of common function
// words versus link density — without a bundled English stoplist corpus).
var boilerplateStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"in": true, "on": true, "to": true, "is": true, "was": true, "for": true,
	"with": true, "that": true, "it": true, "as": true, "by": true, "at": true,
}

// extractBoilerplateParagraphs scores each block's stopword density
// against its link density; blocks reading as prose (stopword-rich,
// link-poor) survive, boilerplate (nav/share widgets: link-rich,
// stopword-poor) is dropped — jusText's classification shape.
func extractBoilerplateParagraphs(rawHTML string) string {
	blocks := collectBlocks(rawHTML)
	var b strings.Builder
	for _, blk := range blocks {
		trimmed := strings.TrimSpace(blk.text)
		if len(trimmed) < 30 {
			continue
		}
		words := strings.Fields(trimmed)
		if len(words) == 0 {
			continue
		}
		stopCount := 0
		for _, w := range words {
			if boilerplateStopwords[strings.ToLower(w)] {
				stopCount++
			}
		}
		stopDensity := float64(stopCount) / float64(len(words))
		linkDensity := float64(blk.linkChars) / float64(len(trimmed)+1)
		if stopDensity < 0.05 || linkDensity > 0.3 {
			continue // classified as boilerplate
		}
		b.WriteString(trimmed)
		b.WriteString("\n\n")
	}
	return b.String()
}

// extractSAXStrip is the last-resort extractor: a streaming, SAX-style
// pass over the token stream that emits every text token verbatim,
// skipping script/style content. This mirrors BoilerPy3's SAX-based
// extraction as the final fallback before failure classification.
func extractSAXStrip(rawHTML string) string {
	z := html.NewTokenizer(strings.NewReader(rawHTML))
	var b strings.Builder
	skipDepth := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if skipTags[string(name)] {
				if tt == html.StartTagToken {
					skipDepth++
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if skipTags[string(name)] && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
				b.WriteString(" ")
			}
		}
	}
}
