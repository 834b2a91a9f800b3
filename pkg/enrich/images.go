package enrich

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

const maxBodyImages = 5

// trackerPatterns are substrings that mark an image URL as a tracking
// pixel/ad asset rather than article content (spec.md §4.6 step 6).
var trackerPatterns = []string{
	"pixel.", "/track/", "doubleclick", "analytics", "beacon", "1x1.",
	"spacer.gif", "/ads/",
}

// ExtractImages collects candidate image URLs from raw HTML (spec.md §4.6
// step 6): og:image and twitter:image meta tags first, then up to
// maxBodyImages body <img> tags, skipping tracker patterns and resolving
// protocol-relative/relative URLs against pageURL. Order is preserved,
// duplicates removed.
func ExtractImages(rawHTML, pageURL string) []string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}

	base, _ := url.Parse(pageURL)
	seen := make(map[string]struct{})
	var ordered []string

	add := func(raw string) {
		resolved := resolveImageURL(raw, base)
		if resolved == "" || isTracker(resolved) {
			return
		}
		if _, ok := seen[resolved]; ok {
			return
		}
		seen[resolved] = struct{}{}
		ordered = append(ordered, resolved)
	}

	var metaImages []string
	var bodyImages []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				if isOGOrTwitterImage(n) {
					if content := attr(n, "content"); content != "" {
						metaImages = append(metaImages, content)
					}
				}
			case "img":
				if len(bodyImages) < maxBodyImages {
					if src := attr(n, "src"); src != "" {
						bodyImages = append(bodyImages, src)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, m := range metaImages {
		add(m)
	}
	for _, b := range bodyImages {
		add(b)
	}

	return ordered
}

func isOGOrTwitterImage(n *html.Node) bool {
	property := attr(n, "property")
	name := attr(n, "name")
	return property == "og:image" || name == "twitter:image" || name == "twitter:image:src"
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isTracker(u string) bool {
	lower := strings.ToLower(u)
	for _, p := range trackerPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// resolveImageURL resolves protocol-relative ("//cdn.example.com/x.jpg")
// and relative URLs against the page's base URL.
func resolveImageURL(raw string, base *url.URL) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		scheme := "https"
		if base != nil && base.Scheme != "" {
			scheme = base.Scheme
		}
		return scheme + ":" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if parsed.IsAbs() {
		return parsed.String()
	}
	if base == nil {
		return ""
	}
	return base.ResolveReference(parsed).String()
}
