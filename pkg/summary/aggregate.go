package summary

import "sort"

const (
	maxTopDomains = 10
	maxURLs       = 50
	maxImages     = 20
)

// ClusterMetadata is the aggregated, per-cluster metadata written
// alongside its summary (spec.md §3's news_clusters columns).
type ClusterMetadata struct {
	TopDomains []string
	Languages  []string
	URLs       []string
	Images     []string
}

// AggregateClusterMetadata aggregates domains, languages, URLs, and
// images across a cluster's articles: top domains by occurrence count
// descending (capped), languages sorted unique, URLs and images
// preserving first-occurrence order (capped).
func AggregateClusterMetadata(articles []ArticleInput) ClusterMetadata {
	domainCounts := make(map[string]int)
	domainOrder := make([]string, 0)
	langSet := make(map[string]bool)
	urls := make([]string, 0)
	images := make([]string, 0)
	seenImages := make(map[string]bool)

	for _, a := range articles {
		if a.Hostname != "" {
			if domainCounts[a.Hostname] == 0 {
				domainOrder = append(domainOrder, a.Hostname)
			}
			domainCounts[a.Hostname]++
		}
		if a.Language != "" {
			langSet[a.Language] = true
		}
		if a.URL != "" {
			urls = append(urls, a.URL)
		}
		for _, img := range a.Images {
			if img == "" || seenImages[img] {
				continue
			}
			seenImages[img] = true
			images = append(images, img)
		}
	}

	sort.SliceStable(domainOrder, func(i, j int) bool {
		return domainCounts[domainOrder[i]] > domainCounts[domainOrder[j]]
	})
	topDomains := capSlice(domainOrder, maxTopDomains)

	languages := make([]string, 0, len(langSet))
	for lang := range langSet {
		languages = append(languages, lang)
	}
	sort.Strings(languages)

	return ClusterMetadata{
		TopDomains: topDomains,
		Languages:  languages,
		URLs:       capSlice(urls, maxURLs),
		Images:     capSlice(images, maxImages),
	}
}

func capSlice(items []string, max int) []string {
	if len(items) <= max {
		return items
	}
	return items[:max]
}
