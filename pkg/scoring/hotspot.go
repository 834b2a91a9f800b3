// Package scoring computes per-cluster hotspot scores (spec.md §4.10): a
// weighted blend of article volume, recency, source diversity, and topic
// weight, normalized to [0, 1].
package scoring

import (
	"math"
	"sort"
	"strings"
	"time"
)

// topicWeights maps an IPTC top-level category to its contribution to
// the hotspot score; conflict/disaster topics score highest. Ported
// verbatim from original_source/core/pipeline/score.py's TOPIC_WEIGHTS.
var topicWeights = map[string]float64{
	"conflict, war and peace":                   1.0,
	"disaster, accident and emergency incident": 0.9,
	"crime, law and justice":                    0.8,
	"politics":                                  0.7,
	"society":                                   0.6,
	"health":                                    0.6,
	"environmental issue":                       0.5,
	"economy, business and finance":             0.5,
	"human interest":                            0.4,
	"education":                                 0.3,
	"religion":                                  0.3,
	"science and technology":                    0.3,
	"labour":                                    0.3,
	"arts, culture, entertainment and media":    0.2,
	"lifestyle and leisure":                     0.2,
	"sport":                                     0.1,
	"weather":                                   0.3,
}

const defaultTopicWeight = 0.3

// maxArticleCountNorm and maxDomainsNorm bound the log-scaled volume and
// diversity terms, matching the original's normalization constants.
const (
	maxArticleCountNorm = 100
	maxDomainsNorm      = 20
	recencyHalfLifeHrs  = 12
)

// HotspotScore is the computed score for one cluster, with its
// weighted-sum breakdown retained for observability.
type HotspotScore struct {
	ClusterID    int
	Score        float64
	Volume       float64
	Recency      float64
	Diversity    float64
	TopicWeight  float64
	IsTopHotspot bool
}

// ComputeHotspotScore computes a hotspot score in [0, 1] from a cluster's
// article count, unique domain count, most recent article timestamp, and
// primary topic classification. now defaults to time.Now() when zero.
func ComputeHotspotScore(articleCount, uniqueDomains int, maxRecency time.Time, primaryTopic string, now time.Time) HotspotScore {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	volume := clampUnit(math.Log2(float64(articleCount)+1) / math.Log2(maxArticleCountNorm+1))

	var recency float64
	if !maxRecency.IsZero() {
		ageHours := now.Sub(maxRecency).Hours()
		recency = math.Exp(-0.693 * ageHours / recencyHalfLifeHrs)
	}

	diversity := clampUnit(math.Log2(float64(uniqueDomains)+1) / math.Log2(maxDomainsNorm))

	topic := defaultTopicWeight
	if w, ok := topicWeights[strings.ToLower(primaryTopic)]; ok {
		topic = w
	}

	score := 0.30*volume + 0.25*recency + 0.25*diversity + 0.20*topic

	return HotspotScore{
		Score:       round4(score),
		Volume:      round4(volume),
		Recency:     round4(recency),
		Diversity:   round4(diversity),
		TopicWeight: round4(topic),
	}
}

func clampUnit(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < 0 {
		return 0
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// RankHotspots sorts scores descending by Score and marks the top n as
// IsTopHotspot.
func RankHotspots(scores []HotspotScore, topN int) []HotspotScore {
	ranked := make([]HotspotScore, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	for i := range ranked {
		if i < topN {
			ranked[i].IsTopHotspot = true
		}
	}
	return ranked
}
