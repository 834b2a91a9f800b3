package orchestrator

import "github.com/flashpointintel/pipeline/pkg/model"

// chunkSize is the fixed ingest chunk size (spec.md §4.6).
const chunkSize = 100

// chunkEntries splits entries into fixed-size chunks, the unit of
// atomic commit during ingest.
func chunkEntries(entries []model.FeedEntry, size int) [][]model.FeedEntry {
	if size <= 0 {
		size = chunkSize
	}
	chunks := make([][]model.FeedEntry, 0, (len(entries)+size-1)/size)
	for start := 0; start < len(entries); start += size {
		end := start + size
		if end > len(entries) {
			end = len(entries)
		}
		chunks = append(chunks, entries[start:end])
	}
	return chunks
}
