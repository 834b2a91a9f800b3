package fetch

import (
	"sync"

	"golang.org/x/sync/semaphore"
)

// hostSemaphores owns one weighted semaphore per host, created lazily, so
// concurrent fetches to the same host are capped independently of the
// global concurrency limit.
type hostSemaphores struct {
	mu    sync.Mutex
	sems  map[string]*semaphore.Weighted
	limit int64
}

func newHostSemaphores(limit int) *hostSemaphores {
	return &hostSemaphores{sems: make(map[string]*semaphore.Weighted), limit: int64(limit)}
}

func (h *hostSemaphores) get(host string) *semaphore.Weighted {
	h.mu.Lock()
	defer h.mu.Unlock()
	sem, ok := h.sems[host]
	if !ok {
		sem = semaphore.NewWeighted(h.limit)
		h.sems[host] = sem
	}
	return sem
}
