// Package circuitbreaker implements the fetcher's per-host circuit breaker
// (spec.md §4.2): a failure counter that opens at a threshold and
// auto-resets after a cooldown with no successes required. This is a
// failure-*count* breaker (decrements by one per success, floor zero),
// distinct from sony/gobreaker's failure-*rate*/generation model — see
// DESIGN.md for why gobreaker is wired elsewhere (pkg/llm) instead of here.
package circuitbreaker

import (
	"sync"
	"time"
)

// State mirrors the corpus's CircuitState* naming
// (pkg/orchestration/dependency in the teacher repo).
type State string

const (
	StateClosed State = "closed"
	StateOpen   State = "open"
)

// Breaker is a single host's circuit breaker.
type Breaker struct {
	mu           sync.Mutex
	name         string
	threshold    int
	cooldown     time.Duration
	failures     int
	lastFailure  time.Time
}

// NewBreaker creates a breaker with the given failure threshold and
// cooldown duration (spec.md §4.2 defaults: threshold=5, cooldown=5min).
func NewBreaker(name string, threshold int, cooldown time.Duration) *Breaker {
	return &Breaker{name: name, threshold: threshold, cooldown: cooldown}
}

// IsOpen reports whether the breaker is currently blocking calls. A breaker
// at or above threshold auto-closes (resets failures to 0) once cooldown
// has elapsed since the last failure, without requiring an intervening
// success — matching the source's lazily-evaluated `is_open` property.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isOpenLocked()
}

func (b *Breaker) isOpenLocked() bool {
	if b.failures < b.threshold {
		return false
	}
	if time.Since(b.lastFailure) > b.cooldown {
		b.failures = 0
		return false
	}
	return true
}

// RecordFailure increments the failure counter and stamps the failure time.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailure = time.Now()
}

// RecordSuccess decrements the failure counter by one, floored at zero.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures > 0 {
		b.failures--
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	if b.IsOpen() {
		return StateOpen
	}
	return StateClosed
}

// Failures returns the current failure count (test/metrics introspection).
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Name returns the breaker's host name.
func (b *Breaker) Name() string {
	return b.name
}

// Manager owns one Breaker per host, created lazily. It is process-wide
// and single-threaded from the event loop's perspective (spec.md §5), but
// its internal map access is mutex-guarded for safety under the fetcher's
// bounded worker pool.
type Manager struct {
	mu        sync.Mutex
	breakers  map[string]*Breaker
	threshold int
	cooldown  time.Duration
}

// NewManager creates a Manager with the given per-host threshold/cooldown.
func NewManager(threshold int, cooldown time.Duration) *Manager {
	return &Manager{
		breakers:  make(map[string]*Breaker),
		threshold: threshold,
		cooldown:  cooldown,
	}
}

// Get returns (creating if necessary) the breaker for host.
func (m *Manager) Get(host string) *Breaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.breakers[host]
	if !ok {
		b = NewBreaker(host, m.threshold, m.cooldown)
		m.breakers[host] = b
	}
	return b
}

// Stats returns a snapshot of failures/open-state per host, matching the
// source's get_domain_stats().
type HostStats struct {
	Failures int
	IsOpen   bool
}

func (m *Manager) Stats() map[string]HostStats {
	m.mu.Lock()
	hosts := make([]*Breaker, 0, len(m.breakers))
	for _, b := range m.breakers {
		hosts = append(hosts, b)
	}
	m.mu.Unlock()

	out := make(map[string]HostStats, len(hosts))
	for _, b := range hosts {
		out[b.Name()] = HostStats{Failures: b.Failures(), IsOpen: b.IsOpen()}
	}
	return out
}
