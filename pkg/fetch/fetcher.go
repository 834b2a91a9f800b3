// Package fetch implements the bounded, polite, circuit-breaker-protected
// HTTP fetcher (spec.md §4.2).
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/flashpointintel/pipeline/pkg/circuitbreaker"
	"github.com/flashpointintel/pipeline/pkg/metrics"
)

// Guard validates a URL before it is dialed, returning its hostname on
// success. *ssrf.Guard satisfies this; tests inject a stub.
type Guard interface {
	Check(ctx context.Context, rawURL string) (string, error)
}

const (
	userAgent            = "FlashpointIntelBot/1.0 (+https://flashpointintel.example/bot)"
	connectTimeout       = 10 * time.Second
	maxRetries           = 3
	retryBackoffBase     = time.Second
	retryBackoffMax      = 30 * time.Second
	maxRetryAfterSeconds = 60
)

// ErrDomainBlocked is returned when the per-host circuit breaker is open.
var ErrDomainBlocked = errors.New("fetch: domain blocked by circuit breaker")

// Result is a successful fetch outcome (spec.md §4.2 contract).
type Result struct {
	HTML        string
	Status      int
	DurationMs  int64
	ContentType string
	FinalURL    string
}

// HTTPError wraps an HTTP error status; Fetch returns it once its retries
// are exhausted.
type HTTPError struct {
	URL    string
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetch: %s returned HTTP %d", e.URL, e.Status)
}

// Error is a generic fetch failure (connection error, timeout, etc).
type Error struct {
	URL   string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch: %s failed: %v", e.URL, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Config holds the fetcher's concurrency/retry policy (spec.md §4.2).
type Config struct {
	MaxConcurrent  int
	PerDomain      int
	Timeout        time.Duration
	PoliteDelay    time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// DefaultConfig returns spec.md §4.2's defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:    50,
		PerDomain:        3,
		Timeout:          30 * time.Second,
		PoliteDelay:      250 * time.Millisecond,
		BreakerThreshold: 5,
		BreakerCooldown:  5 * time.Minute,
	}
}

// Fetcher is the bounded, per-host protected HTTP client.
type Fetcher struct {
	cfg      Config
	client   *http.Client
	guard    Guard
	breakers *circuitbreaker.Manager
	log      *logrus.Logger

	global *semaphore.Weighted
	hosts  *hostSemaphores
}

// NewFetcher builds a Fetcher. guard must not be nil; callers compose one
// via ssrf.NewGuard at startup.
func NewFetcher(cfg Config, guard Guard, log *logrus.Logger) *Fetcher {
	return &Fetcher{
		cfg:    cfg,
		guard:  guard,
		log:    log,
		client: &http.Client{Timeout: cfg.Timeout},
		breakers: circuitbreaker.NewManager(cfg.BreakerThreshold, cfg.BreakerCooldown),
		global:   semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		hosts:    newHostSemaphores(cfg.PerDomain),
	}
}

// Fetch retrieves rawURL, enforcing the SSRF guard, global+per-host
// concurrency gates (acquired in that order, released on every exit path),
// the per-host circuit breaker, and the retry/backoff policy.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	host, err := f.guard.Check(ctx, rawURL)
	if err != nil {
		return nil, &Error{URL: rawURL, Cause: err}
	}

	breaker := f.breakers.Get(host)
	if breaker.IsOpen() {
		metrics.RecordFetch(host, "circuit_open", 0)
		return nil, fmt.Errorf("%w: %s", ErrDomainBlocked, host)
	}

	if err := f.global.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer f.global.Release(1)

	hostSem := f.hosts.get(host)
	if err := hostSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer hostSem.Release(1)

	result, err := f.doWithRetry(ctx, rawURL)
	if err != nil {
		breaker.RecordFailure()
		metrics.RecordCircuitBreakerState(host, breaker.IsOpen())
		metrics.RecordFetch(host, "error", 0)
		return nil, err
	}
	breaker.RecordSuccess()
	metrics.RecordCircuitBreakerState(host, breaker.IsOpen())
	metrics.RecordFetch(host, "success", time.Duration(result.DurationMs)*time.Millisecond)

	time.Sleep(f.cfg.PoliteDelay)
	return result, nil
}

func (f *Fetcher) doWithRetry(ctx context.Context, rawURL string) (*Result, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		result, retryAfter, err := f.attempt(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var httpErr *HTTPError
		if !errors.As(err, &httpErr) {
			// Connection error: no further retry here, falls through to
			// the circuit breaker in Fetch.
			return nil, err
		}
		if attempt == maxRetries {
			break
		}
		if httpErr.Status != http.StatusTooManyRequests && httpErr.Status != http.StatusServiceUnavailable {
			// Other HTTP errors are retried with the same backoff policy
			// (spec.md §4.2), so fall through rather than returning here.
		}

		delay := backoffDelay(attempt)
		if retryAfter > 0 {
			if retryAfter > maxRetryAfterSeconds {
				retryAfter = maxRetryAfterSeconds
			}
			delay = time.Duration(retryAfter) * time.Second
		}
		f.log.WithFields(logrus.Fields{"url": rawURL, "attempt": attempt, "delay": delay}).Debug("fetch: retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func backoffDelay(attempt int) time.Duration {
	d := retryBackoffBase * time.Duration(1<<uint(attempt-1))
	if d > retryBackoffMax {
		return retryBackoffMax
	}
	return d
}

// attempt performs a single HTTP round trip. retryAfterSeconds is non-zero
// only when the response carried a Retry-After header.
func (f *Fetcher) attempt(ctx context.Context, rawURL string) (*Result, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, &Error{URL: rawURL, Cause: err}
	}
	req.Header.Set("User-Agent", userAgent)
	// No explicit Accept-Encoding: net/http's Transport only negotiates and
	// transparently decompresses gzip when it sets that header itself.

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, &Error{URL: rawURL, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, retryAfter, &HTTPError{URL: rawURL, Status: resp.StatusCode}
	}
	if resp.StatusCode >= 400 {
		return nil, 0, &HTTPError{URL: rawURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &Error{URL: rawURL, Cause: err}
	}

	return &Result{
		HTML:        string(body),
		Status:      resp.StatusCode,
		DurationMs:  time.Since(start).Milliseconds(),
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, 0, nil
}

func parseRetryAfter(header string) int {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}

// Stats exposes the per-host circuit breaker snapshot (debug endpoint).
func (f *Fetcher) Stats() map[string]circuitbreaker.HostStats {
	return f.breakers.Stats()
}
