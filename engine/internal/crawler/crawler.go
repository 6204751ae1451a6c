// Package crawler implements the safe-fetch contract every source adapter
// routes its HTTP traffic through: URL/content dedup, robots.txt
// compliance, adaptive rate limiting, a per-host circuit breaker, and
// bounded, status-differentiated retries.
package crawler

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/interviewintel/pipeline/engine/internal/ratelimit"
	"github.com/interviewintel/pipeline/engine/internal/robots"
	"github.com/interviewintel/pipeline/engine/models"
	"github.com/interviewintel/pipeline/engine/telemetry/logging"
	"github.com/interviewintel/pipeline/engine/telemetry/metrics"
)

// Config tunes fetch behavior. Zero values fall back to Defaults().
type Config struct {
	UserAgent              string
	RequestDelay           time.Duration
	MaxRetries             int
	Timeout                time.Duration
	MaxConsecutiveFailures int
	RespectRobotsTxt       bool
}

// Defaults mirrors config/settings.py's research-mode defaults.
func Defaults() Config {
	return Config{
		UserAgent:              "Interview Intelligence Research Bot 1.0",
		RequestDelay:           time.Second,
		MaxRetries:             2,
		Timeout:                20 * time.Second,
		MaxConsecutiveFailures: 3,
		RespectRobotsTxt:       false,
	}
}

func (c Config) withDefaults() Config {
	d := Defaults()
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.RequestDelay <= 0 {
		c.RequestDelay = d.RequestDelay
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxConsecutiveFailures <= 0 {
		c.MaxConsecutiveFailures = d.MaxConsecutiveFailures
	}
	return c
}

// Stats accumulates fetch counters, mirroring BaseScraper.stats.
type Stats struct {
	RequestsMade      int
	SuccessfulScrapes int
	DuplicatesFound   int
	RobotsBlocked     int
	RateLimited       int
	ForbiddenErrors   int
}

// Engine performs rate-limited, robots-aware, deduplicated HTTP fetches on
// behalf of source adapters.
type Engine struct {
	cfg     Config
	client  *http.Client
	robots  *robots.Cache
	limiter *ratelimit.Limiter
	logger  logging.Logger

	mu             sync.Mutex
	seenURLs       map[string]struct{}
	contentHashes  map[string]struct{}
	domainFailures map[string]int
	stats          Stats
}

// New builds an Engine. limiter and robotsCache may be shared across
// multiple Engines (one per adapter) since both are internally
// synchronized; logger defaults to a no-op logger if nil.
func New(cfg Config, limiter *ratelimit.Limiter, robotsCache *robots.Cache, logger logging.Logger) *Engine {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = logging.Noop()
	}
	return &Engine{
		cfg:            cfg,
		client:         &http.Client{Timeout: cfg.Timeout},
		robots:         robotsCache,
		limiter:        limiter,
		logger:         logger,
		seenURLs:       make(map[string]struct{}),
		contentHashes:  make(map[string]struct{}),
		domainFailures: make(map[string]int),
	}
}

// Fetch performs a single safe, rate-limited GET of rawURL, retrying on
// transient failures per Config.MaxRetries. It returns the response body
// and final status code on success. Otherwise it returns a typed error (see
// engine/models) for a URL parse failure, a duplicate URL, a robots.txt
// block, an open host circuit or a final 429, and a plain error for a 404,
// a final 403 or other status, or a transport failure.
func (e *Engine) Fetch(ctx context.Context, rawURL string) ([]byte, int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, &models.ParseError{URL: rawURL, Err: err}
	}
	domain := u.Host

	if e.alreadySeen(rawURL) {
		e.mu.Lock()
		e.stats.DuplicatesFound++
		e.mu.Unlock()
		metrics.DuplicatesTotal.WithLabelValues(domain).Inc()
		return nil, 0, &models.DuplicateError{URL: rawURL}
	}

	crawlDelay := e.cfg.RequestDelay
	if e.cfg.RespectRobotsTxt && e.robots != nil {
		allowed, delay := e.robots.Allowed(rawURL)
		if !allowed {
			e.mu.Lock()
			e.stats.RobotsBlocked++
			e.mu.Unlock()
			metrics.RobotsBlockedTotal.WithLabelValues(domain).Inc()
			e.logger.WarnCtx(ctx, "robots.txt blocks access", "url", rawURL)
			return nil, 0, &models.RobotsBlockedError{URL: rawURL}
		}
		crawlDelay = delay
	} else {
		e.logger.DebugCtx(ctx, "bypassing robots.txt check for research purposes", "url", rawURL)
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, domain, crawlDelay); err != nil {
			return nil, 0, err
		}
	}

	if e.consecutiveFailures(domain) >= e.cfg.MaxConsecutiveFailures {
		e.logger.WarnCtx(ctx, "too many consecutive failures, skipping domain", "domain", domain)
		metrics.OpenCircuitsGauge.WithLabelValues(domain).Set(1)
		metrics.RequestsTotal.WithLabelValues(domain, "circuit_open").Inc()
		return nil, 0, &models.HostCircuitOpenError{Host: domain}
	}
	metrics.OpenCircuitsGauge.WithLabelValues(domain).Set(0)

	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		body, status, err := e.doRequest(ctx, rawURL)
		if err != nil {
			lastErr = err
			if attempt == e.cfg.MaxRetries-1 && e.limiter != nil {
				e.limiter.RecordFailure(domain)
			}
			continue
		}

		switch {
		case status == http.StatusOK:
			e.markSeen(rawURL)
			if e.limiter != nil {
				e.limiter.RecordSuccess(domain)
			}
			e.mu.Lock()
			e.stats.SuccessfulScrapes++
			e.domainFailures[domain] = 0
			e.mu.Unlock()
			metrics.RequestsTotal.WithLabelValues(domain, "success").Inc()
			return body, status, nil

		case status == http.StatusForbidden:
			e.mu.Lock()
			e.stats.ForbiddenErrors++
			e.domainFailures[domain]++
			failures := e.domainFailures[domain]
			e.mu.Unlock()
			metrics.RequestsTotal.WithLabelValues(domain, "forbidden").Inc()
			e.logger.WarnCtx(ctx, "forbidden response", "url", rawURL, "failure_count", failures)
			if failures >= 3 {
				return nil, status, &models.HostCircuitOpenError{Host: domain}
			}
			waitBeforeRetry(ctx, 5*time.Second*time.Duration(attempt+1))
			lastErr = fmt.Errorf("forbidden: %s", rawURL)

		case status == http.StatusTooManyRequests:
			e.mu.Lock()
			e.stats.RateLimited++
			e.mu.Unlock()
			metrics.RequestsTotal.WithLabelValues(domain, "rate_limited").Inc()
			if e.limiter != nil {
				e.limiter.RecordFailure(domain)
			}
			waitBeforeRetry(ctx, backoffFor(attempt))
			lastErr = &models.RateLimitedError{URL: rawURL}

		case status == http.StatusNotFound:
			e.logger.DebugCtx(ctx, "not found", "url", rawURL)
			return nil, status, fmt.Errorf("not found: %s", rawURL)

		default:
			e.logger.WarnCtx(ctx, "unexpected status", "url", rawURL, "status", status)
			lastErr = fmt.Errorf("unexpected status %d for %s", status, rawURL)
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("exhausted retries for %s", rawURL)
	}
	return nil, 0, lastErr
}

func (e *Engine) doRequest(ctx context.Context, rawURL string) ([]byte, int, error) {
	e.mu.Lock()
	e.stats.RequestsMade++
	e.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func waitBeforeRetry(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func backoffFor(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

func (e *Engine) alreadySeen(rawURL string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.seenURLs[rawURL]
	return ok
}

func (e *Engine) markSeen(rawURL string) {
	e.mu.Lock()
	e.seenURLs[rawURL] = struct{}{}
	e.mu.Unlock()
}

func (e *Engine) consecutiveFailures(domain string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.domainFailures[domain]
}

// IsDuplicateContent hashes content with MD5 and reports whether an
// identical hash was already recorded, inserting it atomically in the same
// critical section as the check so two goroutines racing on identical
// content can never both observe "not a duplicate".
func (e *Engine) IsDuplicateContent(content string) bool {
	sum := md5.Sum([]byte(content))
	hash := hex.EncodeToString(sum[:])

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.contentHashes[hash]; ok {
		return true
	}
	e.contentHashes[hash] = struct{}{}
	return false
}

// Stats returns a snapshot of fetch counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}
