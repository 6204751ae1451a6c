// Package robots fetches, parses, and caches robots.txt policies so the
// crawl engine can check allowance and crawl-delay before every request
// without hitting the network each time.
package robots

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// cacheDuration mirrors the source checker's one-hour TTL.
const cacheDuration = time.Hour

// minCrawlDelay is the floor applied to any crawl-delay robots.txt reports,
// and the delay returned for a request to a /robots.txt URL itself.
const minCrawlDelay = 2 * time.Second

// conservativeFallbackDelay is returned (with access allowed) when
// robots.txt could not be retrieved or parsed at all.
const conservativeFallbackDelay = 5 * time.Second

// HTTPGetter is the subset of *http.Client used to fetch robots.txt bodies.
// Exists so tests can substitute a fake transport without spinning up a real
// listener for every host.
type HTTPGetter interface {
	Get(url string) (*http.Response, error)
}

type cacheEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// Cache fetches, parses, and TTL-caches robots.txt per host, then evaluates
// fetch allowance and crawl-delay for individual URLs.
type Cache struct {
	client    HTTPGetter
	userAgent string

	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

// New builds a Cache that fetches through client (http.DefaultClient if
// nil) using userAgent for both the fetch request and the robots.txt
// group lookup.
func New(client HTTPGetter, userAgent string) *Cache {
	if client == nil {
		client = http.DefaultClient
	}
	return &Cache{
		client:    client,
		userAgent: userAgent,
		entries:   make(map[string]*cacheEntry),
	}
}

// Allowed reports whether rawURL may be fetched, and the crawl delay the
// caller should wait before (and between) requests to that host. Any
// failure to fetch or parse robots.txt is treated as "allowed" with a
// conservative fallback delay, matching the source checker's
// fail-open-but-slow-down behavior.
func (c *Cache) Allowed(rawURL string) (bool, time.Duration) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true, conservativeFallbackDelay
	}
	if u.Path == "/robots.txt" {
		return true, minCrawlDelay
	}

	data, ok := c.robotsFor(u)
	if !ok {
		return true, conservativeFallbackDelay
	}

	group := data.FindGroup(c.userAgent)
	allowed := group.Test(u.Path)
	delay := minCrawlDelay
	if group.CrawlDelay > minCrawlDelay {
		delay = group.CrawlDelay
	}
	return allowed, delay
}

func (c *Cache) robotsFor(u *url.URL) (*robotstxt.RobotsData, bool) {
	host := u.Host

	c.mu.RLock()
	entry, found := c.entries[host]
	c.mu.RUnlock()
	if found && time.Since(entry.fetchedAt) < cacheDuration {
		return entry.data, entry.data != nil
	}

	data := c.fetch(u)
	c.mu.Lock()
	c.entries[host] = &cacheEntry{data: data, fetchedAt: time.Now()}
	c.mu.Unlock()
	return data, data != nil
}

func (c *Cache) fetch(u *url.URL) *robotstxt.RobotsData {
	robotsURL := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}
	resp, err := c.client.Get(robotsURL.String())
	if err != nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data
}

// Clear empties the cache, forcing the next lookup for every host to
// refetch.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
}
