package robots

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowedDeniesDisallowedPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	}))
	defer srv.Close()

	c := New(nil, "intelbot")
	allowed, delay := c.Allowed(srv.URL + "/private/page")
	assert.False(t, allowed)
	assert.GreaterOrEqual(t, delay, minCrawlDelay)
}

func TestAllowedPermitsUndisallowedPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	}))
	defer srv.Close()

	c := New(nil, "intelbot")
	allowed, _ := c.Allowed(srv.URL + "/public/page")
	assert.True(t, allowed)
}

func TestAllowedRespectsCrawlDelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nCrawl-delay: 10\n"))
	}))
	defer srv.Close()

	c := New(nil, "intelbot")
	allowed, delay := c.Allowed(srv.URL + "/anything")
	require.True(t, allowed)
	assert.Equal(t, 10*time.Second, delay)
}

func TestAllowedFallsBackConservativelyOn404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(nil, "intelbot")
	allowed, delay := c.Allowed(srv.URL + "/anything")
	assert.True(t, allowed)
	assert.Equal(t, conservativeFallbackDelay, delay)
}

func TestAllowedAlwaysAllowsRobotsTxtItself(t *testing.T) {
	c := New(nil, "intelbot")
	allowed, delay := c.Allowed("https://example.com/robots.txt")
	assert.True(t, allowed)
	assert.Equal(t, minCrawlDelay, delay)
}

func TestRobotsForCachesWithinTTL(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	}))
	defer srv.Close()

	c := New(nil, "intelbot")
	c.Allowed(srv.URL + "/a")
	c.Allowed(srv.URL + "/b")
	assert.Equal(t, 1, hits)
}

func TestClearForcesRefetch(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("User-agent: *\n"))
	}))
	defer srv.Close()

	c := New(nil, "intelbot")
	c.Allowed(srv.URL + "/a")
	c.Clear()
	c.Allowed(srv.URL + "/b")
	assert.Equal(t, 2, hits)
}
