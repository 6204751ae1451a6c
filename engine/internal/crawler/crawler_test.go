package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/interviewintel/pipeline/engine/internal/ratelimit"
	"github.com/interviewintel/pipeline/engine/internal/testutil/httpmock"
	"github.com/interviewintel/pipeline/engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := Defaults()
	cfg.RequestDelay = 0
	cfg.RespectRobotsTxt = false
	limiter := ratelimit.New(ratelimit.Defaults())
	t.Cleanup(func() { _ = limiter.Close() })
	return New(cfg, limiter, nil, nil)
}

func TestFetchSucceedsOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	e := newTestEngine(t)
	body, status, err := e.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hello world", string(body))
}

func TestFetchRejectsAlreadySeenURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	e := newTestEngine(t)
	_, _, err := e.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)

	_, _, err = e.Fetch(context.Background(), srv.URL+"/page")
	var dupErr *models.DuplicateError
	require.ErrorAs(t, err, &dupErr)
}

func TestFetchReturnsNotFoundImmediately(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	e := newTestEngine(t)
	_, status, err := e.Fetch(context.Background(), srv.URL+"/missing")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Error(t, err)
}

func TestFetchOpensCircuitAfterRepeated403(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := Defaults()
	cfg.RequestDelay = 0
	cfg.MaxConsecutiveFailures = 10
	limiter := ratelimit.New(ratelimit.Defaults())
	t.Cleanup(func() { _ = limiter.Close() })
	e := New(cfg, limiter, nil, nil)

	// The first Fetch call makes MaxRetries attempts, each a 403; the next
	// call's first 403 brings the per-domain failure counter to 3 and trips
	// the 3-strikes circuit, and the third call trips it again.
	var lastErr error
	for i := 0; i < 3; i++ {
		_, _, lastErr = e.Fetch(context.Background(), srv.URL+"/p")
	}
	var circuitErr *models.HostCircuitOpenError
	assert.ErrorAs(t, lastErr, &circuitErr)
}

func TestIsDuplicateContentDetectsRepeat(t *testing.T) {
	e := newTestEngine(t)
	assert.False(t, e.IsDuplicateContent("same content"))
	assert.True(t, e.IsDuplicateContent("same content"))
	assert.False(t, e.IsDuplicateContent("different content"))
}

func TestFetchRoutesMultipleEndpointsByPath(t *testing.T) {
	srv := httpmock.NewServer([]httpmock.RouteSpec{
		{Pattern: `^/experiences/\d+$`, Regex: true, Status: http.StatusOK, Body: "experience body"},
		{Pattern: "/missing", Status: http.StatusNotFound, Body: "not found"},
	})
	defer srv.Close()

	e := newTestEngine(t)
	body, status, err := e.Fetch(context.Background(), srv.URL()+"/experiences/42")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "experience body", string(body))

	_, status, err = e.Fetch(context.Background(), srv.URL()+"/missing")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Error(t, err)
}

func TestStatsTrackSuccessfulScrapes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	e := newTestEngine(t)
	_, _, err := e.Fetch(context.Background(), srv.URL+"/a")
	require.NoError(t, err)

	stats := e.Stats()
	assert.Equal(t, 1, stats.SuccessfulScrapes)
	assert.GreaterOrEqual(t, stats.RequestsMade, 1)
}
