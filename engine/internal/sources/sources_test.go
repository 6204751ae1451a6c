package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/interviewintel/pipeline/engine/internal/company"
	"github.com/interviewintel/pipeline/engine/internal/crawler"
	"github.com/interviewintel/pipeline/engine/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCrawler(t *testing.T) *crawler.Engine {
	t.Helper()
	cfg := crawler.Defaults()
	cfg.RequestDelay = 0
	cfg.RespectRobotsTxt = false
	limiter := ratelimit.New(ratelimit.Defaults())
	t.Cleanup(func() { _ = limiter.Close() })
	return crawler.New(cfg, limiter, nil, nil)
}

func TestBlogAdapterExtractsExperience(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<h1 class="entry-title">Amazon SDE-2 Interview Experience</h1>
			<div class="entry-content">
				<p>Round 1 was a coding round on arrays and hash tables.</p>
				<p>Round 2 covered system design for a scalable notification service.</p>
				<p>I got the offer after the final round.</p>
			</div>
		</body></html>`))
	}))
	defer srv.Close()

	e := newTestCrawler(t)
	adapter := NewBlogAdapter("geeksforgeeks", srv.URL, map[string][]string{"Amazon": {"amazon"}}, e, company.New(nil))

	record, err := adapter.ExtractExperienceData(context.Background(), srv.URL+"/amazon-interview-experience", "Amazon")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "Amazon", record.Company)
	assert.Contains(t, record.Content, "system design")
	assert.Equal(t, "geeksforgeeks", record.SourcePlatform)
}

func TestBlogAdapterRejectsShortContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1>Too short an article</h1><div class="entry-content">tiny</div></body></html>`))
	}))
	defer srv.Close()

	e := newTestCrawler(t)
	adapter := NewBlogAdapter("geeksforgeeks", srv.URL, nil, e, company.New(nil))

	record, err := adapter.ExtractExperienceData(context.Background(), srv.URL+"/x-interview-experience", "")
	assert.Error(t, err)
	assert.Nil(t, record)
}

func TestBlogAdapterReturnsNilWithoutTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="entry-content">no heading here</div></body></html>`))
	}))
	defer srv.Close()

	e := newTestCrawler(t)
	adapter := NewBlogAdapter("geeksforgeeks", srv.URL, nil, e, company.New(nil))

	record, err := adapter.ExtractExperienceData(context.Background(), srv.URL+"/x-interview-experience", "")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestForumAdapterDiscoversAndExtracts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cscareerquestions/search.json", func(w http.ResponseWriter, r *http.Request) {
		selftext := "I interviewed at Google for a software engineer role and wanted to share my interview experience. " +
			"The onsite interview had a coding round and a system design round, and I ended up getting the offer."
		_, _ = w.Write([]byte(fmt.Sprintf(`{"data":{"children":[{"data":{"id":"abc123","title":"Google interview experience","selftext":%q,"permalink":"/r/cscareerquestions/comments/abc123/google_interview/"}}]}}`, selftext)))
	})
	mux.HandleFunc("/r/cscareerquestions/comments/abc123/google_interview.json", func(w http.ResponseWriter, r *http.Request) {
		content := "I interviewed at Google for a software engineer role. " +
			"The first round was a coding round with two array based problems. " +
			"The second round covered system design basics. Overall a great experience and I got the offer."
		_, _ = w.Write([]byte(fmt.Sprintf(`[{"data":{"children":[{"data":{"id":"abc123","title":"Google interview experience","selftext":%q,"created_utc":1700000000}}]}}]`, content)))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := newTestCrawler(t)
	adapter := NewForumAdapter("reddit", srv.URL, []string{"cscareerquestions"}, e, company.New(nil))

	urls, err := adapter.DiscoverExperienceURLs(context.Background(), "Google", 1)
	require.NoError(t, err)
	require.Len(t, urls, 1)

	record, err := adapter.ExtractExperienceData(context.Background(), srv.URL+"/r/cscareerquestions/comments/abc123/google_interview/", "Google")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "Google", record.Company)
	assert.Equal(t, "reddit", record.SourcePlatform)
}

func TestForumAdapterRejectsHiringPostsMentioningCompany(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cscareerquestions/search.json", func(w http.ResponseWriter, r *http.Request) {
		selftext := "Had my interview experience at Google recently but honestly this post is mostly about salary negotiation " +
			"and the benefits package, plus some notes on company culture and work life balance for new hires."
		_, _ = w.Write([]byte(fmt.Sprintf(`{"data":{"children":[{"data":{"id":"xyz789","title":"Google hiring update","selftext":%q,"permalink":"/r/cscareerquestions/comments/xyz789/google_hiring/"}}]}}`, selftext)))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := newTestCrawler(t)
	adapter := NewForumAdapter("reddit", srv.URL, []string{"cscareerquestions"}, e, company.New(nil))

	urls, err := adapter.DiscoverExperienceURLs(context.Background(), "Google", 1)
	require.NoError(t, err)
	assert.Empty(t, urls)
}
