package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/interviewintel/pipeline/engine/internal/decay"
	"github.com/interviewintel/pipeline/engine/internal/insights"
	"github.com/interviewintel/pipeline/engine/internal/sources"
	"github.com/interviewintel/pipeline/engine/internal/store/memstore"
	"github.com/interviewintel/pipeline/engine/internal/topics"
	"github.com/interviewintel/pipeline/engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	name    string
	urls    []string
	records map[string]*models.Record
	failDiscover bool
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) DiscoverExperienceURLs(ctx context.Context, company string, maxPages int) ([]string, error) {
	if a.failDiscover {
		return nil, errors.New("boom")
	}
	return a.urls, nil
}

func (a *fakeAdapter) ExtractExperienceData(ctx context.Context, rawURL, targetCompany string) (*models.Record, error) {
	return a.records[rawURL], nil
}

func newFixture() (*Orchestrator, *memstore.Store) {
	gw := memstore.New()
	extractor := topics.New(decay.New(0.08))
	agg := insights.New(nil)
	adapter := &fakeAdapter{
		name: "blogsite",
		urls: []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"},
		records: map[string]*models.Record{
			"https://example.com/1": {
				Title: "Amazon interview", Content: "Round 1 was arrays and hash tables, round 2 was system design for scalability.",
				SourceURL: "https://example.com/1", SourcePlatform: "blogsite", ExperienceDate: time.Now(), TimeWeight: 1,
			},
			"https://example.com/2": {
				Title: "Amazon interview 2", Content: "Dynamic programming question and a discussion of caching strategies for scalability.",
				SourceURL: "https://example.com/2", SourcePlatform: "blogsite", ExperienceDate: time.Now(), TimeWeight: 1,
			},
			"https://example.com/3": {
				Title: "Amazon interview 3", Content: "Behavioral round about teamwork and a coding round on trees and graphs.",
				SourceURL: "https://example.com/3", SourcePlatform: "blogsite", ExperienceDate: time.Now(), TimeWeight: 1,
			},
		},
	}
	o := New([]sources.Adapter{adapter}, extractor, agg, gw, nil, nil)
	return o, gw
}

func TestRunCompleteAnalysisHappyPath(t *testing.T) {
	o, _ := newFixture()
	result, err := o.RunCompleteAnalysis(context.Background(), "Amazon", 20, false)
	require.NoError(t, err)
	assert.Equal(t, 3, result.DataCollection.NewlyScraped)
	assert.NotEmpty(t, result.CorrelationID)
}

type fakeDeduper struct {
	seen map[string]struct{}
}

func (d *fakeDeduper) IsDuplicateContent(content string) bool {
	if _, ok := d.seen[content]; ok {
		return true
	}
	d.seen[content] = struct{}{}
	return false
}

func TestRunCompleteAnalysisRejectsDuplicateContentAcrossURLs(t *testing.T) {
	gw := memstore.New()
	extractor := topics.New(decay.New(0.08))
	agg := insights.New(nil)
	adapter := &fakeAdapter{
		name: "blogsite",
		urls: []string{"https://example.com/1", "https://example.com/2"},
		records: map[string]*models.Record{
			"https://example.com/1": {
				Title: "Amazon interview", Content: "identical write-up text shared across two different URLs",
				SourceURL: "https://example.com/1", SourcePlatform: "blogsite", ExperienceDate: time.Now(), TimeWeight: 1,
			},
			"https://example.com/2": {
				Title: "Amazon interview reposted", Content: "identical write-up text shared across two different URLs",
				SourceURL: "https://example.com/2", SourcePlatform: "blogsite", ExperienceDate: time.Now(), TimeWeight: 1,
			},
		},
	}
	o := New([]sources.Adapter{adapter}, extractor, agg, gw, nil, &fakeDeduper{seen: make(map[string]struct{})})

	result, err := o.RunCompleteAnalysis(context.Background(), "Amazon", 20, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DataCollection.NewlyScraped)
}

func TestRunCompleteAnalysisSkipsCollectionWhenFresh(t *testing.T) {
	o, _ := newFixture()
	_, err := o.RunCompleteAnalysis(context.Background(), "Amazon", 3, false)
	require.NoError(t, err)

	result, err := o.RunCompleteAnalysis(context.Background(), "Amazon", 3, false)
	require.NoError(t, err)
	assert.True(t, result.DataCollection.Skipped)
}

func TestRunBatchAnalysisIsolatesFailures(t *testing.T) {
	gw := memstore.New()
	extractor := topics.New(decay.New(0.08))
	agg := insights.New(nil)
	good := &fakeAdapter{name: "good", urls: nil}
	bad := &fakeAdapter{name: "bad", failDiscover: true}
	o := New([]sources.Adapter{good, bad}, extractor, agg, gw, nil, nil)

	batch, err := o.RunBatchAnalysis(context.Background(), []string{"Amazon", "Google"}, 10)
	require.NoError(t, err)
	assert.Len(t, batch.Results, 2)
}
