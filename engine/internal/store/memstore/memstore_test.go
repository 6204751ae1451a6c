package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/interviewintel/pipeline/engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertExperienceIsIdempotentOnSourceURL(t *testing.T) {
	s := New()
	ctx := context.Background()
	record := models.Record{Title: "t", Content: "c", SourceURL: "https://example.com/a", TimeWeight: 1}

	id1, created1, err := s.UpsertExperience(ctx, "Amazon", record)
	require.NoError(t, err)
	assert.True(t, created1)

	id2, created2, err := s.UpsertExperience(ctx, "Amazon", record)
	require.NoError(t, err)
	assert.False(t, created2)
	assert.Equal(t, id1, id2)

	count, err := s.CountExperiences(ctx, "Amazon")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRoundClassificationsAndKeyInsightsRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	record := models.Record{Title: "t", Content: "c", SourceURL: "https://example.com/rounds", TimeWeight: 1}
	id, _, err := s.UpsertExperience(ctx, "Amazon", record)
	require.NoError(t, err)

	rounds := []models.RoundMention{{ExperienceID: id, RoundType: "coding", Confidence: 0.9}}
	require.NoError(t, s.SaveRoundClassifications(ctx, id, rounds))
	got, err := s.RoundsFor(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, rounds, got)

	insightsIn := []string{"focus on system design fundamentals"}
	require.NoError(t, s.SaveKeyInsights(ctx, id, insightsIn))
	gotInsights, err := s.KeyInsightsFor(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, insightsIn, gotInsights)
}

func TestListUnprocessedOrStale(t *testing.T) {
	s := New()
	ctx := context.Background()
	record := models.Record{Title: "t", Content: "c", SourceURL: "https://example.com/b", TimeWeight: 1}
	id, _, err := s.UpsertExperience(ctx, "Amazon", record)
	require.NoError(t, err)

	unprocessed, err := s.ListUnprocessedOrStale(ctx, "Amazon", 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, unprocessed, 1)

	require.NoError(t, s.MarkProcessed(ctx, id, time.Now().UTC()))
	unprocessed, err = s.ListUnprocessedOrStale(ctx, "Amazon", 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, unprocessed)
}

func TestReplaceCompanyInsightsOverwrites(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.ReplaceCompanyInsights(ctx, "Amazon", []models.CompanyInsight{{TopicName: "a"}}))
	require.NoError(t, s.ReplaceCompanyInsights(ctx, "Amazon", []models.CompanyInsight{{TopicName: "b"}}))

	got, err := s.ListCompanyInsights(ctx, "Amazon")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].TopicName)
}

func TestEnsureTopicIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	t1, err := s.EnsureTopic(ctx, "algorithms", "dynamic_programming")
	require.NoError(t, err)
	t2, err := s.EnsureTopic(ctx, "algorithms", "dynamic_programming")
	require.NoError(t, err)
	assert.Equal(t, t1.ID, t2.ID)
}
