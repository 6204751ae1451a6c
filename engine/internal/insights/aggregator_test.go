package insights

import (
	"testing"
	"time"

	"github.com/interviewintel/pipeline/engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }

func experienceWith(topic string, freq, confidence, weight float64, date time.Time, outcome models.Outcome) AnalyzedExperience {
	return AnalyzedExperience{
		Experience: models.InterviewExperience{
			ExperienceDate: date,
			TimeWeight:     weight,
			Outcome:        outcome,
			Content:        "enough content to count as a real experience write-up here",
		},
		Mentions: []ScoredMention{
			{TopicName: topic, Category: "algorithms", FrequencyPercent: freq, Importance: 5, Confidence: confidence},
		},
		Difficulty: models.DifficultyMedium,
		Confidence: confidence,
	}
}

func TestAggregateInsufficientSample(t *testing.T) {
	agg := New(fixedNow)
	result := agg.Aggregate([]AnalyzedExperience{
		experienceWith("algorithms.sorting", 10, 0.8, 1.0, fixedNow(), models.OutcomeUnknown),
	})
	assert.True(t, result.InsufficientSample)
}

func TestAggregateComputesPriority(t *testing.T) {
	agg := New(fixedNow)
	var experiences []AnalyzedExperience
	for i := 0; i < 5; i++ {
		experiences = append(experiences, experienceWith("algorithms.dynamic_programming", 20, 0.9, 1.0, fixedNow(), models.OutcomeUnknown))
	}
	result := agg.Aggregate(experiences)
	require.False(t, result.InsufficientSample)
	require.Len(t, result.Topics, 1)
	assert.Equal(t, models.PriorityHigh, result.Topics[0].Priority)
}

func TestAggregateTrendingUpRequiresBothHalves(t *testing.T) {
	agg := New(fixedNow)
	var experiences []AnalyzedExperience
	for i := 0; i < 5; i++ {
		experiences = append(experiences, experienceWith("algorithms.dynamic_programming", 15, 0.8, 1.0, fixedNow().AddDate(0, 0, -10), models.OutcomeUnknown))
	}
	for i := 0; i < 5; i++ {
		experiences = append(experiences, experienceWith("system_design.scalability", 15, 0.8, 0.3, fixedNow().AddDate(-1, 0, 0), models.OutcomeUnknown))
	}
	result := agg.Aggregate(experiences)
	require.True(t, result.TrendAvailable)
	var names []string
	for _, tr := range result.TrendingUp {
		names = append(names, tr.TopicName)
	}
	assert.Contains(t, names, "algorithms.dynamic_programming")
}

func TestAggregateSuccessFactorsNeedsBothOutcomes(t *testing.T) {
	agg := New(fixedNow)
	var experiences []AnalyzedExperience
	for i := 0; i < 3; i++ {
		experiences = append(experiences, experienceWith("algorithms.dynamic_programming", 15, 0.8, 1.0, fixedNow(), models.OutcomeOffer))
	}
	for i := 0; i < 3; i++ {
		experiences = append(experiences, experienceWith("programming_concepts.oop", 15, 0.8, 1.0, fixedNow(), models.OutcomeRejected))
	}
	result := agg.Aggregate(experiences)
	assert.Contains(t, result.SuccessFactors, "algorithms.dynamic_programming")
}

func TestAggregateCommonRoundsRequiresOverThirtyPercent(t *testing.T) {
	agg := New(fixedNow)
	var experiences []AnalyzedExperience
	for i := 0; i < 4; i++ {
		e := experienceWith("algorithms.dynamic_programming", 15, 0.8, 1.0, fixedNow(), models.OutcomeUnknown)
		e.Rounds = []models.RoundMention{{RoundType: "coding", Confidence: 0.9}}
		experiences = append(experiences, e)
	}
	// Only one of five experiences has a low-confidence behavioral mention,
	// so it should not clear the 30% threshold.
	e := experienceWith("algorithms.dynamic_programming", 15, 0.8, 1.0, fixedNow(), models.OutcomeUnknown)
	e.Rounds = []models.RoundMention{{RoundType: "behavioral", Confidence: 0.3}}
	experiences = append(experiences, e)

	result := agg.Aggregate(experiences)
	require.Len(t, result.CommonRounds, 1)
	assert.Equal(t, "coding", result.CommonRounds[0].RoundType)
}

func TestAggregateNotableInsightsDeduplicates(t *testing.T) {
	agg := New(fixedNow)
	var experiences []AnalyzedExperience
	for i := 0; i < 5; i++ {
		e := experienceWith("algorithms.dynamic_programming", 15, 0.8, 1.0, fixedNow(), models.OutcomeUnknown)
		e.KeyInsights = []string{"focus on system design fundamentals"}
		experiences = append(experiences, e)
	}
	result := agg.Aggregate(experiences)
	assert.Equal(t, []string{"focus on system design fundamentals"}, result.NotableInsights)
}

func TestStudyRecommendationForDynamicProgrammingIncludesCuratedProblems(t *testing.T) {
	rec := studyRecommendationFor("algorithms.dynamic_programming", "algorithms", models.PriorityHigh)
	assert.Contains(t, rec, "LeetCode: Coin Change")
	assert.Contains(t, rec, "5-7 days")
}

func TestAssessDataQualityFlagsShortContent(t *testing.T) {
	agg := New(fixedNow)
	experiences := []AnalyzedExperience{
		{Experience: models.InterviewExperience{Content: "short"}, Confidence: 0.9, Mentions: []ScoredMention{{TopicName: "x"}}},
		{Experience: models.InterviewExperience{Content: "short"}, Confidence: 0.9, Mentions: []ScoredMention{{TopicName: "x"}}},
		{Experience: models.InterviewExperience{Content: "short"}, Confidence: 0.9, Mentions: []ScoredMention{{TopicName: "x"}}},
	}
	quality := agg.assessDataQuality(experiences)
	assert.Contains(t, quality.Issues, "Short experience descriptions")
}
