package topics

import (
	"testing"
	"time"

	"github.com/interviewintel/pipeline/engine/internal/decay"
	"github.com/interviewintel/pipeline/engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor() *Extractor {
	return New(decay.New(0.08))
}

func TestExtractTopicsFindsKeywordMatches(t *testing.T) {
	e := newTestExtractor()
	record := models.Record{
		Title:          "Interview experience",
		Content:        "They asked me to implement a binary search tree and discussed time complexity of the solution.",
		ExperienceDate: time.Now().Add(-24 * time.Hour),
	}

	result := e.ExtractTopics(record)
	require.NotEmpty(t, result.Topics)

	names := make([]string, 0, len(result.Topics))
	for _, topic := range result.Topics {
		names = append(names, topic.Name)
	}
	assert.Contains(t, names, "data_structures.tree")
	assert.Contains(t, names, "programming_concepts.complexity")
}

func TestExtractTopicsSortsByWeightedImportanceDescending(t *testing.T) {
	e := newTestExtractor()
	record := models.Record{
		Content:        "binary search tree binary search tree binary search tree design a scalable system design a scalable system",
		ExperienceDate: time.Now(),
	}

	result := e.ExtractTopics(record)
	require.GreaterOrEqual(t, len(result.Topics), 2)
	for i := 1; i < len(result.Topics); i++ {
		assert.GreaterOrEqual(t, result.Topics[i-1].WeightedImportance, result.Topics[i].WeightedImportance)
	}
}

func TestExtractTopicsOlderExperienceWeightsLower(t *testing.T) {
	e := newTestExtractor()
	content := "implemented a hash table to solve the problem"

	fresh := e.ExtractTopics(models.Record{Content: content, ExperienceDate: time.Now()})
	stale := e.ExtractTopics(models.Record{Content: content, ExperienceDate: time.Now().AddDate(-2, 0, 0)})

	require.NotEmpty(t, fresh.Topics)
	require.NotEmpty(t, stale.Topics)
	assert.Greater(t, fresh.Topics[0].WeightedImportance, stale.Topics[0].WeightedImportance)
}

func TestExtractTopicsNoMatchesReturnsEmpty(t *testing.T) {
	e := newTestExtractor()
	result := e.ExtractTopics(models.Record{Content: "nothing technical here at all", ExperienceDate: time.Now()})
	assert.Empty(t, result.Topics)
	assert.Equal(t, 0.0, result.OverallConfidence)
}

func TestExtractTopicsConfidenceSaturatesAtFiveMentions(t *testing.T) {
	e := newTestExtractor()
	content := "tree tree tree tree tree"
	result := e.ExtractTopics(models.Record{Content: content, ExperienceDate: time.Now()})

	require.NotEmpty(t, result.Topics)
	assert.Equal(t, 1.0, result.Topics[0].Confidence)
}

func TestAssessDifficultyClassifiesHard(t *testing.T) {
	e := newTestExtractor()
	result := e.ExtractTopics(models.Record{
		Content:        "This was a very difficult and challenging problem, I struggled a lot and had a hard time.",
		ExperienceDate: time.Now(),
	})
	assert.Equal(t, models.DifficultyHard, result.Difficulty.Level)
	assert.Greater(t, result.Difficulty.Confidence, 0.0)
}

func TestAssessDifficultyUnknownWhenNoIndicators(t *testing.T) {
	e := newTestExtractor()
	result := e.ExtractTopics(models.Record{Content: "We talked about the weather.", ExperienceDate: time.Now()})
	assert.Equal(t, models.DifficultyUnknown, result.Difficulty.Level)
}

func TestClassifyRoundsDetectsCodingAndBehavioral(t *testing.T) {
	e := newTestExtractor()
	result := e.ExtractTopics(models.Record{
		Content:        "First round was coding with leetcode style algorithm questions. Second round focused on culture fit and teamwork.",
		ExperienceDate: time.Now(),
	})

	types := make([]string, 0, len(result.Rounds))
	for _, r := range result.Rounds {
		types = append(types, r.RoundType)
	}
	assert.Contains(t, types, "coding")
	assert.Contains(t, types, "behavioral")
}

func TestExtractKeyInsightsCapturesAdvice(t *testing.T) {
	e := newTestExtractor()
	result := e.ExtractTopics(models.Record{
		Content:        "My tip: practice system design questions thoroughly before the onsite, it really helped me a lot during the loop.",
		ExperienceDate: time.Now(),
	})
	assert.NotEmpty(t, result.KeyInsights)
	for _, insight := range result.KeyInsights {
		assert.LessOrEqual(t, len(insight), 200)
	}
}

func TestExtractKeyInsightsCapsAtFive(t *testing.T) {
	e := newTestExtractor()
	content := ""
	for i := 0; i < 8; i++ {
		content += "tip: prepare well and practice mock interviews consistently every single day. "
	}
	result := e.ExtractTopics(models.Record{Content: content, ExperienceDate: time.Now()})
	assert.LessOrEqual(t, len(result.KeyInsights), 5)
}
