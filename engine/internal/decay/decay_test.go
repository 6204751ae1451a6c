package decay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedCalculator(t *testing.T, lambda float64, now time.Time) *Calculator {
	t.Helper()
	c := New(lambda)
	c.now = func() time.Time { return now }
	return c
}

func TestWeightFreshExperienceIsNearOne(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := fixedCalculator(t, DefaultLambda, now)
	w := c.Weight(now)
	assert.InDelta(t, 1.0, w, 1e-9)
}

func TestWeightFloorsAtMinimum(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := fixedCalculator(t, DefaultLambda, now)
	old := now.AddDate(-10, 0, 0)
	w := c.Weight(old)
	assert.Equal(t, minWeight, w)
}

func TestNewDefaultsNonPositiveLambda(t *testing.T) {
	c := New(0)
	assert.Equal(t, DefaultLambda, c.lambda)
	c2 := New(-1)
	assert.Equal(t, DefaultLambda, c2.lambda)
}

func TestWeightedAveragePanicsOnLengthMismatch(t *testing.T) {
	c := New(DefaultLambda)
	assert.Panics(t, func() {
		c.WeightedAverage([]float64{1, 2}, []time.Time{time.Now()})
	})
}

func TestWeightedAverageEmptyInputReturnsZero(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := fixedCalculator(t, DefaultLambda, now)
	avg := c.WeightedAverage(nil, nil)
	assert.Zero(t, avg)
}

func TestTemporalTrendInsufficientData(t *testing.T) {
	c := New(DefaultLambda)
	trend := c.TemporalTrend([]DataPoint{
		{Value: 1, Date: time.Now()},
		{Value: 2, Date: time.Now()},
	})
	assert.Equal(t, TrendInsufficientData, trend.Direction)
}

func TestTemporalTrendIncreasing(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	c := fixedCalculator(t, DefaultLambda, now)
	points := []DataPoint{
		{Value: 1, Date: now.AddDate(0, -6, 0)},
		{Value: 1, Date: now.AddDate(0, -5, 0)},
		{Value: 5, Date: now.AddDate(0, -1, 0)},
		{Value: 5, Date: now},
	}
	trend := c.TemporalTrend(points)
	require.Equal(t, TrendIncreasing, trend.Direction)
	assert.Greater(t, trend.Strength, 0.0)
	assert.Equal(t, 2, trend.RecentSamples)
	assert.Equal(t, 2, trend.OlderSamples)
}

func TestTemporalTrendStableWhenFlat(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	c := fixedCalculator(t, DefaultLambda, now)
	points := []DataPoint{
		{Value: 3, Date: now.AddDate(0, -6, 0)},
		{Value: 3, Date: now.AddDate(0, -5, 0)},
		{Value: 3, Date: now.AddDate(0, -1, 0)},
		{Value: 3, Date: now},
	}
	trend := c.TemporalTrend(points)
	assert.Equal(t, TrendStable, trend.Direction)
}
