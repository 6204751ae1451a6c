// Package decay computes exponential time-decay weights used to favor
// recent interview experiences over stale ones, and exposes a simple trend
// analysis over weighted time series.
package decay

import (
	"math"
	"sort"
	"time"
)

// avgDaysPerMonth matches the source system's calendar approximation
// (365.25 / 12) rather than a fixed 30-day month.
const avgDaysPerMonth = 30.44

const minWeight = 0.01

// DefaultLambda is the decay rate applied when a Calculator is constructed
// with Lambda <= 0.
const DefaultLambda = 0.08

// Calculator computes w = max(exp(-lambda * months_old), 0.01).
type Calculator struct {
	lambda float64
	now    func() time.Time
}

// New returns a Calculator with the given decay rate. A non-positive lambda
// falls back to DefaultLambda.
func New(lambda float64) *Calculator {
	if lambda <= 0 {
		lambda = DefaultLambda
	}
	return &Calculator{lambda: lambda, now: time.Now}
}

// Weight returns the decay weight for an experience published at t.
func (c *Calculator) Weight(t time.Time) float64 {
	ageMonths := c.now().UTC().Sub(t.UTC()).Hours() / 24 / avgDaysPerMonth
	w := math.Exp(-c.lambda * ageMonths)
	return math.Max(w, minWeight)
}

// BatchWeights computes Weight for every element of dates.
func (c *Calculator) BatchWeights(dates []time.Time) []float64 {
	out := make([]float64, len(dates))
	for i, d := range dates {
		out[i] = c.Weight(d)
	}
	return out
}

// WeightedAverage computes a decay-weighted mean of values, paired
// positionally with dates. Panics if the slices differ in length, mirroring
// the source's ValueError on mismatched input.
func (c *Calculator) WeightedAverage(values []float64, dates []time.Time) float64 {
	if len(values) != len(dates) {
		panic("decay: values and dates must have equal length")
	}
	weights := c.BatchWeights(dates)
	var weightedSum, totalWeight float64
	for i, v := range values {
		weightedSum += v * weights[i]
		totalWeight += weights[i]
	}
	if totalWeight <= 0 {
		return 0
	}
	return weightedSum / totalWeight
}

// TrendDirection classifies the sign and magnitude of a trend.
type TrendDirection string

const (
	TrendInsufficientData TrendDirection = "insufficient_data"
	TrendStable           TrendDirection = "stable"
	TrendIncreasing       TrendDirection = "increasing"
	TrendDecreasing       TrendDirection = "decreasing"
)

// DataPoint is one observation fed into TemporalTrend.
type DataPoint struct {
	Value float64
	Date  time.Time
}

// TrendAnalysis is the result of a temporal trend analysis over a split of
// older vs. recent data points.
type TrendAnalysis struct {
	Direction     TrendDirection
	Strength      float64
	Confidence    float64
	RecentAverage float64
	OlderAverage  float64
	RecentSamples int
	OlderSamples  int
}

// TemporalTrend splits points at the midpoint of their time span, computes a
// decay-weighted average for each half, and reports the relative change.
// Fewer than 3 points, or a split that leaves one half empty, reports
// TrendInsufficientData.
func (c *Calculator) TemporalTrend(points []DataPoint) TrendAnalysis {
	if len(points) < 3 {
		return TrendAnalysis{Direction: TrendInsufficientData}
	}

	sorted := make([]DataPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	totalSpan := sorted[len(sorted)-1].Date.Sub(sorted[0].Date)
	midPoint := sorted[0].Date.Add(totalSpan / 2)

	var recent, older []DataPoint
	for _, d := range sorted {
		if !d.Date.Before(midPoint) {
			recent = append(recent, d)
		} else {
			older = append(older, d)
		}
	}
	if len(recent) == 0 || len(older) == 0 {
		return TrendAnalysis{Direction: TrendInsufficientData}
	}

	recentAvg := c.WeightedAverage(valuesOf(recent), datesOf(recent))
	olderAvg := c.WeightedAverage(valuesOf(older), datesOf(older))

	var strength float64
	if olderAvg != 0 {
		strength = (recentAvg - olderAvg) / olderAvg
	}

	direction := TrendStable
	switch {
	case math.Abs(strength) < 0.1:
		direction = TrendStable
	case strength > 0:
		direction = TrendIncreasing
	default:
		direction = TrendDecreasing
	}

	confidence := trendConfidence(recent, older, strength)

	return TrendAnalysis{
		Direction:     direction,
		Strength:      math.Abs(strength),
		Confidence:    confidence,
		RecentAverage: recentAvg,
		OlderAverage:  olderAvg,
		RecentSamples: len(recent),
		OlderSamples:  len(older),
	}
}

func trendConfidence(recent, older []DataPoint, strength float64) float64 {
	minSample := len(recent)
	if len(older) < minSample {
		minSample = len(older)
	}
	sizeConfidence := math.Min(float64(minSample)/5.0, 1.0)
	strengthConfidence := math.Min(math.Abs(strength)*2, 1.0)

	recentVar := variance(valuesOf(recent))
	olderVar := variance(valuesOf(older))
	avgVar := (recentVar + olderVar) / 2
	varianceConfidence := 1.0
	if avgVar > 0 {
		varianceConfidence = 1 / (1 + avgVar)
	}

	overall := (sizeConfidence + strengthConfidence + varianceConfidence) / 3
	return math.Round(overall*100) / 100
}

func variance(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return sumSq / float64(len(values))
}

func valuesOf(points []DataPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

func datesOf(points []DataPoint) []time.Time {
	out := make([]time.Time, len(points))
	for i, p := range points {
		out[i] = p.Date
	}
	return out
}
