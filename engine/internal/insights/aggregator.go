// Package insights rolls up analyzed experiences and their topic mentions
// into per-company recommendations: topic priority, temporal trends,
// success factors, study plans, and a data-quality report.
package insights

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/interviewintel/pipeline/engine/models"
)

// MinSampleSize is the smallest number of experiences the aggregator will
// run a rollup over; fewer than this yields InsufficientSample.
const MinSampleSize = 3

// AnalyzedExperience bundles one experience with the topic mentions the
// extractor produced for it, the shape the aggregator consumes.
type AnalyzedExperience struct {
	Experience  models.InterviewExperience
	Mentions    []ScoredMention
	Difficulty  models.Difficulty
	Confidence  float64
	Rounds      []models.RoundMention
	KeyInsights []string
}

// ScoredMention is a topic mention enriched with the per-experience
// frequency percent the extractor computed, needed for weighted rollups.
type ScoredMention struct {
	TopicName        string
	Category         string
	FrequencyPercent float64
	Importance       float64
	Confidence       float64
}

// TopicInsight is the rolled-up view of one topic across a company's
// analyzed experiences.
type TopicInsight struct {
	TopicName           string
	Category            string
	WeightedFrequency   float64
	AverageImportance   float64
	AverageConfidence   float64
	FrequencyStdDev     float64
	SampleSize          int
	Priority            models.PriorityLevel
	StudyRecommendation string
}

// DifficultyRollup reports the majority-vote difficulty across experiences.
type DifficultyRollup struct {
	Primary    models.Difficulty
	Percentage float64
	Confidence float64
}

// Trend reports a topic's per-capita mention-rate change between the last
// 180 days and everything older.
type Trend struct {
	TopicName string
	Change    float64
}

// StudyPlan bundles the recommendation output derived purely from the
// insight rollup (spec §4.9 stage 4 is a pure function of this).
type StudyPlan struct {
	ImmediateFocus []StudyItem
	SecondaryFocus []StudyItem
	Timeline       string
	ProblemMix     ProblemMix
}

// StudyItem names one topic worth a fixed number of focused study hours.
type StudyItem struct {
	TopicName string
	Hours     int
}

// ProblemMix is a coding/system-design/behavioral practice split expressed
// as percentages summing to 100.
type ProblemMix struct {
	Coding       int
	SystemDesign int
	Behavioral   int
}

// DataQuality mirrors the original system's quality report: a composite
// score plus the issues and recommendations that drove it down.
type DataQuality struct {
	Score           float64
	SampleAdequacy  string
	ConfidenceLevel string
	Issues          []string
	Recommendations []string
}

// CommonRound reports an interview round type that showed up, with
// confidence above 0.5, in more than 30% of a company's experiences.
type CommonRound struct {
	RoundType        string
	FrequencyPercent float64
	Count            int
}

// Result is the full output of one company rollup.
type Result struct {
	Topics              []TopicInsight
	Difficulty          DifficultyRollup
	TrendingUp          []Trend
	TrendingDown        []Trend
	TrendAvailable      bool
	SuccessFactors      []string
	StudyPlan           StudyPlan
	StatisticalConf     float64
	DataQuality         DataQuality
	InsufficientSample  bool
	CommonRounds        []CommonRound
	NotableInsights     []string
	// ComparisonAvailable is always false: no cross-company comparison
	// engine is implemented, matching the upstream system's own
	// single-company analysis. Kept as a stable field for a future facade.
	ComparisonAvailable bool
}

// MaxNotableInsights caps how many deduplicated per-experience advice
// snippets surface on a company rollup.
const MaxNotableInsights = 10

// rollupNotableInsights dedupes the advice-pattern extracts each experience
// produced and returns up to MaxNotableInsights of them.
func rollupNotableInsights(experiences []AnalyzedExperience) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, exp := range experiences {
		for _, insight := range exp.KeyInsights {
			if _, ok := seen[insight]; ok {
				continue
			}
			seen[insight] = struct{}{}
			out = append(out, insight)
			if len(out) >= MaxNotableInsights {
				return out
			}
		}
	}
	return out
}

// Aggregator rolls up analyzed experiences for one company at a time. It
// holds no state between calls; now is injected so results are
// deterministic under test.
type Aggregator struct {
	now func() time.Time
}

// New builds an Aggregator. now defaults to time.Now when nil.
func New(now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{now: now}
}

// Aggregate runs the full rollup over experiences. Fewer than
// MinSampleSize experiences produces Result.InsufficientSample=true with
// only DataQuality filled in, matching the "insufficient_data" contract in §4.8.
func (a *Aggregator) Aggregate(experiences []AnalyzedExperience) Result {
	if len(experiences) < MinSampleSize {
		return Result{InsufficientSample: true, DataQuality: a.assessDataQuality(experiences)}
	}

	topics := a.rollupTopics(experiences)
	difficulty := a.rollupDifficulty(experiences)
	trendingUp, trendingDown, trendAvailable := a.rollupTrends(experiences)
	successFactors := a.rollupSuccessFactors(experiences)
	plan := buildStudyPlan(topics, difficulty)
	statConf := a.statisticalConfidence(experiences, topics)
	quality := a.assessDataQuality(experiences)
	commonRounds := rollupCommonRounds(experiences)
	notableInsights := rollupNotableInsights(experiences)

	return Result{
		Topics:              topics,
		Difficulty:          difficulty,
		TrendingUp:          trendingUp,
		TrendingDown:        trendingDown,
		TrendAvailable:      trendAvailable,
		SuccessFactors:      successFactors,
		StudyPlan:           plan,
		StatisticalConf:     statConf,
		DataQuality:         quality,
		InsufficientSample:  false,
		CommonRounds:        commonRounds,
		NotableInsights:     notableInsights,
		ComparisonAvailable: false,
	}
}

// rollupCommonRounds ports _analyze_interview_process: a round type counts
// toward the rollup only where its per-experience classification
// confidence exceeded 0.5, and it is reported only if it then appears in
// more than 30% of experiences.
func rollupCommonRounds(experiences []AnalyzedExperience) []CommonRound {
	counts := make(map[string]int)
	for _, exp := range experiences {
		for _, r := range exp.Rounds {
			if r.Confidence > 0.5 {
				counts[r.RoundType]++
			}
		}
	}

	total := len(experiences)
	var out []CommonRound
	for roundType, count := range counts {
		frequency := float64(count) / float64(total) * 100
		if frequency > 30 {
			out = append(out, CommonRound{
				RoundType:        roundType,
				FrequencyPercent: math.Round(frequency*10) / 10,
				Count:            count,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].FrequencyPercent > out[j].FrequencyPercent
	})
	return out
}

func (a *Aggregator) rollupTopics(experiences []AnalyzedExperience) []TopicInsight {
	type acc struct {
		category              string
		weightedFreqSum       float64
		weightSum             float64
		importanceSum         float64
		confidenceSum         float64
		freqSamples           []float64
		n                     int
	}
	byTopic := make(map[string]*acc)

	for _, exp := range experiences {
		w := exp.Experience.TimeWeight
		if w <= 0 {
			w = 0.01
		}
		for _, m := range exp.Mentions {
			e, ok := byTopic[m.TopicName]
			if !ok {
				e = &acc{category: m.Category}
				byTopic[m.TopicName] = e
			}
			e.weightedFreqSum += m.FrequencyPercent * w
			e.weightSum += w
			e.importanceSum += m.Importance
			e.confidenceSum += m.Confidence
			e.freqSamples = append(e.freqSamples, m.FrequencyPercent)
			e.n++
		}
	}

	results := make([]TopicInsight, 0, len(byTopic))
	for name, e := range byTopic {
		weightedFreq := 0.0
		if e.weightSum > 0 {
			weightedFreq = e.weightedFreqSum / e.weightSum * 100
		}
		avgImportance := e.importanceSum / float64(e.n)
		avgConfidence := e.confidenceSum / float64(e.n)
		stddev := stdDev(e.freqSamples)

		score := weightedFreq*0.4 + avgImportance*0.4 + avgConfidence*20*0.2
		priority := models.PriorityLow
		switch {
		case score >= 15 && avgConfidence >= 0.7:
			priority = models.PriorityHigh
		case score >= 8 && avgConfidence >= 0.5:
			priority = models.PriorityMedium
		}

		results = append(results, TopicInsight{
			TopicName:           name,
			Category:            e.category,
			WeightedFrequency:   weightedFreq,
			AverageImportance:   avgImportance,
			AverageConfidence:   avgConfidence,
			FrequencyStdDev:     stddev,
			SampleSize:          e.n,
			Priority:            priority,
			StudyRecommendation: studyRecommendationFor(name, e.category, priority),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return priorityScore(results[i]) > priorityScore(results[j])
	})
	return results
}

func priorityScore(t TopicInsight) float64 {
	return t.WeightedFrequency*0.4 + t.AverageImportance*0.4 + t.AverageConfidence*20*0.2
}

// studyResource is a curated practice plan for a topic, keyed on category
// and a topic-name substring match.
type studyResource struct {
	practiceProblems   []string
	studyMaterials     []string
	estimatedStudyTime string
}

// studyResourcesFor returns the curated practice-problem/study-material
// list for a topic. Topics outside the curated set fall back to a generic
// 2-3 day review estimate with no specific reading list.
func studyResourcesFor(topicName, category string) studyResource {
	res := studyResource{estimatedStudyTime: "2-3 days"}

	switch category {
	case "algorithms":
		switch {
		case strings.Contains(topicName, "dynamic_programming"):
			res.practiceProblems = []string{
				"LeetCode: Climbing Stairs",
				"LeetCode: House Robber",
				"LeetCode: Coin Change",
				"LeetCode: Longest Common Subsequence",
			}
			res.estimatedStudyTime = "5-7 days"
		case strings.Contains(topicName, "searching"):
			res.practiceProblems = []string{
				"LeetCode: Binary Search",
				"LeetCode: Search in Rotated Sorted Array",
				"LeetCode: Find Peak Element",
			}
		}
	case "data_structures":
		if strings.Contains(topicName, "tree") {
			res.practiceProblems = []string{
				"LeetCode: Binary Tree Inorder Traversal",
				"LeetCode: Maximum Depth of Binary Tree",
				"LeetCode: Validate Binary Search Tree",
			}
		}
	case "system_design":
		res.studyMaterials = []string{
			"Designing Data-Intensive Applications",
			"System Design Interview by Alex Xu",
			"High Scalability blog",
		}
		res.estimatedStudyTime = "7-10 days"
	}

	return res
}

func studyRecommendationFor(topicName, category string, priority models.PriorityLevel) string {
	var lead string
	switch priority {
	case models.PriorityHigh:
		lead = "High-priority topic (" + topicName + "): practice daily until confident."
	case models.PriorityMedium:
		lead = "Moderate-priority topic (" + topicName + "): review core concepts and do a few problems."
	default:
		lead = "Low-priority topic (" + topicName + "): skim for familiarity."
	}

	res := studyResourcesFor(topicName, category)
	parts := []string{lead}
	if len(res.practiceProblems) > 0 {
		parts = append(parts, "Practice: "+strings.Join(res.practiceProblems, "; ")+".")
	}
	if len(res.studyMaterials) > 0 {
		parts = append(parts, "Study: "+strings.Join(res.studyMaterials, "; ")+".")
	}
	parts = append(parts, "Estimated time: "+res.estimatedStudyTime+".")
	return strings.Join(parts, " ")
}

func (a *Aggregator) rollupDifficulty(experiences []AnalyzedExperience) DifficultyRollup {
	counts := map[models.Difficulty]int{}
	confidenceSum := map[models.Difficulty]float64{}
	total := 0
	for _, exp := range experiences {
		d := exp.Difficulty
		if d == "" {
			d = models.DifficultyUnknown
		}
		counts[d]++
		confidenceSum[d] += exp.Confidence
		total++
	}
	var best models.Difficulty = models.DifficultyUnknown
	bestCount := -1
	for d, c := range counts {
		if c > bestCount {
			best = d
			bestCount = c
		}
	}
	pct := 0.0
	conf := 0.0
	if total > 0 {
		pct = float64(bestCount) / float64(total) * 100
	}
	if bestCount > 0 {
		conf = confidenceSum[best] / float64(bestCount)
	}
	return DifficultyRollup{Primary: best, Percentage: pct, Confidence: conf}
}

func (a *Aggregator) rollupTrends(experiences []AnalyzedExperience) (up, down []Trend, available bool) {
	cutoff := a.now().AddDate(0, 0, -180)
	var recent, older []AnalyzedExperience
	for _, exp := range experiences {
		if exp.Experience.ExperienceDate.After(cutoff) {
			recent = append(recent, exp)
		} else {
			older = append(older, exp)
		}
	}
	if len(recent) < 2 || len(older) < 2 {
		return nil, nil, false
	}

	recentFreq := perCapitaFrequency(recent)
	olderFreq := perCapitaFrequency(older)

	names := make(map[string]struct{})
	for n := range recentFreq {
		names[n] = struct{}{}
	}
	for n := range olderFreq {
		names[n] = struct{}{}
	}

	var allTrends []Trend
	for name := range names {
		change := recentFreq[name] - olderFreq[name]
		if math.Abs(change) > 0.2 {
			allTrends = append(allTrends, Trend{TopicName: name, Change: change})
		}
	}

	sort.Slice(allTrends, func(i, j int) bool { return allTrends[i].Change > allTrends[j].Change })
	for _, t := range allTrends {
		if t.Change > 0 && len(up) < 3 {
			up = append(up, t)
		}
	}
	sort.Slice(allTrends, func(i, j int) bool { return allTrends[i].Change < allTrends[j].Change })
	for _, t := range allTrends {
		if t.Change < 0 && len(down) < 3 {
			down = append(down, t)
		}
	}
	return up, down, true
}

func perCapitaFrequency(experiences []AnalyzedExperience) map[string]float64 {
	counts := make(map[string]float64)
	for _, exp := range experiences {
		for _, m := range exp.Mentions {
			counts[m.TopicName] += m.FrequencyPercent
		}
	}
	n := float64(len(experiences))
	if n == 0 {
		return counts
	}
	for name := range counts {
		counts[name] /= n
	}
	return counts
}

func (a *Aggregator) rollupSuccessFactors(experiences []AnalyzedExperience) []string {
	var offers, rejections []AnalyzedExperience
	for _, exp := range experiences {
		switch exp.Experience.Outcome {
		case models.OutcomeOffer:
			offers = append(offers, exp)
		case models.OutcomeRejected:
			rejections = append(rejections, exp)
		}
	}
	if len(offers) < 2 || len(rejections) < 2 {
		return nil
	}

	offerRate := topicPresenceRate(offers)
	rejectRate := topicPresenceRate(rejections)

	var factors []string
	for topic, rate := range offerRate {
		if rate-rejectRate[topic] > 0.3 {
			factors = append(factors, topic)
		}
	}
	sort.Strings(factors)
	return factors
}

func topicPresenceRate(experiences []AnalyzedExperience) map[string]float64 {
	presence := make(map[string]int)
	for _, exp := range experiences {
		seen := make(map[string]struct{})
		for _, m := range exp.Mentions {
			if _, ok := seen[m.TopicName]; ok {
				continue
			}
			seen[m.TopicName] = struct{}{}
			presence[m.TopicName]++
		}
	}
	rate := make(map[string]float64, len(presence))
	n := float64(len(experiences))
	for topic, count := range presence {
		rate[topic] = float64(count) / n
	}
	return rate
}

func buildStudyPlan(topics []TopicInsight, difficulty DifficultyRollup) StudyPlan {
	var immediate, secondary []StudyItem
	for i, t := range topics {
		hours := 10
		if t.Category == "algorithms" {
			hours = 15
		}
		switch {
		case i < 3:
			immediate = append(immediate, StudyItem{TopicName: t.TopicName, Hours: hours})
		case i < 6:
			secondary = append(secondary, StudyItem{TopicName: t.TopicName, Hours: 8})
		}
	}

	var timeline string
	var mix ProblemMix
	switch difficulty.Primary {
	case models.DifficultyHard:
		timeline = "6-8 weeks"
		mix = ProblemMix{Coding: 50, SystemDesign: 35, Behavioral: 15}
	case models.DifficultyEasy:
		timeline = "3-4 weeks"
		mix = ProblemMix{Coding: 40, SystemDesign: 50, Behavioral: 10}
	default:
		timeline = "4-6 weeks"
		mix = ProblemMix{Coding: 60, SystemDesign: 25, Behavioral: 15}
	}

	return StudyPlan{ImmediateFocus: immediate, SecondaryFocus: secondary, Timeline: timeline, ProblemMix: mix}
}

func (a *Aggregator) statisticalConfidence(experiences []AnalyzedExperience, topics []TopicInsight) float64 {
	n := len(experiences)
	sampleConf := 0.3
	switch {
	case n >= 20:
		sampleConf = 0.9
	case n >= 10:
		sampleConf = 0.7
	case n >= 5:
		sampleConf = 0.5
	}

	avgTopicsPerExp := 0.0
	if n > 0 {
		total := 0
		for _, exp := range experiences {
			total += len(exp.Mentions)
		}
		avgTopicsPerExp = float64(total) / float64(n)
	}
	densityConf := 0.3
	switch {
	case avgTopicsPerExp >= 5:
		densityConf = 0.9
	case avgTopicsPerExp >= 3:
		densityConf = 0.7
	case avgTopicsPerExp >= 2:
		densityConf = 0.5
	}

	return (sampleConf + densityConf) / 2
}

// assessDataQuality mirrors insights_generator.py's _assess_data_quality:
// a composite of content length, extraction confidence, topic density, and
// sample size against fixed targets.
func (a *Aggregator) assessDataQuality(experiences []AnalyzedExperience) DataQuality {
	if len(experiences) == 0 {
		return DataQuality{
			Score:           0,
			SampleAdequacy:  "insufficient",
			ConfidenceLevel: "none",
			Issues:          []string{"No experiences available"},
			Recommendations: []string{"Collect more interview experiences"},
		}
	}

	var contentLenSum, confidenceSum float64
	var topicCountSum int
	for _, exp := range experiences {
		contentLenSum += float64(len(exp.Experience.Content))
		confidenceSum += exp.Confidence
		topicCountSum += len(exp.Mentions)
	}
	n := float64(len(experiences))
	avgContentLen := contentLenSum / n
	avgConfidence := confidenceSum / n
	avgTopics := float64(topicCountSum) / n

	sampleAdequacy := "insufficient"
	switch {
	case len(experiences) >= 15:
		sampleAdequacy = "excellent"
	case len(experiences) >= 8:
		sampleAdequacy = "good"
	case len(experiences) >= 5:
		sampleAdequacy = "adequate"
	case len(experiences) >= 3:
		sampleAdequacy = "minimal"
	}

	contentScore := math.Min(avgContentLen/500, 1.0)
	topicScore := math.Min(avgTopics/5, 1.0)
	sampleScore := math.Min(n/15, 1.0)
	score := (contentScore + avgConfidence + topicScore + sampleScore) / 4

	confidenceLevel := "very_low"
	switch {
	case score >= 0.8:
		confidenceLevel = "high"
	case score >= 0.6:
		confidenceLevel = "medium"
	case score >= 0.4:
		confidenceLevel = "low"
	}

	var issues, recommendations []string
	if avgContentLen < 200 {
		issues = append(issues, "Short experience descriptions")
		recommendations = append(recommendations, "Collect more detailed interview experiences")
	}
	if avgConfidence < 0.5 {
		issues = append(issues, "Low topic extraction confidence")
		recommendations = append(recommendations, "Improve content quality or extraction algorithms")
	}
	if avgTopics < 2 {
		issues = append(issues, "Few topics per experience")
		recommendations = append(recommendations, "Target more technical interview experiences")
	}
	if len(experiences) < 5 {
		issues = append(issues, "Small sample size")
		recommendations = append(recommendations, "Collect more experiences for statistical significance")
	}

	return DataQuality{
		Score:           score,
		SampleAdequacy:  sampleAdequacy,
		ConfidenceLevel: confidenceLevel,
		Issues:          issues,
		Recommendations: recommendations,
	}
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
