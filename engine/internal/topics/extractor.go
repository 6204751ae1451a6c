// Package topics extracts scored technical topics, a difficulty assessment,
// round classification, and key insights from a single interview
// experience's free text.
package topics

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/interviewintel/pipeline/engine/internal/decay"
	"github.com/interviewintel/pipeline/engine/models"
	"github.com/kennygrant/sanitize"
)

var (
	nonWordRe  = regexp.MustCompile(`[^\w\s.]`)
	multiSpace = regexp.MustCompile(`\s+`)
)

// ExtractedTopic is one scored (category, topic) pair found in an
// experience.
type ExtractedTopic struct {
	Category           string
	Topic              string
	Name               string
	RawCount           int
	FrequencyPercent   float64
	ImportanceScore    float64
	WeightedImportance float64
	Confidence         float64
}

// DifficultyAssessment is the overall difficulty read off an experience.
type DifficultyAssessment struct {
	Level      models.Difficulty
	Confidence float64
	Indicators []string
}

// RoundClassification scores how strongly an experience's text matches one
// interview round type.
type RoundClassification struct {
	RoundType  string
	Confidence float64
}

// Extraction is the full result of analyzing one experience's text.
type Extraction struct {
	Topics            []ExtractedTopic
	Difficulty        DifficultyAssessment
	Rounds            []RoundClassification
	KeyInsights       []string
	OverallConfidence float64
}

// Extractor holds every precompiled pattern set used for extraction, built
// once and reused across every ExtractTopics call.
type Extractor struct {
	keywords            []compiledKeyword
	contextPatterns     []contextPattern
	advancedPatterns    map[string][]*regexp.Regexp
	difficultyPatterns  map[string][]*regexp.Regexp
	difficultyIndicator []*regexp.Regexp
	roundPatterns       map[string][]*regexp.Regexp
	insightPatterns     []*regexp.Regexp
	decayCalc           *decay.Calculator
}

// New builds an Extractor. decayCalc weights topic importance by how old the
// source experience is; a nil calculator falls back to decay.New(0).
func New(decayCalc *decay.Calculator) *Extractor {
	if decayCalc == nil {
		decayCalc = decay.New(0)
	}
	return &Extractor{
		keywords:            compileKeywordLookup(buildKeywordLookup()),
		contextPatterns:     compileContextPatterns(),
		advancedPatterns:    compileAdvancedPatterns(),
		difficultyPatterns:  compileDifficultyPatterns(),
		difficultyIndicator: compileDifficultyIndicatorPatterns(),
		roundPatterns:       compileRoundTypePatterns(),
		insightPatterns:     compileInsightPatterns(),
		decayCalc:           decayCalc,
	}
}

// ExtractTopics analyzes a record's title and content and returns scored
// topics, a difficulty assessment, round classification, and key insights.
func (e *Extractor) ExtractTopics(record models.Record) Extraction {
	raw := sanitize.HTML(record.Title) + "\n" + sanitize.HTML(record.Content)
	text := preprocess(raw)

	counts := e.countByKeyword(text)
	e.countByContext(text, counts)
	e.countByAdvancedPatterns(text, counts)

	topics := e.scoreTopics(counts, record)
	difficulty := e.assessDifficulty(text)
	rounds := e.classifyRounds(text)
	insights := e.extractKeyInsights(raw)

	return Extraction{
		Topics:            topics,
		Difficulty:        difficulty,
		Rounds:            rounds,
		KeyInsights:       insights,
		OverallConfidence: overallConfidence(topics),
	}
}

func preprocess(text string) string {
	text = strings.ToLower(text)
	text = nonWordRe.ReplaceAllString(text, " ")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

type topicKey struct{ category, topic string }

func (e *Extractor) countByKeyword(text string) map[topicKey]int {
	counts := make(map[topicKey]int)
	for _, ck := range e.keywords {
		n := len(ck.re.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		counts[topicKey{ck.entry.category, ck.entry.topic}] += n
	}
	return counts
}

func (e *Extractor) countByContext(text string, counts map[topicKey]int) {
	for _, cp := range e.contextPatterns {
		matches := cp.re.FindAllStringSubmatch(text, -1)
		for _, m := range matches {
			if len(m) < 2 {
				continue
			}
			phrase := strings.TrimSpace(m[1])
			for _, ck := range e.keywords {
				if ck.keyword == phrase || strings.Contains(phrase, ck.keyword) {
					counts[topicKey{ck.entry.category, ck.entry.topic}]++
					break
				}
			}
		}
	}
}

func (e *Extractor) countByAdvancedPatterns(text string, counts map[topicKey]int) {
	for key, patterns := range e.advancedPatterns {
		parts := strings.SplitN(key, ".", 2)
		if len(parts) != 2 {
			continue
		}
		tk := topicKey{parts[0], parts[1]}
		for _, re := range patterns {
			n := len(re.FindAllStringIndex(text, -1))
			counts[tk] += n
		}
	}
}

func (e *Extractor) scoreTopics(counts map[topicKey]int, record models.Record) []ExtractedTopic {
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return nil
	}

	decayWeight := e.decayCalc.Weight(record.ExperienceDate)

	topics := make([]ExtractedTopic, 0, len(counts))
	for tk, n := range counts {
		if n == 0 {
			continue
		}
		frequency := float64(n) / float64(total) * 100
		multiplier := categoryImportance[tk.category]
		if multiplier == 0 {
			multiplier = 1.0
		}
		importance := frequency * multiplier * math.Log(float64(n)+1)
		weighted := importance * decayWeight

		countFactor := math.Min(float64(n)/5.0, 1.0)
		freqFactor := math.Min(frequency/2.0, 1.0)
		confidence := (countFactor + freqFactor) / 2

		topics = append(topics, ExtractedTopic{
			Category:           tk.category,
			Topic:              tk.topic,
			Name:               tk.category + "." + tk.topic,
			RawCount:           n,
			FrequencyPercent:   frequency,
			ImportanceScore:    importance,
			WeightedImportance: weighted,
			Confidence:         math.Round(confidence*100) / 100,
		})
	}

	sort.Slice(topics, func(i, j int) bool {
		return topics[i].WeightedImportance > topics[j].WeightedImportance
	})
	return topics
}

func (e *Extractor) assessDifficulty(text string) DifficultyAssessment {
	scores := make(map[string]int, len(e.difficultyPatterns))
	total := 0
	for level, patterns := range e.difficultyPatterns {
		for _, re := range patterns {
			n := len(re.FindAllStringIndex(text, -1))
			scores[level] += n
			total += n
		}
	}
	if total == 0 {
		return DifficultyAssessment{Level: models.DifficultyUnknown, Confidence: 0, Indicators: e.extractDifficultyIndicators(text)}
	}

	best := models.DifficultyUnknown
	bestScore := -1
	for _, level := range []string{"easy", "medium", "hard"} {
		if scores[level] > bestScore {
			bestScore = scores[level]
			best = models.Difficulty(level)
		}
	}
	confidence := float64(bestScore) / float64(total)
	return DifficultyAssessment{
		Level:      best,
		Confidence: math.Round(confidence*100) / 100,
		Indicators: e.extractDifficultyIndicators(text),
	}
}

func (e *Extractor) extractDifficultyIndicators(text string) []string {
	var out []string
	for _, re := range e.difficultyIndicator {
		for _, m := range re.FindAllString(text, -1) {
			out = append(out, m)
			if len(out) >= 5 {
				return out
			}
		}
	}
	return out
}

func (e *Extractor) classifyRounds(text string) []RoundClassification {
	var rounds []RoundClassification
	for _, roundType := range []string{"coding", "system_design", "behavioral", "technical_discussion"} {
		patterns := e.roundPatterns[roundType]
		score := 0
		for _, re := range patterns {
			score += len(re.FindAllStringIndex(text, -1))
		}
		if score == 0 {
			continue
		}
		rounds = append(rounds, RoundClassification{
			RoundType:  roundType,
			Confidence: math.Min(float64(score)/3.0, 1.0),
		})
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].Confidence > rounds[j].Confidence })
	return rounds
}

func (e *Extractor) extractKeyInsights(text string) []string {
	var insights []string
	for _, re := range e.insightPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			insight := strings.TrimSpace(m[1])
			if len(insight) <= 15 {
				continue
			}
			if len(insight) > 200 {
				insight = insight[:200]
			}
			insights = append(insights, insight)
			if len(insights) >= 5 {
				return insights
			}
		}
	}
	return insights
}

func overallConfidence(topics []ExtractedTopic) float64 {
	if len(topics) == 0 {
		return 0
	}
	var sum float64
	for _, t := range topics {
		sum += t.Confidence
	}
	return math.Round((sum/float64(len(topics)))*100) / 100
}
