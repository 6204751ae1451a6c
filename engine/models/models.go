// Package models holds the shared entity and record types that flow between
// the crawl engine, topic extractor, insight aggregator, and persistence
// gateway. Types here are storage-agnostic: the gateway interface in
// engine/internal/store maps them onto whatever table layout a caller
// chooses.
package models

import "time"

// Company is the canonical, user-visible target of an analysis run.
// Created on demand by the orchestrator the first time an experience for it
// is persisted; never deleted by the core.
type Company struct {
	ID            string
	CanonicalName string
	DisplayName   string
	Industry      string
	SizeBucket    string
}

// RoundDetail describes one interview round captured inside an experience.
type RoundDetail struct {
	RoundNumber int    `json:"round_number"`
	Description string `json:"description"`
}

// Outcome enumerates the parsed result of an interview experience.
type Outcome string

const (
	OutcomeOffer    Outcome = "offer"
	OutcomeRejected Outcome = "rejected"
	OutcomeUnknown  Outcome = "unknown"
)

// Difficulty enumerates the coarse difficulty buckets used throughout
// extraction and aggregation.
type Difficulty string

const (
	DifficultyEasy    Difficulty = "easy"
	DifficultyMedium  Difficulty = "medium"
	DifficultyHard    Difficulty = "hard"
	DifficultyUnknown Difficulty = "unknown"
)

// Record is the shape an adapter hands back to the orchestration layer at
// the adapter/pipeline boundary (spec §6). It has not yet been assigned a
// store identity.
type Record struct {
	Title                string
	Content              string
	SourceURL            string
	SourcePlatform       string
	Company              string
	Role                 string
	ExperienceDate       time.Time
	RoundsCount          int
	RoundsDetails        []RoundDetail
	DifficultyIndicators []string
	Outcome              Outcome
	TimeWeight           float64
}

// InterviewExperience is the persisted form of a Record, owned by exactly
// one Company.
type InterviewExperience struct {
	ID              string
	CompanyID       string
	Title           string
	Content         string
	SourceURL       string
	SourcePlatform  string
	Role            string
	ExperienceDate  time.Time
	ScrapedAt       time.Time
	ProcessedAt     *time.Time
	TimeWeight      float64
	Success         bool
	DifficultyScore *float64
	RoundsCount     int
	RoundsDetails   []RoundDetail
	Outcome         Outcome
}

// Topic is a canonical hierarchical "category.topic" entry, created on
// first mention. Display name and category are immutable once created.
type Topic struct {
	ID          string
	Category    string
	TopicName   string
	DisplayName string
}

// Name returns the canonical "category.topic" key for the topic.
func (t Topic) Name() string { return t.Category + "." + t.TopicName }

// TopicMention joins an experience to a topic with the scores computed by
// the topic extractor. At most one mention row exists per
// (experience, topic).
type TopicMention struct {
	ID           string
	ExperienceID string
	TopicID      string
	RawCount     int
	Importance   float64
	Confidence   float64
}

// RoundMention records how strongly one experience's text matched an
// interview round type (coding, system_design, behavioral,
// technical_discussion).
type RoundMention struct {
	ExperienceID string
	RoundType    string
	Confidence   float64
}

// PriorityLevel buckets a CompanyInsight's combined score.
type PriorityLevel string

const (
	PriorityHigh   PriorityLevel = "HIGH"
	PriorityMedium PriorityLevel = "MEDIUM"
	PriorityLow    PriorityLevel = "LOW"
)

// CompanyInsight is the rolled-up, regenerated-in-full view for one
// (Company, Topic) pair. Insights for a company are replaced atomically on
// each regeneration.
type CompanyInsight struct {
	ID                  string
	CompanyID           string
	TopicID             string
	TopicName           string
	WeightedFrequency   float64
	Confidence          float64
	SampleSize          int
	Priority            PriorityLevel
	StudyRecommendation string
	AnalysisTimestamp   time.Time
}
