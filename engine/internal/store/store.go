// Package store defines the persistence gateway contract the orchestrator
// writes through. The core never speaks SQL directly; callers supply a
// Gateway implementation (this package ships an in-memory one under
// memstore, sufficient for tests and single-process deployments).
package store

import (
	"context"
	"time"

	"github.com/interviewintel/pipeline/engine/models"
)

// Gateway is the abstract contract from spec §4.10. Each method call is its
// own unit of work (ReplaceCompanyInsights swaps a company's whole insight
// set in one call); no transaction spans several calls.
type Gateway interface {
	// UpsertExperience is idempotent on record.SourceURL: a second call with
	// the same URL returns the existing id and changes nothing. Creates the
	// Company row on first sight.
	UpsertExperience(ctx context.Context, companyName string, record models.Record) (experienceID string, created bool, err error)

	CountExperiences(ctx context.Context, companyName string) (int, error)
	LatestScrapedAt(ctx context.Context, companyName string) (time.Time, bool, error)

	ListExperiences(ctx context.Context, companyName string) ([]models.InterviewExperience, error)
	// ListUnprocessedOrStale returns experiences with a nil ProcessedAt or a
	// ProcessedAt older than ttl.
	ListUnprocessedOrStale(ctx context.Context, companyName string, ttl time.Duration) ([]models.InterviewExperience, error)

	// SaveTopicMentions and MarkProcessed are separate calls; no single unit
	// of work covers both.
	SaveTopicMentions(ctx context.Context, experienceID string, mentions []models.TopicMention) error
	MarkProcessed(ctx context.Context, experienceID string, processedAt time.Time) error
	// SetDifficultyScore records the analysis stage's difficulty assessment
	// for an experience, so later insight rollups don't need to recompute it.
	SetDifficultyScore(ctx context.Context, experienceID string, score float64) error

	MentionsFor(ctx context.Context, experienceID string) ([]models.TopicMention, error)
	TopicByID(ctx context.Context, topicID string) (models.Topic, bool, error)
	EnsureTopic(ctx context.Context, category, topicName string) (models.Topic, error)

	// SaveRoundClassifications and SaveKeyInsights persist the analysis
	// stage's per-experience round-type scores and advice-pattern extracts,
	// so the insights stage can roll common_rounds and advice up without
	// re-running extraction against raw text.
	SaveRoundClassifications(ctx context.Context, experienceID string, rounds []models.RoundMention) error
	RoundsFor(ctx context.Context, experienceID string) ([]models.RoundMention, error)
	SaveKeyInsights(ctx context.Context, experienceID string, insights []string) error
	KeyInsightsFor(ctx context.Context, experienceID string) ([]string, error)

	// ReplaceCompanyInsights deletes all existing CompanyInsight rows for
	// companyName and inserts newInsights, atomically.
	ReplaceCompanyInsights(ctx context.Context, companyName string, newInsights []models.CompanyInsight) error
	ListCompanyInsights(ctx context.Context, companyName string) ([]models.CompanyInsight, error)

	// Companies lists canonical names the gateway has ever seen, used by
	// GetSystemHealth's totals.
	Companies(ctx context.Context) ([]models.Company, error)
}
