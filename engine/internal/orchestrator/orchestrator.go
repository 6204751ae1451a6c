// Package orchestrator composes source adapters, the crawl engine, the
// topic extractor, and the insight aggregator into the staged pipeline
// described in spec §4.9: collection -> analysis -> insights ->
// recommendations, with idempotent storage and recency-aware skip logic.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/interviewintel/pipeline/engine/internal/insights"
	"github.com/interviewintel/pipeline/engine/internal/sources"
	"github.com/interviewintel/pipeline/engine/internal/store"
	"github.com/interviewintel/pipeline/engine/internal/topics"
	"github.com/interviewintel/pipeline/engine/models"
	"github.com/interviewintel/pipeline/engine/telemetry/logging"
	"github.com/interviewintel/pipeline/engine/telemetry/metrics"
	"github.com/interviewintel/pipeline/engine/telemetry/tracing"
	"golang.org/x/sync/errgroup"
)

// AnalysisStaleness is the TTL used by the collection stage: a company is
// re-collected if its most recent scrape is older than this, even without
// force_refresh. Distinct from ProcessedStaleness by design (spec §9 open
// question): collection is expensive (network I/O) and tolerates staler
// data than reanalysis, which is cheap local computation.
const AnalysisStaleness = 7 * 24 * time.Hour

// ProcessedStaleness is the TTL used by the analysis stage: an experience
// is reprocessed if it has never been analyzed or was analyzed longer ago
// than this.
const ProcessedStaleness = 24 * time.Hour

// MaxBatchConcurrency bounds run_batch_analysis to at most this many
// concurrent single-company pipelines (spec §4.9, §5): a hard ceiling, not
// a tunable, since the store and remote hosts dictate the conservative
// bound.
const MaxBatchConcurrency = 2

// PlatformResult reports one adapter's contribution (or failure) during
// collection.
type PlatformResult struct {
	Platform     string
	URLsFound    int
	RecordsSaved int
	Error        string
	Duration     time.Duration
}

// CollectionResult summarizes the collection stage.
type CollectionResult struct {
	NewlyScraped    int
	PlatformResults []PlatformResult
	Skipped         bool
}

// Recommendations is the pure-function output of stage 4, derived from the
// insight rollup.
type Recommendations struct {
	ImmediateFocus []insights.StudyItem
	FourWeekPlan   string
	TimeAllocation insights.ProblemMix
	PracticeNote   string
}

// AnalysisResult is the full output of run_complete_analysis.
type AnalysisResult struct {
	Company         string
	Status          string // "success" or "insufficient_data"; a failed run returns an error instead
	CorrelationID   string
	DataCollection  CollectionResult
	Insights        insights.Result
	Recommendations Recommendations
}

// BatchResult is the output of run_batch_analysis.
type BatchResult struct {
	CorrelationID string
	Results       map[string]AnalysisResult
	Errors        map[string]string
}

// ContentDeduper reports whether content matching an identical hash has
// already been seen, regardless of the URL it was fetched from. Satisfied
// by *crawler.Engine.
type ContentDeduper interface {
	IsDuplicateContent(content string) bool
}

// Orchestrator wires every component together behind the two entry points
// the spec's external interface names: RunCompleteAnalysis and
// RunBatchAnalysis.
type Orchestrator struct {
	adapters   []sources.Adapter
	extractor  *topics.Extractor
	aggregator *insights.Aggregator
	gateway    store.Gateway
	logger     logging.Logger
	dedup      ContentDeduper

	companyLocksMu sync.Mutex
	companyLocks   map[string]*sync.Mutex
}

// New builds an Orchestrator. logger defaults to a no-op logger if nil.
// dedup may be nil, in which case content-level duplicate rejection (spec
// §4.6 step 6) is skipped and only per-adapter URL-level dedup applies.
func New(adapters []sources.Adapter, extractor *topics.Extractor, aggregator *insights.Aggregator, gateway store.Gateway, logger logging.Logger, dedup ContentDeduper) *Orchestrator {
	if logger == nil {
		logger = logging.Noop()
	}
	return &Orchestrator{
		adapters:     adapters,
		extractor:    extractor,
		aggregator:   aggregator,
		gateway:      gateway,
		logger:       logger,
		dedup:        dedup,
		companyLocks: make(map[string]*sync.Mutex),
	}
}

// runStage bounds fn in a trace span named stage and records its wall-clock
// duration on the analysis_stage_duration_seconds histogram, so every one
// of the four pipeline stages is individually traceable and measurable.
func runStage[T any](ctx context.Context, stage string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tracing.StartStage(ctx, stage)
	defer span.End()
	start := time.Now()
	result, err := fn(ctx)
	metrics.AnalysisDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	return result, err
}

func (o *Orchestrator) lockFor(company string) *sync.Mutex {
	o.companyLocksMu.Lock()
	defer o.companyLocksMu.Unlock()
	l, ok := o.companyLocks[company]
	if !ok {
		l = &sync.Mutex{}
		o.companyLocks[company] = l
	}
	return l
}

// RunCompleteAnalysis runs the four-stage pipeline for one company. Two
// workers must never process the same company concurrently (spec §5); a
// per-company lock enforces that even if a caller invokes this directly
// outside of RunBatchAnalysis.
func (o *Orchestrator) RunCompleteAnalysis(ctx context.Context, company string, maxExperiences int, forceRefresh bool) (AnalysisResult, error) {
	lock := o.lockFor(company)
	lock.Lock()
	defer lock.Unlock()

	correlationID := uuid.NewString()
	ctx = logging.WithCorrelationID(ctx, correlationID)
	if maxExperiences <= 0 {
		maxExperiences = 20
	}

	o.logger.InfoCtx(ctx, "run_complete_analysis started", "company", company, "max_experiences", maxExperiences, "force_refresh", forceRefresh)

	collection, err := runStage(ctx, "collection", func(ctx context.Context) (CollectionResult, error) {
		return o.collect(ctx, company, maxExperiences, forceRefresh)
	})
	if err != nil {
		return AnalysisResult{}, &models.StoreError{Op: "collect", Err: err}
	}

	if _, err := runStage(ctx, "analysis", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, o.analyze(ctx, company)
	}); err != nil {
		return AnalysisResult{}, &models.StoreError{Op: "analyze", Err: err}
	}

	insightResult, err := runStage(ctx, "insights", func(ctx context.Context) (insights.Result, error) {
		analyzed, err := o.loadAnalyzed(ctx, company)
		if err != nil {
			return insights.Result{}, err
		}
		result := o.aggregator.Aggregate(analyzed)
		if !result.InsufficientSample {
			if err := o.gateway.ReplaceCompanyInsights(ctx, company, toCompanyInsights(company, result)); err != nil {
				return insights.Result{}, err
			}
		}
		return result, nil
	})
	if err != nil {
		return AnalysisResult{}, &models.StoreError{Op: "insights", Err: err}
	}

	status := "success"
	if insightResult.InsufficientSample {
		status = "insufficient_data"
	}

	recommendations, _ := runStage(ctx, "recommendations", func(ctx context.Context) (Recommendations, error) {
		return buildRecommendations(insightResult), nil
	})

	o.logger.InfoCtx(ctx, "run_complete_analysis finished", "company", company, "status", status)

	return AnalysisResult{
		Company:         company,
		Status:          status,
		CorrelationID:   correlationID,
		DataCollection:  collection,
		Insights:        insightResult,
		Recommendations: recommendations,
	}, nil
}

// RunBatchAnalysis dispatches up to MaxBatchConcurrency concurrent
// single-company analyses. One company's failure never aborts the batch:
// its error is recorded and the remaining companies still run.
func (o *Orchestrator) RunBatchAnalysis(ctx context.Context, companies []string, quotaEach int) (BatchResult, error) {
	correlationID := uuid.NewString()
	ctx = logging.WithCorrelationID(ctx, correlationID)

	results := make(map[string]AnalysisResult, len(companies))
	errs := make(map[string]string)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxBatchConcurrency)

	for _, company := range companies {
		company := company
		g.Go(func() error {
			result, err := o.RunCompleteAnalysis(gctx, company, quotaEach, false)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[company] = err.Error()
				o.logger.WarnCtx(ctx, "batch company failed", "company", company, "error", err)
				return nil
			}
			results[company] = result
			return nil
		})
	}
	_ = g.Wait() // per-company errors are captured above; never abort the batch

	return BatchResult{CorrelationID: correlationID, Results: results, Errors: errs}, nil
}

func (o *Orchestrator) collect(ctx context.Context, company string, maxExperiences int, forceRefresh bool) (CollectionResult, error) {
	needsCollection := forceRefresh
	if !needsCollection {
		count, err := o.gateway.CountExperiences(ctx, company)
		if err != nil {
			return CollectionResult{}, err
		}
		if count < maxExperiences {
			needsCollection = true
		}
		if !needsCollection {
			latest, ok, err := o.gateway.LatestScrapedAt(ctx, company)
			if err != nil {
				return CollectionResult{}, err
			}
			if !ok || time.Since(latest) > AnalysisStaleness {
				needsCollection = true
			}
		}
	}

	if !needsCollection {
		return CollectionResult{Skipped: true}, nil
	}

	if len(o.adapters) == 0 {
		return CollectionResult{}, nil
	}
	quota := maxExperiences / len(o.adapters)
	if quota < 1 {
		quota = 1
	}

	var platformResults []PlatformResult
	newlyScraped := 0

	for _, adapter := range o.adapters {
		start := time.Now()
		pr := PlatformResult{Platform: adapter.Name()}

		urls, err := adapter.DiscoverExperienceURLs(ctx, company, quota)
		if err != nil {
			pr.Error = err.Error()
			pr.Duration = time.Since(start)
			platformResults = append(platformResults, pr)
			o.logger.WarnCtx(ctx, "adapter discovery failed", "platform", adapter.Name(), "error", err)
			continue
		}
		pr.URLsFound = len(urls)

		saved := 0
		for i, u := range urls {
			if i >= quota {
				break
			}
			record, err := adapter.ExtractExperienceData(ctx, u, company)
			if err != nil {
				o.logger.WarnCtx(ctx, "adapter extraction failed", "platform", adapter.Name(), "url", u, "error", err)
				continue
			}
			if record == nil {
				continue
			}
			if o.dedup != nil && o.dedup.IsDuplicateContent(record.Content) {
				o.logger.WarnCtx(ctx, "duplicate content rejected", "platform", adapter.Name(), "url", u)
				continue
			}
			record.TimeWeight = clampWeight(record.TimeWeight)
			if _, created, err := o.gateway.UpsertExperience(ctx, company, *record); err != nil {
				o.logger.WarnCtx(ctx, "store upsert failed", "platform", adapter.Name(), "url", u, "error", err)
			} else if created {
				saved++
			}
		}
		pr.RecordsSaved = saved
		pr.Duration = time.Since(start)
		newlyScraped += saved
		platformResults = append(platformResults, pr)
	}

	return CollectionResult{NewlyScraped: newlyScraped, PlatformResults: platformResults}, nil
}

func clampWeight(w float64) float64 {
	if w <= 0 {
		return 0.01
	}
	if w > 1 {
		return 1
	}
	return w
}

func (o *Orchestrator) analyze(ctx context.Context, company string) error {
	stale, err := o.gateway.ListUnprocessedOrStale(ctx, company, ProcessedStaleness)
	if err != nil {
		return err
	}
	for _, exp := range stale {
		record := models.Record{
			Title:          exp.Title,
			Content:        exp.Content,
			ExperienceDate: exp.ExperienceDate,
		}
		extraction := o.extractor.ExtractTopics(record)

		mentions := make([]models.TopicMention, 0, len(extraction.Topics))
		for _, t := range extraction.Topics {
			topic, err := o.gateway.EnsureTopic(ctx, t.Category, t.Topic)
			if err != nil {
				return err
			}
			mentions = append(mentions, models.TopicMention{
				TopicID:    topic.ID,
				RawCount:   t.RawCount,
				Importance: t.WeightedImportance,
				Confidence: t.Confidence,
			})
		}
		if err := o.gateway.SaveTopicMentions(ctx, exp.ID, mentions); err != nil {
			return err
		}
		rounds := make([]models.RoundMention, 0, len(extraction.Rounds))
		for _, r := range extraction.Rounds {
			rounds = append(rounds, models.RoundMention{ExperienceID: exp.ID, RoundType: r.RoundType, Confidence: r.Confidence})
		}
		if err := o.gateway.SaveRoundClassifications(ctx, exp.ID, rounds); err != nil {
			return err
		}
		if err := o.gateway.SaveKeyInsights(ctx, exp.ID, extraction.KeyInsights); err != nil {
			return err
		}
		if extraction.Difficulty.Level != models.DifficultyUnknown {
			if err := o.gateway.SetDifficultyScore(ctx, exp.ID, difficultyToScore(extraction.Difficulty.Level)); err != nil {
				return err
			}
		}
		if err := o.gateway.MarkProcessed(ctx, exp.ID, time.Now().UTC()); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) loadAnalyzed(ctx context.Context, company string) ([]insights.AnalyzedExperience, error) {
	experiences, err := o.gateway.ListExperiences(ctx, company)
	if err != nil {
		return nil, err
	}
	out := make([]insights.AnalyzedExperience, 0, len(experiences))
	for _, exp := range experiences {
		if exp.ProcessedAt == nil {
			continue
		}
		mentions, err := o.gateway.MentionsFor(ctx, exp.ID)
		if err != nil {
			return nil, err
		}
		scored := make([]insights.ScoredMention, 0, len(mentions))
		var confidenceSum float64
		for _, m := range mentions {
			topic, ok, err := o.gateway.TopicByID(ctx, m.TopicID)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			scored = append(scored, insights.ScoredMention{
				TopicName:        topic.Name(),
				Category:         topic.Category,
				FrequencyPercent: float64(m.RawCount),
				Importance:       m.Importance,
				Confidence:       m.Confidence,
			})
			confidenceSum += m.Confidence
		}
		avgConfidence := 0.0
		if len(scored) > 0 {
			avgConfidence = confidenceSum / float64(len(scored))
		}
		difficulty := models.DifficultyUnknown
		if exp.DifficultyScore != nil {
			difficulty = difficultyFromScore(*exp.DifficultyScore)
		}
		rounds, err := o.gateway.RoundsFor(ctx, exp.ID)
		if err != nil {
			return nil, err
		}
		keyInsights, err := o.gateway.KeyInsightsFor(ctx, exp.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, insights.AnalyzedExperience{
			Experience:  exp,
			Mentions:    scored,
			Difficulty:  difficulty,
			Confidence:  avgConfidence,
			Rounds:      rounds,
			KeyInsights: keyInsights,
		})
	}
	return out, nil
}

// difficultyToScore maps the extractor's coarse level onto the 0-10 scale
// difficultyFromScore reads back on the insights-loading side, so the two
// stay in sync even though they run against different data (the extractor
// never writes a raw numeric score itself).
func difficultyToScore(level models.Difficulty) float64 {
	switch level {
	case models.DifficultyHard:
		return 8
	case models.DifficultyMedium:
		return 5
	case models.DifficultyEasy:
		return 2
	default:
		return 0
	}
}

func difficultyFromScore(score float64) models.Difficulty {
	switch {
	case score >= 7:
		return models.DifficultyHard
	case score >= 4:
		return models.DifficultyMedium
	default:
		return models.DifficultyEasy
	}
}

func toCompanyInsights(company string, result insights.Result) []models.CompanyInsight {
	now := time.Now().UTC()
	out := make([]models.CompanyInsight, 0, len(result.Topics))
	for _, t := range result.Topics {
		out = append(out, models.CompanyInsight{
			TopicName:           t.TopicName,
			WeightedFrequency:   t.WeightedFrequency,
			Confidence:          t.AverageConfidence,
			SampleSize:          t.SampleSize,
			Priority:            t.Priority,
			StudyRecommendation: t.StudyRecommendation,
			AnalysisTimestamp:   now,
		})
	}
	return out
}

func buildRecommendations(result insights.Result) Recommendations {
	if result.InsufficientSample {
		return Recommendations{PracticeNote: "insufficient data to build a study plan"}
	}
	return Recommendations{
		ImmediateFocus: result.StudyPlan.ImmediateFocus,
		FourWeekPlan:   fmt.Sprintf("Follow a %s preparation timeline", result.StudyPlan.Timeline),
		TimeAllocation: result.StudyPlan.ProblemMix,
		PracticeNote:   "Derived purely from the current insight rollup; rerun after new experiences land.",
	}
}
