// Package engine is the public facade composing every internal component
// (robots, rate limiter, decay, company disambiguation, crawl engine,
// topic extractor, insight aggregator, orchestrator) behind the three
// operations spec §6 names as the core's external interface.
package engine

import (
	"context"
	"net/http"
	"time"

	"github.com/interviewintel/pipeline/engine/internal/company"
	"github.com/interviewintel/pipeline/engine/internal/crawler"
	"github.com/interviewintel/pipeline/engine/internal/decay"
	"github.com/interviewintel/pipeline/engine/internal/insights"
	"github.com/interviewintel/pipeline/engine/internal/orchestrator"
	"github.com/interviewintel/pipeline/engine/internal/ratelimit"
	"github.com/interviewintel/pipeline/engine/internal/robots"
	"github.com/interviewintel/pipeline/engine/internal/sources"
	"github.com/interviewintel/pipeline/engine/internal/store"
	"github.com/interviewintel/pipeline/engine/internal/topics"
	"github.com/interviewintel/pipeline/engine/telemetry/health"
	"github.com/interviewintel/pipeline/engine/telemetry/logging"
	"github.com/interviewintel/pipeline/engine/telemetry/metrics"
)

// AnalysisResult and BatchResult are re-exported so callers never need to
// import the internal orchestrator package.
type AnalysisResult = orchestrator.AnalysisResult
type BatchResult = orchestrator.BatchResult

// HealthReport is the shape get_system_health (spec §6) returns: the overall
// status, per-subsystem probe results (store, rate limiter, crawl engine),
// and corpus totals.
type HealthReport struct {
	Overall           health.Status
	Probes            []health.ProbeResult
	TotalCompanies    int
	TotalExperiences  int
	RecentScrapeCount int
	EvaluatedAt       time.Time
}

// Engine composes every subsystem behind RunCompleteAnalysis,
// RunBatchAnalysis, and GetSystemHealth.
type Engine struct {
	cfg           Config
	robotsCache   *robots.Cache
	limiter       *ratelimit.Limiter
	decayCalc     *decay.Calculator
	disambiguator *company.Disambiguator
	crawlEngine   *crawler.Engine
	extractor     *topics.Extractor
	aggregator    *insights.Aggregator
	gateway       store.Gateway
	orchestrator  *orchestrator.Orchestrator
	logger        logging.Logger
	healthEval    *health.Evaluator
	startedAt     time.Time
}

// AdapterFactory builds the site-specific sources.Adapter implementations
// to crawl through, given the shared crawl engine and company
// disambiguator the Engine constructs internally. Adapter URL templates,
// company-variant tables, and selector lists are deployment-specific, so
// callers supply this rather than the Engine hardcoding a source list.
type AdapterFactory func(*crawler.Engine, *company.Disambiguator) []sources.Adapter

// New builds an Engine. newAdapters is called once, after the crawl
// engine and company disambiguator exist, to produce the adapters the
// orchestrator dispatches to. gateway is the persistence backend
// (engine/internal/store/memstore.New() for an in-process deployment).
// logger and companyOverlay may be nil.
func New(cfg Config, newAdapters AdapterFactory, gateway store.Gateway, logger logging.Logger, companyOverlay map[string][]string) *Engine {
	if logger == nil {
		logger = logging.Noop()
	}

	robotsCache := robots.New(&http.Client{Timeout: cfg.Timeout}, cfg.UserAgent)
	limiter := ratelimit.New(ratelimit.Defaults())
	decayCalc := decay.New(cfg.DecayLambda)
	disambiguator := company.New(companyOverlay)

	crawlCfg := crawler.Config{
		UserAgent:              cfg.UserAgent,
		RequestDelay:           cfg.RequestDelay,
		MaxRetries:             cfg.MaxRetries,
		Timeout:                cfg.Timeout,
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
		RespectRobotsTxt:       cfg.RespectRobotsTxt,
	}
	crawlEngine := crawler.New(crawlCfg, limiter, robotsCache, logger)

	extractor := topics.New(decayCalc)
	aggregator := insights.New(nil)

	var adapters []sources.Adapter
	if newAdapters != nil {
		adapters = newAdapters(crawlEngine, disambiguator)
	}
	orch := orchestrator.New(adapters, extractor, aggregator, gateway, logger, crawlEngine)

	e := &Engine{
		cfg:           cfg,
		robotsCache:   robotsCache,
		limiter:       limiter,
		decayCalc:     decayCalc,
		disambiguator: disambiguator,
		crawlEngine:   crawlEngine,
		extractor:     extractor,
		aggregator:    aggregator,
		gateway:       gateway,
		orchestrator:  orch,
		logger:        logger,
		startedAt:     time.Now().UTC(),
	}
	e.healthEval = health.NewEvaluator(10*time.Second, e.healthProbes())
	return e
}

// Disambiguator exposes the company disambiguator so adapters constructed
// by the caller can be wired to the same instance the engine uses.
func (e *Engine) Disambiguator() *company.Disambiguator { return e.disambiguator }

// CrawlEngine exposes the shared crawl engine so adapters constructed by
// the caller route their HTTP traffic through the same rate limiter and
// robots cache the engine uses.
func (e *Engine) CrawlEngine() *crawler.Engine { return e.crawlEngine }

// RunCompleteAnalysis runs the four-stage pipeline for one company.
// maxExperiences defaults to cfg.MaxExperiencesPerCompany when <= 0.
func (e *Engine) RunCompleteAnalysis(ctx context.Context, companyName string, maxExperiences int, forceRefresh bool) (AnalysisResult, error) {
	if maxExperiences <= 0 {
		maxExperiences = e.cfg.MaxExperiencesPerCompany
	}
	return e.orchestrator.RunCompleteAnalysis(ctx, companyName, maxExperiences, forceRefresh)
}

// RunBatchAnalysis dispatches up to orchestrator.MaxBatchConcurrency
// concurrent single-company analyses.
func (e *Engine) RunBatchAnalysis(ctx context.Context, companies []string, quotaEach int) (BatchResult, error) {
	if quotaEach <= 0 {
		quotaEach = e.cfg.MaxExperiencesPerCompany
	}
	return e.orchestrator.RunBatchAnalysis(ctx, companies, quotaEach)
}

// GetSystemHealth evaluates subsystem probes (cached per health.Evaluator's
// TTL) and folds in corpus totals from the persistence gateway.
func (e *Engine) GetSystemHealth(ctx context.Context) HealthReport {
	snap := e.healthEval.Evaluate(ctx)

	report := HealthReport{
		Overall:     snap.Overall,
		Probes:      snap.Probes,
		EvaluatedAt: snap.EvalTime,
	}

	companies, err := e.gateway.Companies(ctx)
	if err != nil {
		return report
	}
	report.TotalCompanies = len(companies)

	recentCutoff := time.Now().UTC().Add(-24 * time.Hour)
	for _, c := range companies {
		experiences, err := e.gateway.ListExperiences(ctx, c.CanonicalName)
		if err != nil {
			continue
		}
		report.TotalExperiences += len(experiences)
		for _, exp := range experiences {
			if exp.ScrapedAt.After(recentCutoff) {
				report.RecentScrapeCount++
			}
		}
	}
	return report
}

// MetricsHandler returns the HTTP handler exposing this module's
// Prometheus collectors, or nil if metrics are disabled in Config.
func (e *Engine) MetricsHandler() http.Handler {
	if !e.cfg.MetricsEnabled {
		return nil
	}
	return metrics.Handler()
}

// Close releases resources held by the rate limiter's eviction loop.
func (e *Engine) Close() error {
	return e.limiter.Close()
}

func (e *Engine) healthProbes() map[string]health.Probe {
	return map[string]health.Probe{
		"store": health.ProbeFunc(func(ctx context.Context) health.ProbeResult {
			if e.gateway == nil {
				return health.Unknown("store", "no gateway configured")
			}
			if _, err := e.gateway.Companies(ctx); err != nil {
				return health.Unhealthy("store", err.Error())
			}
			return health.Healthy("store")
		}),
		"rate_limiter": health.ProbeFunc(func(ctx context.Context) health.ProbeResult {
			if e.limiter == nil {
				return health.Healthy("rate_limiter")
			}
			st := e.limiter.Stats()
			metrics.AdaptiveFillRateGauge.WithLabelValues("all").Set(st.AverageAdaptiveFactor)
			if st.DomainsTracked == 0 || st.DomainsWithFailures == 0 {
				return health.Healthy("rate_limiter")
			}
			if st.DomainsWithFailures < st.DomainsTracked/2+1 {
				return health.Degraded("rate_limiter", "some hosts accumulating failures")
			}
			return health.Unhealthy("rate_limiter", "majority of hosts accumulating failures")
		}),
		"crawl_engine": health.ProbeFunc(func(ctx context.Context) health.ProbeResult {
			if e.crawlEngine == nil {
				return health.Unknown("crawl_engine", "not initialized")
			}
			stats := e.crawlEngine.Stats()
			if stats.RequestsMade == 0 {
				return health.Healthy("crawl_engine")
			}
			ratio := float64(stats.ForbiddenErrors+stats.RobotsBlocked) / float64(stats.RequestsMade)
			if ratio > 0.5 {
				return health.Degraded("crawl_engine", "high forbidden/robots-blocked ratio")
			}
			return health.Healthy("crawl_engine")
		}),
	}
}
