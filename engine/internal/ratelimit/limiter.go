// Package ratelimit implements per-host adaptive rate limiting: a sliding
// request-count window, exponential backoff on recorded failures, and a
// slowly-adjusting multiplier that rewards sustained success and punishes
// sustained failure. Hosts are sharded across independent mutex-protected
// maps so unrelated hosts never contend on the same lock.
package ratelimit

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"
)

// ErrEmptyDomain is returned by Wait when called with an empty host string.
var ErrEmptyDomain = errors.New("ratelimit: empty domain")

// Config tunes the limiter. Zero values fall back to the documented
// defaults in Defaults().
type Config struct {
	Enabled              bool
	RequestsPerMinute    int
	FailureBackoffBase   float64
	MaxBackoffSeconds    float64
	JitterMin            float64
	JitterMax            float64
	MaxWaitSeconds       float64
	SuccessStreakToDecay int
	AdaptiveDecayFactor  float64
	AdaptiveGrowthFactor float64
	AdaptiveFloor        float64
	AdaptiveCeiling      float64
	Shards               int
	DomainStateTTL       time.Duration
}

// Defaults mirrors the source system's "optimized for research use"
// constants.
func Defaults() Config {
	return Config{
		Enabled:              true,
		RequestsPerMinute:    20,
		FailureBackoffBase:   1.5,
		MaxBackoffSeconds:    60,
		JitterMin:            0.8,
		JitterMax:            1.2,
		MaxWaitSeconds:       10,
		SuccessStreakToDecay: 5,
		AdaptiveDecayFactor:  0.9,
		AdaptiveGrowthFactor: 1.2,
		AdaptiveFloor:        0.8,
		AdaptiveCeiling:      3.0,
		Shards:               16,
		DomainStateTTL:       10 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := Defaults()
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = d.RequestsPerMinute
	}
	if c.FailureBackoffBase <= 0 {
		c.FailureBackoffBase = d.FailureBackoffBase
	}
	if c.MaxBackoffSeconds <= 0 {
		c.MaxBackoffSeconds = d.MaxBackoffSeconds
	}
	if c.JitterMin <= 0 {
		c.JitterMin = d.JitterMin
	}
	if c.JitterMax <= 0 {
		c.JitterMax = d.JitterMax
	}
	if c.MaxWaitSeconds <= 0 {
		c.MaxWaitSeconds = d.MaxWaitSeconds
	}
	if c.SuccessStreakToDecay <= 0 {
		c.SuccessStreakToDecay = d.SuccessStreakToDecay
	}
	if c.AdaptiveDecayFactor <= 0 {
		c.AdaptiveDecayFactor = d.AdaptiveDecayFactor
	}
	if c.AdaptiveGrowthFactor <= 0 {
		c.AdaptiveGrowthFactor = d.AdaptiveGrowthFactor
	}
	if c.AdaptiveFloor <= 0 {
		c.AdaptiveFloor = d.AdaptiveFloor
	}
	if c.AdaptiveCeiling <= 0 {
		c.AdaptiveCeiling = d.AdaptiveCeiling
	}
	if c.Shards <= 0 || (c.Shards&(c.Shards-1)) != 0 {
		c.Shards = d.Shards
	}
	if c.DomainStateTTL <= 0 {
		c.DomainStateTTL = d.DomainStateTTL
	}
	return c
}

// Clock abstracts time so tests can run the sliding window deterministically.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// Limiter enforces the sliding-window/backoff/adaptive-multiplier wait
// policy per host.
type Limiter struct {
	cfg    Config
	clock  Clock
	rand   func() float64
	shards []*domainShard

	stopCh   chan struct{}
	stopOnce sync.Once
	evictWG  sync.WaitGroup
}

type domainShard struct {
	mu      sync.Mutex
	domains map[string]*domainState
}

type domainState struct {
	requestTimes       []time.Time
	lastRequest        time.Time
	consecutiveFailure int
	successStreak      int
	adaptiveMultiplier float64
	lastActivity       time.Time
}

// New builds a Limiter with the given config, defaulting any unset field.
func New(cfg Config) *Limiter {
	cfg = cfg.withDefaults()
	shards := make([]*domainShard, cfg.Shards)
	for i := range shards {
		shards[i] = &domainShard{domains: make(map[string]*domainState)}
	}
	l := &Limiter{
		cfg:    cfg,
		clock:  realClock{},
		rand:   rand.Float64,
		shards: shards,
		stopCh: make(chan struct{}),
	}
	l.startEvictionLoop()
	return l
}

// WithClock overrides the limiter's time source, for tests.
func (l *Limiter) WithClock(c Clock) *Limiter {
	if c != nil {
		l.clock = c
	}
	return l
}

// WithRand overrides the jitter source, for deterministic tests.
func (l *Limiter) WithRand(f func() float64) *Limiter {
	if f != nil {
		l.rand = f
	}
	return l
}

func (l *Limiter) shardFor(domain string) *domainShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(domain))
	return l.shards[uint64(h.Sum32())&uint64(len(l.shards)-1)]
}

func (l *Limiter) stateFor(domain string) *domainState {
	shard := l.shardFor(domain)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	st := shard.domains[domain]
	if st == nil {
		st = &domainState{adaptiveMultiplier: 1.0, lastActivity: l.clock.Now()}
		shard.domains[domain] = st
	}
	return st
}

// Wait blocks (respecting ctx cancellation) for as long as the sliding
// window, failure backoff, adaptive multiplier, and minimum-spacing-since-
// last-request factors require, then records the request. baseDelay is the
// crawl-delay robots.txt (or the caller) asked for and is the starting point
// of the calculation; time already elapsed since the host's last request is
// credited against the wait, jitter then scales it, and MaxWaitSeconds caps
// it, so the actual sleep can be shorter than baseDelay.
func (l *Limiter) Wait(ctx context.Context, domain string, baseDelay time.Duration) error {
	if domain == "" {
		return ErrEmptyDomain
	}
	if !l.cfg.Enabled {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := l.clock.Now()
	wait := l.calculateWait(domain, baseDelay, now)

	if wait > 0 {
		jitter := l.cfg.JitterMin + l.rand()*(l.cfg.JitterMax-l.cfg.JitterMin)
		total := wait.Seconds() * jitter
		if total > l.cfg.MaxWaitSeconds {
			total = l.cfg.MaxWaitSeconds
		}
		if !sleepWithContext(ctx, l.clock, durationFromSeconds(total)) {
			return ctx.Err()
		}
	}

	l.recordRequest(domain, l.clock.Now())
	return nil
}

// calculateWait implements the source system's five-factor wait calculation.
func (l *Limiter) calculateWait(domain string, baseDelay time.Duration, now time.Time) time.Duration {
	st := l.stateFor(domain)

	shard := l.shardFor(domain)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	wait := baseDelay.Seconds()

	// Factor 2: sliding window over the trailing 60 seconds.
	cutoff := now.Add(-60 * time.Second)
	kept := st.requestTimes[:0]
	for _, t := range st.requestTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	st.requestTimes = kept
	if len(st.requestTimes) >= l.cfg.RequestsPerMinute {
		oldest := now
		if len(st.requestTimes) > 0 {
			oldest = st.requestTimes[0]
		}
		timeUntilNext := 60 - now.Sub(oldest).Seconds()
		if timeUntilNext > wait {
			wait = timeUntilNext
		}
	}

	// Factor 3: exponential backoff for consecutive failures.
	if st.consecutiveFailure > 0 {
		backoff := math.Pow(l.cfg.FailureBackoffBase, float64(st.consecutiveFailure))
		if backoff > l.cfg.MaxBackoffSeconds {
			backoff = l.cfg.MaxBackoffSeconds
		}
		if backoff > wait {
			wait = backoff
		}
	}

	// Factor 4: adaptive multiplier.
	wait *= st.adaptiveMultiplier

	// Factor 5: minimum spacing since the last request already covers part
	// of the computed wait.
	if !st.lastRequest.IsZero() {
		sinceLast := now.Sub(st.lastRequest).Seconds()
		if sinceLast < wait {
			wait -= sinceLast
		} else {
			wait = 0
		}
	}

	if wait < 0 {
		wait = 0
	}
	return durationFromSeconds(wait)
}

func (l *Limiter) recordRequest(domain string, now time.Time) {
	shard := l.shardFor(domain)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	st := shard.domains[domain]
	if st == nil {
		st = &domainState{adaptiveMultiplier: 1.0}
		shard.domains[domain] = st
	}
	st.requestTimes = append(st.requestTimes, now)
	st.lastRequest = now
	st.lastActivity = now
}

// RecordSuccess resets a domain's failure count and, after
// SuccessStreakToDecay consecutive successes, decays its adaptive
// multiplier back toward AdaptiveFloor.
func (l *Limiter) RecordSuccess(domain string) {
	if domain == "" {
		return
	}
	shard := l.shardFor(domain)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	st := shard.domains[domain]
	if st == nil {
		st = &domainState{adaptiveMultiplier: 1.0}
		shard.domains[domain] = st
	}
	st.consecutiveFailure = 0
	st.successStreak++
	if st.successStreak >= l.cfg.SuccessStreakToDecay {
		st.adaptiveMultiplier = math.Max(l.cfg.AdaptiveFloor, st.adaptiveMultiplier*l.cfg.AdaptiveDecayFactor)
		st.successStreak = 0
	}
}

// RecordFailure increments a domain's consecutive-failure count and grows
// its adaptive multiplier toward AdaptiveCeiling.
func (l *Limiter) RecordFailure(domain string) {
	if domain == "" {
		return
	}
	shard := l.shardFor(domain)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	st := shard.domains[domain]
	if st == nil {
		st = &domainState{adaptiveMultiplier: 1.0}
		shard.domains[domain] = st
	}
	st.consecutiveFailure++
	st.successStreak = 0
	st.adaptiveMultiplier = math.Min(l.cfg.AdaptiveCeiling, st.adaptiveMultiplier*l.cfg.AdaptiveGrowthFactor)
}

// Stats summarizes limiter state across all tracked hosts.
type Stats struct {
	DomainsTracked        int
	TotalFailures         int
	AverageAdaptiveFactor float64
	DomainsWithFailures   int
}

// Stats reports aggregate counters, mirroring the source's get_stats.
func (l *Limiter) Stats() Stats {
	var s Stats
	var multSum float64
	for _, shard := range l.shards {
		shard.mu.Lock()
		for _, st := range shard.domains {
			s.DomainsTracked++
			s.TotalFailures += st.consecutiveFailure
			multSum += st.adaptiveMultiplier
			if st.consecutiveFailure > 0 {
				s.DomainsWithFailures++
			}
		}
		shard.mu.Unlock()
	}
	if s.DomainsTracked > 0 {
		s.AverageAdaptiveFactor = multSum / float64(s.DomainsTracked)
	}
	return s
}

func (l *Limiter) startEvictionLoop() {
	l.evictWG.Add(1)
	go func() {
		defer l.evictWG.Done()
		interval := l.cfg.DomainStateTTL / 2
		if interval <= 0 {
			interval = time.Minute
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.evictIdle()
			case <-l.stopCh:
				return
			}
		}
	}()
}

func (l *Limiter) evictIdle() {
	now := l.clock.Now()
	for _, shard := range l.shards {
		shard.mu.Lock()
		for domain, st := range shard.domains {
			if now.Sub(st.lastActivity) >= l.cfg.DomainStateTTL {
				delete(shard.domains, domain)
			}
		}
		shard.mu.Unlock()
	}
}

// Close stops the background eviction goroutine.
func (l *Limiter) Close() error {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		l.evictWG.Wait()
	})
	return nil
}

func durationFromSeconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

func sleepWithContext(ctx context.Context, clock Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	if _, isReal := clock.(realClock); !isReal {
		if ctx.Err() != nil {
			return false
		}
		clock.Sleep(d)
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
