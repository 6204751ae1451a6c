package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(t *testing.T) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cfg := Defaults()
	cfg.RequestsPerMinute = 3
	l := New(cfg).WithClock(clock).WithRand(func() float64 { return 0 })
	t.Cleanup(func() { _ = l.Close() })
	return l, clock
}

func TestWaitAllowsFirstRequestImmediately(t *testing.T) {
	l, _ := newTestLimiter(t)
	err := l.Wait(context.Background(), "example.com", 0)
	require.NoError(t, err)
}

func TestWaitEnforcesSlidingWindow(t *testing.T) {
	l, clock := newTestLimiter(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx, "example.com", 0))
	}
	start := clock.now
	require.NoError(t, l.Wait(ctx, "example.com", 0))
	assert.True(t, clock.now.After(start), "fourth request within the window should have slept")
}

func TestRecordFailureGrowsAdaptiveMultiplier(t *testing.T) {
	l, _ := newTestLimiter(t)
	l.RecordFailure("flaky.example.com")
	l.RecordFailure("flaky.example.com")
	stats := l.Stats()
	assert.Equal(t, 1, stats.DomainsTracked)
	assert.Greater(t, stats.AverageAdaptiveFactor, 1.0)
	assert.Equal(t, 1, stats.DomainsWithFailures)
}

func TestRecordSuccessResetsFailureCount(t *testing.T) {
	l, _ := newTestLimiter(t)
	l.RecordFailure("example.com")
	l.RecordSuccess("example.com")
	stats := l.Stats()
	assert.Equal(t, 0, stats.DomainsWithFailures)
}

func TestRecordSuccessDecaysMultiplierAfterStreak(t *testing.T) {
	l, _ := newTestLimiter(t)
	l.RecordFailure("example.com")
	l.RecordFailure("example.com")
	before := l.Stats().AverageAdaptiveFactor

	for i := 0; i < Defaults().SuccessStreakToDecay; i++ {
		l.RecordSuccess("example.com")
	}
	after := l.Stats().AverageAdaptiveFactor
	assert.Less(t, after, before)
}

func TestWaitRejectsEmptyDomain(t *testing.T) {
	l, _ := newTestLimiter(t)
	err := l.Wait(context.Background(), "", 0)
	assert.ErrorIs(t, err, ErrEmptyDomain)
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cfg := Defaults()
	cfg.RequestsPerMinute = 1
	l := New(cfg).WithClock(clock).WithRand(func() float64 { return 0 })
	t.Cleanup(func() { _ = l.Close() })

	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "example.com", 0))

	cancelCtx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Wait(cancelCtx, "example.com", time.Hour)
	assert.Error(t, err)
}

func TestDisabledLimiterNeverWaits(t *testing.T) {
	cfg := Defaults()
	cfg.Enabled = false
	l := New(cfg)
	t.Cleanup(func() { _ = l.Close() })
	err := l.Wait(context.Background(), "example.com", time.Hour)
	assert.NoError(t, err)
}
