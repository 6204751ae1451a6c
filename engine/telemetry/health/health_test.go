package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateAggregatesWorstStatus(t *testing.T) {
	probes := map[string]Probe{
		"store":    ProbeFunc(func(ctx context.Context) ProbeResult { return Healthy("store") }),
		"crawler":  ProbeFunc(func(ctx context.Context) ProbeResult { return Degraded("crawler", "some hosts circuit-open") }),
	}
	eval := NewEvaluator(time.Minute, probes)
	snap := eval.Evaluate(context.Background())
	assert.Equal(t, StatusDegraded, snap.Overall)
	assert.Len(t, snap.Probes, 2)
}

func TestEvaluateCachesWithinTTL(t *testing.T) {
	calls := 0
	probes := map[string]Probe{
		"store": ProbeFunc(func(ctx context.Context) ProbeResult {
			calls++
			return Healthy("store")
		}),
	}
	eval := NewEvaluator(time.Hour, probes)
	eval.Evaluate(context.Background())
	eval.Evaluate(context.Background())
	assert.Equal(t, 1, calls)
}
