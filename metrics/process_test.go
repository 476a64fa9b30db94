package metrics

import (
	"testing"
	"time"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIfNotFailsToGetCPUTime(t *testing.T) {
	p, err := NewProcess(metrics.NewRegistry())
	require.NoError(t, err)

	seconds, err := p.CPUTime()

	assert.NoError(t, err)
	assert.True(t, seconds >= 0)
}

func TestIfSampleUpdatesProcessGauges(t *testing.T) {
	registry := metrics.NewRegistry()
	p, err := NewProcess(registry)
	require.NoError(t, err)

	require.NoError(t, p.Sample())
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, p.Sample())

	rss := registry.Get("runner.memory.rss").(metrics.Gauge)
	threads := registry.Get("runner.threads").(metrics.Gauge)
	cpu := registry.Get("runner.cpu.utilization").(metrics.GaugeFloat64)
	assert.True(t, rss.Value() > 0)
	assert.True(t, threads.Value() > 0)
	assert.True(t, cpu.Value() >= 0)
}
