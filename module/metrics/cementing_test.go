package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArTombado/rsnano-node/module/metrics"
)

func TestCementingCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCementingCollector(registry)

	collector.BlocksCemented(100)
	collector.BlocksCemented(50)
	collector.BatchWriteSize(16384)
	collector.CementBatchDuration(120 * time.Millisecond)
	collector.PendingWrites(3)

	families, err := registry.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				values[family.GetName()] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[family.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}

	assert.Equal(t, float64(150), values["cementing_batch_blocks_cemented_total"])
	assert.Equal(t, float64(16384), values["cementing_batch_write_size"])
	assert.Equal(t, float64(3), values["cementing_batch_pending_writes"])
}

func TestCementingCollectorRegistersOnce(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics.NewCementingCollector(registry)
	assert.Panics(t, func() { metrics.NewCementingCollector(registry) })
}
