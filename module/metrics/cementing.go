package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ArTombado/rsnano-node/module"
)

// CementingCollector reports on the cementation engine's write batches.
type CementingCollector struct {
	blocksCemented      prometheus.Counter
	batchWriteSize      prometheus.Gauge
	cementBatchDuration prometheus.Histogram
	pendingWrites       prometheus.Gauge
}

var _ module.CementingMetrics = (*CementingCollector)(nil)

// NewCementingCollector creates a new collector for the cementation engine
// and registers its metrics with the given registerer.
func NewCementingCollector(registerer prometheus.Registerer) *CementingCollector {
	blocksCemented := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespaceCementing,
		Subsystem: subsystemBatch,
		Name:      "blocks_cemented_total",
		Help:      "the number of blocks durably cemented",
	})
	batchWriteSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespaceCementing,
		Subsystem: subsystemBatch,
		Name:      "write_size",
		Help:      "the current adaptive cap on blocks cemented per write transaction",
	})
	cementBatchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespaceCementing,
		Subsystem: subsystemBatch,
		Name:      "commit_duration_seconds",
		Help:      "the wall-clock duration of cementation write commits in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})
	pendingWrites := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespaceCementing,
		Subsystem: subsystemBatch,
		Name:      "pending_writes",
		Help:      "the number of queued per-account write ranges awaiting flush",
	})
	registerer.MustRegister(blocksCemented, batchWriteSize, cementBatchDuration, pendingWrites)

	cc := &CementingCollector{
		blocksCemented:      blocksCemented,
		batchWriteSize:      batchWriteSize,
		cementBatchDuration: cementBatchDuration,
		pendingWrites:       pendingWrites,
	}
	return cc
}

func (cc *CementingCollector) BlocksCemented(count uint64) {
	cc.blocksCemented.Add(float64(count))
}

func (cc *CementingCollector) BatchWriteSize(size uint64) {
	cc.batchWriteSize.Set(float64(size))
}

func (cc *CementingCollector) CementBatchDuration(duration time.Duration) {
	cc.cementBatchDuration.Observe(duration.Seconds())
}

func (cc *CementingCollector) PendingWrites(count uint64) {
	cc.pendingWrites.Set(float64(count))
}
