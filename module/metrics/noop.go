package metrics

import (
	"time"

	"github.com/ArTombado/rsnano-node/module"
)

// NoopCollector satisfies the metrics interfaces without recording anything.
// Used in tests and tooling.
type NoopCollector struct{}

var _ module.CementingMetrics = (*NoopCollector)(nil)

func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

func (nc *NoopCollector) BlocksCemented(count uint64)                 {}
func (nc *NoopCollector) BatchWriteSize(size uint64)                  {}
func (nc *NoopCollector) CementBatchDuration(duration time.Duration)  {}
func (nc *NoopCollector) PendingWrites(count uint64)                  {}
