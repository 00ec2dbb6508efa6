package cementing

import (
	"time"
)

// Config carries the tuning constants of the cementation engine. They are
// injected rather than hard-coded so tests can exercise small-capacity edge
// cases cheaply; none of them affect correctness beyond "bounded".
type Config struct {
	// MaxItems is the capacity of the checkpoint and receive-source-pair ring
	// buffers, and the pair interval at which checkpoints are recorded.
	MaxItems int
	// BatchWriteSize is the initial adaptive cap on how many blocks may be
	// cemented in one write transaction.
	BatchWriteSize uint64
	// MinBatchWriteSize is the floor the adaptive cap never shrinks below.
	MinBatchWriteSize uint64
	// MaxBatchWriteTime is the commit latency ceiling; a slower commit
	// shrinks the adaptive cap by 10%.
	MaxBatchWriteTime time.Duration
	// BatchSeparateMinTime is the minimum elapsed time between flushes for a
	// finished pass to force a write while further work is still queued.
	BatchSeparateMinTime time.Duration
	// BatchReadSize is the number of blocks visited between read transaction
	// refreshes while scanning a long account chain.
	BatchReadSize int
	// MaxPendingWrites caps the pending write queue and the per-pass
	// accounts cache; reaching it forces a flush regardless of timing.
	MaxPendingWrites int
}

// DefaultConfig returns the production tuning of the engine.
func DefaultConfig() Config {
	return Config{
		MaxItems:             65536,
		BatchWriteSize:       65536,
		MinBatchWriteSize:    16384,
		MaxBatchWriteTime:    250 * time.Millisecond,
		BatchSeparateMinTime: 50 * time.Millisecond,
		BatchReadSize:        4096,
		MaxPendingWrites:     16384,
	}
}
