package module

import (
	"time"
)

// CementingMetrics tracks the behaviour of the cementation engine: how many
// blocks are durably confirmed, how large the adaptive write batches are, and
// how long the write transactions take to commit.
type CementingMetrics interface {
	// BlocksCemented records that count blocks were durably cemented in one
	// write batch.
	BlocksCemented(count uint64)
	// BatchWriteSize reports the current adaptive cap on blocks per write.
	BatchWriteSize(size uint64)
	// CementBatchDuration records the wall-clock time of one commit.
	CementBatchDuration(duration time.Duration)
	// PendingWrites reports the number of queued write ranges awaiting flush.
	PendingWrites(count uint64)
}
