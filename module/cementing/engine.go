package cementing

import (
	"fmt"
	"sync"

	"github.com/ef-ds/deque"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/ArTombado/rsnano-node/model/nano"
	"github.com/ArTombado/rsnano-node/module"
	"github.com/ArTombado/rsnano-node/module/component"
	"github.com/ArTombado/rsnano-node/module/irrecoverable"
	"github.com/ArTombado/rsnano-node/module/writequeue"
	"github.com/ArTombado/rsnano-node/storage"
)

// CementedConsumer receives batches of newly cemented blocks, in cementation
// order, after the corresponding write has committed and the write lock has
// been released.
type CementedConsumer func(blocks []*nano.Block)

// AlreadyCementedConsumer receives the hash of a block whose confirmation was
// requested but had already been cemented by an earlier pass.
type AlreadyCementedConsumer func(hash nano.BlockHash)

// Engine is the front of the cementation pipeline: callers hand it confirmed
// blocks via Add, a single worker drains them through the bounded walker, and
// registered consumers observe the outcome. Lifecycle follows the component
// pattern: Start with a signaler context, Ready/Done channels, cancellation
// for shutdown. Ledger corruption discovered by the walker is thrown as an
// irrecoverable error, terminating the node.
type Engine struct {
	component.Component

	log        zerolog.Logger
	cementer   *Cementer
	writeQueue *writequeue.Queue
	stopped    *atomic.Bool
	notifier   module.Notifier

	mu             sync.Mutex
	awaiting       deque.Deque // of *nano.Block
	awaitingHashes map[nano.BlockHash]struct{}
	// hashes whose traversal finished but whose writes are still queued
	pendingFlush map[nano.BlockHash]struct{}
	currentHash  nano.BlockHash

	consumersMu              sync.RWMutex
	cementedConsumers        []CementedConsumer
	alreadyCementedConsumers []AlreadyCementedConsumer
}

// New creates a cementation engine over the given ledger, sharing the write
// queue with the other ledger writers.
func New(
	log zerolog.Logger,
	ledger storage.Ledger,
	queue *writequeue.Queue,
	metrics module.CementingMetrics,
	cfg Config,
) *Engine {
	e := &Engine{
		log:            log.With().Str("engine", "cementing").Logger(),
		writeQueue:     queue,
		stopped:        atomic.NewBool(false),
		notifier:       module.NewNotifier(),
		awaitingHashes: make(map[nano.BlockHash]struct{}),
		pendingFlush:   make(map[nano.BlockHash]struct{}),
	}
	e.cementer = NewCementer(
		log,
		ledger,
		queue,
		metrics,
		cfg,
		e.stopped,
		e.handleCemented,
		e.handleAlreadyCemented,
		e.AwaitingProcessingCount,
	)
	e.Component = component.NewComponentManagerBuilder().
		AddWorker(e.processLoop).
		AddWorker(e.shutdownWatcher).
		Build()
	return e
}

// AddCementedConsumer registers a consumer for newly cemented blocks.
// Consumers must be registered before the engine is started.
func (e *Engine) AddCementedConsumer(consumer CementedConsumer) {
	e.consumersMu.Lock()
	defer e.consumersMu.Unlock()
	e.cementedConsumers = append(e.cementedConsumers, consumer)
}

// AddAlreadyCementedConsumer registers a consumer for confirmation requests
// that turn out to be already cemented.
func (e *Engine) AddAlreadyCementedConsumer(consumer AlreadyCementedConsumer) {
	e.consumersMu.Lock()
	defer e.consumersMu.Unlock()
	e.alreadyCementedConsumers = append(e.alreadyCementedConsumers, consumer)
}

// Add queues a confirmed block for cementation. A hash already queued or in
// flight is dropped; the return value reports whether the block was accepted.
func (e *Engine) Add(block *nano.Block) bool {
	e.mu.Lock()
	if _, ok := e.awaitingHashes[block.Hash]; ok {
		e.mu.Unlock()
		return false
	}
	e.awaiting.PushBack(block)
	e.awaitingHashes[block.Hash] = struct{}{}
	e.mu.Unlock()

	e.notifier.Notify()
	return true
}

// AwaitingProcessingCount returns the number of blocks queued but not yet
// picked up by the worker.
func (e *Engine) AwaitingProcessingCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return uint64(e.awaiting.Len())
}

// IsProcessing reports whether the hash is queued, currently being traversed,
// or traversed with its writes not yet flushed.
func (e *Engine) IsProcessing(hash nano.BlockHash) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.currentHash == hash {
		return true
	}
	if _, ok := e.awaitingHashes[hash]; ok {
		return true
	}
	_, ok := e.pendingFlush[hash]
	return ok
}

// IsIdle reports whether the engine has no queued work, no traversal in
// flight and no writes awaiting a flush.
func (e *Engine) IsIdle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.awaiting.Len() == 0 && e.currentHash.IsZero() && e.cementer.PendingEmpty()
}

// processLoop is the single worker draining the queue. Between drains it
// parks on the notifier; after a drain it flushes any remaining write ranges
// so no cementation is deferred indefinitely.
func (e *Engine) processLoop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()

	for {
		for {
			if ctx.Err() != nil {
				return
			}
			block, ok := e.takeNext()
			if !ok {
				break
			}
			e.log.Debug().Str("hash", block.Hash.String()).Msg("processing confirmed block")
			err := e.cementer.Process(block)
			if err != nil {
				ctx.Throw(fmt.Errorf("cementing block %s: %w", block.Hash, err))
			}
			e.finish(block)
		}

		// the queue is drained; anything still pending gets written now, with
		// a blocking acquire since there is no more iteration to overlap with
		if !e.cementer.PendingEmpty() && !e.stopped.Load() {
			guard := e.writeQueue.Acquire(writequeue.WriterCementing)
			err := e.cementer.CementBlocks(guard)
			if err != nil {
				ctx.Throw(fmt.Errorf("flushing cementation writes: %w", err))
			}
		}
		e.clearFlushed()
		e.cementer.ClearProcessVars()

		select {
		case <-ctx.Done():
			return
		case <-e.notifier.Channel():
		}
	}
}

// shutdownWatcher raises the stopped flag on cancellation so a long traversal
// or a waiting lock acquisition inside the walker bails out promptly.
func (e *Engine) shutdownWatcher(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()
	<-ctx.Done()
	e.stopped.Store(true)
}

func (e *Engine) takeNext() (*nano.Block, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.awaiting.PopFront()
	if !ok {
		return nil, false
	}
	block := v.(*nano.Block)
	delete(e.awaitingHashes, block.Hash)
	e.currentHash = block.Hash
	return block, true
}

// finish records the outcome of one traversal: a hash whose writes are still
// queued stays visible to IsProcessing until the flush; a flush that emptied
// the queue also covered every earlier pending hash.
func (e *Engine) finish(block *nano.Block) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.currentHash = nano.ZeroHash
	if e.cementer.PendingEmpty() {
		e.pendingFlush = make(map[nano.BlockHash]struct{})
	} else {
		e.pendingFlush[block.Hash] = struct{}{}
	}
}

func (e *Engine) clearFlushed() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cementer.PendingEmpty() {
		e.pendingFlush = make(map[nano.BlockHash]struct{})
	}
}

func (e *Engine) handleCemented(blocks []*nano.Block) {
	e.consumersMu.RLock()
	defer e.consumersMu.RUnlock()
	for _, consumer := range e.cementedConsumers {
		consumer(blocks)
	}
}

func (e *Engine) handleAlreadyCemented(hash nano.BlockHash) {
	e.consumersMu.RLock()
	defer e.consumersMu.RUnlock()
	for _, consumer := range e.alreadyCementedConsumers {
		consumer(hash)
	}
}
