package cementing

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/ArTombado/rsnano-node/model/nano"
	"github.com/ArTombado/rsnano-node/module"
	"github.com/ArTombado/rsnano-node/module/writequeue"
	"github.com/ArTombado/rsnano-node/storage"
)

// ErrLedgerMismatch indicates that a block referenced by confirmed state is
// neither stored nor pruned, or that a queued write no longer abuts the
// confirmed frontier. The ledger is corrupt; there is no safe continuation
// and the error must terminate the node.
var ErrLedgerMismatch = errors.New("ledger mismatch")

// topAndNextHash identifies the next chain position to process: the top
// level hash of the span, plus the cached next block above a resolved
// receive when it is already known (zero next means unknown).
type topAndNextHash struct {
	top        nano.BlockHash
	next       nano.BlockHash
	nextHeight uint64
}

// receiveChainDetails is the bookkeeping for one discovered receive
// dependency: where the receive sits in its own chain and the span of
// non-receive blocks iterated below it.
type receiveChainDetails struct {
	account      nano.Account
	height       uint64
	hash         nano.BlockHash
	topLevel     nano.BlockHash
	next         nano.BlockHash // successor above the receive, zero if unknown
	bottomHeight uint64
	bottomMost   nano.BlockHash
}

// receiveSourcePair couples a receive dependency with the hash of the send
// block it depends on. Pairs are resolved in LIFO order: the most recently
// discovered dependency is cemented first.
type receiveSourcePair struct {
	receiveDetails receiveChainDetails
	sourceHash     nano.BlockHash
}

// Cementer walks the block-dependency graph downward from a confirmed hash
// to the last cemented frontier of every involved account and applies the
// resulting confirmation height updates in adaptively sized write batches.
//
// The natural recursive formulation (cement dependencies, then cement self)
// is replaced by an iterative loop over two fixed-capacity ring buffers, so
// memory stays bounded no matter how deep a receive chain reaches. All state
// is owned by the single goroutine driving Process; only the batch write
// size and the stopped flag are shared.
type Cementer struct {
	log        zerolog.Logger
	ledger     storage.Ledger
	writeQueue *writequeue.Queue
	metrics    module.CementingMetrics
	cfg        Config

	stopped        *atomic.Bool
	batchWriteSize *atomic.Uint64

	pendingWrites     *pendingWriteQueue
	accountsConfirmed *accountsConfirmedCache
	lastFlush         time.Time

	notifyCemented         func(blocks []*nano.Block)
	notifyAlreadyCemented  func(hash nano.BlockHash)
	awaitingProcessingSize func() uint64
}

// NewCementer creates a walker over the given ledger. The callbacks are
// invoked on the calling goroutine of Process/CementBlocks: cemented
// notifications strictly after the write lock is released, already-cemented
// notifications during traversal.
func NewCementer(
	log zerolog.Logger,
	ledger storage.Ledger,
	writeQueue *writequeue.Queue,
	metrics module.CementingMetrics,
	cfg Config,
	stopped *atomic.Bool,
	notifyCemented func(blocks []*nano.Block),
	notifyAlreadyCemented func(hash nano.BlockHash),
	awaitingProcessingSize func() uint64,
) *Cementer {
	c := &Cementer{
		log:                    log.With().Str("component", "cementing").Logger(),
		ledger:                 ledger,
		writeQueue:             writeQueue,
		metrics:                metrics,
		cfg:                    cfg,
		stopped:                stopped,
		batchWriteSize:         atomic.NewUint64(cfg.BatchWriteSize),
		pendingWrites:          newPendingWriteQueue(),
		accountsConfirmed:      newAccountsConfirmedCache(),
		lastFlush:              time.Now(),
		notifyCemented:         notifyCemented,
		notifyAlreadyCemented:  notifyAlreadyCemented,
		awaitingProcessingSize: awaitingProcessingSize,
	}
	c.metrics.BatchWriteSize(cfg.BatchWriteSize)
	return c
}

// PendingEmpty reports whether any write ranges are queued but not flushed.
func (c *Cementer) PendingEmpty() bool {
	return c.pendingWrites.Empty()
}

// BatchWriteSize returns the current adaptive cap on blocks per write.
func (c *Cementer) BatchWriteSize() uint64 {
	return c.batchWriteSize.Load()
}

// ClearProcessVars resets the per-pass accounts cache. Called by the engine
// once all queued work is drained and flushed.
func (c *Cementer) ClearProcessVars() {
	c.accountsConfirmed.Clear()
}

// Process cements the chain of the given confirmed block: every uncemented
// ancestor across all account chains reached through receive dependencies,
// and finally the block itself. Writes are batched; a pass may return with
// ranges still queued, to be flushed by a later pass or by the engine's
// trailing flush.
//
// Returns an error wrapping ErrLedgerMismatch on corruption; all other
// traversal conditions are handled internally.
func (c *Cementer) Process(original *nano.Block) error {
	if c.pendingWrites.Empty() {
		c.ClearProcessVars()
		c.lastFlush = time.Now()
	}

	var nextInReceiveChain *topAndNextHash
	checkpoints := newHashRing(c.cfg.MaxItems)
	receiveSourcePairs := newPairRing(c.cfg.MaxItems)
	var current nano.BlockHash
	firstIter := true

	txn := c.ledger.BeginRead()
	defer txn.Discard()

	moreToProcess := func() bool {
		return (!receiveSourcePairs.Empty() || current != original.Hash) && !c.stopped.Load()
	}

	for {
		var receiveDetails *receiveChainDetails
		hashToProcess := c.getNextBlock(nextInReceiveChain, checkpoints, receiveSourcePairs, &receiveDetails, original)
		current = hashToProcess.top
		topLevelHash := current

		var block *nano.Block
		if firstIter {
			// the first iteration always starts from the externally supplied
			// block, which is not necessarily readable in our snapshot yet
			block = original
		} else {
			var err error
			block, err = txn.Block(current)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
		}

		if block == nil {
			pruned, err := txn.PrunedExists(current)
			if err != nil {
				return err
			}
			if !pruned {
				c.log.Error().
					Str("hash", current.String()).
					Msg("block neither stored nor pruned while setting confirmation height")
				return fmt.Errorf("block %s not found and not pruned: %w", current, ErrLedgerMismatch)
			}
			// a pruned source needs no further confirmation work; unwind the
			// receive that depended on it
			if !receiveSourcePairs.Empty() {
				receiveSourcePairs.PopBack()
			}
			if !moreToProcess() {
				break
			}
			continue
		}

		account := block.Account

		// if this account was already updated in this pass but not yet
		// flushed, the cache is authoritative over storage
		var confHeight nano.ConfirmationHeightInfo
		if info, ok := c.accountsConfirmed.Get(account); ok {
			confHeight = nano.ConfirmationHeightInfo{
				Height:   info.ConfirmedHeight,
				Frontier: info.IteratedFrontier,
			}
		} else {
			var err error
			confHeight, err = txn.ConfirmationHeight(account)
			if err != nil {
				return err
			}
			if firstIter && confHeight.Height >= block.Height && current == original.Hash {
				// the requested block was already confirmed before this pass
				c.notifyAlreadyCemented(original.Hash)
			}
		}

		blockHeight := block.Height
		alreadyCemented := confHeight.Height >= blockHeight

		// if we are not already at the bottom of the uncemented span
		// (1 above the cemented frontier) then find it
		if !alreadyCemented && blockHeight-confHeight.Height > 1 {
			if blockHeight-confHeight.Height == 2 {
				// a single block sits between this one and the frontier; the
				// previous pointer gives the least unconfirmed hash directly
				current = block.Previous
				blockHeight--
			} else if nextInReceiveChain == nil {
				var err error
				current, blockHeight, err = c.leastUnconfirmedHash(txn, current, account, confHeight, blockHeight)
				if err != nil {
					return err
				}
			} else {
				// the cached successor of the last receive saves the frontier
				// lookup; we already know the next block to process
				current = hashToProcess.next
				blockHeight = hashToProcess.nextHeight
			}
		}

		topMostNonReceive := current
		hitReceive := false
		if !alreadyCemented {
			var err error
			hitReceive, topMostNonReceive, err = c.iterate(txn, blockHeight, current, checkpoints, topLevelHash, receiveSourcePairs, account)
			if err != nil {
				return err
			}
		}

		// exit early when stopped; updating a long chain could otherwise keep
		// the node running for a while
		if c.stopped.Load() {
			break
		}

		wasCachedContinuation := nextInReceiveChain != nil
		nextInReceiveChain = nil

		// a hit receive defers this span, unless the sends below it still
		// need to be queued first
		if !hitReceive || (receiveSourcePairs.Len() == 1 && topMostNonReceive != current) {
			var err error
			nextInReceiveChain, err = c.prepare(preparation{
				txn:               txn,
				topMostNonReceive: topMostNonReceive,
				alreadyCemented:   alreadyCemented,
				checkpoints:       checkpoints,
				confHeight:        confHeight,
				account:           account,
				bottomHeight:      blockHeight,
				bottomMost:        current,
				receiveDetails:    receiveDetails,
			})
			if err != nil {
				return err
			}

			// when the cached continuation was used, the back pair was not
			// consumed and stays for the next round
			if !wasCachedContinuation && !receiveSourcePairs.Empty() {
				receiveSourcePairs.PopBack()
			}

			err = c.maybeFlush(current == original.Hash)
			if err != nil {
				return err
			}
		}

		firstIter = false
		txn.Refresh()

		if !moreToProcess() {
			break
		}
	}

	return nil
}

// The next block hash to iterate over, in priority order:
//  1. The next block in the account chain of the last processed receive.
//  2. The most recently discovered receive dependency's source.
//  3. The last checkpoint hit.
//  4. The hash that was requested originally: either all checkpoints were
//     exhausted, or every dependency has been processed.
func (c *Cementer) getNextBlock(
	nextInReceiveChain *topAndNextHash,
	checkpoints *hashRing,
	receiveSourcePairs *pairRing,
	receiveDetails **receiveChainDetails,
	original *nano.Block,
) topAndNextHash {
	var next topAndNextHash
	switch {
	case nextInReceiveChain != nil:
		next = *nextInReceiveChain
	case !receiveSourcePairs.Empty():
		pair := receiveSourcePairs.Back()
		details := pair.receiveDetails
		*receiveDetails = &details
		next = topAndNextHash{
			top:        pair.sourceHash,
			next:       details.next,
			nextHeight: details.height + 1,
		}
	case !checkpoints.Empty():
		next = topAndNextHash{top: checkpoints.Back()}
	default:
		next = topAndNextHash{top: original.Hash}
	}
	return next
}

// leastUnconfirmedHash returns the lowest uncemented block of the account
// chain holding the given hash, together with its height.
func (c *Cementer) leastUnconfirmedHash(
	txn storage.Transaction,
	hash nano.BlockHash,
	account nano.Account,
	confHeight nano.ConfirmationHeightInfo,
	blockHeight uint64,
) (nano.BlockHash, uint64, error) {
	if confHeight.Height == 0 {
		// nothing confirmed yet, so the open block is the lowest candidate
		info, err := txn.AccountInfo(account)
		if errors.Is(err, storage.ErrNotFound) {
			return nano.ZeroHash, 0, fmt.Errorf("account %s has no chain record: %w", account, ErrLedgerMismatch)
		}
		if err != nil {
			return nano.ZeroHash, 0, err
		}
		return info.OpenBlock, 1, nil
	}
	if blockHeight > confHeight.Height {
		frontier, err := txn.Block(confHeight.Frontier)
		if errors.Is(err, storage.ErrNotFound) {
			return nano.ZeroHash, 0, fmt.Errorf("confirmed frontier %s missing: %w", confHeight.Frontier, ErrLedgerMismatch)
		}
		if err != nil {
			return nano.ZeroHash, 0, err
		}
		return frontier.Successor, frontier.Height + 1, nil
	}
	return hash, blockHeight, nil
}

// iterate walks upward by successor from the bottom hash toward the top
// level hash. It stops at the first receive with a stored source block,
// queueing the dependency, or when the top level is reached. It reports
// whether a receive was hit and the topmost non-receive block seen.
func (c *Cementer) iterate(
	txn storage.ReadTransaction,
	bottomHeight uint64,
	bottomHash nano.BlockHash,
	checkpoints *hashRing,
	topLevelHash nano.BlockHash,
	receiveSourcePairs *pairRing,
	account nano.Account,
) (bool, nano.BlockHash, error) {
	hitReceive := false
	reachedTarget := false
	topMostNonReceive := bottomHash
	hash := bottomHash
	numBlocks := 0

	for !hash.IsZero() && !reachedTarget && !c.stopped.Load() {
		// Once a receive is cemented, all blocks above it up to the next
		// receive can be cemented too, so store those details for later.
		numBlocks++
		block, err := txn.Block(hash)
		if errors.Is(err, storage.ErrNotFound) {
			return false, topMostNonReceive, fmt.Errorf("block %s missing mid-chain: %w", hash, ErrLedgerMismatch)
		}
		if err != nil {
			return false, topMostNonReceive, err
		}

		source := block.Source()
		sourceExists := false
		if !source.IsZero() {
			sourceExists, err = txn.BlockExists(source)
			if err != nil {
				return false, topMostNonReceive, err
			}
		}

		if sourceExists {
			hitReceive = true
			reachedTarget = true
			next := nano.ZeroHash
			if !block.Successor.IsZero() && block.Successor != topLevelHash {
				next = block.Successor
			}
			receiveSourcePairs.PushBack(receiveSourcePair{
				receiveDetails: receiveChainDetails{
					account:      account,
					height:       block.Height,
					hash:         hash,
					topLevel:     topLevelHash,
					next:         next,
					bottomHeight: bottomHeight,
					bottomMost:   bottomHash,
				},
				sourceHash: source,
			})
			// store a checkpoint every MaxItems pairs so that a long chain of
			// accounts toward genesis can always be traversed again after the
			// pair ring wrapped around
			if receiveSourcePairs.Len()%c.cfg.MaxItems == 0 {
				checkpoints.PushBack(topLevelHash)
			}
		} else {
			// a send/change/epoch block, or a receive whose source is pruned
			topMostNonReceive = hash
			if hash == topLevelHash {
				reachedTarget = true
			} else {
				hash = block.Successor
			}
		}

		// we could be traversing a very large account; don't keep one read
		// snapshot open the whole time
		if numBlocks%c.cfg.BatchReadSize == 0 {
			txn.Refresh()
		}
	}

	return hitReceive, topMostNonReceive, nil
}

// preparation carries the state of one finished inner walk into the
// write-range emission.
type preparation struct {
	txn               storage.Transaction
	topMostNonReceive nano.BlockHash
	alreadyCemented   bool
	checkpoints       *hashRing
	confHeight        nano.ConfirmationHeightInfo
	account           nano.Account
	bottomHeight      uint64
	bottomMost        nano.BlockHash
	receiveDetails    *receiveChainDetails
}

// prepare queues the write ranges produced by one inner walk: the span of
// non-receive blocks iterated for the current account, and the resolved
// receive itself. It returns the cached continuation above the receive, when
// its successor is already known.
func (c *Cementer) prepare(p preparation) (*topAndNextHash, error) {
	if !p.alreadyCemented {
		// add the non-receive blocks iterated for this account
		var topHeight uint64
		block, err := p.txn.Block(p.topMostNonReceive)
		if err == nil {
			topHeight = block.Height
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		if topHeight > p.confHeight.Height {
			c.accountsConfirmed.Put(p.account, confirmedInfo{
				ConfirmedHeight:  topHeight,
				IteratedFrontier: p.topMostNonReceive,
			})
			p.checkpoints.TruncateAfter(p.topMostNonReceive)
			c.pendingWrites.PushBack(writeDetails{
				Account:      p.account,
				BottomHeight: p.bottomHeight,
				BottomHash:   p.bottomMost,
				TopHeight:    topHeight,
				TopHash:      p.topMostNonReceive,
			})
			c.metrics.PendingWrites(uint64(c.pendingWrites.Len()))
		}
	}

	// add the receive block; everything above it up to the next receive is
	// covered by the cached continuation
	var nextInReceiveChain *topAndNextHash
	if details := p.receiveDetails; details != nil {
		c.accountsConfirmed.Put(details.account, confirmedInfo{
			ConfirmedHeight:  details.height,
			IteratedFrontier: details.hash,
		})
		if !details.next.IsZero() {
			nextInReceiveChain = &topAndNextHash{
				top:        details.topLevel,
				next:       details.next,
				nextHeight: details.height + 1,
			}
		} else {
			p.checkpoints.TruncateAfter(details.hash)
		}
		c.pendingWrites.PushBack(writeDetails{
			Account:      details.account,
			BottomHeight: details.bottomHeight,
			BottomHash:   details.bottomMost,
			TopHeight:    details.height,
			TopHash:      details.hash,
		})
		c.metrics.PendingWrites(uint64(c.pendingWrites.Len()))
	}

	return nextInReceiveChain, nil
}

// maybeFlush evaluates the flush triggers after one inner walk and, when one
// fires, attempts to take the write lock. Contention defers the flush unless
// memory pressure forces it.
func (c *Cementer) maybeFlush(finishedIterating bool) error {
	totalPending := c.pendingWrites.TotalBlocks()

	// bulking many pending ranges into one write makes the write, which is
	// the bottleneck, considerably cheaper per block
	maxBatchSizeReached := totalPending >= c.batchWriteSize.Load()
	minTimeExceeded := time.Since(c.lastFlush) >= c.cfg.BatchSeparateMinTime
	nonAwaitingProcessing := c.awaitingProcessingSize() == 0
	shouldOutput := finishedIterating && (nonAwaitingProcessing || minTimeExceeded)
	forceWrite := c.pendingWrites.Len() >= c.cfg.MaxPendingWrites ||
		c.accountsConfirmed.Len() >= c.cfg.MaxPendingWrites

	if (maxBatchSizeReached || shouldOutput || forceWrite) && !c.pendingWrites.Empty() {
		if guard, ok := c.writeQueue.TryAcquire(writequeue.WriterCementing); ok {
			return c.CementBlocks(guard)
		}
		if forceWrite {
			// memory safety overrides throughput fairness
			guard := c.writeQueue.Acquire(writequeue.WriterCementing)
			return c.CementBlocks(guard)
		}
		// another writer holds the lock; keep iterating and retry at the
		// next trigger
	}
	return nil
}

// CementBlocks applies every queued write range to storage. The commit is
// split into chunks bounded by the adaptive batch cap; each chunk's commit
// latency is measured and a slow commit shrinks the cap by 10%, floored at
// the configured minimum. Observers are notified strictly after the write
// lock is released.
func (c *Cementer) CementBlocks(guard *writequeue.Guard) (err error) {
	amountToChange := c.batchWriteSize.Load() / 10
	var cemented []*nano.Block

	txn := c.ledger.BeginWrite()
	started := time.Now()
	defer func() {
		txn.Discard()
		guard.Release()
	}()

	for {
		pending, ok := c.pendingWrites.Front()
		if !ok {
			break
		}

		confHeight, err := txn.ConfirmationHeight(pending.Account)
		if err != nil {
			return err
		}

		if pending.TopHeight > confHeight.Height {
			// the queued range must extend the confirmed frontier exactly;
			// anything else means blocks were rolled back under us
			if pending.BottomHeight != confHeight.Height+1 {
				c.log.Error().
					Str("account", pending.Account.String()).
					Uint64("bottom_height", pending.BottomHeight).
					Uint64("confirmed_height", confHeight.Height).
					Msg("queued write does not abut confirmed frontier")
				return fmt.Errorf("write range for account %s starts at %d but confirmed height is %d: %w",
					pending.Account, pending.BottomHeight, confHeight.Height, ErrLedgerMismatch)
			}

			frontier := pending.BottomHash
			for height := pending.BottomHeight; height <= pending.TopHeight; height++ {
				block, err := txn.Block(frontier)
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("block %s missing while cementing account %s: %w",
						frontier, pending.Account, ErrLedgerMismatch)
				}
				if err != nil {
					return err
				}
				cemented = append(cemented, block)

				// commit a chunk once the adaptive cap (plus 10% slack, so a
				// chunk boundary never fires for one straggling block) is
				// reached; a huge backlog must not produce one enormous write
				// transaction
				if uint64(len(cemented)) > c.batchWriteSize.Load()+amountToChange && height < pending.TopHeight {
					err = txn.PutConfirmationHeight(pending.Account, nano.ConfirmationHeightInfo{
						Height:   height,
						Frontier: frontier,
					})
					if err != nil {
						return err
					}
					err = c.commitAndNotify(txn, started, &guard, &cemented, true)
					if err != nil {
						return err
					}
					txn = c.ledger.BeginWrite()
					started = time.Now()
					amountToChange = c.batchWriteSize.Load() / 10
				}

				frontier = block.Successor
			}

			err = txn.PutConfirmationHeight(pending.Account, nano.ConfirmationHeightInfo{
				Height:   pending.TopHeight,
				Frontier: pending.TopHash,
			})
			if err != nil {
				return err
			}
		}

		c.pendingWrites.PopFront()
		if info, ok := c.accountsConfirmed.Get(pending.Account); ok && info.ConfirmedHeight == pending.TopHeight {
			c.accountsConfirmed.Remove(pending.Account)
		}
	}

	err = c.commitAndNotify(txn, started, &guard, &cemented, false)
	if err != nil {
		return err
	}

	c.metrics.PendingWrites(0)
	c.lastFlush = time.Now()
	return nil
}

// commitAndNotify commits the current write transaction, adapts the batch
// cap to the observed latency, releases the write lock and only then hands
// the cemented blocks to the observers. Callbacks must never run while the
// lock is held: an observer triggering another ledger operation would
// deadlock.
func (c *Cementer) commitAndNotify(
	txn storage.WriteTransaction,
	started time.Time,
	guard **writequeue.Guard,
	cemented *[]*nano.Block,
	reacquire bool,
) error {
	err := txn.Commit()
	if err != nil {
		return err
	}
	elapsed := time.Since(started)
	c.metrics.CementBatchDuration(elapsed)

	if elapsed > c.cfg.MaxBatchWriteTime {
		// shrink by 10% unless we have hit the floor; the cap is never grown
		// back automatically
		size := c.batchWriteSize.Load()
		reduced := size - size/10
		if reduced < c.cfg.MinBatchWriteSize {
			reduced = c.cfg.MinBatchWriteSize
		}
		c.batchWriteSize.Store(reduced)
		c.metrics.BatchWriteSize(reduced)
		c.log.Debug().
			Dur("commit_time", elapsed).
			Uint64("batch_write_size", reduced).
			Msg("slow cementation commit, shrinking batch size")
	}

	(*guard).Release()
	if len(*cemented) > 0 {
		c.log.Debug().
			Int("blocks", len(*cemented)).
			Dur("commit_time", elapsed).
			Msg("cemented blocks")
		c.metrics.BlocksCemented(uint64(len(*cemented)))
		c.notifyCemented(*cemented)
		*cemented = nil
	}
	if reacquire {
		*guard = c.writeQueue.Acquire(writequeue.WriterCementing)
	}
	return nil
}
