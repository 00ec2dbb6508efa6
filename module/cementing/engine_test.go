package cementing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArTombado/rsnano-node/model/nano"
	"github.com/ArTombado/rsnano-node/module/cementing"
	"github.com/ArTombado/rsnano-node/module/irrecoverable"
	"github.com/ArTombado/rsnano-node/module/metrics"
	"github.com/ArTombado/rsnano-node/module/writequeue"
	bstorage "github.com/ArTombado/rsnano-node/storage/badger"
	"github.com/ArTombado/rsnano-node/utils/unittest"
)

func newEngine(db *badger.DB) *cementing.Engine {
	return cementing.New(
		unittest.Logger(),
		bstorage.NewLedger(db),
		writequeue.NewQueue(),
		metrics.NewNoopCollector(),
		cementing.DefaultConfig(),
	)
}

func TestEngineCementsAddedBlocks(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		chain := unittest.NewChain(unittest.AccountFixture())
		chain.AddOpen(nano.ZeroHash)
		chain.AddSend()
		chain.AddSend()
		unittest.SaveChain(t, db, chain)

		engine := newEngine(db)

		var mu sync.Mutex
		var cemented []nano.BlockHash
		engine.AddCementedConsumer(func(blocks []*nano.Block) {
			mu.Lock()
			defer mu.Unlock()
			for _, block := range blocks {
				cemented = append(cemented, block.Hash)
			}
		})

		ctx, cancel := context.WithCancel(context.Background())
		signalerCtx, errChan := irrecoverable.WithSignaler(ctx)
		engine.Start(signalerCtx)
		unittest.RequireCloses(t, engine.Ready(), time.Second, "engine ready")

		require.True(t, engine.Add(chain.Frontier()))

		require.Eventually(t, func() bool {
			return engine.IsIdle()
		}, 5*time.Second, 10*time.Millisecond)

		info := unittest.ConfirmationHeight(t, db, chain.Account())
		assert.Equal(t, uint64(3), info.Height)

		mu.Lock()
		assert.Len(t, cemented, 3)
		mu.Unlock()

		cancel()
		unittest.RequireCloses(t, engine.Done(), time.Second, "engine done")

		select {
		case err := <-errChan:
			require.NoError(t, err)
		default:
		}
	})
}

func TestEngineAlreadyCementedConsumer(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		chain := unittest.NewChain(unittest.AccountFixture())
		open := chain.AddOpen(nano.ZeroHash)
		unittest.SaveChain(t, db, chain)
		unittest.SaveConfirmationHeight(t, db, chain.Account(), nano.ConfirmationHeightInfo{
			Height:   1,
			Frontier: open.Hash,
		})

		engine := newEngine(db)

		notified := make(chan nano.BlockHash, 1)
		engine.AddAlreadyCementedConsumer(func(hash nano.BlockHash) {
			notified <- hash
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		signalerCtx, _ := irrecoverable.WithSignaler(ctx)
		engine.Start(signalerCtx)
		unittest.RequireCloses(t, engine.Ready(), time.Second, "engine ready")

		require.True(t, engine.Add(open))

		select {
		case hash := <-notified:
			assert.Equal(t, open.Hash, hash)
		case <-time.After(5 * time.Second):
			t.Fatal("already-cemented notification missing")
		}
	})
}

func TestEngineDeduplicatesAdds(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		engine := newEngine(db)

		block := &nano.Block{Hash: unittest.HashFixture()}
		assert.True(t, engine.Add(block))
		assert.False(t, engine.Add(block), "duplicate hash must be dropped")
		assert.Equal(t, uint64(1), engine.AwaitingProcessingCount())
		assert.True(t, engine.IsProcessing(block.Hash))
		assert.False(t, engine.IsIdle())
	})
}

func TestEngineThrowsOnLedgerMismatch(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		// a block that is neither stored nor pruned references an unknown
		// account, which the walker must treat as corruption
		block := &nano.Block{
			Hash:    unittest.HashFixture(),
			Type:    nano.BlockTypeSend,
			Account: unittest.AccountFixture(),
			Height:  3,
		}

		engine := newEngine(db)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		signalerCtx, errChan := irrecoverable.WithSignaler(ctx)
		engine.Start(signalerCtx)
		unittest.RequireCloses(t, engine.Ready(), time.Second, "engine ready")

		require.True(t, engine.Add(block))

		select {
		case err := <-errChan:
			require.ErrorIs(t, err, cementing.ErrLedgerMismatch)
		case <-time.After(5 * time.Second):
			t.Fatal("expected an irrecoverable error")
		}
		unittest.RequireCloses(t, engine.Done(), time.Second, "engine done")
	})
}
