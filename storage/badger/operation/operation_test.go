package operation_test

import (
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArTombado/rsnano-node/model/nano"
	"github.com/ArTombado/rsnano-node/storage"
	"github.com/ArTombado/rsnano-node/storage/badger/operation"
	"github.com/ArTombado/rsnano-node/utils/unittest"
)

func TestInsertRetrieveBlock(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		block := &nano.Block{
			Hash:    unittest.HashFixture(),
			Type:    nano.BlockTypeSend,
			Account: unittest.AccountFixture(),
			Height:  7,
		}

		err := db.Update(operation.InsertBlock(block))
		require.NoError(t, err)

		// inserting the same hash again fails
		err = db.Update(operation.InsertBlock(block))
		require.ErrorIs(t, err, storage.ErrAlreadyExists)

		var retrieved nano.Block
		err = db.View(operation.RetrieveBlock(block.Hash, &retrieved))
		require.NoError(t, err)
		assert.Equal(t, *block, retrieved)

		var exists bool
		err = db.View(operation.CheckBlock(block.Hash, &exists))
		require.NoError(t, err)
		assert.True(t, exists)

		err = db.View(operation.CheckBlock(unittest.HashFixture(), &exists))
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestUpsertBlockOverwrites(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		block := &nano.Block{
			Hash:   unittest.HashFixture(),
			Type:   nano.BlockTypeSend,
			Height: 1,
		}
		err := db.Update(operation.InsertBlock(block))
		require.NoError(t, err)

		// the ledger back-fills the successor sideband
		block.Successor = unittest.HashFixture()
		err = db.Update(operation.UpsertBlock(block))
		require.NoError(t, err)

		var retrieved nano.Block
		err = db.View(operation.RetrieveBlock(block.Hash, &retrieved))
		require.NoError(t, err)
		assert.Equal(t, block.Successor, retrieved.Successor)
	})
}

func TestRetrieveMissingBlock(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		var block nano.Block
		err := db.View(operation.RetrieveBlock(unittest.HashFixture(), &block))
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestInsertRetrieveAccount(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		account := unittest.AccountFixture()
		info := nano.AccountInfo{
			OpenBlock:  unittest.HashFixture(),
			HeadBlock:  unittest.HashFixture(),
			BlockCount: 12,
		}

		err := db.Update(operation.InsertAccount(account, &info))
		require.NoError(t, err)

		var retrieved nano.AccountInfo
		err = db.View(operation.RetrieveAccount(account, &retrieved))
		require.NoError(t, err)
		assert.Equal(t, info, retrieved)
	})
}

func TestPrunedMarker(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		hash := unittest.HashFixture()

		var exists bool
		err := db.View(operation.CheckPruned(hash, &exists))
		require.NoError(t, err)
		assert.False(t, exists)

		err = db.Update(operation.InsertPruned(hash))
		require.NoError(t, err)

		err = db.View(operation.CheckPruned(hash, &exists))
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestConfirmationHeightRoundTrip(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		account := unittest.AccountFixture()
		info := nano.ConfirmationHeightInfo{
			Height:   42,
			Frontier: unittest.HashFixture(),
		}

		err := db.Update(operation.UpsertConfirmationHeight(account, info))
		require.NoError(t, err)

		var retrieved nano.ConfirmationHeightInfo
		err = db.View(operation.RetrieveConfirmationHeight(account, &retrieved))
		require.NoError(t, err)
		assert.Equal(t, info, retrieved)

		// the watermark only moves up in practice, but the operation itself
		// overwrites unconditionally
		info.Height = 43
		err = db.Update(operation.UpsertConfirmationHeight(account, info))
		require.NoError(t, err)
		err = db.View(operation.RetrieveConfirmationHeight(account, &retrieved))
		require.NoError(t, err)
		assert.Equal(t, uint64(43), retrieved.Height)
	})
}

func TestTraverseConfirmationHeights(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		expected := make(map[nano.Account]nano.ConfirmationHeightInfo)
		for i := 0; i < 5; i++ {
			account := unittest.AccountFixture()
			info := nano.ConfirmationHeightInfo{
				Height:   uint64(i + 1),
				Frontier: unittest.HashFixture(),
			}
			expected[account] = info
			err := db.Update(operation.UpsertConfirmationHeight(account, info))
			require.NoError(t, err)
		}

		// unrelated records must not leak into the traversal
		err := db.Update(operation.InsertPruned(unittest.HashFixture()))
		require.NoError(t, err)

		actual := make(map[nano.Account]nano.ConfirmationHeightInfo)
		err = db.View(operation.TraverseConfirmationHeights(func(account nano.Account, info nano.ConfirmationHeightInfo) error {
			actual[account] = info
			return nil
		}))
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	})
}
