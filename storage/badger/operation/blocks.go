package operation

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/ArTombado/rsnano-node/model/nano"
)

// InsertBlock inserts a block keyed by its hash. The block is expected to
// carry its sideband fields (height, successor) already.
func InsertBlock(block *nano.Block) func(*badger.Txn) error {
	return insert(makePrefix(codeBlock, block.Hash), block)
}

// UpsertBlock writes a block, overwriting any previous version. Used when the
// ledger back-fills the successor sideband of an existing block.
func UpsertBlock(block *nano.Block) func(*badger.Txn) error {
	return upsert(makePrefix(codeBlock, block.Hash), block)
}

// RetrieveBlock retrieves the block with the given hash.
func RetrieveBlock(hash nano.BlockHash, block *nano.Block) func(*badger.Txn) error {
	return retrieve(makePrefix(codeBlock, hash), block)
}

// CheckBlock checks whether a block with the given hash exists.
func CheckBlock(hash nano.BlockHash, exists *bool) func(*badger.Txn) error {
	return check(makePrefix(codeBlock, hash), exists)
}
