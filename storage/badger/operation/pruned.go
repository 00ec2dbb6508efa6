package operation

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/ArTombado/rsnano-node/model/nano"
)

// prunedMarker is the stored value for a pruned hash; the key carries all the
// information, the value only needs to exist.
type prunedMarker struct{}

// InsertPruned records that the block with the given hash existed but has
// been pruned from the store.
func InsertPruned(hash nano.BlockHash) func(*badger.Txn) error {
	return upsert(makePrefix(codePruned, hash), prunedMarker{})
}

// CheckPruned checks whether the given hash was recorded as pruned.
func CheckPruned(hash nano.BlockHash, exists *bool) func(*badger.Txn) error {
	return check(makePrefix(codePruned, hash), exists)
}
