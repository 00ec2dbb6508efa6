package storage

import (
	"github.com/ArTombado/rsnano-node/model/nano"
)

// Ledger provides transactional access to the block store. Read transactions
// operate on a snapshot that can be refreshed during long traversals; write
// transactions are exclusive and must be arbitrated externally (see
// module/writequeue) before being opened.
type Ledger interface {
	// BeginRead opens a read transaction on the current snapshot. The caller
	// must Discard it when done.
	BeginRead() ReadTransaction
	// BeginWrite opens a write transaction. The caller must hold the write
	// lock for its role and must Commit or Discard the transaction.
	BeginWrite() WriteTransaction
}

// Transaction is the read surface shared by read and write transactions.
type Transaction interface {
	// Block returns the block with the given hash, or ErrNotFound.
	Block(hash nano.BlockHash) (*nano.Block, error)
	// BlockExists checks whether a block with the given hash is stored.
	BlockExists(hash nano.BlockHash) (bool, error)
	// PrunedExists checks whether the given hash was recorded as pruned.
	PrunedExists(hash nano.BlockHash) (bool, error)
	// AccountInfo returns the chain record for the account, or ErrNotFound.
	AccountInfo(account nano.Account) (*nano.AccountInfo, error)
	// ConfirmationHeight returns the account's cemented watermark. A missing
	// record is not an error; it reads as the zero value (nothing cemented).
	ConfirmationHeight(account nano.Account) (nano.ConfirmationHeightInfo, error)
}

// ReadTransaction is a read-only snapshot over the ledger.
type ReadTransaction interface {
	Transaction
	// Refresh drops the current snapshot and continues on a fresh one, so a
	// long traversal does not pin old versions of the store.
	Refresh()
	// Discard releases the transaction.
	Discard()
}

// WriteTransaction mutates the ledger. Only confirmation height records are
// written by the cementation engine; all other records are written by the
// block processor, which is outside this repository's scope.
type WriteTransaction interface {
	Transaction
	// PutConfirmationHeight sets the account's cemented watermark.
	PutConfirmationHeight(account nano.Account, info nano.ConfirmationHeightInfo) error
	// Commit flushes all pending writes and releases the transaction.
	Commit() error
	// Discard releases the transaction without committing.
	Discard()
}
