package badger

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/ArTombado/rsnano-node/storage"
)

// Ledger implements transactional access to the nano block store on top of a
// badger DB. All keyed records are read and written through the closures in
// the operation package.
type Ledger struct {
	db *badger.DB
}

var _ storage.Ledger = (*Ledger)(nil)

// NewLedger wraps the given badger DB as a ledger accessor.
func NewLedger(db *badger.DB) *Ledger {
	return &Ledger{db: db}
}

// DB exposes the underlying badger handle for population and tooling.
func (l *Ledger) DB() *badger.DB {
	return l.db
}

// BeginRead opens a read transaction on the current snapshot.
func (l *Ledger) BeginRead() storage.ReadTransaction {
	return &readTransaction{
		transaction: transaction{txn: l.db.NewTransaction(false)},
		db:          l.db,
	}
}

// BeginWrite opens a write transaction. Exclusive access must be arbitrated
// by the caller; badger would otherwise abort conflicting commits.
func (l *Ledger) BeginWrite() storage.WriteTransaction {
	return &writeTransaction{
		transaction: transaction{txn: l.db.NewTransaction(true)},
	}
}
