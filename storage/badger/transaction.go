package badger

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/ArTombado/rsnano-node/model/nano"
	"github.com/ArTombado/rsnano-node/storage"
	"github.com/ArTombado/rsnano-node/storage/badger/operation"
)

// transaction implements the shared read surface over a badger transaction.
type transaction struct {
	txn *badger.Txn
}

func (t *transaction) Block(hash nano.BlockHash) (*nano.Block, error) {
	var block nano.Block
	err := operation.RetrieveBlock(hash, &block)(t.txn)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not retrieve block: %w", err)
	}
	return &block, nil
}

func (t *transaction) BlockExists(hash nano.BlockHash) (bool, error) {
	var exists bool
	err := operation.CheckBlock(hash, &exists)(t.txn)
	if err != nil {
		return false, fmt.Errorf("could not check block: %w", err)
	}
	return exists, nil
}

func (t *transaction) PrunedExists(hash nano.BlockHash) (bool, error) {
	var exists bool
	err := operation.CheckPruned(hash, &exists)(t.txn)
	if err != nil {
		return false, fmt.Errorf("could not check pruned: %w", err)
	}
	return exists, nil
}

func (t *transaction) AccountInfo(account nano.Account) (*nano.AccountInfo, error) {
	var info nano.AccountInfo
	err := operation.RetrieveAccount(account, &info)(t.txn)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not retrieve account: %w", err)
	}
	return &info, nil
}

func (t *transaction) ConfirmationHeight(account nano.Account) (nano.ConfirmationHeightInfo, error) {
	var info nano.ConfirmationHeightInfo
	err := operation.RetrieveConfirmationHeight(account, &info)(t.txn)
	if errors.Is(err, storage.ErrNotFound) {
		// a missing record means nothing has been cemented for the account
		return nano.ConfirmationHeightInfo{}, nil
	}
	if err != nil {
		return nano.ConfirmationHeightInfo{}, fmt.Errorf("could not retrieve confirmation height: %w", err)
	}
	return info, nil
}

// readTransaction is a refreshable read snapshot.
type readTransaction struct {
	transaction
	db *badger.DB
}

var _ storage.ReadTransaction = (*readTransaction)(nil)

func (t *readTransaction) Refresh() {
	t.txn.Discard()
	t.txn = t.db.NewTransaction(false)
}

func (t *readTransaction) Discard() {
	t.txn.Discard()
}

// writeTransaction is an exclusive mutation of the ledger.
type writeTransaction struct {
	transaction
}

var _ storage.WriteTransaction = (*writeTransaction)(nil)

func (t *writeTransaction) PutConfirmationHeight(account nano.Account, info nano.ConfirmationHeightInfo) error {
	err := operation.UpsertConfirmationHeight(account, info)(t.txn)
	if err != nil {
		return fmt.Errorf("could not put confirmation height: %w", err)
	}
	return nil
}

func (t *writeTransaction) Commit() error {
	err := t.txn.Commit()
	if err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

func (t *writeTransaction) Discard() {
	t.txn.Discard()
}
