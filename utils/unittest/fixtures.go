package unittest

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/require"

	"github.com/ArTombado/rsnano-node/model/nano"
	"github.com/ArTombado/rsnano-node/storage"
	"github.com/ArTombado/rsnano-node/storage/badger/operation"
)

// HashFixture returns a random block hash.
func HashFixture() nano.BlockHash {
	var hash nano.BlockHash
	read(hash[:])
	return hash
}

// AccountFixture returns a random account.
func AccountFixture() nano.Account {
	var account nano.Account
	read(account[:])
	return account
}

func read(buf []byte) {
	_, err := rand.Read(buf)
	if err != nil {
		panic(err)
	}
}

// ChainBuilder assembles one account chain block by block, wiring previous
// pointers, heights and successor sidebands the way the ledger would.
type ChainBuilder struct {
	account nano.Account
	blocks  []*nano.Block
}

// NewChain starts a chain builder for the given account. The first block
// added must be the open block.
func NewChain(account nano.Account) *ChainBuilder {
	return &ChainBuilder{account: account}
}

// AddOpen appends the open block, optionally receiving from a source send.
func (b *ChainBuilder) AddOpen(source nano.BlockHash) *nano.Block {
	return b.add(nano.BlockTypeOpen, source)
}

// AddSend appends a send block.
func (b *ChainBuilder) AddSend() *nano.Block {
	return b.add(nano.BlockTypeSend, nano.ZeroHash)
}

// AddReceive appends a receive block depending on the given source send.
func (b *ChainBuilder) AddReceive(source nano.BlockHash) *nano.Block {
	return b.add(nano.BlockTypeReceive, source)
}

// AddChange appends a representative change block.
func (b *ChainBuilder) AddChange() *nano.Block {
	return b.add(nano.BlockTypeChange, nano.ZeroHash)
}

func (b *ChainBuilder) add(typ nano.BlockType, link nano.BlockHash) *nano.Block {
	block := &nano.Block{
		Hash:    HashFixture(),
		Type:    typ,
		Account: b.account,
		Link:    link,
		Height:  uint64(len(b.blocks) + 1),
	}
	if len(b.blocks) > 0 {
		prev := b.blocks[len(b.blocks)-1]
		block.Previous = prev.Hash
		prev.Successor = block.Hash
	}
	b.blocks = append(b.blocks, block)
	return block
}

// Blocks returns all blocks of the chain, bottom to top.
func (b *ChainBuilder) Blocks() []*nano.Block {
	return b.blocks
}

// Frontier returns the head block of the chain.
func (b *ChainBuilder) Frontier() *nano.Block {
	return b.blocks[len(b.blocks)-1]
}

// Account returns the account the chain belongs to.
func (b *ChainBuilder) Account() nano.Account {
	return b.account
}

// SaveChain persists the chain's blocks and its account record.
func SaveChain(t testing.TB, db *badger.DB, chain *ChainBuilder) {
	blocks := chain.Blocks()
	require.NotEmpty(t, blocks)
	err := db.Update(func(txn *badger.Txn) error {
		for _, block := range blocks {
			err := operation.UpsertBlock(block)(txn)
			if err != nil {
				return err
			}
		}
		info := nano.AccountInfo{
			OpenBlock:  blocks[0].Hash,
			HeadBlock:  blocks[len(blocks)-1].Hash,
			BlockCount: uint64(len(blocks)),
		}
		return operation.UpsertAccount(chain.Account(), &info)(txn)
	})
	require.NoError(t, err)
}

// SaveConfirmationHeight persists a cemented watermark for an account.
func SaveConfirmationHeight(t testing.TB, db *badger.DB, account nano.Account, info nano.ConfirmationHeightInfo) {
	err := db.Update(func(txn *badger.Txn) error {
		return operation.UpsertConfirmationHeight(account, info)(txn)
	})
	require.NoError(t, err)
}

// SavePruned records a hash as pruned.
func SavePruned(t testing.TB, db *badger.DB, hash nano.BlockHash) {
	err := db.Update(func(txn *badger.Txn) error {
		return operation.InsertPruned(hash)(txn)
	})
	require.NoError(t, err)
}

// ConfirmationHeight reads the cemented watermark for an account; a missing
// record reads as the zero watermark.
func ConfirmationHeight(t testing.TB, db *badger.DB, account nano.Account) nano.ConfirmationHeightInfo {
	var info nano.ConfirmationHeightInfo
	err := db.View(func(txn *badger.Txn) error {
		err := operation.RetrieveConfirmationHeight(account, &info)(txn)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	})
	require.NoError(t, err)
	return info
}
